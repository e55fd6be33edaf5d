package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/blog"
)

const (
	postColumns = `id, title, slug, content, COALESCE(cover_image, ''), is_published, published_at,
		created_at, updated_at`

	insertPostSQL = `INSERT INTO blog_posts (title, slug, content, cover_image, is_published, published_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6) RETURNING id, created_at, updated_at`

	updatePostSQL = `UPDATE blog_posts SET title = $2, slug = $3, content = $4, cover_image = NULLIF($5, ''),
		is_published = $6, published_at = $7, updated_at = now()
		WHERE id = $1 RETURNING updated_at`

	getPostByIDSQL   = `SELECT ` + postColumns + ` FROM blog_posts WHERE id = $1`
	getPostBySlugSQL = `SELECT ` + postColumns + ` FROM blog_posts WHERE slug = $1`

	listPostsSQL = `SELECT ` + postColumns + ` FROM blog_posts
		WHERE NOT $1 OR is_published
		ORDER BY COALESCE(published_at, created_at) DESC, id DESC
		OFFSET $2 LIMIT $3`
)

var _ blog.Repository = (*BlogRepository)(nil)

// BlogRepository implements blog.Repository backed by PostgreSQL.
type BlogRepository struct {
	pool *pgxpool.Pool
}

// NewBlogRepository returns a BlogRepository that uses the given pool.
func NewBlogRepository(pool *pgxpool.Pool) *BlogRepository {
	return &BlogRepository{pool: pool}
}

func (r *BlogRepository) Create(ctx context.Context, p *blog.Post) error {
	err := r.pool.QueryRow(ctx, insertPostSQL,
		p.Title, p.Slug, p.Content, p.CoverImage, p.IsPublished, p.PublishedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return blog.ErrSlugTaken
		}
		return errors.Wrap(err, "insert post")
	}
	return nil
}

func (r *BlogRepository) Update(ctx context.Context, p *blog.Post) error {
	err := r.pool.QueryRow(ctx, updatePostSQL,
		p.ID, p.Title, p.Slug, p.Content, p.CoverImage, p.IsPublished, p.PublishedAt,
	).Scan(&p.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return blog.ErrSlugTaken
	case errors.Is(err, pgx.ErrNoRows):
		return blog.ErrNotFound
	default:
		return errors.Wrapf(err, "update post %d", p.ID)
	}
}

func (r *BlogRepository) GetByID(ctx context.Context, id int64) (*blog.Post, error) {
	return r.getOne(ctx, getPostByIDSQL, id)
}

func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	return r.getOne(ctx, getPostBySlugSQL, slug)
}

func (r *BlogRepository) List(ctx context.Context, f blog.ListFilter) ([]blog.Post, error) {
	rows, err := r.pool.Query(ctx, listPostsSQL, f.PublishedOnly, f.Offset, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[blog.Post])
}

func (r *BlogRepository) getOne(ctx context.Context, sql string, arg any) (*blog.Post, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "get post")
	}
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[blog.Post])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blog.ErrNotFound
		}
		return nil, errors.Wrap(err, "get post")
	}
	return &p, nil
}

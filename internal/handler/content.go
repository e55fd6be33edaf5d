package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/blog"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/contact"
)

type postRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	CoverImage  string `json:"coverImage"`
	IsPublished bool   `json:"isPublished"`
}

func (p postRequest) input() blog.Input {
	return blog.Input{Title: p.Title, Content: p.Content, CoverImage: p.CoverImage, IsPublished: p.IsPublished}
}

// listPosts returns published posts. Operators may ask for drafts too with
// publishedOnly=false.
func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) error {
	q := newQuery(r)
	page, limit := q.int("page"), q.int("limit")
	published := q.bool("publishedOnly")
	if q.err != nil {
		return q.err
	}
	publishedOnly := published == nil || *published
	if !publishedOnly {
		ar, err := h.authenticate(r)
		if err != nil {
			return err
		}
		if err := h.requireAdmin(ar); err != nil {
			return err
		}
	}
	posts, err := h.svc.Blog.List(r.Context(), publishedOnly, page, limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(posts, toPost))
	return nil
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) error {
	p, err := h.svc.Blog.GetBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toPost(p))
	return nil
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) error {
	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	p, err := h.svc.Blog.Create(r.Context(), req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toPost(p))
	return nil
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	p, err := h.svc.Blog.Update(r.Context(), id, req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toPost(p))
	return nil
}

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	m, err := h.svc.Contact.Submit(r.Context(), contact.Message{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Message,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toContact(m))
	return nil
}

func (h *Handler) listContact(w http.ResponseWriter, r *http.Request) error {
	q := newQuery(r)
	page, limit := q.int("page"), q.int("limit")
	if q.err != nil {
		return q.err
	}
	list, err := h.svc.Contact.List(r.Context(), page, limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toContact))
	return nil
}

func (h *Handler) listVisitors(w http.ResponseWriter, r *http.Request) error {
	q := newQuery(r)
	path, country := q.str("path"), q.str("country")
	page, limit := q.int("page"), q.int("limit")
	if q.err != nil {
		return q.err
	}
	visits, err := h.svc.Visitors.List(r.Context(), path, country, page, limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(visits, toVisit))
	return nil
}

func (h *Handler) countVisitors(w http.ResponseWriter, r *http.Request) error {
	n, err := h.svc.Visitors.Count(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, struct {
		Total int64 `json:"total"`
	}{Total: n})
	return nil
}

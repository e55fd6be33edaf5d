package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/discount"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) error {
	list, err := h.svc.Categories.List(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toCategory))
	return nil
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) error {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	c, err := h.svc.Categories.Create(r.Context(), req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toCategory(c))
	return nil
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	c, err := h.svc.Categories.Get(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toCategory(c))
	return nil
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	c, err := h.svc.Categories.Rename(r.Context(), id, req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toCategory(c))
	return nil
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Categories.Delete(r.Context(), id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Category deleted")
	return nil
}

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	CategoryID  *int64           `json:"categoryId"`
	IsFeatured  *bool            `json:"isFeatured"`
	Tags        []string         `json:"tags"`
	Images      []imageDTO       `json:"images"`
}

func (p productRequest) input() product.Input {
	in := product.Input{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		IsFeatured:  p.IsFeatured,
		Tags:        p.Tags,
	}
	if p.Images != nil {
		in.Images = make([]product.Image, len(p.Images))
		for i, img := range p.Images {
			in.Images[i] = product.Image{URL: img.URL, IsPrimary: img.IsPrimary}
		}
	}
	return in
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) error {
	q := newQuery(r)
	lq := product.ListQuery{
		Page:       q.int("page"),
		Limit:      q.int("limit"),
		CategoryID: q.id("categoryId"),
		MinPrice:   q.decimal("minPrice"),
		MaxPrice:   q.decimal("maxPrice"),
		Featured:   q.bool("featured"),
		SortBy:     q.str("sortBy"),
		Order:      q.str("order"),
	}
	if q.err != nil {
		return q.err
	}
	views, err := h.svc.Products.List(r.Context(), lq)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(views, toProduct))
	return nil
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) error {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	v, err := h.svc.Products.Create(r.Context(), req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toProduct(v))
	return nil
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	v, err := h.svc.Products.Get(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProduct(v))
	return nil
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	v, err := h.svc.Products.Update(r.Context(), id, req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProduct(v))
	return nil
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Products.Delete(r.Context(), id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Product deleted")
	return nil
}

func (h *Handler) subscribeBackInStock(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Products.SubscribeBackInStock(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "You will be notified when this product is back in stock")
	return nil
}

func (h *Handler) unsubscribeBackInStock(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Products.UnsubscribeBackInStock(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Unsubscribed from back in stock notifications")
	return nil
}

type discountRequest struct {
	ProductID int64           `json:"productId"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	StartsAt  *time.Time      `json:"startsAt"`
	EndsAt    *time.Time      `json:"endsAt"`
}

func (d discountRequest) input() discount.Input {
	return discount.Input{
		ProductID: d.ProductID,
		Type:      d.Type,
		Value:     d.Value,
		StartsAt:  d.StartsAt,
		EndsAt:    d.EndsAt,
	}
}

func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) error {
	list, err := h.svc.Discounts.List(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toDiscount))
	return nil
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) error {
	var req discountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	d, err := h.svc.Discounts.Create(r.Context(), req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toDiscount(d))
	return nil
}

func (h *Handler) getDiscount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	d, err := h.svc.Discounts.Get(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toDiscount(d))
	return nil
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req discountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	d, err := h.svc.Discounts.Update(r.Context(), id, req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toDiscount(d))
	return nil
}

func (h *Handler) deleteDiscount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Discounts.Delete(r.Context(), id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Discount deleted")
	return nil
}

func (h *Handler) createRating(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ProductID int64  `json:"productId"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	rt, err := h.svc.Ratings.Create(r.Context(), claimsFrom(r.Context()).UserID, req.ProductID, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toRating(rt))
	return nil
}

func (h *Handler) listRatings(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	list, err := h.svc.Ratings.ListByProduct(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toRating))
	return nil
}

func (h *Handler) getRating(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	rt, err := h.svc.Ratings.Get(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toRating(rt))
	return nil
}

func (h *Handler) updateRating(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req struct {
		Rating  *int    `json:"rating"`
		Comment *string `json:"comment"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	rt, err := h.svc.Ratings.Update(r.Context(), claimsFrom(r.Context()).UserID, id, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toRating(rt))
	return nil
}

func (h *Handler) deleteRating(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Ratings.Delete(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Rating deleted")
	return nil
}

package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/address"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/blog"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/cart"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/category"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/contact"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/discount"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/rating"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/returns"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/visitor"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/wishlist"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// Response bodies. Slices are always non-nil so clients see [] rather than
// null.

type userDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       *string   `json:"mobile"`
	IsVerified   bool      `json:"isVerified"`
	IsSubscribed bool      `json:"isSubscribed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toUser(u *user.User) userDTO {
	return userDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Mobile:       u.Mobile,
		IsVerified:   u.IsVerified,
		IsSubscribed: u.IsSubscribed,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type addressDTO struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"addressLine1"`
	Line2      string    `json:"addressLine2"`
	City       string    `json:"city"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toAddress(a *address.Address) addressDTO {
	return addressDTO{
		ID:         a.ID,
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

type categoryDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCategory(c *category.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type imageDTO struct {
	URL       string `json:"url"`
	IsPrimary bool   `json:"isPrimary"`
}

type productDTO struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	AverageRating   float64         `json:"averageRating"`
	RatingCount     int64           `json:"ratingCount"`
	Stock           int             `json:"stock"`
	CategoryID      *int64          `json:"categoryId"`
	IsFeatured      bool            `json:"isFeatured"`
	Tags            []string        `json:"tags"`
	Images          []imageDTO      `json:"images"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toProduct(v *product.View) productDTO {
	out := productDTO{
		ID:              v.ID,
		Name:            v.Name,
		Slug:            v.Slug,
		Description:     v.Description,
		Price:           v.Price,
		DiscountedPrice: v.DiscountedPrice,
		AverageRating:   v.AverageRating,
		RatingCount:     v.Ratings.Count,
		Stock:           v.Stock,
		CategoryID:      v.CategoryID,
		IsFeatured:      v.IsFeatured,
		Tags:            nonNil(v.Tags),
		Images:          make([]imageDTO, len(v.Images)),
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	for i, img := range v.Images {
		out.Images[i] = imageDTO{URL: img.URL, IsPrimary: img.IsPrimary}
	}
	return out
}

// productRef is the compact product embedded in carts and wishlists.
type productRef struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Slug  string          `json:"slug"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Image string          `json:"image,omitempty"`
}

func toProductRef(p *product.Product) productRef {
	ref := productRef{ID: p.ID, Name: p.Name, Slug: p.Slug, Price: p.Price, Stock: p.Stock}
	for i, img := range p.Images {
		if i == 0 || img.IsPrimary {
			ref.Image = img.URL
		}
		if img.IsPrimary {
			break
		}
	}
	return ref
}

type discountDTO struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productId"`
	Type      pricing.Kind    `json:"type"`
	Value     decimal.Decimal `json:"value"`
	StartsAt  *time.Time      `json:"startsAt"`
	EndsAt    *time.Time      `json:"endsAt"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toDiscount(d *discount.Discount) discountDTO {
	return discountDTO{
		ID:        d.ID,
		ProductID: d.ProductID,
		Type:      d.Kind,
		Value:     d.Value,
		StartsAt:  d.StartsAt,
		EndsAt:    d.EndsAt,
		CreatedAt: d.CreatedAt,
	}
}

type cartLineDTO struct {
	ID        int64      `json:"id"`
	ProductID int64      `json:"productId"`
	Quantity  int        `json:"quantity"`
	Product   productRef `json:"product"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toCartLine(l *cart.Line) cartLineDTO {
	return cartLineDTO{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Product:   toProductRef(&l.Product),
		UpdatedAt: l.UpdatedAt,
	}
}

type orderItemDTO struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type transactionDTO struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        payment.Status  `json:"status"`
	Provider      payment.Method  `json:"provider"`
	ProviderTxnID *string         `json:"providerTxnId"`
}

type orderDTO struct {
	ID            int64           `json:"id"`
	Items         []orderItemDTO  `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	FinalAmount   decimal.Decimal `json:"finalAmount"`
	PaymentMethod payment.Method  `json:"paymentMethod"`
	Status        order.Status    `json:"status"`
	Payment       *transactionDTO `json:"payment"`
	DeliveredAt   *time.Time      `json:"deliveredAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func toOrder(o *order.Order) orderDTO {
	out := orderDTO{
		ID:            o.ID,
		Items:         make([]orderItemDTO, len(o.Items)),
		TotalAmount:   o.TotalAmount,
		DiscountTotal: o.DiscountTotal,
		FinalAmount:   o.FinalAmount,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for i, it := range o.Items {
		out.Items[i] = orderItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal,
		}
	}
	if t := o.Payment; t != nil {
		out.Payment = &transactionDTO{
			ID:            t.ID,
			Amount:        t.Amount,
			Status:        t.Status,
			Provider:      t.Provider,
			ProviderTxnID: t.ProviderTxnID,
		}
	}
	return out
}

type returnDetailDTO struct {
	ProductID int64    `json:"productId"`
	Reason    string   `json:"reason"`
	Images    []string `json:"images"`
}

type returnDTO struct {
	ID        int64             `json:"id"`
	OrderID   int64             `json:"orderId"`
	Status    string            `json:"status"`
	Items     []returnDetailDTO `json:"items"`
	CreatedAt time.Time         `json:"createdAt"`
}

func toReturn(r *returns.Request) returnDTO {
	out := returnDTO{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Status:    r.Status,
		Items:     make([]returnDetailDTO, len(r.Items)),
		CreatedAt: r.CreatedAt,
	}
	for i, d := range r.Items {
		out.Items[i] = returnDetailDTO{ProductID: d.ProductID, Reason: d.Reason, Images: nonNil(d.Images)}
	}
	return out
}

type ratingDTO struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ProductID int64     `json:"productId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toRating(r *rating.Rating) ratingDTO {
	return ratingDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		ProductID: r.ProductID,
		Rating:    r.Score,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type wishlistItemDTO struct {
	Product productRef `json:"product"`
	AddedAt time.Time  `json:"addedAt"`
}

func toWishlistItem(it *wishlist.Item) wishlistItemDTO {
	return wishlistItemDTO{Product: toProductRef(&it.Product), AddedAt: it.AddedAt}
}

type postDTO struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"coverImage"`
	IsPublished bool       `json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toPost(p *blog.Post) postDTO {
	return postDTO{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Content:     p.Content,
		CoverImage:  p.CoverImage,
		IsPublished: p.IsPublished,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type contactDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func toContact(m *contact.Message) contactDTO {
	return contactDTO{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Body,
		CreatedAt: m.CreatedAt,
	}
}

type visitDTO struct {
	ID        int64     `json:"id"`
	IP        string    `json:"ip"`
	City      *string   `json:"city"`
	Region    *string   `json:"region"`
	Country   *string   `json:"country"`
	UserAgent string    `json:"userAgent"`
	Path      string    `json:"path"`
	Referrer  string    `json:"referrer"`
	CreatedAt time.Time `json:"createdAt"`
}

func toVisit(v *visitor.Visit) visitDTO {
	return visitDTO{
		ID:        v.ID,
		IP:        v.IP,
		City:      optional(v.City),
		Region:    optional(v.Region),
		Country:   optional(v.Country),
		UserAgent: v.UserAgent,
		Path:      v.Path,
		Referrer:  v.Referrer,
		CreatedAt: v.CreatedAt,
	}
}

// mapSlice converts every element of in, returning an empty slice for nil.
func mapSlice[T, R any](in []T, fn func(*T) R) []R {
	out := make([]R, len(in))
	for i := range in {
		out[i] = fn(&in[i])
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

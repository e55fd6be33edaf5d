// Package handler exposes the shop services over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/address"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
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
	"github.com/MabsRahman/bamboo-shop-api/pkg/httpmiddleware"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// RefreshCookie names the cookie carrying the remembered-login token.
	RefreshCookie string
	// RefreshTTL is the lifetime of the refresh cookie.
	RefreshTTL time.Duration
	// SecureCookies marks cookies Secure. Enable it behind HTTPS.
	SecureCookies bool
	// ClientIP resolves the address recorded in the visitor log. Defaults
	// to the direct peer.
	ClientIP func(*http.Request) string
}

// Services are the domain services the handlers delegate to. VisitLog may be
// nil to disable visitor logging.
type Services struct {
	Auth       *auth.Service
	Users      *user.Service
	Addresses  *address.Service
	Categories *category.Service
	Products   *product.Service
	Discounts  *discount.Service
	Carts      *cart.Service
	Orders     *order.Service
	Payments   *payment.CallbackService
	Returns    *returns.Service
	Ratings    *rating.Service
	Wishlists  *wishlist.Service
	Blog       *blog.Service
	Contact    *contact.Service
	Visitors   *visitor.Service
	VisitLog   *visitor.Recorder
}

// Handler serves the REST API.
type Handler struct {
	svc Services
	cfg HandlerConfig
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(cfg HandlerConfig, svc Services) *Handler {
	if cfg.RefreshCookie == "" {
		cfg.RefreshCookie = "refreshToken"
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.ClientIP == nil {
		cfg.ClientIP = httpmiddleware.ClientIP
	}
	return &Handler{svc: svc, cfg: cfg}
}

// Register mounts every route group on r.
func (h *Handler) Register(r *mux.Router) {
	if h.svc.VisitLog != nil {
		r.Use(h.recordVisits)
	}

	a := r.PathPrefix("/auth").Subrouter()
	a.Handle("/register", h.serve(h.register)).Methods(http.MethodPost)
	a.Handle("/verify-email", h.serve(h.verifyEmail)).Methods(http.MethodGet, http.MethodPost)
	a.Handle("/login", h.serve(h.login)).Methods(http.MethodPost)
	a.Handle("/refresh-token", h.serve(h.refreshToken)).Methods(http.MethodPost)
	a.Handle("/forgot-password", h.serve(h.forgotPassword)).Methods(http.MethodPost)
	a.Handle("/reset-password", h.serve(h.resetPassword)).Methods(http.MethodPost)
	a.Handle("/logout", h.authed(h.logout)).Methods(http.MethodPost)
	a.Handle("/{provider}", h.serve(h.oauthRedirect)).Methods(http.MethodGet)
	a.Handle("/{provider}/callback", h.serve(h.oauthCallback)).Methods(http.MethodGet)

	u := r.PathPrefix("/user").Subrouter()
	u.Handle("/profile", h.authed(h.profile)).Methods(http.MethodGet)
	u.Handle("/profile", h.authed(h.updateProfile)).Methods(http.MethodPut, http.MethodPatch)
	u.Handle("/change-password", h.authed(h.changePassword)).Methods(http.MethodPut, http.MethodPost)
	u.Handle("/subscribe", h.authed(h.subscribe(true))).Methods(http.MethodPost)
	u.Handle("/unsubscribe", h.authed(h.subscribe(false))).Methods(http.MethodPost)

	ad := r.PathPrefix("/address").Subrouter()
	ad.Handle("", h.authed(h.listAddresses)).Methods(http.MethodGet)
	ad.Handle("", h.authed(h.createAddress)).Methods(http.MethodPost)
	ad.Handle("/{id:[0-9]+}", h.authed(h.updateAddress)).Methods(http.MethodPut)
	ad.Handle("/{id:[0-9]+}/default", h.authed(h.setDefaultAddress)).Methods(http.MethodPatch, http.MethodPut)
	ad.Handle("/{id:[0-9]+}", h.authed(h.deleteAddress)).Methods(http.MethodDelete)

	c := r.PathPrefix("/category").Subrouter()
	c.Handle("", h.serve(h.listCategories)).Methods(http.MethodGet)
	c.Handle("", h.admin(h.createCategory)).Methods(http.MethodPost)
	c.Handle("/{id:[0-9]+}", h.serve(h.getCategory)).Methods(http.MethodGet)
	c.Handle("/{id:[0-9]+}", h.admin(h.updateCategory)).Methods(http.MethodPut)
	c.Handle("/{id:[0-9]+}", h.admin(h.deleteCategory)).Methods(http.MethodDelete)

	p := r.PathPrefix("/products").Subrouter()
	p.Handle("", h.serve(h.listProducts)).Methods(http.MethodGet)
	p.Handle("", h.admin(h.createProduct)).Methods(http.MethodPost)
	p.Handle("/{id:[0-9]+}", h.serve(h.getProduct)).Methods(http.MethodGet)
	p.Handle("/{id:[0-9]+}", h.admin(h.updateProduct)).Methods(http.MethodPut)
	p.Handle("/{id:[0-9]+}", h.admin(h.deleteProduct)).Methods(http.MethodDelete)
	p.Handle("/{id:[0-9]+}/subscribe", h.authed(h.subscribeBackInStock)).Methods(http.MethodPost)
	p.Handle("/{id:[0-9]+}/subscribe", h.authed(h.unsubscribeBackInStock)).Methods(http.MethodDelete)
	p.Handle("/{id:[0-9]+}/unsubscribe", h.authed(h.unsubscribeBackInStock)).Methods(http.MethodPost)

	d := r.PathPrefix("/discounts").Subrouter()
	d.Handle("", h.serve(h.listDiscounts)).Methods(http.MethodGet)
	d.Handle("", h.admin(h.createDiscount)).Methods(http.MethodPost)
	d.Handle("/{id:[0-9]+}", h.serve(h.getDiscount)).Methods(http.MethodGet)
	d.Handle("/{id:[0-9]+}", h.admin(h.updateDiscount)).Methods(http.MethodPut)
	d.Handle("/{id:[0-9]+}", h.admin(h.deleteDiscount)).Methods(http.MethodDelete)

	ct := r.PathPrefix("/cart").Subrouter()
	ct.Handle("", h.authed(h.listCart)).Methods(http.MethodGet)
	ct.Handle("", h.authed(h.addToCart)).Methods(http.MethodPost)
	ct.Handle("", h.authed(h.clearCart)).Methods(http.MethodDelete)
	ct.Handle("/{id:[0-9]+}", h.authed(h.updateCartLine)).Methods(http.MethodPut, http.MethodPatch)
	ct.Handle("/{id:[0-9]+}", h.authed(h.removeCartLine)).Methods(http.MethodDelete)

	o := r.PathPrefix("/orders").Subrouter()
	o.Handle("", h.authed(h.placeOrder)).Methods(http.MethodPost)
	o.Handle("/my", h.authed(h.listMyOrders)).Methods(http.MethodGet)
	o.Handle("/{id:[0-9]+}", h.authed(h.getOrder)).Methods(http.MethodGet)
	o.Handle("/{id:[0-9]+}/status", h.admin(h.updateOrderStatus)).Methods(http.MethodPatch)

	r.Handle("/payments/{provider}/callback", h.serve(h.paymentCallback)).Methods(http.MethodPost)

	rt := r.PathPrefix("/returns").Subrouter()
	rt.Handle("", h.authed(h.createReturn)).Methods(http.MethodPost)
	rt.Handle("/my", h.authed(h.listMyReturns)).Methods(http.MethodGet)

	rg := r.PathPrefix("/ratings").Subrouter()
	rg.Handle("", h.authed(h.createRating)).Methods(http.MethodPost)
	rg.Handle("/product/{id:[0-9]+}", h.serve(h.listRatings)).Methods(http.MethodGet)
	rg.Handle("/{id:[0-9]+}", h.serve(h.getRating)).Methods(http.MethodGet)
	rg.Handle("/{id:[0-9]+}", h.authed(h.updateRating)).Methods(http.MethodPut)
	rg.Handle("/{id:[0-9]+}", h.authed(h.deleteRating)).Methods(http.MethodDelete)

	w := r.PathPrefix("/wishlist").Subrouter()
	w.Handle("", h.authed(h.listWishlist)).Methods(http.MethodGet)
	w.Handle("", h.authed(h.addToWishlist)).Methods(http.MethodPost)
	w.Handle("", h.authed(h.clearWishlist)).Methods(http.MethodDelete)
	w.Handle("/{id:[0-9]+}", h.authed(h.removeFromWishlist)).Methods(http.MethodDelete)

	b := r.PathPrefix("/blog").Subrouter()
	b.Handle("", h.serve(h.listPosts)).Methods(http.MethodGet)
	b.Handle("", h.admin(h.createPost)).Methods(http.MethodPost)
	b.Handle("/{id:[0-9]+}", h.admin(h.updatePost)).Methods(http.MethodPut)
	b.Handle("/{slug}", h.serve(h.getPost)).Methods(http.MethodGet)

	r.Handle("/contact", h.serve(h.submitContact)).Methods(http.MethodPost)
	r.Handle("/contact", h.admin(h.listContact)).Methods(http.MethodGet)

	r.Handle("/visitors", h.admin(h.listVisitors)).Methods(http.MethodGet)
	r.Handle("/visitors/count", h.admin(h.countVisitors)).Methods(http.MethodGet)
}

// endpoint is an HTTP handler that reports failures as errors, which serve
// turns into JSON error responses.
type endpoint func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) serve(fn endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	})
}

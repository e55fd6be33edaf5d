package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/address"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/blog"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/cart"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/category"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/discount"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/rating"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/returns"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/wishlist"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// maxBodySize bounds request bodies read by decodeJSON.
const maxBodySize = 1 << 20

// errForbidden is returned by operator routes for non-admin users.
var errForbidden = errors.New("admin access required")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type message struct {
	Message string `json:"message"`
}

// statusOf maps sentinel domain errors to HTTP status codes.
var statusOf = []struct {
	err  error
	code int
}{
	// 401
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrNotVerified, http.StatusUnauthorized},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized},
	{auth.ErrNoToken, http.StatusUnauthorized},
	{auth.ErrTokenRevoked, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{user.ErrWrongPassword, http.StatusUnauthorized},
	{payment.ErrInvalidSignature, http.StatusUnauthorized},

	// 403
	{errForbidden, http.StatusForbidden},
	{rating.ErrForbidden, http.StatusForbidden},

	// 404
	{user.ErrNotFound, http.StatusNotFound},
	{address.ErrNotFound, http.StatusNotFound},
	{category.ErrNotFound, http.StatusNotFound},
	{product.ErrNotFound, http.StatusNotFound},
	{product.ErrNoSubscription, http.StatusNotFound},
	{discount.ErrNotFound, http.StatusNotFound},
	{cart.ErrNotFound, http.StatusNotFound},
	{order.ErrNotFound, http.StatusNotFound},
	{payment.ErrTransactionNotFound, http.StatusNotFound},
	{payment.ErrUnknownProvider, http.StatusNotFound},
	{auth.ErrUnknownProvider, http.StatusNotFound},
	{rating.ErrNotFound, http.StatusNotFound},
	{wishlist.ErrNotFound, http.StatusNotFound},
	{blog.ErrNotFound, http.StatusNotFound},

	// 409
	{user.ErrEmailTaken, http.StatusConflict},
	{category.ErrAlreadyExists, http.StatusConflict},
	{product.ErrAlreadySubscribed, http.StatusConflict},
	{product.ErrInUse, http.StatusConflict},
	{address.ErrDefaultConflict, http.StatusConflict},
	{wishlist.ErrAlreadyExists, http.StatusConflict},
	{blog.ErrSlugTaken, http.StatusConflict},
	{payment.ErrProviderMismatch, http.StatusConflict},
	{payment.ErrAlreadySettled, http.StatusConflict},

	// 400
	{auth.ErrInvalidVerification, http.StatusBadRequest},
	{auth.ErrInvalidResetToken, http.StatusBadRequest},
	{auth.ErrUnknownEmail, http.StatusBadRequest},
	{auth.ErrProfileWithoutEmail, http.StatusBadRequest},
	{errInvalidState, http.StatusBadRequest},
	{order.ErrEmptyItems, http.StatusBadRequest},
	{order.ErrInvalidQuantity, http.StatusBadRequest},
	{order.ErrNoAddress, http.StatusBadRequest},
	{order.ErrInvalidProducts, http.StatusBadRequest},
	{order.ErrInvalidStatus, http.StatusBadRequest},
	{order.ErrInvalidSort, http.StatusBadRequest},
	{payment.ErrInvalidMethod, http.StatusBadRequest},
	{coupon.ErrInvalidCoupon, http.StatusBadRequest},
	{coupon.ErrNotActive, http.StatusBadRequest},
	{coupon.ErrExpired, http.StatusBadRequest},
	{coupon.ErrUsageLimitReached, http.StatusBadRequest},
	{coupon.ErrNotAssigned, http.StatusBadRequest},
	{coupon.ErrNotApplicable, http.StatusBadRequest},
	{returns.ErrInvalidOrder, http.StatusBadRequest},
	{returns.ErrNotDelivered, http.StatusBadRequest},
	{returns.ErrWindowExpired, http.StatusBadRequest},
	{pricing.ErrUnknownKind, http.StatusBadRequest},
}

// writeError maps err to a status code and writes it as a JSON error body.
// Unmapped errors are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := classify(err)
	lg := zctx.From(r.Context())
	switch {
	case code == http.StatusBadGateway:
		lg.Warn("Payment provider failed", zap.Error(err))
	case code >= http.StatusInternalServerError:
		lg.Error("Request error", zap.Error(err))
	}
	writeJSON(w, code, errorBody{Code: code, Message: msg})
}

func classify(err error) (int, string) {
	var (
		validation *domain.ValidationError
		stock      *order.InsufficientStockError
		notInOrder *returns.ProductNotInOrderError
		provider   *order.PaymentProviderError
		maxBytes   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &provider):
		return http.StatusBadGateway, "Payment provider is unavailable, please try again"
	case errors.As(err, &validation):
		return http.StatusBadRequest, sentence(validation.Message)
	case errors.As(err, &stock):
		return http.StatusBadRequest, sentence(stock.Error())
	case errors.As(err, &notInOrder):
		return http.StatusBadRequest, sentence(notInOrder.Error())
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	}
	for _, s := range statusOf {
		if errors.Is(err, s.err) {
			return s.code, sentence(s.err.Error())
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// sentence upper-cases the first letter of an error string for display.
func sentence(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, message{Message: msg})
}

// decodeJSON reads the request body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return domain.Invalid("request body is required")
		}
		return domain.Invalid("malformed JSON body")
	}
	return nil
}

// pathID parses the numeric {id} route variable.
func pathID(r *http.Request) (int64, error) {
	return parseID(mux.Vars(r)["id"], "id")
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("%s must be a positive integer", name)
	}
	return id, nil
}

// query reads optional typed query parameters, remembering the first error.
type query struct {
	values map[string][]string
	err    error
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) str(name string) string {
	if v := q.values[name]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (q *query) int(name string) int {
	s := q.str(name)
	if s == "" || q.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.err = domain.Invalid("%s must be an integer", name)
	}
	return n
}

func (q *query) id(name string) *int64 {
	s := q.str(name)
	if s == "" || q.err != nil {
		return nil
	}
	id, err := parseID(s, name)
	if err != nil {
		q.err = err
		return nil
	}
	return &id
}

func (q *query) decimal(name string) *decimal.Decimal {
	s := q.str(name)
	if s == "" || q.err != nil {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		q.err = domain.Invalid("%s must be a number", name)
		return nil
	}
	return &d
}

func (q *query) bool(name string) *bool {
	s := q.str(name)
	if s == "" || q.err != nil {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		q.err = domain.Invalid("%s must be true or false", name)
		return nil
	}
	return &b
}

package handler

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/returns"
)

// signatureHeader carries hex(HMAC-SHA256(secret, body)) on payment callbacks.
const signatureHeader = "X-Signature"

func (h *Handler) listCart(w http.ResponseWriter, r *http.Request) error {
	lines, err := h.svc.Carts.List(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(lines, toCartLine))
	return nil
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	line, err := h.svc.Carts.Add(r.Context(), claimsFrom(r.Context()).UserID, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toCartLine(line))
	return nil
}

func (h *Handler) updateCartLine(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := h.svc.Carts.SetQuantity(r.Context(), claimsFrom(r.Context()).UserID, id, req.Quantity); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Cart updated")
	return nil
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Carts.Remove(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Item removed from cart")
	return nil
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) error {
	if err := h.svc.Carts.Clear(r.Context(), claimsFrom(r.Context()).UserID); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Cart cleared")
	return nil
}

func (h *Handler) listWishlist(w http.ResponseWriter, r *http.Request) error {
	items, err := h.svc.Wishlists.List(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(items, toWishlistItem))
	return nil
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ProductID int64 `json:"productId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := h.svc.Wishlists.Add(r.Context(), claimsFrom(r.Context()).UserID, req.ProductID); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "Added to wishlist")
	return nil
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.svc.Wishlists.Remove(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Removed from wishlist")
	return nil
}

func (h *Handler) clearWishlist(w http.ResponseWriter, r *http.Request) error {
	if err := h.svc.Wishlists.Clear(r.Context(), claimsFrom(r.Context()).UserID); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Wishlist cleared")
	return nil
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		CartItems []struct {
			ProductID int64 `json:"productId"`
			Quantity  int   `json:"quantity"`
		} `json:"cartItems"`
		CouponCode    string `json:"couponCode"`
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	items := make([]order.LineRequest, len(req.CartItems))
	for i, it := range req.CartItems {
		items[i] = order.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	o, err := h.svc.Orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:        claimsFrom(r.Context()).UserID,
		Items:         items,
		CouponCode:    req.CouponCode,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return err
	}
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.String("order.payment_method", string(o.PaymentMethod)),
	)
	writeJSON(w, http.StatusCreated, toOrder(o))
	return nil
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) error {
	q := newQuery(r)
	lq := order.ListQuery{
		Status: q.str("status"),
		SortBy: q.str("sortBy"),
		Page:   q.int("page"),
		Limit:  q.int("limit"),
	}
	if q.err != nil {
		return q.err
	}
	list, err := h.svc.Orders.ListMine(r.Context(), claimsFrom(r.Context()).UserID, lq)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toOrder))
	return nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	o, err := h.svc.Orders.Get(r.Context(), claimsFrom(r.Context()).UserID, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toOrder(o))
	return nil
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	o, err := h.svc.Orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toOrder(o))
	return nil
}

// paymentCallback reads the raw body so the signature covers exactly the
// bytes the provider sent.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return err
	}
	provider := mux.Vars(r)["provider"]
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("payment.provider", provider))
	txn, err := h.svc.Payments.Handle(r.Context(), provider, body, r.Header.Get(signatureHeader))
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int64("payment.transaction_id", txn.ID),
		attribute.String("payment.status", string(txn.Status)),
	)
	writeJSON(w, http.StatusOK, struct {
		Message string         `json:"message"`
		Payment transactionDTO `json:"payment"`
	}{
		Message: "Payment status updated",
		Payment: transactionDTO{
			ID:            txn.ID,
			Amount:        txn.Amount,
			Status:        txn.Status,
			Provider:      txn.Provider,
			ProviderTxnID: txn.ProviderTxnID,
		},
	})
	return nil
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		OrderID int64             `json:"orderId"`
		Items   []returnDetailDTO `json:"items"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	items := make([]returns.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = returns.ItemInput{ProductID: it.ProductID, Reason: it.Reason, Images: it.Images}
	}
	rr, err := h.svc.Returns.Create(r.Context(), claimsFrom(r.Context()).UserID, req.OrderID, items)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toReturn(rr))
	return nil
}

func (h *Handler) listMyReturns(w http.ResponseWriter, r *http.Request) error {
	list, err := h.svc.Returns.ListMine(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toReturn))
	return nil
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/visitor"
)

type claimsKey struct{}

type session struct {
	claims *auth.Claims
	token  string
}

// claimsFrom returns the claims stored by authed. Only call it from
// authenticated endpoints.
func claimsFrom(ctx context.Context) *auth.Claims {
	return ctx.Value(claimsKey{}).(session).claims
}

func tokenFrom(ctx context.Context) string {
	return ctx.Value(claimsKey{}).(session).token
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handler) authenticate(r *http.Request) (*http.Request, error) {
	token := bearerToken(r)
	claims, err := h.svc.Auth.Authenticate(r.Context(), token)
	if err != nil {
		return r, err
	}
	ctx := context.WithValue(r.Context(), claimsKey{}, session{claims: claims, token: token})
	return r.WithContext(ctx), nil
}

// authed serves fn only for requests carrying a valid, unrevoked token.
func (h *Handler) authed(fn endpoint) http.Handler {
	return h.serve(func(w http.ResponseWriter, r *http.Request) error {
		r, err := h.authenticate(r)
		if err != nil {
			return err
		}
		return fn(w, r)
	})
}

// admin serves fn only for authenticated operators.
func (h *Handler) admin(fn endpoint) http.Handler {
	return h.authed(func(w http.ResponseWriter, r *http.Request) error {
		if err := h.requireAdmin(r); err != nil {
			return err
		}
		return fn(w, r)
	})
}

func (h *Handler) requireAdmin(r *http.Request) error {
	u, err := h.svc.Users.Profile(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		return errForbidden
	}
	return nil
}

// recordVisits queues every request for the visitor log without waiting
// for the database.
func (h *Handler) recordVisits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.svc.VisitLog.Record(visitor.Visit{
			IP:        h.cfg.ClientIP(r),
			UserAgent: r.UserAgent(),
			Path:      r.URL.Path,
			Referrer:  r.Referer(),
		})
		next.ServeHTTP(w, r)
	})
}

package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
)

const (
	stateCookie = "oauthState"
	stateTTL    = 10 * time.Minute
)

var errInvalidState = errors.New("invalid oauth state")

type sessionResponse struct {
	User        userDTO   `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	u, err := h.svc.Auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string  `json:"message"`
		User    userDTO `json:"user"`
	}{
		Message: "Registration successful, please check your email to verify your account",
		User:    toUser(u),
	})
	return nil
}

// verifyEmail accepts the token from the emailed link (?token=) or a JSON
// body.
func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("token")
	if token == "" && r.Method == http.MethodPost {
		var req struct {
			Token string `json:"token"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		token = req.Token
	}
	if err := h.svc.Auth.VerifyEmail(r.Context(), token); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"rememberMe"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	sess, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		return err
	}
	h.writeSession(w, http.StatusOK, sess)
	return nil
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		UserID int64 `json:"userId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	var token string
	if c, err := r.Cookie(h.cfg.RefreshCookie); err == nil {
		token = c.Value
	}
	sess, err := h.svc.Auth.Refresh(r.Context(), req.UserID, token)
	if err != nil {
		return err
	}
	h.writeSession(w, http.StatusOK, sess)
	return nil
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := h.svc.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Password reset link sent to your email")
	return nil
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := h.svc.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Password has been reset")
	return nil
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if err := h.svc.Auth.Logout(ctx, claimsFrom(ctx), tokenFrom(ctx)); err != nil {
		return err
	}
	h.setRefreshCookie(w, "", -1)
	writeMessage(w, http.StatusOK, "Logged out successfully")
	return nil
}

func (h *Handler) oauthRedirect(w http.ResponseWriter, r *http.Request) error {
	state := uuid.NewString()
	target, err := h.svc.Auth.AuthCodeURL(mux.Vars(r)["provider"], state)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusFound)
	return nil
}

func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		return errInvalidState
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})

	sess, err := h.svc.Auth.OAuthLogin(r.Context(), mux.Vars(r)["provider"], q.Get("code"))
	if err != nil {
		return err
	}
	h.writeSession(w, http.StatusOK, sess)
	return nil
}

// writeSession answers with the access token and, for remembered logins,
// sets the refresh cookie.
func (h *Handler) writeSession(w http.ResponseWriter, code int, sess *auth.Session) {
	if sess.RefreshToken != "" {
		h.setRefreshCookie(w, sess.RefreshToken, int(h.cfg.RefreshTTL.Seconds()))
	}
	writeJSON(w, code, sessionResponse{
		User:        toUser(sess.User),
		AccessToken: sess.AccessToken,
		ExpiresAt:   sess.ExpiresAt,
	})
}

// setRefreshCookie sets the refresh cookie. A negative maxAge clears it.
func (h *Handler) setRefreshCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.RefreshCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/blog-service/internal/service"
	apierrors "github.com/pribylovaa/blog-service/internal/transport/http/errors"
	"github.com/pribylovaa/blog-service/internal/transport/http/middleware"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var in service.SignUpInput
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody())
		return
	}

	user, err := h.Service.SignUp(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{Message: "user registered", Data: user})
}

// SignIn выдаёт пару токенов в HttpOnly cookie и дублирует access-токен в теле.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody())
		return
	}

	pair, _, err := h.Service.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setCookie(w, middleware.CookieAccessToken, pair.AccessToken, "/", pair.AccessExpiresAt)
	h.setCookie(w, CookieRefreshToken, pair.RefreshToken, h.refreshPath(), pair.RefreshExpiresAt)

	writeSuccess(w, http.StatusOK, envelope{Message: "signed in", AccessToken: pair.AccessToken})
}

// SignOut только стирает cookie: токены stateless и не отзываются.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, middleware.CookieAccessToken, "/")
	h.clearCookie(w, CookieRefreshToken, h.refreshPath())

	writeSuccess(w, http.StatusOK, envelope{Message: "signed out"})
}

// Refresh выпускает новый access-токен по refresh-cookie. Refresh-токен не ротируется.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(CookieRefreshToken)
	if err != nil || c.Value == "" {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	access, err := h.Service.RefreshAccessToken(r.Context(), c.Value)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setCookie(w, middleware.CookieAccessToken, access.Token, "/", access.ExpiresAt)

	writeSuccess(w, http.StatusOK, envelope{Message: "access token refreshed"})
}

func (h *Handlers) refreshPath() string {
	return h.opts.BasePath + "/auth/refresh"
}

func (h *Handlers) sameSite() http.SameSite {
	if h.opts.SecureCookies {
		return http.SameSiteStrictMode
	}

	return http.SameSiteLaxMode
}

func (h *Handlers) setCookie(w http.ResponseWriter, name, value, path string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: h.sameSite(),
	})
}

func (h *Handlers) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: h.sameSite(),
	})
}

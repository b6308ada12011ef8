package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/service"
	apierrors "github.com/pribylovaa/blog-service/internal/transport/http/errors"
	"github.com/pribylovaa/blog-service/pkg/log"
)

// CookieAccessToken — имя cookie с access-токеном.
const CookieAccessToken = "accessToken"

// TokenVerifier проверяет access-токен.
type TokenVerifier interface {
	ValidateAccessToken(ctx context.Context, token string) (*models.Claims, error)
}

type userIDKey struct{}

// AuthCookie пропускает запрос только с валидным access-токеном в cookie.
//
// Исходы:
//   - cookie нет или она пустая — 401 "Unauthorized", verifier не вызывается;
//   - токен истёк — 401 "Expired token";
//   - любая другая ошибка проверки — 401 "Invalid token";
//   - успех — id пользователя в контексте (UserIDFrom), user_id в логгере запроса.
func AuthCookie(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieAccessToken)
			if err != nil || c.Value == "" {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			claims, err := v.ValidateAccessToken(r.Context(), c.Value)
			if err != nil {
				if errors.Is(err, service.ErrTokenExpired) {
					apierrors.WriteError(w, r, service.ErrTokenExpired)
					return
				}

				log.From(r.Context()).Debug("access_token_rejected", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, claims.UserID)
			ctx = log.With(ctx, slog.String("user_id", claims.UserID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom возвращает id аутентифицированного пользователя.
// ok == false, если запрос не прошёл через AuthCookie.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}


package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/pkg/log"
)

// tokenLeeway — допуск расхождения часов при проверке exp.
const tokenLeeway = 5 * time.Second

// tokenClaims — полезная нагрузка обоих токенов.
// У refresh-токена и у access, выпущенного через refresh, email пуст.
type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// sign подписывает claims{sub, email, iat, exp} секретом secret (HS256).
func (s *Service) sign(userID uuid.UUID, email, secret string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// verify проверяет подпись, алгоритм, срок и subject токена.
// ErrTokenExpired — срок истёк (с учётом tokenLeeway); ErrInvalidToken — всё остальное.
func (s *Service) verify(tokenStr, secret string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	out := &models.Claims{UserID: uid, Email: claims.Email}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}

// IssueAccessToken выпускает access-токен {sub, email} на auth.access_token_ttl.
func (s *Service) IssueAccessToken(ctx context.Context, userID uuid.UUID, email string) (models.AccessToken, error) {
	const op = "service.token.IssueAccessToken"

	token, expiresAt, err := s.sign(userID, email, s.auth.AccessSecret, s.auth.AccessTokenTTL)
	if err != nil {
		log.From(ctx).Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.AccessToken{Token: token, ExpiresAt: expiresAt}, nil
}

// IssueRefreshToken выпускает refresh-токен {sub} на auth.refresh_token_ttl.
// Подписывается отдельным секретом, поэтому не принимается как access.
func (s *Service) IssueRefreshToken(ctx context.Context, userID uuid.UUID) (models.AccessToken, error) {
	const op = "service.token.IssueRefreshToken"

	token, expiresAt, err := s.sign(userID, "", s.auth.RefreshSecret, s.auth.RefreshTokenTTL)
	if err != nil {
		log.From(ctx).Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.AccessToken{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateAccessToken проверяет access-токен и возвращает его claims.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*models.Claims, error) {
	const op = "service.token.ValidateAccessToken"

	claims, err := s.verify(token, s.auth.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// ValidateRefreshToken проверяет refresh-токен и возвращает его claims.
func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (*models.Claims, error) {
	const op = "service.token.ValidateRefreshToken"

	claims, err := s.verify(token, s.auth.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// RefreshAccessToken выпускает новый access-токен по валидному refresh-токену.
// Пользователь в хранилище не проверяется, новый токен несёт только sub.
// Сам refresh-токен не ротируется и остаётся действительным до истечения.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (models.AccessToken, error) {
	const op = "service.token.RefreshAccessToken"

	if refreshToken == "" {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	claims, err := s.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		log.From(ctx).Warn("refresh_rejected",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.IssueAccessToken(ctx, claims.UserID, "")
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return access, nil
}

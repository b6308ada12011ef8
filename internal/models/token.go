package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair — пара токенов, выдаваемая при входе.
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — долгоживущий JWT, пригодный только для выпуска нового access;
//   - *ExpiresAt — моменты истечения (UTC), из них считается MaxAge cookie.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AccessToken — новый access-токен, выпущенный по refresh-токену.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Claims — проверенные данные токена.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

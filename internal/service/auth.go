package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
	"github.com/pribylovaa/blog-service/pkg/log"
	"github.com/pribylovaa/blog-service/pkg/redact"
	"golang.org/x/crypto/bcrypt"
)

const passwordPolicyMsg = "password must be at least 8 characters and contain upper case, lower case, digit and symbol"

// SignUpInput — данные регистрации.
type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignUpInput) validate() error {
	return firstInvalid(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("name is required")),
		validation.Field(&in.Email, validation.Required.Error("email is required"), is.Email.Error("email is not valid")),
		validation.Field(&in.Password, validation.Required.Error("password is required"), validation.By(passwordPolicy)),
	), "name", "email", "password")
}

// SignUp регистрирует пользователя. Пароль хранится только в виде bcrypt-хэша.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	const op = "service.auth.SignUp"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("email", redact.Email(in.Email)))

	_, err := s.storage.UserByEmail(ctx, in.Email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		lg.Error("password_hash_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.CreateUser(ctx, &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		lg.Error("user_create_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_signed_up", slog.String("user_id", user.ID.String()))

	return user, nil
}

// SignIn проверяет email+пароль и выпускает пару токенов.
// Неизвестный email — ErrUserNotFound, неверный пароль — ErrWrongPassword.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.SignIn"

	if strings.TrimSpace(email) == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, invalid("email", "email is required"))
	}

	if strings.TrimSpace(password) == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, invalid("password", "password is required"))
	}

	email = normalizeEmail(email)
	lg := log.From(ctx).With(slog.String("op", op), slog.String("email", redact.Email(email)))

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Warn("sign_in_wrong_password")
		return nil, nil, fmt.Errorf("%s: %w", op, ErrWrongPassword)
	}

	access, err := s.IssueAccessToken(ctx, user.ID, user.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_signed_in", slog.String("user_id", user.ID.String()))

	return &models.TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, user, nil
}

// hashPassword хэширует пароль с помощью bcrypt (стоимость из auth.bcrypt_cost).
func (s *Service) hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	cost := s.auth.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// passwordPolicy: длина >= 8, хотя бы одна строчная, заглавная, цифра и символ.
func passwordPolicy(value interface{}) error {
	pw, _ := value.(string)

	if len([]rune(pw)) < 8 {
		return errors.New(passwordPolicyMsg)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return errors.New(passwordPolicyMsg)
	}

	return nil
}

// notBlank отклоняет строки из одних пробелов.
func notBlank(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}

		return nil
	}
}

// firstInvalid превращает validation.Errors в *ValidationError по первому
// полю из order. Прочие ошибки (validation.InternalError) возвращаются как есть.
func firstInvalid(err error, order ...string) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	for _, field := range order {
		if fe, ok := errs[field]; ok && fe != nil {
			return invalid(field, fe.Error())
		}
	}

	return invalid("", errs.Error())
}

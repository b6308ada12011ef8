package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
	"github.com/pribylovaa/blog-service/pkg/log"
)

// UpdateUserInput — изменение профиля. Пустое поле не меняется.
type UpdateUserInput struct {
	ID    uuid.UUID `json:"-"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (in UpdateUserInput) validate() error {
	return firstInvalid(validation.ValidateStruct(&in,
		validation.Field(&in.Email, is.Email.Error("email is not valid")),
	), "email")
}

// ChangePasswordInput — смена пароля владельцем аккаунта.
type ChangePasswordInput struct {
	ID              uuid.UUID `json:"-"`
	RequesterID     uuid.UUID `json:"-"`
	CurrentPassword string    `json:"currentPassword"`
	NewPassword     string    `json:"newPassword"`
}

func (in ChangePasswordInput) validate() error {
	return firstInvalid(validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required.Error("current password is required")),
		validation.Field(&in.NewPassword, validation.Required.Error("new password is required"), validation.By(passwordPolicy)),
	), "currentPassword", "newPassword")
}

// ListUsers возвращает всех пользователей.
// Пустой список — ErrUserNotFound.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "service.users.ListUsers"

	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		log.From(ctx).Error("users_list_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	return users, nil
}

// UserByID возвращает пользователя по id.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.users.UserByID"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	return user, nil
}

// UpdateUser меняет имя и/или email пользователя.
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	const op = "service.users.UpdateUser"

	if _, err := s.storage.UserByID(ctx, in.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var update storage.UserUpdate
	if in.Name != "" {
		update.Name = &in.Name
	}
	if in.Email != "" {
		update.Email = &in.Email
	}

	user, err := s.storage.UpdateUser(ctx, in.ID, update)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	log.From(ctx).Info("user_updated", slog.String("op", op), slog.String("user_id", user.ID.String()))

	return user, nil
}

// ChangePassword меняет пароль. Только владелец аккаунта (иначе ErrNotOwner),
// текущий пароль обязан совпасть (иначе ErrWrongPassword).
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	const op = "service.users.ChangePassword"

	if in.ID != in.RequesterID {
		return fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	if err := in.validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, in.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	if !checkPassword(user.PasswordHash, in.CurrentPassword) {
		return fmt.Errorf("%s: %w", op, ErrWrongPassword)
	}

	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.UpdateUser(ctx, in.ID, storage.UserUpdate{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	log.From(ctx).Info("user_password_changed", slog.String("op", op), slog.String("user_id", in.ID.String()))

	return nil
}

// DeleteUser удаляет пользователя; его посты остаются без автора.
// Возвращает удалённого пользователя (для сообщения в ответе).
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.users.DeleteUser"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	log.From(ctx).Info("user_deleted", slog.String("op", op), slog.String("user_id", id.String()))

	return user, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}

	return err
}

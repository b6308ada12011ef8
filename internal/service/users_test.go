package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestListUsers(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	d.st.EXPECT().ListUsers(gomock.Any()).Return(nil, nil)

	_, err := d.svc.ListUsers(context.Background())
	require.ErrorIs(t, err, ErrUserNotFound)

	d.st.EXPECT().ListUsers(gomock.Any()).Return([]models.User{{ID: uuid.New()}}, nil)
	users, err := d.svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestUserByID_NotFound(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	d.st.EXPECT().UserByID(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	_, err := d.svc.UserByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		id := uuid.New()

		d.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id}, nil)
		d.st.EXPECT().UpdateUser(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, u storage.UserUpdate) (*models.User, error) {
				require.Equal(t, "Bob", *u.Name)
				require.Equal(t, "bob@example.com", *u.Email)
				require.Nil(t, u.PasswordHash)
				return &models.User{ID: id, Name: *u.Name, Email: *u.Email}, nil
			})

		user, err := d.svc.UpdateUser(context.Background(), UpdateUserInput{ID: id, Name: "Bob", Email: "Bob@example.com"})
		require.NoError(t, err)
		require.Equal(t, "Bob", user.Name)
	})

	t.Run("not found before validation", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		d.st.EXPECT().UserByID(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

		_, err := d.svc.UpdateUser(context.Background(), UpdateUserInput{ID: uuid.New(), Email: "bad"})
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("bad email", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		d.st.EXPECT().UserByID(gomock.Any(), gomock.Any()).Return(&models.User{}, nil)

		_, err := d.svc.UpdateUser(context.Background(), UpdateUserInput{ID: uuid.New(), Email: "bad"})
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("email taken", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		d.st.EXPECT().UserByID(gomock.Any(), gomock.Any()).Return(&models.User{}, nil)
		d.st.EXPECT().UpdateUser(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrAlreadyExists)

		_, err := d.svc.UpdateUser(context.Background(), UpdateUserInput{ID: uuid.New(), Email: "b@example.com"})
		require.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)

		d.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id, PasswordHash: mustHashPW(t, strongPW)}, nil)
		d.st.EXPECT().UpdateUser(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, u storage.UserUpdate) (*models.User, error) {
				require.Nil(t, u.Name)
				require.Nil(t, u.Email)
				require.NoError(t, bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte("NewPass2@")))
				return &models.User{ID: id}, nil
			})

		err := d.svc.ChangePassword(context.Background(), ChangePasswordInput{
			ID: id, RequesterID: id, CurrentPassword: strongPW, NewPassword: "NewPass2@",
		})
		require.NoError(t, err)
	})

	t.Run("not owner", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)

		err := d.svc.ChangePassword(context.Background(), ChangePasswordInput{
			ID: id, RequesterID: uuid.New(), CurrentPassword: strongPW, NewPassword: "NewPass2@",
		})
		require.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("weak new password", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)

		err := d.svc.ChangePassword(context.Background(), ChangePasswordInput{
			ID: id, RequesterID: id, CurrentPassword: strongPW, NewPassword: "weak",
		})
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("wrong current", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		d.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id, PasswordHash: mustHashPW(t, strongPW)}, nil)

		err := d.svc.ChangePassword(context.Background(), ChangePasswordInput{
			ID: id, RequesterID: id, CurrentPassword: "Other123!", NewPassword: "NewPass2@",
		})
		require.ErrorIs(t, err, ErrWrongPassword)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	id := uuid.New()

	d.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id, Name: "a"}, nil)
	d.st.EXPECT().DeleteUser(gomock.Any(), id).Return(nil)

	user, err := d.svc.DeleteUser(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "a", user.Name)

	d.st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)
	_, err = d.svc.DeleteUser(context.Background(), id)
	require.ErrorIs(t, err, ErrUserNotFound)
}

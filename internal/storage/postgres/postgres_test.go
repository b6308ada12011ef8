package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты для пакета postgres:
// поднимают PostgreSQL через testcontainers-go (postgres:16-alpine),
// применяют встроенные миграции goose и проверяют users/posts.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "docker.io/postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	t.Logf("starting postgres container with image=%q", req.Image)
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		ProviderType:     tc.ProviderDocker,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	require.NoError(t, st.Migrate(ctx))
	// Повторный прогон миграций — no-op.
	require.NoError(t, st.Migrate(ctx))

	return st
}

func createUser(t *testing.T, st *Storage, email string) *models.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), &models.User{Name: "alice", Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func TestIntegration_Users_CRUD(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := createUser(t, st, "alice@example.com")
	require.NotEqual(t, uuid.Nil, u.ID)
	require.Equal(t, "hash", u.PasswordHash)
	require.WithinDuration(t, time.Now(), u.CreatedAt, 5*time.Second)

	_, err := st.CreateUser(ctx, &models.User{Name: "dup", Email: "alice@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := st.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = st.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	name := "Alice B"
	upd, err := st.UpdateUser(ctx, u.ID, storage.UserUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, upd.Name)
	require.Equal(t, "alice@example.com", upd.Email)
	require.False(t, upd.UpdatedAt.Before(u.UpdatedAt))

	createUser(t, st, "bob@example.com")
	taken := "bob@example.com"
	_, err = st.UpdateUser(ctx, u.ID, storage.UserUpdate{Email: &taken})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.UpdateUser(ctx, uuid.New(), storage.UserUpdate{Name: &name})
	require.ErrorIs(t, err, storage.ErrNotFound)

	list, err := st.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, u.ID, list[0].ID)

	require.NoError(t, st.DeleteUser(ctx, u.ID))
	require.ErrorIs(t, st.DeleteUser(ctx, u.ID), storage.ErrNotFound)

	_, err = st.UserByID(ctx, u.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_Posts_CRUD_AndAuthorDeletion(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	author := createUser(t, st, "author@example.com")
	img := "/public/uploads/a.png"

	p, err := st.CreatePost(ctx, &models.Post{Title: "T", Content: "C", ImagePath: &img, AuthorID: &author.ID})
	require.NoError(t, err)
	require.Equal(t, img, *p.ImagePath)
	require.Equal(t, author.ID, *p.AuthorID)

	// Без новой картинки image_path сохраняется.
	upd, err := st.UpdatePost(ctx, p.ID, storage.PostUpdate{Title: "T2", Content: "C2"})
	require.NoError(t, err)
	require.Equal(t, "T2", upd.Title)
	require.Equal(t, img, *upd.ImagePath)

	img2 := "/public/uploads/b.png"
	upd, err = st.UpdatePost(ctx, p.ID, storage.PostUpdate{Title: "T3", Content: "C3", ImagePath: &img2})
	require.NoError(t, err)
	require.Equal(t, img2, *upd.ImagePath)

	_, err = st.UpdatePost(ctx, uuid.New(), storage.PostUpdate{Title: "x", Content: "y"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Удаление автора обнуляет author_id, пост остаётся.
	require.NoError(t, st.DeleteUser(ctx, author.ID))
	got, err := st.PostByID(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.AuthorID)

	require.NoError(t, st.DeletePost(ctx, p.ID))
	require.ErrorIs(t, st.DeletePost(ctx, p.ID), storage.ErrNotFound)
	_, err = st.PostByID(ctx, p.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ListPosts_SearchAndPagination(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		title := fmt.Sprintf("post %02d", i)
		content := "plain"
		if i%5 == 0 {
			content = "Golang inside"
		}
		_, err := st.CreatePost(ctx, &models.Post{Title: title, Content: content})
		require.NoError(t, err)
	}

	page, total, err := st.ListPosts(ctx, models.ListPostsOptions{By: models.SearchByBoth, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 25, total)
	require.Len(t, page, 10)
	require.Equal(t, "post 24", page[0].Title)

	page, total, err = st.ListPosts(ctx, models.ListPostsOptions{By: models.SearchByBoth, Offset: 20, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 25, total)
	require.Len(t, page, 5)

	page, total, err = st.ListPosts(ctx, models.ListPostsOptions{Search: "Golang", By: models.SearchByContent, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 5)

	// Поиск чувствителен к регистру.
	_, total, err = st.ListPosts(ctx, models.ListPostsOptions{Search: "golang", By: models.SearchByBoth, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)

	_, total, err = st.ListPosts(ctx, models.ListPostsOptions{Search: "Golang", By: models.SearchByTitle, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)

	_, total, err = st.ListPosts(ctx, models.ListPostsOptions{Search: "post 1", By: models.SearchByTitle, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 10, total)
}

func TestIntegration_ContextDeadline(t *testing.T) {
	st := startPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := st.ListUsers(ctx)
	require.Error(t, err)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func pngImage() *Image {
	return &Image{Data: []byte("\x89PNG\r\n\x1a\n...."), ContentType: "image/png"}
}

func strPtr(s string) *string { return &s }

func TestListPosts_Normalization(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		in        ListPostsInput
		wantOpts  models.ListPostsOptions
		wantPage  int
		wantLimit int
		total     int
		wantPages int
	}{
		{"defaults", ListPostsInput{}, models.ListPostsOptions{By: models.SearchByBoth, Offset: 0, Limit: 10}, 1, 10, 25, 3},
		{"limit below min", ListPostsInput{Limit: 5}, models.ListPostsOptions{By: models.SearchByBoth, Limit: 10}, 1, 10, 0, 0},
		{"limit above max", ListPostsInput{Page: 2, Limit: 100}, models.ListPostsOptions{By: models.SearchByBoth, Offset: 20, Limit: 20}, 2, 20, 41, 3},
		{"negative page", ListPostsInput{Page: -3, Limit: 15}, models.ListPostsOptions{By: models.SearchByBoth, Limit: 15}, 1, 15, 15, 1},
		{"search title", ListPostsInput{Search: "  go ", By: "title"}, models.ListPostsOptions{Search: "go", By: models.SearchByTitle, Limit: 10}, 1, 10, 1, 1},
		{"unknown by", ListPostsInput{Search: "go", By: "author"}, models.ListPostsOptions{Search: "go", By: models.SearchByBoth, Limit: 10}, 1, 10, 10, 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := newSvc(t)
			d.st.EXPECT().ListPosts(gomock.Any(), tc.wantOpts).Return([]models.Post{}, tc.total, nil)

			page, err := d.svc.ListPosts(context.Background(), tc.in)
			require.NoError(t, err)
			require.Equal(t, models.Pagination{Page: tc.wantPage, Limit: tc.wantLimit, Total: tc.total, Pages: tc.wantPages}, page.Pagination)
		})
	}
}

func TestCreatePost_OK(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	author := uuid.New()
	img := pngImage()

	d.blobs.EXPECT().Put(gomock.Any(), img.Data, "image/png").Return("/public/uploads/a.png", nil)
	d.st.EXPECT().CreatePost(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *models.Post) (*models.Post, error) {
			require.Equal(t, "/public/uploads/a.png", *p.ImagePath)
			require.Equal(t, author, *p.AuthorID)
			out := *p
			out.ID = uuid.New()
			return &out, nil
		})

	post, err := d.svc.CreatePost(context.Background(), CreatePostInput{Title: "t", Content: "c", AuthorID: author, Image: img})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, post.ID)
}

func TestCreatePost_Validation_NoStoreCalls(t *testing.T) {
	t.Parallel()

	big := &Image{Data: bytes.Repeat([]byte{1}, 5*1024*1024+1), ContentType: "image/png"}
	gif := &Image{Data: []byte("GIF89a"), ContentType: "image/gif"}

	cases := map[string]CreatePostInput{
		"blank title":   {Title: "  ", Content: "c", Image: pngImage()},
		"empty content": {Title: "t", Image: pngImage()},
		"no image":      {Title: "t", Content: "c"},
		"too big":       {Title: "t", Content: "c", Image: big},
		"bad type":      {Title: "t", Content: "c", Image: gif},
	}

	for name, in := range cases {
		in := in
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d := newSvc(t)
			_, err := d.svc.CreatePost(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestCreatePost_ContentTypeWithParamsAccepted(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	img := &Image{Data: []byte("jpeg"), ContentType: "IMAGE/JPEG; charset=binary"}

	d.blobs.EXPECT().Put(gomock.Any(), img.Data, "image/jpeg").Return("loc", nil)
	d.st.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Return(&models.Post{ID: uuid.New()}, nil)

	_, err := d.svc.CreatePost(context.Background(), CreatePostInput{Title: "t", Content: "c", Image: img})
	require.NoError(t, err)
}

func TestCreatePost_UploadFails_NoRow(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	boom := errors.New("s3 down")
	d.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return("", boom)

	_, err := d.svc.CreatePost(context.Background(), CreatePostInput{Title: "t", Content: "c", Image: pngImage()})
	require.ErrorIs(t, err, boom)
}

func TestCreatePost_InsertFails_BlobDeleted(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	boom := errors.New("insert failed")

	gomock.InOrder(
		d.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return("/public/uploads/x.png", nil),
		d.st.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Return(nil, boom),
		d.blobs.EXPECT().Delete(gomock.Any(), "/public/uploads/x.png").Return(nil),
	)

	_, err := d.svc.CreatePost(context.Background(), CreatePostInput{Title: "t", Content: "c", Image: pngImage()})
	require.ErrorIs(t, err, boom)
	require.Zero(t, testutil.ToFloat64(d.metrics.BlobCleanupFailuresCounter("create")))
}

func TestCreatePost_InsertFails_CleanupFails_Counted(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	boom := errors.New("insert failed")

	d.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return("loc", nil)
	d.st.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Return(nil, boom)
	d.blobs.EXPECT().Delete(gomock.Any(), "loc").Return(errors.New("delete failed"))

	_, err := d.svc.CreatePost(context.Background(), CreatePostInput{Title: "t", Content: "c", Image: pngImage()})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1.0, testutil.ToFloat64(d.metrics.BlobCleanupFailuresCounter("create")))
}

func TestCreatePost_CleanupSurvivesCanceledContext(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	ctx, cancel := context.WithCancel(context.Background())

	d.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return("loc", nil)
	d.st.EXPECT().CreatePost(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *models.Post) (*models.Post, error) {
			cancel()
			return nil, context.Canceled
		})
	d.blobs.EXPECT().Delete(gomock.Any(), "loc").
		DoAndReturn(func(ctx context.Context, _ string) error {
			require.NoError(t, ctx.Err())
			return nil
		})

	_, err := d.svc.CreatePost(ctx, CreatePostInput{Title: "t", Content: "c", Image: pngImage()})
	require.ErrorIs(t, err, context.Canceled)
}

func ownedPost(author uuid.UUID) *models.Post {
	return &models.Post{ID: uuid.New(), Title: "old", Content: "old", ImagePath: strPtr("old.png"), AuthorID: &author}
}

func TestUpdatePost_NotFound(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	d.st.EXPECT().PostByID(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	_, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{ID: uuid.New(), Title: "t", Content: "c"})
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestUpdatePost_NotOwner_NothingChanged(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	post := ownedPost(uuid.New())
	d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)

	_, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{
		ID: post.ID, RequesterID: uuid.New(), Title: "t", Content: "c", Image: pngImage(),
	})
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestUpdatePost_AuthorlessPost_NotOwner(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	post := &models.Post{ID: uuid.New()}
	d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)

	_, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{ID: post.ID, RequesterID: uuid.New(), Title: "t", Content: "c"})
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestUpdatePost_WithoutImage_KeepsPath(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	author := uuid.New()
	post := ownedPost(author)

	d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)
	d.st.EXPECT().UpdatePost(gomock.Any(), post.ID, storage.PostUpdate{Title: "t", Content: "c"}).
		Return(&models.Post{ID: post.ID, Title: "t", Content: "c", ImagePath: post.ImagePath}, nil)

	got, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{ID: post.ID, RequesterID: author, Title: "t", Content: "c"})
	require.NoError(t, err)
	require.Equal(t, "old.png", *got.ImagePath)
}

func TestUpdatePost_WithImage_OldBlobDeleted(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	author := uuid.New()
	post := ownedPost(author)

	gomock.InOrder(
		d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil),
		d.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), "image/png").Return("new.png", nil),
		d.st.EXPECT().UpdatePost(gomock.Any(), post.ID, storage.PostUpdate{Title: "t", Content: "c", ImagePath: strPtr("new.png")}).
			Return(&models.Post{ID: post.ID, ImagePath: strPtr("new.png")}, nil),
		d.blobs.EXPECT().Delete(gomock.Any(), "old.png").Return(nil),
	)

	got, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{
		ID: post.ID, RequesterID: author, Title: "t", Content: "c", Image: pngImage(),
	})
	require.NoError(t, err)
	require.Equal(t, "new.png", *got.ImagePath)
}

func TestUpdatePost_OldBlobDeleteFails_NotFatal(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	author := uuid.New()
	post := ownedPost(author)

	d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)
	d.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return("new.png", nil)
	d.st.EXPECT().UpdatePost(gomock.Any(), post.ID, gomock.Any()).Return(&models.Post{ID: post.ID, ImagePath: strPtr("new.png")}, nil)
	d.blobs.EXPECT().Delete(gomock.Any(), "old.png").Return(errors.New("s3 down"))

	_, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{
		ID: post.ID, RequesterID: author, Title: "t", Content: "c", Image: pngImage(),
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(d.metrics.BlobCleanupFailuresCounter("update")))
}

func TestUpdatePost_RowUpdateFails_NewBlobDeleted(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	author := uuid.New()
	post := ownedPost(author)
	boom := errors.New("update failed")

	d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)
	d.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return("new.png", nil)
	d.st.EXPECT().UpdatePost(gomock.Any(), post.ID, gomock.Any()).Return(nil, boom)
	d.blobs.EXPECT().Delete(gomock.Any(), "new.png").Return(nil)

	_, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{
		ID: post.ID, RequesterID: author, Title: "t", Content: "c", Image: pngImage(),
	})
	require.ErrorIs(t, err, boom)
}

func TestUpdatePost_InvalidText(t *testing.T) {
	t.Parallel()

	d := newSvc(t)
	author := uuid.New()
	post := ownedPost(author)
	d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)

	_, err := d.svc.UpdatePost(context.Background(), UpdatePostInput{ID: post.ID, RequesterID: author, Title: "", Content: "c"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()

	t.Run("ok removes blob", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		post := ownedPost(uuid.New())

		gomock.InOrder(
			d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil),
			d.st.EXPECT().DeletePost(gomock.Any(), post.ID).Return(nil),
			d.blobs.EXPECT().Delete(gomock.Any(), "old.png").Return(nil),
		)

		require.NoError(t, d.svc.DeletePost(context.Background(), post.ID))
	})

	t.Run("missing post is 404 every time", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		id := uuid.New()
		d.st.EXPECT().PostByID(gomock.Any(), id).Return(nil, storage.ErrNotFound).Times(2)

		require.ErrorIs(t, d.svc.DeletePost(context.Background(), id), ErrPostNotFound)
		require.ErrorIs(t, d.svc.DeletePost(context.Background(), id), ErrPostNotFound)
	})

	t.Run("vanished concurrently", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		post := ownedPost(uuid.New())
		d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)
		d.st.EXPECT().DeletePost(gomock.Any(), post.ID).Return(storage.ErrNotFound)

		require.ErrorIs(t, d.svc.DeletePost(context.Background(), post.ID), ErrPostNotFound)
	})

	t.Run("blob delete failure is counted", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		post := ownedPost(uuid.New())
		d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)
		d.st.EXPECT().DeletePost(gomock.Any(), post.ID).Return(nil)
		d.blobs.EXPECT().Delete(gomock.Any(), "old.png").Return(errors.New("boom"))

		require.NoError(t, d.svc.DeletePost(context.Background(), post.ID))
		require.Equal(t, 1.0, testutil.ToFloat64(d.metrics.BlobCleanupFailuresCounter("delete")))
	})

	t.Run("missing blob is not counted", func(t *testing.T) {
		t.Parallel()
		d := newSvc(t)
		post := ownedPost(uuid.New())
		d.st.EXPECT().PostByID(gomock.Any(), post.ID).Return(post, nil)
		d.st.EXPECT().DeletePost(gomock.Any(), post.ID).Return(nil)
		d.blobs.EXPECT().Delete(gomock.Any(), "old.png").Return(storage.ErrBlobNotFound)

		require.NoError(t, d.svc.DeletePost(context.Background(), post.ID))
		require.Zero(t, testutil.ToFloat64(d.metrics.BlobCleanupFailuresCounter("delete")))
	})
}

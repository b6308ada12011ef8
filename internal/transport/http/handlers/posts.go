package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/blog-service/internal/service"
	apierrors "github.com/pribylovaa/blog-service/internal/transport/http/errors"
	"github.com/pribylovaa/blog-service/internal/transport/http/middleware"
)

const (
	// defaultMaxUploadBytes — предел картинки, если он не задан в Options.
	defaultMaxUploadBytes = 5 << 20
	// multipartSlack — запас на текстовые поля и границы multipart поверх картинки.
	multipartSlack = 1 << 20

	formFieldImage = "image"
)

// postForm — разобранная multipart-форма поста.
type postForm struct {
	Title   string
	Content string
	Image   *service.Image
}

func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.Service.ListPosts(r.Context(), service.ListPostsInput{
		Search: q.Get("search"),
		By:     q.Get("by"),
		Page:   atoiOrZero(q.Get("page")),
		Limit:  atoiOrZero(q.Get("limit")),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if page.Pagination.Total == 0 {
		writeSuccess(w, http.StatusOK, envelope{Message: "no posts matched", Data: page.Items})
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Data: page.Items, Pagination: &page.Pagination})
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), service.ErrPostNotFound)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	post, err := h.Service.PostByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Data: post})
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	author, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	form, err := h.readPostForm(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	post, err := h.Service.CreatePost(r.Context(), service.CreatePostInput{
		Title:    form.Title,
		Content:  form.Content,
		AuthorID: author,
		Image:    form.Image,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{Message: "post created", Data: post})
}

// UpdatePost меняет пост; картинка в форме необязательна.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), service.ErrPostNotFound)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	requester, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	form, err := h.readPostForm(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	post, err := h.Service.UpdatePost(r.Context(), service.UpdatePostInput{
		ID:          id,
		RequesterID: requester,
		Title:       form.Title,
		Content:     form.Content,
		Image:       form.Image,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Message: "post updated", Data: post})
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), service.ErrPostNotFound)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Service.DeletePost(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Message: "post deleted"})
}

// readPostForm разбирает multipart-форму с ограничением размера тела.
// Запрос больше предела отклоняется до обращения к хранилищам.
func (h *Handlers) readPostForm(w http.ResponseWriter, r *http.Request) (*postForm, error) {
	limit := h.maxUploadBytes()
	tooLarge := &service.ValidationError{Field: formFieldImage, Msg: fmt.Sprintf("image must not exceed %d bytes", limit)}

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	if err := r.ParseMultipartForm(limit + multipartSlack); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, tooLarge
		}

		return nil, &service.ValidationError{Field: "body", Msg: "invalid multipart form"}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := &postForm{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}

	file, hdr, err := r.FormFile(formFieldImage)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, nil
	case err != nil:
		return nil, &service.ValidationError{Field: formFieldImage, Msg: "invalid image"}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, &service.ValidationError{Field: formFieldImage, Msg: "invalid image"}
	}

	if int64(len(data)) > limit {
		return nil, tooLarge
	}

	if len(data) > 0 {
		form.Image = &service.Image{
			Data:        data,
			ContentType: detectContentType(hdr.Header.Get("Content-Type"), data),
		}
	}

	return form, nil
}

func (h *Handlers) maxUploadBytes() int64 {
	if h.opts.MaxUploadBytes > 0 {
		return h.opts.MaxUploadBytes
	}

	return defaultMaxUploadBytes
}

// detectContentType доверяет заявленному типу, только если содержимое похоже на картинку.
func detectContentType(declared string, data []byte) string {
	sniffed := http.DetectContentType(data)

	if !strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}

	declared = strings.TrimSpace(declared)
	if declared == "" || declared == "application/octet-stream" {
		return sniffed
	}

	return declared
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}

	return n
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/blog-service/internal/service"
	apierrors "github.com/pribylovaa/blog-service/internal/transport/http/errors"
	"github.com/pribylovaa/blog-service/internal/transport/http/middleware"
)

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Data: users})
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), service.ErrUserNotFound)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.Service.UserByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Data: user})
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), service.ErrUserNotFound)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in service.UpdateUserInput
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody())
		return
	}

	in.ID = id // id берём из пути.
	user, err := h.Service.UpdateUser(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Message: "user updated", Data: user})
}

// ChangePassword меняет пароль; менять можно только свой.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), service.ErrUserNotFound)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	requester, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	var in service.ChangePasswordInput
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody())
		return
	}

	in.ID = id
	in.RequesterID = requester
	if err := h.Service.ChangePassword(r.Context(), in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Message: "password changed"})
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), service.ErrUserNotFound)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.Service.DeleteUser(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Message: fmt.Sprintf("user %s deleted", user.Name)})
}

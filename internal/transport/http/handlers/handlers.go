// handlers содержит REST-хендлеры blog-service поверх service.Service.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/service"
)

// CookieRefreshToken — имя cookie с refresh-токеном.
// Имя access-cookie задаёт middleware.CookieAccessToken.
const CookieRefreshToken = "refreshToken"

// Options — параметры, которые хендлеры берут из конфигурации.
type Options struct {
	// BasePath — префикс API; из него строится путь refresh-cookie.
	BasePath string
	// SecureCookies — Secure + SameSite=Strict (prod), иначе SameSite=Lax.
	SecureCookies bool
	// MaxUploadBytes — предел размера картинки.
	MaxUploadBytes int64
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	Service *service.Service
	opts    Options
}

func New(svc *service.Service, opts Options) *Handlers {
	opts.BasePath = strings.TrimRight(opts.BasePath, "/")
	return &Handlers{Service: svc, opts: opts}
}

// envelope — тело успешного ответа.
type envelope struct {
	Status      string             `json:"status"`
	Code        int                `json:"code"`
	Message     string             `json:"message,omitempty"`
	Data        any                `json:"data,omitempty"`
	Pagination  *models.Pagination `json:"pagination,omitempty"`
	AccessToken string             `json:"accessToken,omitempty"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeSuccess дописывает status/code в envelope и отправляет его.
func writeSuccess(w http.ResponseWriter, status int, env envelope) {
	env.Status = "success"
	env.Code = status
	writeJSON(w, status, env)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

func errInvalidBody() error {
	return &service.ValidationError{Field: "body", Msg: "invalid request body"}
}

// parseID разбирает id из пути. Некорректный id неотличим от отсутствующего.
func parseID(raw string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, notFound
	}

	return id, nil
}

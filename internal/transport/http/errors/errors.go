// errors стандартизирует ответы об ошибках HTTP-слоя blog-service.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Формат тела единый для всех ошибок: {"status":"error","code":<int>,"message":<string>}.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/blog-service/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Сообщения 401, на которые опирается фронт.
const (
	MsgUnauthorized = "Unauthorized"
	MsgExpiredToken = "Expired token"
	MsgInvalidToken = "Invalid token"
	MsgInternal     = "Internal Server Error"
)

// ErrorResponse — корневой объект ответа об ошибке.
// RequestID прокидывается из X-Request-Id, если есть.
type ErrorResponse struct {
	Status    string `json:"status"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и тело.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500, чтобы не маскировать баг;
//   - *service.ValidationError — 400 с сообщением валидации;
//   - sentinel-ошибки service — по таблице baseFromService;
//   - всё прочее — 500 "Internal Server Error" без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, msg := http.StatusInternalServerError, MsgInternal

	if err != nil {
		var ve *service.ValidationError
		if stderrors.As(err, &ve) {
			status, msg = http.StatusBadRequest, ve.Msg
		} else {
			status, msg = baseFromService(err)
		}
	}

	return status, ErrorResponse{Status: "error", Code: status, Message: msg}
}

// WriteError — хелпер для HTTP-хендлеров и middleware.
// Пишет статус/тело, добавляет request id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromService — маппинг sentinel-ошибок на HTTP-статус и сообщение.
// Порядок важен: уточнённые ошибки (ErrUserNotFound) проверяются раньше общих.
func baseFromService(err error) (int, string) {
	switch {
	case stderrors.Is(err, service.ErrUnauthorized), stderrors.Is(err, service.ErrNotOwner):
		return http.StatusUnauthorized, MsgUnauthorized
	case stderrors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, MsgExpiredToken
	case stderrors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, MsgInvalidToken
	case stderrors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case stderrors.Is(err, service.ErrPostNotFound):
		return http.StatusNotFound, "post not found"
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case stderrors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "email already registered"
	case stderrors.Is(err, service.ErrWrongPassword):
		return http.StatusBadRequest, "wrong password"
	case stderrors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid argument"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline exceeded"
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

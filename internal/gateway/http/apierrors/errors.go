// apierrors стандартизирует ответы об ошибках HTTP-слоя шлюза.
// На вход он принимает ошибку (от клиента локального канала или от
// провайдера идентичности), а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Источник истинности по маппингу: сентинелы пакетов authipc и provider.
package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-food-platform/internal/gateway/clients/authipc"
	"github.com/pribylovaa/go-food-platform/internal/provider"
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - authipc.ErrAuthFailed -> 401 (учётные данные отклонены сайдкаром);
//   - authipc.ErrUnprocessable -> 422 (ответ канала не разбирается);
//   - authipc.ErrUnavailable -> 503 (сайдкар недоступен);
//   - provider.ErrInvalidCredentials / provider.ErrEmailTaken -> 401;
//   - provider.ErrUnavailable -> 500 (транспортный сбой провайдера —
//     внутренняя проблема шлюза, не «сервис недоступен»);
//   - прочее -> 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, envelope("internal", "internal error")
	case errors.Is(err, authipc.ErrAuthFailed):
		return http.StatusUnauthorized, envelope("unauthenticated", "invalid credentials")
	case errors.Is(err, authipc.ErrUnprocessable):
		return http.StatusUnprocessableEntity, envelope("unprocessable", "unprocessable auth reply")
	case errors.Is(err, authipc.ErrUnavailable):
		return http.StatusServiceUnavailable, envelope("unavailable", "service unavailable")
	case errors.Is(err, provider.ErrInvalidCredentials), errors.Is(err, provider.ErrEmailTaken):
		return http.StatusUnauthorized, envelope("unauthenticated", "invalid credentials")
	default:
		return http.StatusInternalServerError, envelope("internal", "internal error")
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)
	write(w, r, status, resp)
}

// WriteStatus пишет явный статус с заданным кодом и сообщением — для
// ошибок, которые хендлер диагностирует сам (битое тело, отсутствующий
// заголовок, неизвестный путь).
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	write(w, r, status, envelope(code, message))
}

func envelope(code, message string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: message}}
}

func write(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

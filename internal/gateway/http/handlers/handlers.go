package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-food-platform/internal/gateway/proxy"
	"github.com/pribylovaa/go-food-platform/internal/ipc"
	"github.com/pribylovaa/go-food-platform/internal/provider"
)

// AuthValidator — проверка связки uid/access-token через локальный канал
// auth-сайдкара.
type AuthValidator interface {
	Validate(ctx context.Context, info ipc.AuthInfo) (ipc.ValidateResult, error)
}

// Forwarder пересылает аутентифицированный запрос на бэкенд.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, target proxy.Target)
}

// Handlers агрегирует зависимости HTTP-слоя шлюза: провайдер идентичности
// для auth-роутов, валидатор канала и форвардер для всего остального.
type Handlers struct {
	Provider provider.Provider
	Auth     AuthValidator
	Proxy    Forwarder
}

func New(p provider.Provider, auth AuthValidator, fwd Forwarder) *Handlers {
	return &Handlers{Provider: p, Auth: auth, Proxy: fwd}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// authResponse — тело ответа auth-роутов. Пустой x_user_uid означает
// «регистрация принята, но сессия ещё не активна».
type authResponse struct {
	XUserUID     string `json:"x_user_uid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func sessionResponse(s *provider.Session) authResponse {
	return authResponse{
		XUserUID:     s.UserID.String(),
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}

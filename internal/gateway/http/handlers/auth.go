package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-food-platform/internal/gateway/http/apierrors"
	logctx "github.com/pribylovaa/go-food-platform/internal/pkg/log"
	"github.com/pribylovaa/go-food-platform/internal/pkg/redact"
	"github.com/pribylovaa/go-food-platform/internal/provider"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email     string `json:"email"`
	Password1 string `json:"password_1"`
	Password2 string `json:"password_2"`
}

// Login обменивает e-mail и пароль на сессию провайдера.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteStatus(w, r, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	session, err := h.Provider.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		logctx.From(r.Context()).Warn("login_failed",
			slog.String("email", redact.Email(in.Email)),
			slog.String("err", err.Error()))
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session))
}

// SignUp регистрирует учётную запись. Несовпадение паролей отклоняется
// до какого-либо обращения к провайдеру.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	log := logctx.From(r.Context())

	var in signupRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteStatus(w, r, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	if in.Password1 != in.Password2 {
		apierrors.WriteStatus(w, r, http.StatusConflict, "password_mismatch", "passwords do not match")
		return
	}

	result, err := h.Provider.SignUp(r.Context(), in.Email, in.Password1)
	if err != nil {
		log.Warn("signup_failed",
			slog.String("email", redact.Email(in.Email)),
			slog.String("err", err.Error()))
		apierrors.WriteError(w, r, err)
		return
	}

	if result.Session != nil {
		writeJSON(w, http.StatusOK, sessionResponse(result.Session))
		return
	}

	// Провайдер ждёт подтверждения e-mail: пробуем синтезировать сессию
	// немедленным логином с теми же учётными данными.
	session, err := h.Provider.Login(r.Context(), in.Email, in.Password1)
	if err != nil {
		// Регистрация прошла, но сессии ещё нет. Это не ошибка запроса:
		// клиент получает пустые поля и трактует их как «подтверди e-mail».
		log.Info("signup_pending_confirmation", slog.String("email", redact.Email(in.Email)))
		writeJSON(w, http.StatusOK, authResponse{})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session))
}

// Logout завершает сессию держателя Access-Token в локальной области.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Access-Token")
	if token == "" {
		apierrors.WriteStatus(w, r, http.StatusBadRequest, "bad_request", "missing Access-Token header")
		return
	}

	if err := h.Provider.Logout(r.Context(), provider.ScopeLocal, token); err != nil {
		logctx.From(r.Context()).Warn("logout_failed", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

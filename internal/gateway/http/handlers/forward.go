package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-food-platform/internal/gateway/http/apierrors"
	"github.com/pribylovaa/go-food-platform/internal/gateway/proxy"
	"github.com/pribylovaa/go-food-platform/internal/ipc"
	logctx "github.com/pribylovaa/go-food-platform/internal/pkg/log"
	"github.com/pribylovaa/go-food-platform/internal/pkg/redact"
)

// Заголовки сквозной аутентификации. Все три обязательны для любого
// проксируемого запроса; отсутствие любого — 400 без обращения к каналу.
var authHeaders = []string{"X-User-Uid", "Access-Token", "Refresh-Token"}

// Forward — catch-all для не-auth путей: первый сегмент выбирает бэкенд,
// заголовки проверяются через auth-сайдкар, после чего запрос уходит на
// бэкенд дословно. Заголовочный X-User-Uid — пользовательский ввод;
// решение об аутентичности принимает только Validate.
func (h *Handlers) Forward(w http.ResponseWriter, r *http.Request) {
	log := logctx.From(r.Context())

	target, err := proxy.Resolve(firstSegment(r.URL.Path))
	if err != nil {
		apierrors.WriteStatus(w, r, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("Cannot use %s method with path: %s", r.Method, r.URL.Path))
		return
	}

	for _, name := range authHeaders {
		if r.Header.Get(name) == "" {
			apierrors.WriteStatus(w, r, http.StatusBadRequest, "bad_request",
				fmt.Sprintf("missing %s header", name))
			return
		}
	}

	info := ipc.AuthInfo{
		XUserUID:     r.Header.Get("X-User-Uid"),
		AccessToken:  r.Header.Get("Access-Token"),
		RefreshToken: r.Header.Get("Refresh-Token"),
	}

	res, err := h.Auth.Validate(r.Context(), info)
	if err != nil {
		log.Error("validate_call_failed", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, err)
		return
	}

	if !res.Authenticated() {
		log.Warn("validate_rejected",
			slog.String("x_user_uid", info.XUserUID),
			slog.String("access_token", redact.Token()),
			slog.String("reason", res.Reason()))
		apierrors.WriteStatus(w, r, http.StatusUnauthorized, "unauthenticated", res.Reason())
		return
	}

	h.Proxy.Forward(w, r, target)
}

// firstSegment возвращает первый сегмент пути без ведущего слэша.
func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

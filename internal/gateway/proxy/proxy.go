// proxy пересылает аутентифицированные запросы шлюза на бэкенды
// платформы. Запрос повторяется дословно: метод, путь, query, заголовки
// и тело уходят на бэкенд без изменений, ответ бэкенда транслируется
// клиенту байт в байт.
package proxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-food-platform/internal/gateway/config"
	logctx "github.com/pribylovaa/go-food-platform/internal/pkg/log"
)

// Target — логическое имя бэкенда, выведенное из первого сегмента пути.
type Target string

const (
	TargetProfile     Target = "profile"
	TargetRecipe      Target = "recipe"
	TargetMenu        Target = "menu"
	TargetEatTogether Target = "eat-together"
)

// ErrUnknownTarget — первый сегмент пути не соответствует ни одному
// бэкенду.
var ErrUnknownTarget = errors.New("unknown forward target")

// Resolve выводит бэкенд из первого сегмента пути.
// Сегмент "restaurant" — исторический псевдоним меню.
func Resolve(segment string) (Target, error) {
	switch segment {
	case "profile":
		return TargetProfile, nil
	case "recipe":
		return TargetRecipe, nil
	case "menu", "restaurant":
		return TargetMenu, nil
	case "eat-together":
		return TargetEatTogether, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, segment)
}

// Proxy — форвардер запросов к бэкендам.
type Proxy struct {
	addrs  map[Target]string
	client *http.Client
}

// New создаёт форвардер поверх адресов из конфигурации. Соединения к
// бэкендам не переиспользуются, редиректы бэкенда транслируются клиенту
// как есть, а не следуются.
func New(upstreams config.UpstreamsConfig, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Proxy{
		addrs: map[Target]string{
			TargetProfile:     upstreams.ProfileAddr,
			TargetRecipe:      upstreams.RecipeAddr,
			TargetMenu:        upstreams.MenuAddr,
			TargetEatTogether: upstreams.EatTogetherAddr,
		},
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{DisableKeepAlives: true},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Forward повторяет запрос на бэкенд и транслирует его ответ клиенту.
// Любой сбой на пути к бэкенду — 500 без деталей: внутренняя топология
// не протекает наружу.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, target Target) {
	log := logctx.From(r.Context())

	addr, ok := p.addrs[target]
	if !ok || addr == "" {
		log.Error("proxy_target_not_configured", slog.String("target", string(target)))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := r.Clone(r.Context())
	out.RequestURI = ""
	out.URL.Scheme = "http"
	out.URL.Host = addr
	out.Host = addr

	resp, err := p.client.Do(out)
	if err != nil {
		log.Error("proxy_upstream_failed",
			slog.String("target", string(target)),
			slog.String("err", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Статус уже ушёл; остаётся только залогировать обрыв.
		log.Warn("proxy_body_copy_failed",
			slog.String("target", string(target)),
			slog.String("err", err.Error()))
	}
}

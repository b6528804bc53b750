// supabase — HTTP-клиент GoTrue-совместимого auth-бэкенда (Supabase Auth).
// Реализует provider.Provider поверх REST API провайдера:
//
//	POST /token?grant_type=password — логин по e-mail/паролю;
//	POST /signup                    — регистрация;
//	POST /logout?scope=...          — завершение сессии;
//	GET  /user                      — владелец access-токена.
//
// Клиент не хранит состояния запросов и безопасен для конкурентного
// использования. Результаты вызовов не кэшируются.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-food-platform/internal/provider"
)

// Config — параметры подключения к провайдеру.
type Config struct {
	URL     string        `yaml:"url" env:"SUPABASE_URL" env-required:"true"`
	Key     string        `yaml:"key" env:"SUPABASE_KEY" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"SUPABASE_TIMEOUT" env-default:"10s"`
}

// Client — реализация provider.Provider.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// New создаёт клиента провайдера. Таймаут применяется ко всему вызову,
// включая установление соединения и чтение тела.
func New(cfg Config) (*Client, error) {
	const op = "provider/supabase/New"

	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("%s: empty provider url", op)
	}

	if cfg.Key == "" {
		return nil, fmt.Errorf("%s: empty provider api key", op)
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.Key,
		httpc:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// session — сессионный ответ GoTrue (логин и signup с автоподтверждением).
type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         user   `json:"user"`
}

// user — учётная запись в ответах GoTrue. При signup без
// автоподтверждения GoTrue отдаёт пользователя без токенов.
type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// apiError — тело ошибки GoTrue; формат менялся между версиями,
// поэтому читаем все известные поля.
type apiError struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (e apiError) text() string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}

	return e.Message
}

// Login реализует provider.Provider.
func (c *Client) Login(ctx context.Context, email, password string) (*provider.Session, error) {
	const op = "provider/supabase/Login"

	body := map[string]string{"email": email, "password": password}

	var sess session
	if err := c.call(ctx, http.MethodPost, "/token?grant_type=password", "", body, &sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := sessionFromAPI(sess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// SignUp реализует provider.Provider. Сессия в ответе означает
// автоподтверждение; пользователь без токенов — ожидание подтверждения
// e-mail.
func (c *Client) SignUp(ctx context.Context, email, password string) (*provider.SignUpResult, error) {
	const op = "provider/supabase/SignUp"

	body := map[string]string{"email": email, "password": password}

	var sess session
	if err := c.call(ctx, http.MethodPost, "/signup", "", body, &sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if sess.AccessToken == "" {
		return &provider.SignUpResult{Confirmation: true}, nil
	}

	out, err := sessionFromAPI(sess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &provider.SignUpResult{Session: out}, nil
}

// Logout реализует provider.Provider.
func (c *Client) Logout(ctx context.Context, scope provider.LogoutScope, accessToken string) error {
	const op = "provider/supabase/Logout"

	path := "/logout?scope=" + url.QueryEscape(string(scope))
	if err := c.call(ctx, http.MethodPost, path, accessToken, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// User реализует provider.Provider.
func (c *Client) User(ctx context.Context, accessToken string) (*provider.User, error) {
	const op = "provider/supabase/User"

	var u user
	if err := c.call(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", u.ID, err)
	}

	return &provider.User{ID: id, Email: u.Email}, nil
}

// call выполняет один REST-вызов провайдера и декодирует ответ в out
// (out == nil — тело успеха игнорируется).
//
// Маппинг ошибок:
//   - сетевой сбой / 5xx -> provider.ErrUnavailable;
//   - 400/401/403/422 -> provider.ErrInvalidCredentials, кроме
//     «already registered» -> provider.ErrEmailTaken.
func (c *Client) call(ctx context.Context, method, path, bearer string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", provider.ErrUnavailable, err)
		}

		return nil
	}

	var ae apiError
	_ = json.NewDecoder(resp.Body).Decode(&ae)

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized,
		http.StatusForbidden, http.StatusUnprocessableEntity:
		if strings.Contains(strings.ToLower(ae.text()), "already registered") ||
			ae.ErrorCode == "user_already_exists" {
			return fmt.Errorf("%w: %s", provider.ErrEmailTaken, ae.text())
		}

		return fmt.Errorf("%w: %s", provider.ErrInvalidCredentials, ae.text())
	default:
		return fmt.Errorf("%w: status %d: %s", provider.ErrUnavailable, resp.StatusCode, ae.text())
	}
}

// sessionFromAPI переводит сессию GoTrue в доменную.
func sessionFromAPI(s session) (*provider.Session, error) {
	id, err := uuid.Parse(s.User.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", s.User.ID, err)
	}

	return &provider.Session{
		UserID:       id,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}, nil
}

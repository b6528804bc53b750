// authipc — клиент локального канала auth-сайдкара со стороны шлюза.
// Одно соединение на один запрос: dial -> кадр запроса -> полузакрытие
// записи -> кадр ответа -> закрытие. Соединения не переиспользуются.
package authipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/pribylovaa/go-food-platform/internal/ipc"
)

// Ошибки клиента.
// Маппинг на HTTP (транспортный слой шлюза):
//   - ErrUnavailable -> 503 Service Unavailable;
//   - ErrUnprocessable -> 422 Unprocessable Entity;
//   - ErrAuthFailed -> 401 Unauthorized.
var (
	// ErrUnavailable — сайдкар недоступен: dial не удался или канал
	// оборвался до получения ответа.
	ErrUnavailable = errors.New("auth sidecar unavailable")
	// ErrUnprocessable — ответ получен, но его не удалось разобрать
	// (битое кадрирование, чужая команда, невалидный CBOR).
	ErrUnprocessable = errors.New("unprocessable auth reply")
	// ErrAuthFailed — сайдкар ответил явным конвертом ошибки
	// (невалидные учётные данные и т.п.).
	ErrAuthFailed = errors.New("authentication failed")
)

// Client — клиент канала. Безопасен для конкурентного использования:
// состояния между вызовами нет.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// New создаёт клиент. Нулевые таймауты заменяются умолчаниями.
func New(socketPath string, dialTimeout, callTimeout time.Duration) *Client {
	if dialTimeout <= 0 {
		dialTimeout = 2 * time.Second
	}
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}

	return &Client{socketPath: socketPath, dialTimeout: dialTimeout, callTimeout: callTimeout}
}

// Login обменивает учётные данные на сессию.
func (c *Client) Login(ctx context.Context, info ipc.LoginInfo) (*ipc.AuthResult, error) {
	const op = "gateway/authipc/Login"

	return c.authCall(ctx, op, ipc.CmdLogin, info)
}

// SignUp регистрирует пользователя. Пустые поля результата означают,
// что регистрация принята, но сессия ещё не активна.
func (c *Client) SignUp(ctx context.Context, info ipc.SignupInfo) (*ipc.AuthResult, error) {
	const op = "gateway/authipc/SignUp"

	return c.authCall(ctx, op, ipc.CmdSignUp, info)
}

// Logout завершает сессию на стороне сайдкара.
func (c *Client) Logout(ctx context.Context) error {
	const op = "gateway/authipc/Logout"

	_, err := c.authCall(ctx, op, ipc.CmdLogout, struct{}{})
	return err
}

// Validate проверяет связку uid/access-token.
func (c *Client) Validate(ctx context.Context, info ipc.AuthInfo) (ipc.ValidateResult, error) {
	const op = "gateway/authipc/Validate"

	frame, err := c.call(ctx, ipc.CmdValidate, info)
	if err != nil {
		return ipc.ValidateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var res ipc.ValidateResult
	if err := ipc.Unmarshal(frame.Payload, &res); err != nil {
		return ipc.ValidateResult{}, fmt.Errorf("%s: %w: %v", op, ErrUnprocessable, err)
	}

	return res, nil
}

// authCall — общий путь Login/SignUp/Logout: конверт AuthReply.
func (c *Client) authCall(ctx context.Context, op string, cmd ipc.Command, payload any) (*ipc.AuthResult, error) {
	frame, err := c.call(ctx, cmd, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var reply ipc.AuthReply
	if err := ipc.Unmarshal(frame.Payload, &reply); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnprocessable, err)
	}

	if reply.Error != "" {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrAuthFailed, reply.Error)
	}

	return reply.Result, nil
}

// call выполняет один обмен кадрами по свежему соединению.
func (c *Client) call(ctx context.Context, cmd ipc.Command, payload any) (ipc.Frame, error) {
	data, err := ipc.Marshal(payload)
	if err != nil {
		return ipc.Frame{}, fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return ipc.Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := ipc.WriteFrame(conn, ipc.Frame{Command: cmd, Payload: data}); err != nil {
		return ipc.Frame{}, fmt.Errorf("%w: write: %v", ErrUnavailable, err)
	}

	// Полузакрытие сигнализирует серверу конец запроса; канал чтения
	// остаётся открытым для ответа.
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return ipc.Frame{}, fmt.Errorf("%w: close write: %v", ErrUnavailable, err)
		}
	}

	frame, err := ipc.ReadFrame(conn)
	if err != nil {
		if errors.Is(err, ipc.ErrMalformedFrame) || errors.Is(err, ipc.ErrFrameTooLarge) {
			return ipc.Frame{}, fmt.Errorf("%w: %v", ErrUnprocessable, err)
		}

		return ipc.Frame{}, fmt.Errorf("%w: read: %v", ErrUnavailable, err)
	}

	if frame.Command != cmd {
		return ipc.Frame{}, fmt.Errorf("%w: reply command %d for request %d", ErrUnprocessable, frame.Command, cmd)
	}

	return frame, nil
}

// ipcserver — транспорт auth-сайдкара: слушатель unix-сокета и диспатч
// кадров локального канала в сервисный слой. Здесь выполняется только
// кадрирование, десериализация нагрузок и маппинг ошибок сервиса в
// конверт ответа; бизнес-логика целиком в пакете service.
//
// Жизненный цикл соединения: accept -> чтение кадра -> диспатч ->
// запись ответа -> закрытие. На каждое принятое соединение поднимается
// отдельная горутина; цикл accept никогда не блокируется обработкой.
//
// Принципы ответов:
//   - ровно один кадр ответа на каждый корректный кадр запроса —
//     и успех, и сбой провайдера уходят явным конвертом, клиент не
//     зависает на чтении;
//   - кадр с неизвестной командой, пустое сообщение и сломанное
//     кадрирование — логируются, соединение закрывается без ответа:
//     каналу ответа после подозрительного кадра доверять нельзя;
//   - для codes-сбоев провайдера наружу уходит безопасное сообщение,
//     детали остаются в логах.
package ipcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pribylovaa/go-food-platform/internal/auth/service"
	"github.com/pribylovaa/go-food-platform/internal/ipc"
	logctx "github.com/pribylovaa/go-food-platform/internal/pkg/log"
)

// Server — слушатель локального канала auth-сайдкара.
type Server struct {
	service *service.Service
	log     *slog.Logger
	timeout time.Duration

	ln net.Listener
	wg sync.WaitGroup
}

// New создаёт сервер поверх сервисного слоя. timeout ограничивает
// обработку одного запроса (чтение кадра, вызов провайдера, запись
// ответа); значение <=0 отключает ограничение.
func New(svc *service.Service, log *slog.Logger, timeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}

	return &Server{service: svc, log: log, timeout: timeout}
}

// Listen занимает unix-сокет по указанному пути. Протухший файл сокета
// от предыдущего запуска снимается; занятый живым процессом — ошибка.
func (s *Server) Listen(socketPath string) error {
	const op = "auth/ipcserver/Listen"

	if _, err := os.Stat(socketPath); err == nil {
		if probe, derr := net.DialTimeout("unix", socketPath, 100*time.Millisecond); derr == nil {
			_ = probe.Close()
			return fmt.Errorf("%s: socket %q already in use", op, socketPath)
		}

		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("%s: remove stale socket: %w", op, err)
		}
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.ln = ln
	return nil
}

// Serve крутит цикл accept до отмены контекста или закрытия слушателя.
// Возвращает nil при штатной остановке.
func (s *Server) Serve(ctx context.Context) error {
	const op = "auth/ipcserver/Serve"

	if s.ln == nil {
		return fmt.Errorf("%s: Serve before Listen", op)
	}

	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.log.Warn("ipc_accept_failed", slog.String("err", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close закрывает слушатель и дожидается активных соединений.
func (s *Server) Close() error {
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}

	s.wg.Wait()
	return err
}

// handleConn обрабатывает одно соединение: один кадр запроса, не более
// одного кадра ответа.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if s.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx = logctx.Into(ctx, s.log)

	frame, err := ipc.ReadFrame(conn)
	if err != nil {
		if errors.Is(err, ipc.ErrEmptyFrame) {
			s.log.Warn("ipc_empty_frame")
			return
		}

		s.log.Error("ipc_read_failed", slog.String("err", err.Error()))
		return
	}

	if !frame.Command.Known() {
		// Неизвестная команда не диспатчится и не получает ответа.
		s.log.Warn("ipc_unknown_command", slog.Int("command", int(frame.Command)))
		return
	}

	s.log.Debug("ipc_frame_received", slog.String("command", frame.Command.String()))

	reply := s.dispatch(ctx, frame)
	if err := ipc.WriteFrame(conn, ipc.Frame{Command: frame.Command, Payload: reply}); err != nil {
		s.log.Error("ipc_write_failed",
			slog.String("command", frame.Command.String()),
			slog.String("err", err.Error()))
	}
}

// dispatch маршрутизирует кадр в сервисный слой и возвращает готовую
// CBOR-нагрузку ответа.
func (s *Server) dispatch(ctx context.Context, frame ipc.Frame) []byte {
	switch frame.Command {
	case ipc.CmdLogin:
		var info ipc.LoginInfo
		if err := ipc.Unmarshal(frame.Payload, &info); err != nil {
			s.log.Error("ipc_login_decode_failed", slog.String("err", err.Error()))
			return mustMarshal(s.log, ipc.AuthReply{Error: "malformed login payload"})
		}

		result, err := s.service.Login(ctx, info)
		return mustMarshal(s.log, authReply(result, err))

	case ipc.CmdSignUp:
		var info ipc.SignupInfo
		if err := ipc.Unmarshal(frame.Payload, &info); err != nil {
			s.log.Error("ipc_signup_decode_failed", slog.String("err", err.Error()))
			return mustMarshal(s.log, ipc.AuthReply{Error: "malformed signup payload"})
		}

		result, err := s.service.SignUp(ctx, info)
		return mustMarshal(s.log, authReply(result, err))

	case ipc.CmdLogout:
		_ = s.service.Logout(ctx)
		return mustMarshal(s.log, ipc.AuthReply{})

	case ipc.CmdValidate:
		var info ipc.AuthInfo
		if err := ipc.Unmarshal(frame.Payload, &info); err != nil {
			s.log.Error("ipc_validate_decode_failed", slog.String("err", err.Error()))
			return mustMarshal(s.log, ipc.ValidateErr(fmt.Sprintf("failed to decode auth info: %v", err)))
		}

		return mustMarshal(s.log, s.service.Validate(ctx, info))
	}

	// Недостижимо: неизвестные команды отфильтрованы в handleConn.
	return nil
}

// authReply маппит результат сервиса в конверт ответа.
// Маппинг ошибок:
//   - ErrInvalidCredentials -> "invalid credentials";
//   - прочее -> "internal error" (детали только в логах).
func authReply(result *ipc.AuthResult, err error) ipc.AuthReply {
	if err == nil {
		return ipc.AuthReply{Result: result}
	}

	if errors.Is(err, service.ErrInvalidCredentials) {
		return ipc.AuthReply{Error: "invalid credentials"}
	}

	return ipc.AuthReply{Error: "internal error"}
}

func mustMarshal(log *slog.Logger, v any) []byte {
	data, err := ipc.Marshal(v)
	if err != nil {
		// CBOR-сериализация собственных структур не падает; если это
		// всё же случилось — отдать нечего.
		log.Error("ipc_marshal_failed", slog.String("err", err.Error()))
		return nil
	}

	return data
}

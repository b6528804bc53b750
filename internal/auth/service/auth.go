package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-food-platform/internal/ipc"
	logctx "github.com/pribylovaa/go-food-platform/internal/pkg/log"
	"github.com/pribylovaa/go-food-platform/internal/pkg/redact"
	"github.com/pribylovaa/go-food-platform/internal/provider"
)

// Login аутентифицирует по паре e-mail/пароль через провайдера.
// Маппинг ошибок провайдера:
//   - ErrInvalidCredentials/ErrEmailTaken -> ErrInvalidCredentials;
//   - ErrUnavailable и прочее -> ErrProviderUnavailable.
func (s *Service) Login(ctx context.Context, info ipc.LoginInfo) (*ipc.AuthResult, error) {
	const op = "auth/service/Login"

	sess, err := s.provider.Login(ctx, info.Email, info.Password)
	if err != nil {
		logctx.From(ctx).Warn("login_failed",
			slog.String("email", redact.Email(info.Email)),
			slog.String("err", err.Error()))

		if errors.Is(err, provider.ErrInvalidCredentials) || errors.Is(err, provider.ErrEmailTaken) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrProviderUnavailable)
	}

	return resultFromSession(sess), nil
}

// SignUp создаёт учётную запись. Если провайдер откладывает сессию до
// подтверждения e-mail, немедленно пробует Login с теми же данными,
// чтобы синтезировать сессию. Неудача этого вторичного логина — не
// ошибка кадра: возвращается сентинел AuthResult с пустыми полями
// (пустой x_user_uid обязан проверять шлюз — «регистрация ещё не
// активна»).
func (s *Service) SignUp(ctx context.Context, info ipc.SignupInfo) (*ipc.AuthResult, error) {
	const op = "auth/service/SignUp"

	res, err := s.provider.SignUp(ctx, info.Email, info.Password)
	if err != nil {
		logctx.From(ctx).Warn("signup_failed",
			slog.String("email", redact.Email(info.Email)),
			slog.String("err", err.Error()))

		if errors.Is(err, provider.ErrInvalidCredentials) || errors.Is(err, provider.ErrEmailTaken) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrProviderUnavailable)
	}

	if res.Session != nil {
		return resultFromSession(res.Session), nil
	}

	// Подтверждение отложено — синтезируем сессию немедленным логином.
	sess, err := s.provider.Login(ctx, info.Email, info.Password)
	if err != nil {
		logctx.From(ctx).Warn("signup_pending_login_failed",
			slog.String("email", redact.Email(info.Email)),
			slog.String("err", err.Error()))

		return &ipc.AuthResult{}, nil
	}

	return resultFromSession(sess), nil
}

// Logout в канале — заглушка: кадр принимается, возвращается пустой
// успешный ответ. Реальный logout живёт на HTTP-пути шлюза.
func (s *Service) Logout(ctx context.Context) error {
	logctx.From(ctx).Debug("logout_noop")
	return nil
}

// Validate проверяет, что access-токен принадлежит заявленному
// пользователю.
//
// Контракт:
//   - OK=true — идентификатор владельца токена у провайдера посимвольно
//     совпал с x_user_uid (каноническая дефисная форма, с учётом регистра);
//   - OK=false — несовпадение либо любой сбой запроса к провайдеру;
//   - вариант Err выставляет только транспорт канала при локальном сбое
//     десериализации.
//
// Вызывающим нужен простой булев ответ для рядового «не авторизован»;
// строка ошибки зарезервирована за действительно исключительными сбоями.
func (s *Service) Validate(ctx context.Context, info ipc.AuthInfo) ipc.ValidateResult {
	user, err := s.provider.User(ctx, info.AccessToken)
	if err != nil {
		logctx.From(ctx).Warn("validate_user_lookup_failed",
			slog.String("err", err.Error()))

		return ipc.ValidateOK(false)
	}

	if user.ID.String() != info.XUserUID {
		logctx.From(ctx).Warn("validate_uid_mismatch",
			slog.String("claimed_uid", info.XUserUID))

		return ipc.ValidateOK(false)
	}

	return ipc.ValidateOK(true)
}

func resultFromSession(sess *provider.Session) *ipc.AuthResult {
	return &ipc.AuthResult{
		XUserUID:     sess.UserID.String(),
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}
}

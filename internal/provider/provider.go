// provider описывает контракт внешнего identity-провайдера — единственного
// владельца сессионной истины. Ни шлюз, ни auth-сайдкар не выпускают и не
// проверяют токены локально: каждая проверка заново спрашивает провайдера.
//
// Реализация обязана быть безопасной для конкурентного использования из
// множества одновременных задач и не должна кэшировать результаты вызовов.
package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials — провайдер отверг пару логин/пароль либо
	// access-токен. HTTP-слой шлюза маппит в 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken — e-mail уже зарегистрирован. По контракту оригинального
	// провайдера это тоже credential-класс: HTTP 401, не 409.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUnavailable — транспортный сбой на пути к провайдеру
	// (сеть, таймаут, 5xx). HTTP-слой: 500, без деталей наружу.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// LogoutScope — область действия logout у провайдера.
type LogoutScope string

const (
	ScopeLocal  LogoutScope = "local"
	ScopeGlobal LogoutScope = "global"
)

// Session — активная сессия пользователя у провайдера.
type Session struct {
	UserID       uuid.UUID
	AccessToken  string
	RefreshToken string
}

// User — учётная запись, как её видит провайдер.
type User struct {
	ID    uuid.UUID
	Email string
}

// SignUpResult — результат регистрации: либо готовая сессия, либо
// признак «ожидает подтверждения e-mail» (Session == nil).
type SignUpResult struct {
	Session      *Session
	Confirmation bool
}

// Provider — контракт identity-коллаборатора.
//
//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks
type Provider interface {
	// Login аутентифицирует по e-mail и паролю.
	Login(ctx context.Context, email, password string) (*Session, error)

	// SignUp создаёт учётную запись. Провайдер может вернуть активную
	// сессию сразу либо отложить её до подтверждения e-mail.
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)

	// Logout завершает сессию держателя accessToken в заданной области.
	Logout(ctx context.Context, scope LogoutScope, accessToken string) error

	// User возвращает владельца access-токена.
	User(ctx context.Context, accessToken string) (*User, error)
}

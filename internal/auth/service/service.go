// service содержит бизнес-логику auth-сайдкара: обработку четырёх
// команд локального канала (Login, SignUp, Logout, Validate) поверх
// внешнего identity-провайдера.
//
// Основные аспекты:
//   - Service не хранит состояния между запросами: каждый Validate
//     заново выводит подлинность из ответа провайдера, провайдер —
//     единственный владелец сессионной истины.
//   - Экземпляр безопасен для конкурентного использования при условии,
//     что переданный provider.Provider потокобезопасен.
//   - Сбои провайдера никогда не ретраятся: один запрос — не более
//     одного обращения к провайдеру на команду (исключение — SignUp,
//     который по контракту досылает Login при отложенном подтверждении).
package service

import (
	"errors"

	"github.com/pribylovaa/go-food-platform/internal/provider"
)

var (
	// ErrInvalidCredentials — провайдер отверг логин/пароль.
	// Транспорт канала кладёт безопасное сообщение в конверт ошибки.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable — транспортный сбой на пути к провайдеру.
	// Транспорт канала: конверт ошибки с безопасным сообщением.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Service — диспетчер команд локального канала.
type Service struct {
	provider provider.Provider
}

// New создаёт новый экземпляр Service.
func New(p provider.Provider) *Service {
	return &Service{provider: p}
}

package ipc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Схемы нагрузок кадров. Нагрузка сериализуется в CBOR; имена полей
// зафиксированы контрактом канала.

// LoginInfo — нагрузка запроса CmdLogin.
type LoginInfo struct {
	Email    string `cbor:"email"`
	Password string `cbor:"password"`
}

// SignupInfo — нагрузка запроса CmdSignUp.
// Равенство паролей проверяет HTTP-слой шлюза до обращения к каналу;
// диспатчер использует только Password.
type SignupInfo struct {
	Email           string `cbor:"email"`
	Password        string `cbor:"password"`
	PasswordConfirm string `cbor:"password_confirm"`
}

// AuthInfo — нагрузка запроса CmdValidate.
// RefreshToken переносится, но валидацией не используется.
type AuthInfo struct {
	XUserUID     string `cbor:"x_user_uid"`
	AccessToken  string `cbor:"access_token"`
	RefreshToken string `cbor:"refresh_token"`
}

// AuthResult — успешный результат CmdLogin/CmdSignUp.
type AuthResult struct {
	XUserUID     string `cbor:"x_user_uid"`
	AccessToken  string `cbor:"access_token"`
	RefreshToken string `cbor:"refresh_token"`
}

// Pending сообщает, что регистрация прошла на стороне провайдера, но
// сессию синтезировать не удалось (аккаунт ещё не активирован).
// Пустой XUserUID — контракт канала, который обязан проверять шлюз.
func (r AuthResult) Pending() bool {
	return r.XUserUID == ""
}

// AuthReply — конверт ответа CmdLogin/CmdSignUp/CmdLogout.
// Ровно один кадр ответа на кадр запроса: либо Result, либо Error.
// Для CmdLogout оба поля пусты (пустой успешный ответ).
type AuthReply struct {
	Result *AuthResult `cbor:"result,omitempty"`
	Error  string      `cbor:"error,omitempty"`
}

// ValidateResult — ответ CmdValidate, размеченное объединение:
// заполнено ровно одно из полей.
//
//   - OK=true — токен принадлежит заявленному пользователю;
//   - OK=false — провайдер отверг токен или идентификаторы не совпали;
//   - Err — локальный сбой сериализации/десериализации на стороне
//     диспатчера (исключительный случай, не «не авторизован»).
type ValidateResult struct {
	OK  *bool   `cbor:"ok,omitempty"`
	Err *string `cbor:"err,omitempty"`
}

// ValidateOK — конструктор варианта OK.
func ValidateOK(ok bool) ValidateResult {
	return ValidateResult{OK: &ok}
}

// ValidateErr — конструктор варианта Err.
func ValidateErr(msg string) ValidateResult {
	return ValidateResult{Err: &msg}
}

// Authenticated — true только для варианта OK=true.
func (v ValidateResult) Authenticated() bool {
	return v.OK != nil && *v.OK
}

// Reason — человекочитаемая причина отказа для неуспешного результата.
func (v ValidateResult) Reason() string {
	if v.Err != nil {
		return *v.Err
	}

	return "invalid credentials"
}

// Marshal сериализует нагрузку кадра в CBOR.
func Marshal(v any) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return data, nil
}

// Unmarshal десериализует CBOR-нагрузку кадра.
func Unmarshal(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	return nil
}

// ipc реализует кадровый протокол локального канала между шлюзом и
// auth-сайдкаром.
//
// Формат кадра на проводе:
//
//	[4 байта длины, big-endian uint32] [1 байт команды] [CBOR-нагрузка]
//
// Префикс длины покрывает командный байт и нагрузку. Терминального
// байта-ограничителя нет: получатель всегда знает точный размер кадра
// и CBOR может содержать любые байтовые значения.
//
// Контракт обмена: клиент открывает соединение, пишет ровно один кадр
// запроса и читает ровно один кадр ответа с тем же командным байтом.
// Кадр с неизвестной командой никогда не диспатчится — он логируется,
// ответ не отправляется, соединение закрывается.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Command — командный байт кадра.
type Command byte

// Известные команды протокола. Значения зафиксированы контрактом
// канала и не подлежат перенумерации.
const (
	CmdSignUp   Command = 1
	CmdLogin    Command = 2
	CmdLogout   Command = 3
	CmdValidate Command = 4
)

// Known сообщает, входит ли команда в множество диспатчеризуемых.
func (c Command) Known() bool {
	switch c {
	case CmdSignUp, CmdLogin, CmdLogout, CmdValidate:
		return true
	default:
		return false
	}
}

func (c Command) String() string {
	switch c {
	case CmdSignUp:
		return "signup"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdValidate:
		return "validate"
	default:
		return fmt.Sprintf("unknown(%d)", byte(c))
	}
}

// MaxPayloadSize — верхняя граница размера нагрузки кадра.
// Защищает принимающую сторону от враждебного префикса длины.
const MaxPayloadSize = 1 << 20

// lenPrefixSize — размер префикса длины.
const lenPrefixSize = 4

var (
	// ErrEmptyFrame — поток закрыт до первого байта кадра.
	ErrEmptyFrame = errors.New("empty frame")

	// ErrUnknownCommand — командный байт вне множества известных команд.
	// Возвращается слоем диспатча, не кодеком: ReadFrame отдаёт кадр
	// как есть, решение «не диспатчить» принимает получатель.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrFrameTooLarge — префикс длины превышает MaxPayloadSize.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrMalformedFrame — кадр нарушает формат (нулевая длина, обрыв).
	ErrMalformedFrame = errors.New("malformed frame")
)

// Frame — один кадр локального канала: команда и сырая CBOR-нагрузка.
type Frame struct {
	Command Command
	Payload []byte
}

// WriteFrame пишет кадр в w: префикс длины, командный байт, нагрузка.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return fmt.Errorf("payload of %d bytes: %w", len(f.Payload), ErrFrameTooLarge)
	}

	header := make([]byte, lenPrefixSize+1)
	binary.BigEndian.PutUint32(header[:lenPrefixSize], uint32(1+len(f.Payload)))
	header[lenPrefixSize] = byte(f.Command)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}

	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}

	return nil
}

// ReadFrame читает один кадр из r.
//
// Ошибки:
//   - ErrEmptyFrame — EOF до первого байта (пустое сообщение);
//   - ErrFrameTooLarge — заявленная длина превышает MaxPayloadSize;
//   - ErrMalformedFrame — нулевая длина или обрыв посреди кадра.
func ReadFrame(r io.Reader) (Frame, error) {
	var prefix [lenPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, ErrEmptyFrame
		}

		return Frame{}, fmt.Errorf("read frame length: %w", ErrMalformedFrame)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length == 0 {
		return Frame{}, fmt.Errorf("zero frame length: %w", ErrMalformedFrame)
	}

	if length-1 > MaxPayloadSize {
		return Frame{}, fmt.Errorf("declared payload of %d bytes: %w", length-1, ErrFrameTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("read frame body: %w", ErrMalformedFrame)
	}

	return Frame{Command: Command(body[0]), Payload: body[1:]}, nil
}

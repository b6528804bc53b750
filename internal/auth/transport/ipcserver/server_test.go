package ipcserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-food-platform/internal/auth/service"
	"github.com/pribylovaa/go-food-platform/internal/ipc"
	"github.com/pribylovaa/go-food-platform/internal/provider"
	"github.com/pribylovaa/go-food-platform/internal/provider/mocks"
)

// startServer поднимает сервер на unix-сокете во временной директории
// и возвращает путь к сокету.
func startServer(t *testing.T, pr provider.Provider) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "auth.sock")

	srv := New(service.New(pr), nil, 2*time.Second)
	require.NoError(t, srv.Listen(socketPath))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = srv.Close()
	})

	return socketPath
}

// roundTrip — сырой клиент канала: один кадр запроса, один кадр ответа.
func roundTrip(t *testing.T, socketPath string, cmd ipc.Command, payload any) (ipc.Frame, error) {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	data, err := ipc.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, ipc.WriteFrame(conn, ipc.Frame{Command: cmd, Payload: data}))
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())

	return ipc.ReadFrame(conn)
}

func TestServe_Validate_Match(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uid := uuid.New()
	pr := mocks.NewMockProvider(ctrl)
	pr.EXPECT().User(gomock.Any(), "at-1").Return(&provider.User{ID: uid}, nil)

	socketPath := startServer(t, pr)

	frame, err := roundTrip(t, socketPath, ipc.CmdValidate, ipc.AuthInfo{
		XUserUID:    uid.String(),
		AccessToken: "at-1",
	})
	require.NoError(t, err)
	require.Equal(t, ipc.CmdValidate, frame.Command)

	var res ipc.ValidateResult
	require.NoError(t, ipc.Unmarshal(frame.Payload, &res))
	require.True(t, res.Authenticated())
}

func TestServe_Validate_MalformedPayloadIsErrVariant(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	socketPath := startServer(t, mocks.NewMockProvider(ctrl))

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	// Невалидный CBOR в нагрузке Validate.
	require.NoError(t, ipc.WriteFrame(conn, ipc.Frame{Command: ipc.CmdValidate, Payload: []byte{0xC1, 0x00, 0x00}}))
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())

	frame, err := ipc.ReadFrame(conn)
	require.NoError(t, err)

	var res ipc.ValidateResult
	require.NoError(t, ipc.Unmarshal(frame.Payload, &res))
	require.False(t, res.Authenticated())
	require.NotNil(t, res.Err)
}

func TestServe_Login_OK(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uid := uuid.New()
	pr := mocks.NewMockProvider(ctrl)
	pr.EXPECT().Login(gomock.Any(), "a@b.com", "pw").
		Return(&provider.Session{UserID: uid, AccessToken: "at", RefreshToken: "rt"}, nil)

	socketPath := startServer(t, pr)

	frame, err := roundTrip(t, socketPath, ipc.CmdLogin, ipc.LoginInfo{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, ipc.CmdLogin, frame.Command)

	var reply ipc.AuthReply
	require.NoError(t, ipc.Unmarshal(frame.Payload, &reply))
	require.Empty(t, reply.Error)
	require.NotNil(t, reply.Result)
	require.Equal(t, uid.String(), reply.Result.XUserUID)
}

// Провал логина не молчит: клиент получает явный конверт ошибки и не
// зависает на чтении ответа.
func TestServe_Login_FailureGetsExplicitReply(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pr := mocks.NewMockProvider(ctrl)
	pr.EXPECT().Login(gomock.Any(), "a@b.com", "bad").
		Return(nil, provider.ErrInvalidCredentials)

	socketPath := startServer(t, pr)

	frame, err := roundTrip(t, socketPath, ipc.CmdLogin, ipc.LoginInfo{Email: "a@b.com", Password: "bad"})
	require.NoError(t, err)

	var reply ipc.AuthReply
	require.NoError(t, ipc.Unmarshal(frame.Payload, &reply))
	require.Nil(t, reply.Result)
	require.Equal(t, "invalid credentials", reply.Error)
}

func TestServe_SignUp_PendingSentinel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pr := mocks.NewMockProvider(ctrl)
	pr.EXPECT().SignUp(gomock.Any(), "a@b.com", "pw").
		Return(&provider.SignUpResult{Confirmation: true}, nil)
	pr.EXPECT().Login(gomock.Any(), "a@b.com", "pw").
		Return(nil, provider.ErrInvalidCredentials)

	socketPath := startServer(t, pr)

	frame, err := roundTrip(t, socketPath, ipc.CmdSignUp, ipc.SignupInfo{Email: "a@b.com", Password: "pw", PasswordConfirm: "pw"})
	require.NoError(t, err)

	var reply ipc.AuthReply
	require.NoError(t, ipc.Unmarshal(frame.Payload, &reply))
	require.Empty(t, reply.Error)
	require.NotNil(t, reply.Result)
	require.True(t, reply.Result.Pending())
}

func TestServe_Logout_EmptySuccess(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	socketPath := startServer(t, mocks.NewMockProvider(ctrl))

	frame, err := roundTrip(t, socketPath, ipc.CmdLogout, struct{}{})
	require.NoError(t, err)
	require.Equal(t, ipc.CmdLogout, frame.Command)

	var reply ipc.AuthReply
	require.NoError(t, ipc.Unmarshal(frame.Payload, &reply))
	require.Nil(t, reply.Result)
	require.Empty(t, reply.Error)
}

// Неизвестная команда не диспатчится: ответа нет, соединение закрывается.
func TestServe_UnknownCommand_NoReply(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Ни одного вызова провайдера не ожидается.
	socketPath := startServer(t, mocks.NewMockProvider(ctrl))

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	require.NoError(t, ipc.WriteFrame(conn, ipc.Frame{Command: ipc.Command(99), Payload: []byte{0xA0}}))
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())

	_, err = ipc.ReadFrame(conn)
	require.ErrorIs(t, err, ipc.ErrEmptyFrame)
}

func TestListen_RejectsBusySocket(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	socketPath := startServer(t, mocks.NewMockProvider(ctrl))

	other := New(service.New(mocks.NewMockProvider(ctrl)), nil, time.Second)
	require.Error(t, other.Listen(socketPath))
}

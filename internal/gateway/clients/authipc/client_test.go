package authipc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-food-platform/internal/ipc"
)

// fakeSidecar поднимает unix-слушатель, который на каждый входящий кадр
// отвечает кадром, который вернула respond. respond с nil-результатом
// закрывает соединение без ответа.
func fakeSidecar(t *testing.T, respond func(req ipc.Frame) *ipc.Frame) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "auth.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func() {
				defer func() { _ = conn.Close() }()

				req, err := ipc.ReadFrame(conn)
				if err != nil {
					return
				}

				if reply := respond(req); reply != nil {
					_ = ipc.WriteFrame(conn, *reply)
				}
			}()
		}
	}()

	return socketPath
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := ipc.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	uid := uuid.NewString()
	socketPath := fakeSidecar(t, func(req ipc.Frame) *ipc.Frame {
		var info ipc.LoginInfo
		require.NoError(t, ipc.Unmarshal(req.Payload, &info))
		require.Equal(t, "a@b.com", info.Email)

		payload := mustMarshal(t, ipc.AuthReply{Result: &ipc.AuthResult{
			XUserUID:     uid,
			AccessToken:  "at",
			RefreshToken: "rt",
		}})
		return &ipc.Frame{Command: req.Command, Payload: payload}
	})

	client := New(socketPath, time.Second, 2*time.Second)
	res, err := client.Login(context.Background(), ipc.LoginInfo{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, uid, res.XUserUID)
	require.Equal(t, "at", res.AccessToken)
}

func TestLogin_ErrorEnvelope(t *testing.T) {
	t.Parallel()

	socketPath := fakeSidecar(t, func(req ipc.Frame) *ipc.Frame {
		payload := mustMarshal(t, ipc.AuthReply{Error: "invalid credentials"})
		return &ipc.Frame{Command: req.Command, Payload: payload}
	})

	client := New(socketPath, time.Second, 2*time.Second)
	_, err := client.Login(context.Background(), ipc.LoginInfo{Email: "a@b.com", Password: "bad"})
	require.ErrorIs(t, err, ErrAuthFailed)
	require.Contains(t, err.Error(), "invalid credentials")
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	socketPath := fakeSidecar(t, func(req ipc.Frame) *ipc.Frame {
		require.Equal(t, ipc.CmdValidate, req.Command)
		return &ipc.Frame{Command: req.Command, Payload: mustMarshal(t, ipc.ValidateOK(true))}
	})

	client := New(socketPath, time.Second, 2*time.Second)
	res, err := client.Validate(context.Background(), ipc.AuthInfo{XUserUID: uuid.NewString(), AccessToken: "at"})
	require.NoError(t, err)
	require.True(t, res.Authenticated())
}

func TestValidate_SidecarDown(t *testing.T) {
	t.Parallel()

	client := New(filepath.Join(t.TempDir(), "absent.sock"), 200*time.Millisecond, time.Second)
	_, err := client.Validate(context.Background(), ipc.AuthInfo{XUserUID: uuid.NewString(), AccessToken: "at"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestValidate_NoReplyIsUnavailable(t *testing.T) {
	t.Parallel()

	socketPath := fakeSidecar(t, func(ipc.Frame) *ipc.Frame { return nil })

	client := New(socketPath, time.Second, time.Second)
	_, err := client.Validate(context.Background(), ipc.AuthInfo{XUserUID: uuid.NewString(), AccessToken: "at"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestValidate_UndecodableReplyIsUnprocessable(t *testing.T) {
	t.Parallel()

	socketPath := fakeSidecar(t, func(req ipc.Frame) *ipc.Frame {
		return &ipc.Frame{Command: req.Command, Payload: []byte{0xC1, 0x00}}
	})

	client := New(socketPath, time.Second, time.Second)
	_, err := client.Validate(context.Background(), ipc.AuthInfo{XUserUID: uuid.NewString(), AccessToken: "at"})
	require.ErrorIs(t, err, ErrUnprocessable)
}

func TestCall_CommandMismatchIsUnprocessable(t *testing.T) {
	t.Parallel()

	socketPath := fakeSidecar(t, func(ipc.Frame) *ipc.Frame {
		return &ipc.Frame{Command: ipc.CmdLogin, Payload: mustMarshal(t, ipc.AuthReply{})}
	})

	client := New(socketPath, time.Second, time.Second)
	_, err := client.Validate(context.Background(), ipc.AuthInfo{XUserUID: uuid.NewString(), AccessToken: "at"})
	require.ErrorIs(t, err, ErrUnprocessable)
}

func TestLogout_OK(t *testing.T) {
	t.Parallel()

	socketPath := fakeSidecar(t, func(req ipc.Frame) *ipc.Frame {
		require.Equal(t, ipc.CmdLogout, req.Command)
		return &ipc.Frame{Command: req.Command, Payload: mustMarshal(t, ipc.AuthReply{})}
	})

	client := New(socketPath, time.Second, time.Second)
	require.NoError(t, client.Logout(context.Background()))
}

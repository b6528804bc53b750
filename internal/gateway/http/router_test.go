package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-food-platform/internal/gateway/http/handlers"
	"github.com/pribylovaa/go-food-platform/internal/gateway/proxy"
	"github.com/pribylovaa/go-food-platform/internal/ipc"
	"github.com/pribylovaa/go-food-platform/internal/provider"
	"github.com/pribylovaa/go-food-platform/internal/provider/mocks"
)

type validatorFunc func(ctx context.Context, info ipc.AuthInfo) (ipc.ValidateResult, error)

func (f validatorFunc) Validate(ctx context.Context, info ipc.AuthInfo) (ipc.ValidateResult, error) {
	return f(ctx, info)
}

type forwarderSpy struct {
	called bool
	target proxy.Target
	path   string
}

func (s *forwarderSpy) Forward(w http.ResponseWriter, r *http.Request, target proxy.Target) {
	s.called = true
	s.target = target
	s.path = r.URL.Path
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("proxied"))
}

// newTestServer — полный роутер с middleware поверх httptest.Server.
func newTestServer(t *testing.T, pr provider.Provider, validate validatorFunc, spy *forwarderSpy) *httptest.Server {
	t.Helper()

	if validate == nil {
		validate = func(context.Context, ipc.AuthInfo) (ipc.ValidateResult, error) {
			return ipc.ValidateOK(true), nil
		}
	}

	srv := httptest.NewServer(NewRouter(handlers.New(pr, validate, spy), Options{}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_LoginEndToEnd(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uid := uuid.New()
	pr := mocks.NewMockProvider(ctrl)
	pr.EXPECT().Login(gomock.Any(), "a@b.com", "pw").
		Return(&provider.Session{UserID: uid, AccessToken: "at", RefreshToken: "rt"}, nil)

	srv := newTestServer(t, pr, nil, &forwarderSpy{})

	resp, err := http.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"a@b.com","password":"pw"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["x_user_uid"])
	require.NotEmpty(t, body["access_token"])
	require.NotEmpty(t, body["refresh_token"])
}

func TestRouter_ForwardAuthenticatedRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	spy := &forwarderSpy{}
	srv := newTestServer(t, mocks.NewMockProvider(ctrl), nil, spy)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/profile/me", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Uid", uuid.NewString())
	req.Header.Set("Access-Token", "at-1")
	req.Header.Set("Refresh-Token", "rt-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "proxied", string(data))
	require.True(t, spy.called)
	require.Equal(t, proxy.TargetProfile, spy.target)
	require.Equal(t, "/profile/me", spy.path)
}

// Подделанный X-User-Uid не проходит: Validate отвечает false, бэкенд
// не видит запроса.
func TestRouter_ForgedUidIs401WithoutBackendContact(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	spy := &forwarderSpy{}
	srv := newTestServer(t, mocks.NewMockProvider(ctrl),
		func(context.Context, ipc.AuthInfo) (ipc.ValidateResult, error) {
			return ipc.ValidateOK(false), nil
		}, spy)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/recipe/42", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Uid", uuid.NewString())
	req.Header.Set("Access-Token", "at-1")
	req.Header.Set("Refresh-Token", "rt-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.False(t, spy.called)
}

func TestRouter_UnknownPathIs400(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	spy := &forwarderSpy{}
	srv := newTestServer(t, mocks.NewMockProvider(ctrl), nil, spy)

	resp, err := http.Get(srv.URL + "/widgets/42")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), "Cannot use GET method with path: /widgets/42")
	require.False(t, spy.called)
}

func TestRouter_MissingAuthHeaderIs400BeforeValidate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	validateCalled := false
	spy := &forwarderSpy{}
	srv := newTestServer(t, mocks.NewMockProvider(ctrl),
		func(context.Context, ipc.AuthInfo) (ipc.ValidateResult, error) {
			validateCalled = true
			return ipc.ValidateOK(true), nil
		}, spy)

	resp, err := http.Get(srv.URL + "/menu/1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, validateCalled)
	require.False(t, spy.called)
}

package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-food-platform/internal/gateway/clients/authipc"
	"github.com/pribylovaa/go-food-platform/internal/provider"
)

func TestToHTTP_BaseMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"auth_failed", fmt.Errorf("login: %w: invalid credentials", authipc.ErrAuthFailed), http.StatusUnauthorized, "unauthenticated"},
		{"unprocessable", fmt.Errorf("validate: %w", authipc.ErrUnprocessable), http.StatusUnprocessableEntity, "unprocessable"},
		{"unavailable", fmt.Errorf("validate: %w: dial", authipc.ErrUnavailable), http.StatusServiceUnavailable, "unavailable"},
		{"provider_invalid", fmt.Errorf("login: %w", provider.ErrInvalidCredentials), http.StatusUnauthorized, "unauthenticated"},
		{"provider_email_taken", fmt.Errorf("signup: %w", provider.ErrEmailTaken), http.StatusUnauthorized, "unauthenticated"},
		{"provider_down", fmt.Errorf("login: %w", provider.ErrUnavailable), http.StatusInternalServerError, "internal"},
		{"unknown", errors.New("something else"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_PropagatesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-Request-Id", "rid-42")
	rr := httptest.NewRecorder()

	WriteError(rr, req, authipc.ErrUnavailable)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "rid-42", resp.Error.RequestID)
}

func TestWriteStatus_ExplicitCodeAndMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/widgets/42", nil)
	rr := httptest.NewRecorder()

	WriteStatus(rr, req, http.StatusBadRequest, "bad_request", "cannot use GET method with path: /widgets/42")

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "bad_request", resp.Error.Code)
	require.Equal(t, "cannot use GET method with path: /widgets/42", resp.Error.Message)
}

package runner

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runregistry"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStripSha256Prefix(t *testing.T) {
	sig, ok := stripSha256Prefix("sha256=abcd")
	require.True(t, ok)
	require.Equal(t, "abcd", sig)

	_, ok = stripSha256Prefix("abcd")
	require.False(t, ok)
}

func TestHandleHealth(t *testing.T) {
	svc := NewService(Config{}, runregistry.NewStore())
	r := svc.NewEngine()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleDispatchRejectsMissingSignature(t *testing.T) {
	svc := NewService(Config{DispatchSecret: "s"}, runregistry.NewStore())
	r := svc.NewEngine()

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewBufferString(`{"actions":[]}`))
	req.Header.Set("content-type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleDispatchAcceptsValidSignature(t *testing.T) {
	secret := "s"
	svc := NewService(Config{DispatchSecret: secret}, runregistry.NewStore())
	r := svc.NewEngine()

	body := `{"event":"approved_actions.dispatch","dispatchId":"d1","dispatchedAt":"2024-01-01T00:00:00Z","source":"core","actions":[]}`

	ts := "1700000000000"
	sig := dispatch.Sign(ts, body, secret)

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewBufferString(body))
	req.Header.Set("content-type", "application/json")
	req.Header.Set(dispatch.HeaderSignatureTS, ts)
	req.Header.Set(dispatch.HeaderSignature, "sha256="+sig)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRunsEndpointsRequireSecret(t *testing.T) {
	svc := NewService(Config{RunnerSecret: "topsecret"}, runregistry.NewStore())
	r := svc.NewEngine()

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

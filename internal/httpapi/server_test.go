package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stats() any {
	return map[string]uint64{"handled": 2}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(stats, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(stats, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"handled":2}`, rec.Body.String())
}

func TestWebhookMount(t *testing.T) {
	var hit bool
	hook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { hit = true })

	rec := httptest.NewRecorder()
	NewRouter(stats, hook).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{}")))
	assert.True(t, hit)

	rec = httptest.NewRecorder()
	NewRouter(stats, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

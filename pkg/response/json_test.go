package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, "ok", map[string]string{"service": "dev-proxy"})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "success", got.Status)
	assert.Equal(t, map[string]interface{}{"service": "dev-proxy"}, got.Data)

	rec = httptest.NewRecorder()
	Error(rec, http.StatusBadGateway, "Upstream unavailable", "dial tcp: refused")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "dial tcp: refused", got.Error)
}

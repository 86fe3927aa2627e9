package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picokeys/pico-bridge/internal/api/http/dto"
	"github.com/picokeys/pico-bridge/internal/devices"
)

type stubReaderReporter struct {
	status devices.ReaderStatus
	err    error
}

func (s *stubReaderReporter) ReaderStatus(ctx context.Context) (devices.ReaderStatus, error) {
	return s.status, s.err
}

func setupHealthRouter(reporter *stubReaderReporter) *gin.Engine {
	r := gin.New()
	r.GET("/health", NewHealthHandler(reporter).Check)
	return r
}

func getHealth(t *testing.T, r *gin.Engine) dto.HealthResponse {
	t.Helper()
	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthReportsReaders(t *testing.T) {
	r := setupHealthRouter(&stubReaderReporter{status: devices.ReaderStatus{
		ServiceAvailable: true,
		Readers:          []string{"Nitrokey HSM [CCID] 00 00", "Generic Reader 01 00"},
	}})

	resp := getHealth(t, r)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.SmartCardService)
	assert.Equal(t, []string{"Nitrokey HSM [CCID] 00 00", "Generic Reader 01 00"}, resp.Readers)
}

func TestHealthServiceDown(t *testing.T) {
	r := setupHealthRouter(&stubReaderReporter{status: devices.ReaderStatus{ServiceAvailable: false}})

	resp := getHealth(t, r)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.SmartCardService)
	assert.Empty(t, resp.Readers)
}

func TestHealthStaysOkWhenReaderQueryFails(t *testing.T) {
	r := setupHealthRouter(&stubReaderReporter{err: errors.New("pcsc context lost")})

	resp := getHealth(t, r)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.SmartCardService)
	assert.NotNil(t, resp.Readers)
}

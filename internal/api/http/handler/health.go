package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/api/http/dto"
	"github.com/picokeys/pico-bridge/internal/devices"
)

type HealthHandler struct {
	readers devices.ReaderReporter
}

func NewHealthHandler(readers devices.ReaderReporter) *HealthHandler {
	return &HealthHandler{readers: readers}
}

// Check reports liveness plus smart-card subsystem diagnostics: whether
// the PC-SC service answers and which readers it sees. A failed reader
// query does not fail the health check.
func (h *HealthHandler) Check(ctx *gin.Context) {
	resp := dto.HealthResponse{Status: "ok", Readers: []string{}}
	status, err := h.readers.ReaderStatus(ctx.Request.Context())
	if err != nil {
		slog.Warn("Failed to query smart-card readers", "error", err)
	} else {
		resp.SmartCardService = status.ServiceAvailable
		if status.Readers != nil {
			resp.Readers = status.Readers
		}
	}
	ctx.JSON(http.StatusOK, resp)
}

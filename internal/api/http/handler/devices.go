package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/api/http/dto"
	"github.com/picokeys/pico-bridge/internal/devices"
)

type DeviceHandler struct {
	registry *devices.Registry
	events   *devices.EventHub
}

func NewDeviceHandler(registry *devices.Registry, events *devices.EventHub) *DeviceHandler {
	return &DeviceHandler{registry: registry, events: events}
}

func (h *DeviceHandler) Scan(c *gin.Context) {
	list, err := h.registry.Scan(c.Request.Context())
	if err != nil {
		slog.Error("Device scan failed", "error", err)
		writeFault(c, err)
		return
	}

	resp := dto.ScanResponse{Devices: list}
	if sel, ok := h.registry.Selected(); ok {
		resp.Selected = &sel
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DeviceHandler) Select(c *gin.Context) {
	var req dto.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// selection targets a device from the latest enumeration
	list, err := h.registry.Scan(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	for _, rec := range list {
		if rec.Path == req.Path {
			if err := h.registry.Select(c.Request.Context(), rec); err != nil {
				writeFault(c, err)
				return
			}
			c.JSON(http.StatusOK, rec)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no connected device at path " + req.Path})
}

func (h *DeviceHandler) Deselect(c *gin.Context) {
	h.registry.Deselect(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// Events streams device-changed notifications as server-sent events. Each
// event carries the full latest enumeration.
func (h *DeviceHandler) Events(c *gin.Context) {
	ch, cancel := h.events.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case latest, ok := <-ch:
			if !ok {
				return false
			}
			payload, err := json.Marshal(latest)
			if err != nil {
				slog.Error("Failed to encode device event", "error", err)
				return true
			}
			c.SSEvent("device-changed", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

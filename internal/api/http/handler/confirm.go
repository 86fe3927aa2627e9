package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/api/http/dto"
	"github.com/picokeys/pico-bridge/internal/auth"
)

type ConfirmHandler struct {
	config auth.Config
}

func NewConfirmHandler(config auth.Config) *ConfirmHandler {
	return &ConfirmHandler{config: config}
}

// Issue mints a confirmation token for one named destructive action.
func (h *ConfirmHandler) Issue(c *gin.Context) {
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Action {
	case auth.ActionFidoReset, auth.ActionHsmInitialize:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action " + req.Action})
		return
	}

	token, err := auth.GenerateToken(h.config, req.Action)
	if err != nil {
		slog.Error("Failed to issue confirmation token", "action", req.Action, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, dto.ConfirmResponse{Token: token})
}

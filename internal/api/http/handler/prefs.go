package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/api/http/dto"
	"github.com/picokeys/pico-bridge/internal/prefs"
)

type PrefsHandler struct {
	store *prefs.Store
}

func NewPrefsHandler(store *prefs.Store) *PrefsHandler {
	return &PrefsHandler{store: store}
}

func (h *PrefsHandler) GetLocale(c *gin.Context) {
	c.JSON(http.StatusOK, dto.LocaleResponse{Locale: string(h.store.Locale())})
}

func (h *PrefsHandler) SetLocale(c *gin.Context) {
	var req dto.SetLocaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetLocale(prefs.Locale(req.Locale)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.LocaleResponse{Locale: req.Locale})
}

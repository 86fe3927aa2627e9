package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/api/http/dto"
	"github.com/picokeys/pico-bridge/internal/fido"
)

type FidoHandler struct {
	manager *fido.Manager
}

func NewFidoHandler(manager *fido.Manager) *FidoHandler {
	return &FidoHandler{manager: manager}
}

func (h *FidoHandler) GetInfo(c *gin.Context) {
	info, err := h.manager.GetInfo(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *FidoHandler) SetPin(c *gin.Context) {
	var req dto.SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.SetPin(c.Request.Context(), req.NewPin); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) ChangePin(c *gin.Context) {
	var req dto.ChangePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.ChangePin(c.Request.Context(), req.OldPin, req.NewPin); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) ListCredentials(c *gin.Context) {
	var req dto.PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	creds, err := h.manager.ListCredentials(c.Request.Context(), req.Pin)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListCredentialsResponse{Credentials: creds})
}

func (h *FidoHandler) DeleteCredential(c *gin.Context) {
	var req dto.DeleteCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.DeleteCredential(c.Request.Context(), req.Pin, req.CredentialID); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) ListOath(c *gin.Context) {
	creds, err := h.manager.ListOath(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListOathResponse{Credentials: creds})
}

func (h *FidoHandler) AddOath(c *gin.Context) {
	var req dto.AddOathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params := fido.AddOathParams{
		Issuer:  req.Issuer,
		Account: req.Account,
		Type:    fido.OathType(req.Type),
		Digits:  req.Digits,
		Period:  req.Period,
		Counter: req.Counter,
	}
	if err := h.manager.AddOath(c.Request.Context(), req.Secret, params); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *FidoHandler) CalculateOath(c *gin.Context) {
	var req dto.OathCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code, err := h.manager.CalculateOath(c.Request.Context(), req.CredentialID)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CalculateOathResponse{Code: code})
}

func (h *FidoHandler) DeleteOath(c *gin.Context) {
	var req dto.OathCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.DeleteOath(c.Request.Context(), req.CredentialID); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) BackupWords(c *gin.Context) {
	var req dto.PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	words, err := h.manager.BackupWords(c.Request.Context(), req.Pin)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BackupWordsResponse{Words: words})
}

func (h *FidoHandler) RestoreWords(c *gin.Context) {
	var req dto.RestoreWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.RestoreWords(c.Request.Context(), req.Pin, req.Words); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) Reset(c *gin.Context) {
	if err := h.manager.Reset(c.Request.Context()); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) SetMinPinLength(c *gin.Context) {
	var req dto.MinPinLengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.SetMinPinLength(c.Request.Context(), req.Pin, req.Length); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) SetEnterpriseAttestation(c *gin.Context) {
	var req dto.EnterpriseAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.SetEnterpriseAttestation(c.Request.Context(), req.Pin, req.Enable); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FidoHandler) SetLed(c *gin.Context) {
	var req dto.LedConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.SetLed(c.Request.Context(), req.ToLedConfig()); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

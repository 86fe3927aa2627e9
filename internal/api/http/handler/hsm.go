package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/api/http/dto"
	"github.com/picokeys/pico-bridge/internal/hsm"
)

type HsmHandler struct {
	manager *hsm.Manager
}

func NewHsmHandler(manager *hsm.Manager) *HsmHandler {
	return &HsmHandler{manager: manager}
}

func (h *HsmHandler) GetDeviceInfo(c *gin.Context) {
	info, err := h.manager.GetDeviceInfo(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *HsmHandler) Initialize(c *gin.Context) {
	var req dto.InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.Initialize(c.Request.Context(), req.Pin, req.SoPin, req.DkekShares); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) VerifyPin(c *gin.Context) {
	var req dto.PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.VerifyPin(c.Request.Context(), req.Pin); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) ChangePin(c *gin.Context) {
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

func (h *HsmHandler) ChangeSoPin(c *gin.Context) {
	var req dto.ChangeSoPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.ChangeSoPin(c.Request.Context(), req.OldSoPin, req.NewSoPin); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) UnblockPin(c *gin.Context) {
	var req dto.UnblockPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.UnblockPin(c.Request.Context(), req.SoPin, req.NewPin); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) ListKeys(c *gin.Context) {
	var req dto.PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	keys, err := h.manager.ListKeys(c.Request.Context(), req.Pin)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListKeysResponse{Keys: keys})
}

func (h *HsmHandler) GenerateKey(c *gin.Context) {
	var req dto.GenerateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var err error
	switch hsm.KeyKind(req.Kind) {
	case hsm.KeyRSA:
		err = h.manager.GenerateRsaKey(ctx, req.Pin, req.Bits, req.ID, req.Label)
	case hsm.KeyEC:
		err = h.manager.GenerateEcKey(ctx, req.Pin, req.Curve, req.ID, req.Label)
	case hsm.KeyAES:
		err = h.manager.GenerateAesKey(ctx, req.Pin, req.Bits, req.ID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown key kind " + req.Kind})
		return
	}
	if err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *HsmHandler) DeleteKey(c *gin.Context) {
	var req dto.DeleteKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.DeleteKey(c.Request.Context(), req.Pin, req.ID, hsm.KeyKind(req.Kind)); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) ListCertificates(c *gin.Context) {
	var req dto.PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	certs, err := h.manager.ListCertificates(c.Request.Context(), req.Pin)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListCertificatesResponse{Certificates: certs})
}

func (h *HsmHandler) ImportCertificate(c *gin.Context) {
	var req dto.ImportCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.ImportCertificate(c.Request.Context(), req.Pin, req.ID, req.Data); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *HsmHandler) ExportCertificate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "certificate id must be 0-255"})
		return
	}
	der, err := h.manager.ExportCertificate(c.Request.Context(), uint8(id))
	if err != nil {
		writeFault(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pkix-cert", der)
}

func (h *HsmHandler) CreateDkekShare(c *gin.Context) {
	var req dto.CreateDkekShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sealed, err := h.manager.CreateDkekShare(c.Request.Context(), req.Password)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DkekShareResponse{Share: sealed})
}

func (h *HsmHandler) ImportDkekShare(c *gin.Context) {
	var req dto.ImportDkekShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := h.manager.ImportDkekShare(c.Request.Context(), req.Share, req.Password)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *HsmHandler) DkekStatus(c *gin.Context) {
	status, err := h.manager.DkekStatus(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *HsmHandler) WrapKey(c *gin.Context) {
	var req dto.WrapKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wrapped, err := h.manager.WrapKey(c.Request.Context(), req.Pin, req.KeyRef)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.WrapKeyResponse{Wrapped: wrapped})
}

func (h *HsmHandler) UnwrapKey(c *gin.Context) {
	var req dto.UnwrapKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.UnwrapKey(c.Request.Context(), req.Pin, req.KeyRef, req.Wrapped); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) GetOptions(c *gin.Context) {
	opts, err := h.manager.GetOptions(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *HsmHandler) SetOption(c *gin.Context) {
	var req dto.SetOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.SetOption(c.Request.Context(), hsm.OptionName(req.Name), req.Value); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) SetDatetime(c *gin.Context) {
	if err := h.manager.SetDatetime(c.Request.Context()); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) EnableSecureLock(c *gin.Context) {
	if err := h.manager.EnableSecureLock(c.Request.Context()); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) DisableSecureLock(c *gin.Context) {
	if err := h.manager.DisableSecureLock(c.Request.Context()); err != nil {
		writeFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HsmHandler) SetLed(c *gin.Context) {
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

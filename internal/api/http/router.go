package http

import (
	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/api/http/handler"
	"github.com/picokeys/pico-bridge/internal/api/http/middleware"
	"github.com/picokeys/pico-bridge/internal/auth"
)

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler(srvs.Readers)
	engine.GET("/health", healthHandler.Check)

	deviceHandler := handler.NewDeviceHandler(srvs.Registry, srvs.Events)
	engine.GET("/devices", deviceHandler.Scan)
	engine.POST("/devices/select", deviceHandler.Select)
	engine.POST("/devices/deselect", deviceHandler.Deselect)
	engine.GET("/devices/events", deviceHandler.Events)

	prefsHandler := handler.NewPrefsHandler(srvs.Prefs)
	engine.GET("/prefs/locale", prefsHandler.GetLocale)
	engine.PUT("/prefs/locale", prefsHandler.SetLocale)

	confirmHandler := handler.NewConfirmHandler(srvs.Confirm)
	engine.POST("/confirm", confirmHandler.Issue)

	fidoHandler := handler.NewFidoHandler(srvs.Fido)
	fidoGroup := engine.Group("/fido")
	{
		fidoGroup.GET("/info", fidoHandler.GetInfo)
		fidoGroup.POST("/pin", fidoHandler.SetPin)
		fidoGroup.PUT("/pin", fidoHandler.ChangePin)
		fidoGroup.POST("/credentials/list", fidoHandler.ListCredentials)
		fidoGroup.DELETE("/credentials", fidoHandler.DeleteCredential)
		fidoGroup.GET("/oath", fidoHandler.ListOath)
		fidoGroup.POST("/oath", fidoHandler.AddOath)
		fidoGroup.POST("/oath/calculate", fidoHandler.CalculateOath)
		fidoGroup.DELETE("/oath", fidoHandler.DeleteOath)
		fidoGroup.POST("/backup/words", fidoHandler.BackupWords)
		fidoGroup.POST("/backup/restore", fidoHandler.RestoreWords)
		fidoGroup.POST("/reset",
			middleware.RequireConfirmation(srvs.Confirm, auth.ActionFidoReset),
			fidoHandler.Reset)
		fidoGroup.PUT("/config/min-pin-length", fidoHandler.SetMinPinLength)
		fidoGroup.PUT("/config/enterprise-attestation", fidoHandler.SetEnterpriseAttestation)
		fidoGroup.PUT("/led", fidoHandler.SetLed)
	}

	hsmHandler := handler.NewHsmHandler(srvs.Hsm)
	hsmGroup := engine.Group("/hsm")
	{
		hsmGroup.GET("/info", hsmHandler.GetDeviceInfo)
		hsmGroup.POST("/initialize",
			middleware.RequireConfirmation(srvs.Confirm, auth.ActionHsmInitialize),
			hsmHandler.Initialize)
		hsmGroup.POST("/pin/verify", hsmHandler.VerifyPin)
		hsmGroup.PUT("/pin", hsmHandler.ChangePin)
		hsmGroup.PUT("/so-pin", hsmHandler.ChangeSoPin)
		hsmGroup.POST("/pin/unblock", hsmHandler.UnblockPin)
		hsmGroup.POST("/keys/list", hsmHandler.ListKeys)
		hsmGroup.POST("/keys", hsmHandler.GenerateKey)
		hsmGroup.DELETE("/keys", hsmHandler.DeleteKey)
		hsmGroup.POST("/keys/wrap", hsmHandler.WrapKey)
		hsmGroup.POST("/keys/unwrap", hsmHandler.UnwrapKey)
		hsmGroup.POST("/certificates/list", hsmHandler.ListCertificates)
		hsmGroup.POST("/certificates", hsmHandler.ImportCertificate)
		hsmGroup.GET("/certificates/:id/export", hsmHandler.ExportCertificate)
		hsmGroup.POST("/dkek/share", hsmHandler.CreateDkekShare)
		hsmGroup.POST("/dkek/import", hsmHandler.ImportDkekShare)
		hsmGroup.GET("/dkek/status", hsmHandler.DkekStatus)
		hsmGroup.GET("/options", hsmHandler.GetOptions)
		hsmGroup.PUT("/options", hsmHandler.SetOption)
		hsmGroup.POST("/clock", hsmHandler.SetDatetime)
		hsmGroup.POST("/secure-lock/enable", hsmHandler.EnableSecureLock)
		hsmGroup.POST("/secure-lock/disable", hsmHandler.DisableSecureLock)
		hsmGroup.PUT("/led", hsmHandler.SetLed)
	}
}

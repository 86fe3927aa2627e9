package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/faults"
)

// writeFault normalizes any coordination-layer error and maps its kind to
// an HTTP status. The response carries the kind so the desktop client can
// pick a translated message; the raw text rides along for diagnostics.
func writeFault(c *gin.Context, err error) {
	fault := faults.Normalize(err)
	c.JSON(faultStatus(fault.Kind), gin.H{
		"kind":  string(fault.Kind),
		"error": fault.Message,
	})
}

func faultStatus(kind faults.Kind) int {
	switch kind {
	case faults.KindDeviceNotFound, faults.KindKeyNotFound,
		faults.KindCertificateNotFound, faults.KindCredentialNotFound:
		return http.StatusNotFound
	case faults.KindDeviceBusy:
		return http.StatusConflict
	case faults.KindNotInitialized, faults.KindDkekNotInitialized:
		return http.StatusConflict
	case faults.KindPinInvalid, faults.KindPinTooShort, faults.KindPinTooLong,
		faults.KindSoPinInvalid, faults.KindAuthenticationFailed:
		return http.StatusUnprocessableEntity
	case faults.KindPinLocked, faults.KindSoPinLocked:
		return http.StatusLocked
	case faults.KindNotSupported:
		return http.StatusNotImplemented
	case faults.KindInsufficientMemory:
		return http.StatusInsufficientStorage
	case faults.KindBackendUnavailable, faults.KindDeviceDisconnected:
		return http.StatusServiceUnavailable
	case faults.KindConnectionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

package dto

import "github.com/picokeys/pico-bridge/internal/hsm"

type InitializeRequest struct {
	Pin        string `json:"pin" binding:"required"`
	SoPin      string `json:"so_pin" binding:"required"`
	DkekShares uint8  `json:"dkek_shares"`
}

type ChangeSoPinRequest struct {
	OldSoPin string `json:"old_so_pin" binding:"required"`
	NewSoPin string `json:"new_so_pin" binding:"required"`
}

type UnblockPinRequest struct {
	SoPin  string `json:"so_pin" binding:"required"`
	NewPin string `json:"new_pin" binding:"required"`
}

type GenerateKeyRequest struct {
	Pin   string `json:"pin" binding:"required"`
	Kind  string `json:"kind" binding:"required"`
	Bits  int    `json:"bits"`
	Curve string `json:"curve"`
	ID    uint8  `json:"key_id"`
	Label string `json:"label"`
}

type ListKeysResponse struct {
	Keys []hsm.KeyInfo `json:"keys"`
}

type DeleteKeyRequest struct {
	Pin  string `json:"pin" binding:"required"`
	ID   uint8  `json:"key_id"`
	Kind string `json:"kind" binding:"required"`
}

type ListCertificatesResponse struct {
	Certificates []hsm.CertInfo `json:"certificates"`
}

type ImportCertificateRequest struct {
	Pin  string `json:"pin" binding:"required"`
	ID   uint8  `json:"cert_id"`
	Data []byte `json:"data" binding:"required"`
}

type CreateDkekShareRequest struct {
	Password string `json:"password" binding:"required"`
}

type DkekShareResponse struct {
	Share []byte `json:"share"`
}

type ImportDkekShareRequest struct {
	Share    []byte `json:"share" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type WrapKeyRequest struct {
	Pin    string `json:"pin" binding:"required"`
	KeyRef uint8  `json:"key_ref"`
}

type WrapKeyResponse struct {
	Wrapped []byte `json:"wrapped"`
}

type UnwrapKeyRequest struct {
	Pin     string `json:"pin" binding:"required"`
	KeyRef  uint8  `json:"key_ref"`
	Wrapped []byte `json:"wrapped" binding:"required"`
}

type SetOptionRequest struct {
	Name  string `json:"name" binding:"required"`
	Value bool   `json:"value"`
}

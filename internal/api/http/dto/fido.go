package dto

import "github.com/picokeys/pico-bridge/internal/fido"

type SetPinRequest struct {
	NewPin string `json:"new_pin" binding:"required"`
}

type ChangePinRequest struct {
	OldPin string `json:"old_pin" binding:"required"`
	NewPin string `json:"new_pin" binding:"required"`
}

type PinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

type ListCredentialsResponse struct {
	Credentials []fido.Credential `json:"credentials"`
}

type DeleteCredentialRequest struct {
	Pin          string `json:"pin" binding:"required"`
	CredentialID []byte `json:"credential_id" binding:"required"`
}

type ListOathResponse struct {
	Credentials []fido.OathCredential `json:"credentials"`
}

type AddOathRequest struct {
	Secret  string `json:"secret" binding:"required"`
	Issuer  string `json:"issuer"`
	Account string `json:"account" binding:"required"`
	Type    string `json:"oath_type" binding:"required"`
	Digits  int    `json:"digits"`
	Period  int    `json:"period"`
	Counter uint64 `json:"counter"`
}

type OathCredentialRequest struct {
	CredentialID string `json:"credential_id" binding:"required"`
}

type CalculateOathResponse struct {
	Code string `json:"code"`
}

type BackupWordsResponse struct {
	Words []string `json:"words"`
}

type RestoreWordsRequest struct {
	Pin   string   `json:"pin" binding:"required"`
	Words []string `json:"words" binding:"required"`
}

type MinPinLengthRequest struct {
	Pin    string `json:"pin" binding:"required"`
	Length int    `json:"length" binding:"required"`
}

type EnterpriseAttestationRequest struct {
	Pin    string `json:"pin" binding:"required"`
	Enable bool   `json:"enable"`
}

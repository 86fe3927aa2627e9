package dto

type LocaleResponse struct {
	Locale string `json:"locale"`
}

type SetLocaleRequest struct {
	Locale string `json:"locale" binding:"required"`
}

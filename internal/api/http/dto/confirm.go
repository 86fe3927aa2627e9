package dto

type ConfirmRequest struct {
	Action string `json:"action" binding:"required"`
}

type ConfirmResponse struct {
	Token string `json:"token"`
}

package dto

type HealthResponse struct {
	Status           string   `json:"status"`
	SmartCardService bool     `json:"smart_card_service"`
	Readers          []string `json:"readers"`
}

package models

// Query parameters of the HTTP control surface.

type AlertsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=20"`
	Level  string `query:"level" json:"level" validate:"omitempty,oneof=high medium low"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type TriggerResponse struct {
	Submitted bool   `json:"submitted"`
	Message   string `json:"message"`
}

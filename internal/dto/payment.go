package dto

import "petcare_settlement/internal/models"

type IntentResponse struct {
	PaymentID    string `json:"paymentId"`
	IntentID     string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       string `json:"amount"`
	Discount     string `json:"discount"`
	Currency     string `json:"currency"`
	Reused       bool   `json:"reused"`
}

type OfflinePaymentResponse struct {
	Payment *models.Payment `json:"payment"`
	Voucher string          `json:"voucher"`
}

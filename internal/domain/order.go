package domain

import "github.com/shopspring/decimal"

// PaymentDetails is what the user typed into the payment form. It is never
// persisted or logged; Redacted output is what crosses the boundary.
type PaymentDetails struct {
	HolderName string `json:"holderName"`
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

// PaymentMethod is the redacted payment sent to and echoed by the backend.
type PaymentMethod struct {
	CardHolderName string `json:"cardHolderName"`
	CardNumber     string `json:"cardNumber"`
	ExpiryDate     string `json:"expiryDate"`
	CVV            string `json:"cvv"`
}

type CheckoutRequest struct {
	Items         []StoreItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

// Order is the backend's record of a completed checkout.
type Order struct {
	Status             string          `json:"status"`
	Total              decimal.Decimal `json:"total"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod"`
	UserID             string          `json:"userId"`
	ConfirmationNumber string          `json:"confirmationNumber"`
	Items              []StoreItem     `json:"items"`
}

package domain

// PaymentChallenge is the ephemeral payload served on unauthenticated access
// to a protected resource. It is regenerated on every 402 response and never
// persisted; the nonce binds the subsequent purchase to this challenge.
type PaymentChallenge struct {
	Status              int               `json:"status"`
	PaymentRequired     bool              `json:"paymentRequired"`
	Price               string            `json:"price"`
	PriceInSmallestUnit string            `json:"priceInSmallestUnit"`
	Receiver            string            `json:"receiver"`
	Domain              string            `json:"domain"`
	Resource            string            `json:"resource"`
	Nonce               string            `json:"nonce"`
	ContractIdentifiers map[string]string `json:"contractIdentifiers"`
}

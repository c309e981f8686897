package models

// Card is a payment card issued against an account.
type Card struct {
	ID             ID     `json:"id"`
	AccountID      ID     `json:"account_id"`
	Status         string `json:"status"`
	Nickname       string `json:"nick_name,omitempty"`
	PANLastDigits  string `json:"pan_last_digits,omitempty"`
	DesignType     string `json:"design_type,omitempty"`
	CardholderName string `json:"cardholder_name,omitempty"`
}

// Key returns the cache key.
func (c Card) Key() ID { return c.ID }

// CardRequest is the body of card create and update requests.
type CardRequest struct {
	AccountID      ID     `json:"account_id,omitempty"`
	Status         string `json:"status,omitempty"`
	Nickname       string `json:"nick_name,omitempty"`
	CardholderName string `json:"cardholder_name,omitempty"`
}

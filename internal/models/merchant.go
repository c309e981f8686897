package models

// Merchant is a business transactions can be attributed to.
type Merchant struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	MerchantType string `json:"merchant_type"`
	SmallLogoURL string `json:"small_logo_url,omitempty"`
}

// Key returns the cache key.
func (m Merchant) Key() ID { return m.ID }

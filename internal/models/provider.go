package models

// ProviderStatus is the availability of a provider as reported by the aggregator.
type ProviderStatus string

const (
	ProviderStatusSupported   ProviderStatus = "SUPPORTED"
	ProviderStatusBeta        ProviderStatus = "BETA"
	ProviderStatusOutage      ProviderStatus = "OUTAGE"
	ProviderStatusDisabled    ProviderStatus = "DISABLED"
	ProviderStatusUnsupported ProviderStatus = "UNSUPPORTED"
	ProviderStatusComingSoon  ProviderStatus = "COMING_SOON"
)

// Limited reports whether the provider is only listed, not connectable.
// Limited providers arrive through the sparse list endpoint and never carry
// login form or URL details.
func (s ProviderStatus) Limited() bool {
	switch s {
	case ProviderStatusDisabled, ProviderStatusUnsupported, ProviderStatusComingSoon:
		return true
	}
	return false
}

// Provider is a financial institution connectable through the aggregator.
type Provider struct {
	ID                    ID             `json:"id"`
	Name                  string         `json:"name"`
	SmallLogoURL          string         `json:"small_logo_url,omitempty"`
	LargeLogoURL          string         `json:"large_logo_url,omitempty"`
	Status                ProviderStatus `json:"status"`
	Popular               bool           `json:"popular"`
	ContainerNames        []string       `json:"container_names,omitempty"`
	AggregatorType        string         `json:"aggregator_type"`
	BaseURL               string         `json:"base_url,omitempty"`
	LoginURL              string         `json:"login_url,omitempty"`
	AuthType              string         `json:"auth_type,omitempty"`
	LoginForm             string         `json:"login_form,omitempty"`
	AssociatedProviderIDs []ID           `json:"associated_provider_ids,omitempty"`
}

// Key returns the cache key.
func (p Provider) Key() ID { return p.ID }

// MergeListing overlays the attributes carried by the provider list
// endpoint onto an existing, possibly richer, cached provider.
func (p Provider) MergeListing(listed Provider) Provider {
	merged := p
	merged.Name = listed.Name
	merged.SmallLogoURL = listed.SmallLogoURL
	merged.Status = listed.Status
	merged.Popular = listed.Popular
	merged.ContainerNames = listed.ContainerNames
	merged.AggregatorType = listed.AggregatorType
	return merged
}

// RefreshStatus describes the last aggregation attempt of a provider account.
type RefreshStatus struct {
	Status         string `json:"status"`
	SubStatus      string `json:"sub_status,omitempty"`
	AdditionalInfo string `json:"additional_status,omitempty"`
	LastRefreshed  string `json:"last_refreshed,omitempty"`
}

// ProviderAccount is a user's login at a provider.
type ProviderAccount struct {
	ID            ID            `json:"id"`
	ProviderID    ID            `json:"provider_id"`
	ExternalID    string        `json:"external_id,omitempty"`
	Editable      bool          `json:"editable"`
	RefreshStatus RefreshStatus `json:"refresh_status"`
}

// Key returns the cache key.
func (p ProviderAccount) Key() ID { return p.ID }

// ProviderAccountRequest is the body of create and update requests.
type ProviderAccountRequest struct {
	ProviderID ID                `json:"provider_id"`
	LoginForm  map[string]string `json:"login_form"`
}

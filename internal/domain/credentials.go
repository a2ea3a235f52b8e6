package domain

// Credentials authenticate every call to the GLS Label Service.
// They are supplied once at client construction and never change.
type Credentials struct {
	// SiteID is the GLS branch (sede) identifier.
	SiteID string

	// ClientCode is the customer code assigned by the branch.
	ClientCode string

	// Secret is the API password.
	Secret string

	// ContractCode identifies the shipping contract.
	ContractCode string
}

// Valid reports whether all four credential fields are present.
func (c Credentials) Valid() bool {
	return c.SiteID != "" && c.ClientCode != "" && c.Secret != "" && c.ContractCode != ""
}

package ocpi

import "time"

// Role of a roaming party.
type Role string

const (
	RoleCPO  Role = "CPO"
	RoleEMSP Role = "EMSP"
)

// ModuleID identifies an OCPI module in version details and endpoint tables.
type ModuleID string

const (
	ModuleCredentials ModuleID = "credentials"
	ModuleLocations   ModuleID = "locations"
	ModuleSessions    ModuleID = "sessions"
	ModuleCdrs        ModuleID = "cdrs"
	ModuleTariffs     ModuleID = "tariffs"
	ModuleTokens      ModuleID = "tokens"
)

// InterfaceRole says which side of a module a party implements.
type InterfaceRole string

const (
	InterfaceSender   InterfaceRole = "SENDER"
	InterfaceReceiver InterfaceRole = "RECEIVER"
)

// Identity is the (country_code, party_id) pair used in headers and object keys.
type Identity struct {
	CountryCode string `json:"country_code"`
	PartyID     string `json:"party_id"`
}

// Version is one entry of a remote party's version list.
type Version struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Endpoint is a module implementation advertised in version details.
type Endpoint struct {
	Identifier ModuleID      `json:"identifier"`
	Role       InterfaceRole `json:"role"`
	URL        string        `json:"url"`
}

// VersionDetails is the endpoint table for a single protocol version.
type VersionDetails struct {
	Version   string     `json:"version"`
	Endpoints []Endpoint `json:"endpoints"`
}

// BusinessDetails carries the display name of a party in a credentials document.
type BusinessDetails struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// CredentialsRole is one role a party claims in its credentials document.
type CredentialsRole struct {
	Role            Role            `json:"role"`
	BusinessDetails BusinessDetails `json:"business_details"`
	PartyID         string          `json:"party_id"`
	CountryCode     string          `json:"country_code"`
}

// Credentials is the document exchanged during registration: the token the
// receiving side must present on future calls, plus the sender's versions URL
// and role claims.
type Credentials struct {
	Token string            `json:"token"`
	URL   string            `json:"url"`
	Roles []CredentialsRole `json:"roles"`
}

// PartyRole returns the first role claim, which OCPI uses to key the partner.
func (c Credentials) PartyRole() (CredentialsRole, bool) {
	if len(c.Roles) == 0 {
		return CredentialsRole{}, false
	}
	return c.Roles[0], true
}

// Partner is a roaming counterparty as held in the partner directory.
//
// OutgoingToken is what we present when calling the partner; IncomingToken is
// what the partner must present when calling us. Both are rotated, never
// reused, on every successful handshake step.
type Partner struct {
	CountryCode       string                `json:"country_code"`
	PartyID           string                `json:"party_id"`
	Role              Role                  `json:"role"`
	Owner             Identity              `json:"owner"`
	Name              string                `json:"name"`
	OutgoingToken     string                `json:"-"`
	IncomingToken     string                `json:"-"`
	VersionsURL       string                `json:"versions_url"`
	NegotiatedVersion string                `json:"negotiated_version"`
	Endpoints         map[ModuleID]Endpoint `json:"endpoints"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// Registered reports whether the handshake completed: both tokens present and
// at least one capability endpoint negotiated. Unregistered partners never
// receive broadcasts.
func (p Partner) Registered() bool {
	return p.OutgoingToken != "" && p.IncomingToken != "" && len(p.Endpoints) > 0
}

// EndpointFor returns the partner's negotiated endpoint for a module.
func (p Partner) EndpointFor(module ModuleID) (Endpoint, bool) {
	ep, ok := p.Endpoints[module]
	return ep, ok
}

// Key returns the partner's identity triple as a single string, for logs.
func (p Partner) Key() string {
	return p.CountryCode + "*" + p.PartyID + "*" + string(p.Role)
}

package ocpi

import "time"

// SessionStatus per the OCPI session module.
type SessionStatus string

const (
	StatusActive      SessionStatus = "ACTIVE"
	StatusCompleted   SessionStatus = "COMPLETED"
	StatusInvalid     SessionStatus = "INVALID"
	StatusPending     SessionStatus = "PENDING"
	StatusReservation SessionStatus = "RESERVATION"
)

// DimensionType classifies a CdrDimension volume.
type DimensionType string

const (
	DimensionEnergy        DimensionType = "ENERGY"
	DimensionEnergyImport  DimensionType = "ENERGY_IMPORT"
	DimensionCurrent       DimensionType = "CURRENT"
	DimensionTime          DimensionType = "TIME"
	DimensionStateOfCharge DimensionType = "STATE_OF_CHARGE"
	DimensionParkingTime   DimensionType = "PARKING_TIME"
)

// AuthMethod says how the driver was authorized.
type AuthMethod string

const (
	AuthWhitelist   AuthMethod = "WHITELIST"
	AuthAuthRequest AuthMethod = "AUTH_REQUEST"
)

// Price is an amount excluding and optionally including VAT.
type Price struct {
	ExclVAT float64  `json:"excl_vat"`
	InclVAT *float64 `json:"incl_vat,omitempty"`
}

// CdrDimension is one typed volume inside a charging period.
type CdrDimension struct {
	Type   DimensionType `json:"type"`
	Volume float64       `json:"volume"`
}

// ChargingPeriod is a timestamped slice of a session. Periods are strictly
// ordered by StartDateTime.
type ChargingPeriod struct {
	StartDateTime time.Time      `json:"start_date_time"`
	Dimensions    []CdrDimension `json:"dimensions"`
	TariffID      string         `json:"tariff_id,omitempty"`
}

// CdrToken identifies the driver token that authorized a session.
type CdrToken struct {
	CountryCode string `json:"country_code"`
	PartyID     string `json:"party_id"`
	UID         string `json:"uid"`
	Type        string `json:"type"`
	ContractID  string `json:"contract_id"`
}

// Session is the roaming-facing view of a charging occurrence, keyed by
// (country_code, party_id, id). TotalCost stays nil while the session is
// ACTIVE.
type Session struct {
	CountryCode     string           `json:"country_code"`
	PartyID         string           `json:"party_id"`
	ID              string           `json:"id"`
	StartDateTime   time.Time        `json:"start_date_time"`
	EndDateTime     *time.Time       `json:"end_date_time,omitempty"`
	Kwh             float64          `json:"kwh"`
	CdrToken        CdrToken         `json:"cdr_token"`
	AuthMethod      AuthMethod       `json:"auth_method"`
	LocationID      string           `json:"location_id"`
	EvseUID         string           `json:"evse_uid"`
	ConnectorID     string           `json:"connector_id"`
	Currency        string           `json:"currency"`
	ChargingPeriods []ChargingPeriod `json:"charging_periods,omitempty"`
	TotalCost       *Price           `json:"total_cost,omitempty"`
	Status          SessionStatus    `json:"status"`
	LastUpdated     time.Time        `json:"last_updated"`
}

// CdrLocation is the location snapshot embedded in a CDR.
type CdrLocation struct {
	ID                 string `json:"id"`
	Name               string `json:"name,omitempty"`
	Address            string `json:"address"`
	City               string `json:"city"`
	PostalCode         string `json:"postal_code,omitempty"`
	Country            string `json:"country"`
	EvseUID            string `json:"evse_uid"`
	EvseID             string `json:"evse_id"`
	ConnectorID        string `json:"connector_id"`
	ConnectorStandard  string `json:"connector_standard"`
	ConnectorFormat    string `json:"connector_format"`
	ConnectorPowerType string `json:"connector_power_type"`
}

// Cdr is the finalized settlement record for one completed session.
type Cdr struct {
	CountryCode          string           `json:"country_code"`
	PartyID              string           `json:"party_id"`
	ID                   string           `json:"id"`
	StartDateTime        time.Time        `json:"start_date_time"`
	EndDateTime          time.Time        `json:"end_date_time"`
	SessionID            string           `json:"session_id,omitempty"`
	CdrToken             CdrToken         `json:"cdr_token"`
	AuthMethod           AuthMethod       `json:"auth_method"`
	CdrLocation          CdrLocation      `json:"cdr_location"`
	Currency             string           `json:"currency"`
	Tariffs              []Tariff         `json:"tariffs,omitempty"`
	ChargingPeriods      []ChargingPeriod `json:"charging_periods"`
	TotalCost            Price            `json:"total_cost"`
	TotalEnergy          float64          `json:"total_energy"`
	TotalEnergyCost      Price            `json:"total_energy_cost"`
	TotalTime            float64          `json:"total_time"`
	TotalTimeCost        Price            `json:"total_time_cost"`
	TotalParkingTime     float64          `json:"total_parking_time"`
	TotalParkingCost     Price            `json:"total_parking_cost"`
	TotalReservationCost Price            `json:"total_reservation_cost"`
	TotalFixedCost       Price            `json:"total_fixed_cost"`
	LastUpdated          time.Time        `json:"last_updated"`
}

// TariffDimension classifies a price component.
type TariffDimension string

const (
	TariffDimensionEnergy      TariffDimension = "ENERGY"
	TariffDimensionFlat        TariffDimension = "FLAT"
	TariffDimensionParkingTime TariffDimension = "PARKING_TIME"
	TariffDimensionTime        TariffDimension = "TIME"
)

// PriceComponent prices one dimension of a tariff element.
type PriceComponent struct {
	Type     TariffDimension `json:"type"`
	Price    float64         `json:"price"`
	VAT      *float64        `json:"vat,omitempty"`
	StepSize int             `json:"step_size"`
}

// TariffElement groups price components that apply together.
type TariffElement struct {
	PriceComponents []PriceComponent `json:"price_components"`
}

// Tariff is the roaming-facing pricing object, keyed by
// (country_code, party_id, id).
type Tariff struct {
	CountryCode string          `json:"country_code"`
	PartyID     string          `json:"party_id"`
	ID          string          `json:"id"`
	Currency    string          `json:"currency"`
	Elements    []TariffElement `json:"elements"`
	LastUpdated time.Time       `json:"last_updated"`
}

// GeoLocation is a decimal-degree coordinate pair, serialized as strings.
type GeoLocation struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Connector is a single plug on an EVSE.
type Connector struct {
	ID          string    `json:"id"`
	Standard    string    `json:"standard"`
	Format      string    `json:"format"`
	PowerType   string    `json:"power_type"`
	MaxVoltage  int       `json:"max_voltage"`
	MaxAmperage int       `json:"max_amperage"`
	TariffIDs   []string  `json:"tariff_ids,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Evse is one independently chargeable unit at a location.
type Evse struct {
	UID         string       `json:"uid"`
	EvseID      string       `json:"evse_id,omitempty"`
	Status      string       `json:"status"`
	Connectors  []Connector  `json:"connectors"`
	Coordinates *GeoLocation `json:"coordinates,omitempty"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Location is the roaming-facing view of a charging site.
type Location struct {
	CountryCode string      `json:"country_code"`
	PartyID     string      `json:"party_id"`
	ID          string      `json:"id"`
	Publish     bool        `json:"publish"`
	Name        string      `json:"name,omitempty"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	PostalCode  string      `json:"postal_code,omitempty"`
	Country     string      `json:"country"`
	Coordinates GeoLocation `json:"coordinates"`
	Evses       []Evse      `json:"evses,omitempty"`
	TimeZone    string      `json:"time_zone"`
	LastUpdated time.Time   `json:"last_updated"`
}

package models

import "time"

// Transaction is the internal record of one charging occurrence, as written
// by the charge-point side of the platform. Derivation turns these into
// roaming Session/Cdr objects.
type Transaction struct {
	TransactionId string
	LocationId    string
	EvseUid       string
	ConnectorId   string
	TokenUid      string
	StartedAt     time.Time
	EndedAt       *time.Time
	MeterStartWh  *int64
	MeterStopWh   *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t Transaction) Ended() bool { return t.EndedAt != nil }

// MeterSample is one sampled value reported during a transaction. Value is
// kept as reported; not every sample parses as a number.
type MeterSample struct {
	Id            int64
	TransactionId string
	Ts            time.Time
	Measurand     string
	Phase         string
	Value         string
	Unit          string
}

// OCPP measurand strings as stored by the ingestion side.
const (
	MeasurandEnergyImportRegister = "Energy.Active.Import.Register"
	MeasurandCurrentImport        = "Current.Import"
	MeasurandStateOfCharge        = "SoC"

	PhaseNeutral = "N"
)

// DriverToken is the identity token a driver presented to start a
// transaction, with the eMSP contract it belongs to.
type DriverToken struct {
	Uid         string
	CountryCode string
	PartyId     string
	Type        string
	ContractId  string
}

// Connector is a plug on an EVSE. The JSON shape doubles as the storage
// format of the location's evses column and the admin ingest payload.
type Connector struct {
	ConnectorId string `json:"connector_id"`
	Standard    string `json:"standard"`
	Format      string `json:"format"`
	PowerType   string `json:"power_type"`
	MaxVoltage  int    `json:"max_voltage"`
	MaxAmperage int    `json:"max_amperage"`
}

// Evse is one chargeable unit at a location.
type Evse struct {
	Uid        string      `json:"uid"`
	EvseId     string      `json:"evse_id"`
	Status     string      `json:"status"`
	Connectors []Connector `json:"connectors"`
}

// Location is a charging site as held internally.
type Location struct {
	LocationId string    `json:"location_id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Latitude   string    `json:"latitude"`
	Longitude  string    `json:"longitude"`
	TimeZone   string    `json:"time_zone"`
	Publish    bool      `json:"publish"`
	Evses      []Evse    `json:"evses"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tariff is the internal pricing record attached to a location.
type Tariff struct {
	TariffId    string
	LocationId  string
	PricePerKwh float64
	Currency    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OcpiTariff is the roaming-facing projection of an internal Tariff, keyed
// by (country_code, party_id, id) and linked 1:1 to it.
type OcpiTariff struct {
	CountryCode string
	PartyId     string
	Id          string
	TariffId    string
	UpdatedAt   time.Time
}

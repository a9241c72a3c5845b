package services

import (
	"context"
	"time"

	"ocpigw/internal/models"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
)

// PartnerDirectory is the system of record for roaming counterparties.
// Implemented by repo.PartnersRepo; tests use in-memory fakes.
type PartnerDirectory interface {
	GetByKey(ctx context.Context, countryCode, partyId string, role ocpi.Role) (*ocpi.Partner, error)
	GetByIncomingToken(ctx context.Context, token string) (*ocpi.Partner, error)
	ListByModule(ctx context.Context, owner ocpi.Identity, module ocpi.ModuleID) ([]ocpi.Partner, error)
	Create(ctx context.Context, p ocpi.Partner) error
	UpdateIfTokenMatches(ctx context.Context, p ocpi.Partner, prevIncomingToken string) (bool, error)
	Delete(ctx context.Context, countryCode, partyId string, role ocpi.Role) (bool, error)
	TouchLastSeen(ctx context.Context, countryCode, partyId string, role ocpi.Role, t time.Time) error
}

// HandshakeClient is the slice of the partner client the registration
// handshake needs for version negotiation and credentials exchange.
type HandshakeClient interface {
	GetVersions(ctx context.Context, r partnerclient.Request) ([]ocpi.Version, error)
	GetVersionDetails(ctx context.Context, r partnerclient.Request) (ocpi.VersionDetails, error)
	PostCredentials(ctx context.Context, r partnerclient.Request, c ocpi.Credentials) (ocpi.Credentials, error)
	PutCredentials(ctx context.Context, r partnerclient.Request, c ocpi.Credentials) (ocpi.Credentials, error)
}

// Lookup sources consumed by the derivation pipeline. A nil result with a
// nil error means "not found"; derivation treats that as not-yet-roamable.

type LocationSource interface {
	Get(ctx context.Context, id string) (*models.Location, error)
}

type TokenSource interface {
	Get(ctx context.Context, uid string) (*models.DriverToken, error)
}

type TariffSource interface {
	Get(ctx context.Context, tariffId string) (*models.Tariff, error)
	GetActiveForLocation(ctx context.Context, locationId string) (*models.Tariff, error)
	GetOcpiByTariffId(ctx context.Context, tariffId string) (*models.OcpiTariff, error)
}

type SampleSource interface {
	SamplesForTransaction(ctx context.Context, txId string) ([]models.MeterSample, error)
}

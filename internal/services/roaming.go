package services

import (
	"context"

	"ocpigw/internal/models"
	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"
)

// TransactionSource reads transactions for event-triggered derivation.
type TransactionSource interface {
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	ListRecent(ctx context.Context, limit int) ([]models.Transaction, error)
}

// Roamer reacts to domain mutations: it derives the wire objects for the
// changed resource and hands them to the matching broadcaster. The
// triggering domain action always completes from the caller's point of view;
// broadcast outcomes are observable only through logs and metrics.
type Roamer struct {
	Transactions TransactionSource
	Locations    LocationSource
	Tariffs      TariffSource
	Deriver      *Deriver

	Sessions  *SessionBroadcaster
	Cdrs      *CdrBroadcaster
	TariffsBc *TariffBroadcaster
	LocsBc    *LocationBroadcaster
}

// TransactionChanged handles a start or update: derive the session and PUT
// it to every receiver. Unresolvable transactions are silently skipped.
func (r *Roamer) TransactionChanged(ctx context.Context, txId string) error {
	tx, err := r.Transactions.GetByID(ctx, txId)
	if err != nil {
		return err
	}
	if tx == nil {
		return ocpi.ErrNotFound
	}

	sessions, err := r.Deriver.DeriveSessions(ctx, []models.Transaction{*tx})
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}
	r.Sessions.PushSession(ctx, sessions[0])
	return nil
}

// TransactionEnded handles completion: the final session state (now carrying
// total_cost) is PUT out, and the settlement record is POSTed where a
// roaming tariff resolves.
func (r *Roamer) TransactionEnded(ctx context.Context, txId string) error {
	tx, err := r.Transactions.GetByID(ctx, txId)
	if err != nil {
		return err
	}
	if tx == nil {
		return ocpi.ErrNotFound
	}
	if !tx.Ended() {
		return ocpi.ErrMissingField
	}

	sessions, err := r.Deriver.DeriveSessions(ctx, []models.Transaction{*tx})
	if err != nil {
		return err
	}
	if len(sessions) > 0 {
		r.Sessions.PushSession(ctx, sessions[0])
	}

	cdrs, err := r.Deriver.DeriveCdrs(ctx, []models.Transaction{*tx})
	if err != nil {
		return err
	}
	for _, c := range cdrs {
		r.Cdrs.PushCdr(ctx, c)
	}
	return nil
}

// SweepRecent re-derives and re-pushes the sessions of the most recent
// transactions. Recovery tool for partners that missed broadcasts: session
// PUTs are idempotent replaces, so re-sending is always safe.
func (r *Roamer) SweepRecent(ctx context.Context, limit int) (int, error) {
	txs, err := r.Transactions.ListRecent(ctx, limit)
	if err != nil {
		return 0, err
	}
	sessions, err := r.Deriver.DeriveSessions(ctx, txs)
	if err != nil {
		return 0, err
	}
	for _, s := range sessions {
		r.Sessions.PushSession(ctx, s)
	}
	return len(sessions), nil
}

// TariffChanged publishes the roaming projection of an internal tariff.
// Tariffs without a roaming link are not an error; they are simply not
// published.
func (r *Roamer) TariffChanged(ctx context.Context, tariffId string) error {
	tariff, err := r.Tariffs.Get(ctx, tariffId)
	if err != nil {
		return err
	}
	if tariff == nil {
		return ocpi.ErrNotFound
	}
	roaming, err := r.Tariffs.GetOcpiByTariffId(ctx, tariffId)
	if err != nil {
		return err
	}
	if roaming == nil {
		obs.Log(map[string]any{"msg": "tariff has no roaming link", "tariff": tariffId})
		return nil
	}
	r.TariffsBc.PublishTariff(ctx, projectTariff(tariff, roaming))
	return nil
}

// TariffRetracted broadcasts removal of a roaming tariff.
func (r *Roamer) TariffRetracted(ctx context.Context, roamingTariffId string) {
	r.TariffsBc.RetractTariff(ctx, roamingTariffId)
}

// LocationChanged pushes the full location object.
func (r *Roamer) LocationChanged(ctx context.Context, locationId string) error {
	l, err := r.Locations.Get(ctx, locationId)
	if err != nil {
		return err
	}
	if l == nil {
		return ocpi.ErrNotFound
	}
	r.LocsBc.PushLocation(ctx, projectLocation(l, r.Deriver.Owner))
	return nil
}

// EvseStatusChanged pushes an incremental EVSE status update.
func (r *Roamer) EvseStatusChanged(ctx context.Context, locationId, evseUid, status string, lastUpdated string) {
	owner := r.Deriver.Owner
	r.LocsBc.PatchEvse(ctx, owner.CountryCode, owner.PartyID, locationId, evseUid, map[string]any{
		"status":       status,
		"last_updated": lastUpdated,
	})
}

func projectTariff(t *models.Tariff, roaming *models.OcpiTariff) ocpi.Tariff {
	return ocpi.Tariff{
		CountryCode: roaming.CountryCode,
		PartyID:     roaming.PartyId,
		ID:          roaming.Id,
		Currency:    t.Currency,
		Elements: []ocpi.TariffElement{{
			PriceComponents: []ocpi.PriceComponent{{
				Type:     ocpi.TariffDimensionEnergy,
				Price:    t.PricePerKwh,
				StepSize: 1,
			}},
		}},
		LastUpdated: roaming.UpdatedAt,
	}
}

func projectLocation(l *models.Location, owner ocpi.Identity) ocpi.Location {
	evses := make([]ocpi.Evse, 0, len(l.Evses))
	for _, e := range l.Evses {
		connectors := make([]ocpi.Connector, 0, len(e.Connectors))
		for _, c := range e.Connectors {
			connectors = append(connectors, ocpi.Connector{
				ID:          c.ConnectorId,
				Standard:    c.Standard,
				Format:      c.Format,
				PowerType:   c.PowerType,
				MaxVoltage:  c.MaxVoltage,
				MaxAmperage: c.MaxAmperage,
				LastUpdated: l.UpdatedAt,
			})
		}
		evses = append(evses, ocpi.Evse{
			UID:         e.Uid,
			EvseID:      e.EvseId,
			Status:      e.Status,
			Connectors:  connectors,
			LastUpdated: l.UpdatedAt,
		})
	}
	return ocpi.Location{
		CountryCode: owner.CountryCode,
		PartyID:     owner.PartyID,
		ID:          l.LocationId,
		Publish:     l.Publish,
		Name:        l.Name,
		Address:     l.Address,
		City:        l.City,
		PostalCode:  l.PostalCode,
		Country:     l.Country,
		Coordinates: ocpi.GeoLocation{Latitude: l.Latitude, Longitude: l.Longitude},
		Evses:       evses,
		TimeZone:    l.TimeZone,
		LastUpdated: l.UpdatedAt,
	}
}

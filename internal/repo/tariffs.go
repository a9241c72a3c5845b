package repo

import (
	"context"
	"errors"

	"ocpigw/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TariffsRepo struct{ db *pgxpool.Pool }

func NewTariffsRepo(db *pgxpool.Pool) *TariffsRepo { return &TariffsRepo{db: db} }

func (r *TariffsRepo) GetActiveForLocation(ctx context.Context, locationId string) (*models.Tariff, error) {
	row := r.db.QueryRow(ctx, `
		select tariff_id, location_id, price_per_kwh::float8, currency, is_active, created_at, updated_at
		from tariffs
		where location_id=$1 and is_active=true
		order by created_at desc
		limit 1
	`, locationId)
	return scanTariff(row)
}

func (r *TariffsRepo) Get(ctx context.Context, tariffId string) (*models.Tariff, error) {
	row := r.db.QueryRow(ctx, `
		select tariff_id, location_id, price_per_kwh::float8, currency, is_active, created_at, updated_at
		from tariffs where tariff_id=$1
	`, tariffId)
	return scanTariff(row)
}

func scanTariff(row pgx.Row) (*models.Tariff, error) {
	var t models.Tariff
	if err := row.Scan(&t.TariffId, &t.LocationId, &t.PricePerKwh, &t.Currency, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TariffsRepo) UpsertActiveForLocation(ctx context.Context, locationId string, pricePerKwh float64, currency string) (string, error) {
	_, err := r.db.Exec(ctx, `update tariffs set is_active=false, updated_at=now() where location_id=$1 and is_active=true`, locationId)
	if err != nil {
		return "", err
	}
	row := r.db.QueryRow(ctx, `
		insert into tariffs (location_id, price_per_kwh, currency, is_active)
		values ($1,$2,$3,true)
		returning tariff_id
	`, locationId, pricePerKwh, currency)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// GetOcpiByTariffId resolves the roaming projection linked to an internal
// pricing record. Absence means the tariff is not published for roaming.
func (r *TariffsRepo) GetOcpiByTariffId(ctx context.Context, tariffId string) (*models.OcpiTariff, error) {
	row := r.db.QueryRow(ctx, `
		select country_code, party_id, id, tariff_id, updated_at
		from ocpi_tariffs where tariff_id=$1
	`, tariffId)
	var t models.OcpiTariff
	if err := row.Scan(&t.CountryCode, &t.PartyId, &t.Id, &t.TariffId, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// LinkOcpi publishes an internal tariff for roaming under the given key.
func (r *TariffsRepo) LinkOcpi(ctx context.Context, t models.OcpiTariff) error {
	_, err := r.db.Exec(ctx, `
		insert into ocpi_tariffs (country_code, party_id, id, tariff_id)
		values ($1,$2,$3,$4)
		on conflict (tariff_id) do update set
		  country_code=excluded.country_code,
		  party_id=excluded.party_id,
		  id=excluded.id,
		  updated_at=now()
	`, t.CountryCode, t.PartyId, t.Id, t.TariffId)
	return err
}

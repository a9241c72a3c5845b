package repo

import (
	"context"
	"encoding/json"
	"errors"

	"ocpigw/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LocationsRepo struct{ db *pgxpool.Pool }

func NewLocationsRepo(db *pgxpool.Pool) *LocationsRepo { return &LocationsRepo{db: db} }

func (r *LocationsRepo) Get(ctx context.Context, id string) (*models.Location, error) {
	row := r.db.QueryRow(ctx, `
		select location_id, coalesce(name,''), address, city, coalesce(postal_code,''), country,
		       latitude, longitude, coalesce(time_zone,''), publish, evses, updated_at
		from locations where location_id=$1
	`, id)

	var l models.Location
	var evses []byte
	if err := row.Scan(&l.LocationId, &l.Name, &l.Address, &l.City, &l.PostalCode, &l.Country, &l.Latitude, &l.Longitude, &l.TimeZone, &l.Publish, &evses, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(evses) > 0 {
		if err := json.Unmarshal(evses, &l.Evses); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

func (r *LocationsRepo) Upsert(ctx context.Context, l models.Location) error {
	evses, err := json.Marshal(l.Evses)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		insert into locations (location_id, name, address, city, postal_code, country, latitude, longitude, time_zone, publish, evses)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		on conflict (location_id) do update set
		  name=excluded.name,
		  address=excluded.address,
		  city=excluded.city,
		  postal_code=excluded.postal_code,
		  country=excluded.country,
		  latitude=excluded.latitude,
		  longitude=excluded.longitude,
		  time_zone=excluded.time_zone,
		  publish=excluded.publish,
		  evses=excluded.evses,
		  updated_at=now()
	`, l.LocationId, l.Name, l.Address, l.City, l.PostalCode, l.Country, l.Latitude, l.Longitude, l.TimeZone, l.Publish, evses)
	return err
}

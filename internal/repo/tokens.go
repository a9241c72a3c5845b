package repo

import (
	"context"
	"errors"

	"ocpigw/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokensRepo struct{ db *pgxpool.Pool }

func NewTokensRepo(db *pgxpool.Pool) *TokensRepo { return &TokensRepo{db: db} }

func (r *TokensRepo) Get(ctx context.Context, uid string) (*models.DriverToken, error) {
	row := r.db.QueryRow(ctx, `
		select uid, country_code, party_id, coalesce(type,'RFID'), coalesce(contract_id,'')
		from driver_tokens where uid=$1
	`, uid)
	var t models.DriverToken
	if err := row.Scan(&t.Uid, &t.CountryCode, &t.PartyId, &t.Type, &t.ContractId); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

package repo

import (
	"context"
	"errors"

	"ocpigw/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionsRepo struct{ db *pgxpool.Pool }

func NewTransactionsRepo(db *pgxpool.Pool) *TransactionsRepo { return &TransactionsRepo{db: db} }

const transactionColumns = `transaction_id, location_id, coalesce(evse_uid,''), coalesce(connector_id,''), coalesce(token_uid,''), started_at, ended_at, meter_start_wh, meter_stop_wh, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	if err := row.Scan(&t.TransactionId, &t.LocationId, &t.EvseUid, &t.ConnectorId, &t.TokenUid, &t.StartedAt, &t.EndedAt, &t.MeterStartWh, &t.MeterStopWh, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionsRepo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		select `+transactionColumns+`
		from transactions where transaction_id=$1
	`, id)
	return scanTransaction(row)
}

func (r *TransactionsRepo) ListRecent(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		select `+transactionColumns+`
		from transactions
		order by started_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// SamplesForTransaction returns the transaction's meter samples ordered by
// timestamp ascending, the order derivation consumes them in.
func (r *TransactionsRepo) SamplesForTransaction(ctx context.Context, txId string) ([]models.MeterSample, error) {
	rows, err := r.db.Query(ctx, `
		select id, transaction_id, ts, measurand, coalesce(phase,''), value, coalesce(unit,'')
		from meter_samples
		where transaction_id=$1
		order by ts asc, id asc
	`, txId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MeterSample
	for rows.Next() {
		var s models.MeterSample
		if err := rows.Scan(&s.Id, &s.TransactionId, &s.Ts, &s.Measurand, &s.Phase, &s.Value, &s.Unit); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

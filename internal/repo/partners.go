package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ocpigw/internal/ocpi"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PartnersRepo is the partner directory: the system of record for roaming
// counterparties, their credential tokens and negotiated endpoint tables.
type PartnersRepo struct{ db *pgxpool.Pool }

func NewPartnersRepo(db *pgxpool.Pool) *PartnersRepo { return &PartnersRepo{db: db} }

const partnerColumns = `country_code, party_id, role, owner_country_code, owner_party_id, coalesce(name,''), coalesce(outgoing_token,''), coalesce(incoming_token,''), coalesce(versions_url,''), coalesce(negotiated_version,''), endpoints, created_at, updated_at`

func scanPartner(row pgx.Row) (*ocpi.Partner, error) {
	var p ocpi.Partner
	var endpoints []byte
	if err := row.Scan(&p.CountryCode, &p.PartyID, &p.Role, &p.Owner.CountryCode, &p.Owner.PartyID, &p.Name, &p.OutgoingToken, &p.IncomingToken, &p.VersionsURL, &p.NegotiatedVersion, &endpoints, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(endpoints) > 0 {
		if err := json.Unmarshal(endpoints, &p.Endpoints); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *PartnersRepo) GetByKey(ctx context.Context, countryCode, partyId string, role ocpi.Role) (*ocpi.Partner, error) {
	row := r.db.QueryRow(ctx, `
		select `+partnerColumns+`
		from partners where country_code=$1 and party_id=$2 and role=$3
	`, countryCode, partyId, role)
	return scanPartner(row)
}

func (r *PartnersRepo) GetByIncomingToken(ctx context.Context, token string) (*ocpi.Partner, error) {
	row := r.db.QueryRow(ctx, `
		select `+partnerColumns+`
		from partners where incoming_token=$1
	`, token)
	return scanPartner(row)
}

// ListByModule returns every partner of the given owner whose negotiated
// endpoint table advertises the module. An owner may have distinct partner
// sets per module. Registration and receiver-role filtering happen in the
// dispatcher.
func (r *PartnersRepo) ListByModule(ctx context.Context, owner ocpi.Identity, module ocpi.ModuleID) ([]ocpi.Partner, error) {
	rows, err := r.db.Query(ctx, `
		select `+partnerColumns+`
		from partners
		where owner_country_code=$1 and owner_party_id=$2 and endpoints ? $3
		order by country_code, party_id
	`, owner.CountryCode, owner.PartyID, string(module))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ocpi.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PartnersRepo) Create(ctx context.Context, p ocpi.Partner) error {
	endpoints, err := json.Marshal(p.Endpoints)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		insert into partners (country_code, party_id, role, owner_country_code, owner_party_id, name, outgoing_token, incoming_token, versions_url, negotiated_version, endpoints)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, p.CountryCode, p.PartyID, p.Role, p.Owner.CountryCode, p.Owner.PartyID, p.Name, p.OutgoingToken, p.IncomingToken, p.VersionsURL, p.NegotiatedVersion, endpoints)
	return err
}

// UpdateIfTokenMatches writes the partner's new credential state only if the
// stored incoming token still equals prevIncomingToken. This is the
// compare-and-swap the handshake relies on so two concurrent registration
// attempts cannot both succeed with different tokens.
func (r *PartnersRepo) UpdateIfTokenMatches(ctx context.Context, p ocpi.Partner, prevIncomingToken string) (bool, error) {
	endpoints, err := json.Marshal(p.Endpoints)
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, `
		update partners set
		  name=$4, outgoing_token=$5, incoming_token=$6, versions_url=$7,
		  negotiated_version=$8, endpoints=$9, updated_at=now()
		where country_code=$1 and party_id=$2 and role=$3
		  and coalesce(incoming_token,'')=$10
	`, p.CountryCode, p.PartyID, p.Role, p.Name, p.OutgoingToken, p.IncomingToken, p.VersionsURL, p.NegotiatedVersion, endpoints, prevIncomingToken)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the partner's credential and endpoint state entirely.
func (r *PartnersRepo) Delete(ctx context.Context, countryCode, partyId string, role ocpi.Role) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		delete from partners where country_code=$1 and party_id=$2 and role=$3
	`, countryCode, partyId, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// TouchLastSeen records the last inbound call from a partner.
func (r *PartnersRepo) TouchLastSeen(ctx context.Context, countryCode, partyId string, role ocpi.Role, t time.Time) error {
	_, err := r.db.Exec(ctx, `
		update partners set last_seen_at=$4, updated_at=now()
		where country_code=$1 and party_id=$2 and role=$3
	`, countryCode, partyId, role, t)
	return err
}

package services

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ocpigw/internal/models"
	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"
)

// Deriver turns internal charging transactions and their meter samples into
// roaming Session and Cdr objects. Derivation is a best-effort projection:
// a transaction whose location, driver token or tariff cannot be resolved is
// dropped from the output, never raised as an error.
type Deriver struct {
	Owner     ocpi.Identity
	Locations LocationSource
	Tokens    TokenSource
	Tariffs   TariffSource
	Samples   SampleSource
}

func NewDeriver(owner ocpi.Identity, locations LocationSource, tokens TokenSource, tariffs TariffSource, samples SampleSource) *Deriver {
	return &Deriver{Owner: owner, Locations: locations, Tokens: tokens, Tariffs: tariffs, Samples: samples}
}

type resolvedTx struct {
	tx       models.Transaction
	session  ocpi.Session
	location *models.Location
	tariff   *models.Tariff
}

// DeriveSessions maps each resolvable transaction to a Session.
func (d *Deriver) DeriveSessions(ctx context.Context, txs []models.Transaction) ([]ocpi.Session, error) {
	out := make([]ocpi.Session, 0, len(txs))
	for _, tx := range txs {
		r, err := d.resolve(ctx, tx)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		out = append(out, r.session)
	}
	return out, nil
}

// DeriveCdrs maps each resolvable, ended transaction to a settlement record.
// Sessions whose internal tariff has no roaming projection are dropped.
func (d *Deriver) DeriveCdrs(ctx context.Context, txs []models.Transaction) ([]ocpi.Cdr, error) {
	out := make([]ocpi.Cdr, 0, len(txs))
	for _, tx := range txs {
		if !tx.Ended() {
			continue
		}
		r, err := d.resolve(ctx, tx)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}

		roaming, err := d.Tariffs.GetOcpiByTariffId(ctx, r.tariff.TariffId)
		if err != nil {
			return nil, err
		}
		if roaming == nil {
			obs.Log(map[string]any{
				"msg": "cdr derivation: no roaming tariff", "transaction": tx.TransactionId,
				"tariff": r.tariff.TariffId,
			})
			continue
		}
		out = append(out, d.projectCdr(r, roaming))
	}
	return out, nil
}

// resolve builds the Session for one transaction, or returns nil when the
// transaction is not yet roamable.
func (d *Deriver) resolve(ctx context.Context, tx models.Transaction) (*resolvedTx, error) {
	location, err := d.Locations.Get(ctx, tx.LocationId)
	if err != nil {
		return nil, err
	}
	token, err := d.Tokens.Get(ctx, tx.TokenUid)
	if err != nil {
		return nil, err
	}
	var tariff *models.Tariff
	if location != nil {
		tariff, err = d.Tariffs.GetActiveForLocation(ctx, location.LocationId)
		if err != nil {
			return nil, err
		}
	}
	if location == nil || token == nil || tariff == nil {
		obs.Log(map[string]any{
			"msg": "derivation: transaction not roamable", "transaction": tx.TransactionId,
			"location": location != nil, "token": token != nil, "tariff": tariff != nil,
		})
		return nil, nil
	}

	samples, err := d.Samples.SamplesForTransaction(ctx, tx.TransactionId)
	if err != nil {
		return nil, err
	}

	periods := buildChargingPeriods(samples)
	kwh := totalKwh(tx, samples)

	status := ocpi.StatusActive
	if tx.Ended() {
		status = ocpi.StatusCompleted
	}

	id := tx.TransactionId
	if id == "" {
		id = uuid.NewString()
	}

	lastUpdated := tx.UpdatedAt
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	s := ocpi.Session{
		CountryCode:   d.Owner.CountryCode,
		PartyID:       d.Owner.PartyID,
		ID:            id,
		StartDateTime: tx.StartedAt,
		EndDateTime:   tx.EndedAt,
		Kwh:           kwh,
		CdrToken: ocpi.CdrToken{
			CountryCode: token.CountryCode,
			PartyID:     token.PartyId,
			UID:         token.Uid,
			Type:        token.Type,
			ContractID:  token.ContractId,
		},
		AuthMethod:      ocpi.AuthWhitelist,
		LocationID:      location.LocationId,
		EvseUID:         tx.EvseUid,
		ConnectorID:     tx.ConnectorId,
		Currency:        tariff.Currency,
		ChargingPeriods: periods,
		Status:          status,
		LastUpdated:     lastUpdated,
	}

	// Cost exists only once the transaction has ended. Truncation, not
	// rounding: never overcharge the driver by a fraction of a cent.
	if tx.Ended() {
		s.TotalCost = &ocpi.Price{ExclVAT: TruncateCost(kwh, tariff.PricePerKwh)}
	}

	return &resolvedTx{tx: tx, session: s, location: location, tariff: tariff}, nil
}

func (d *Deriver) projectCdr(r *resolvedTx, roaming *models.OcpiTariff) ocpi.Cdr {
	s := r.session

	var endTime time.Time
	if s.EndDateTime != nil {
		endTime = *s.EndDateTime
	}
	totalHours := endTime.Sub(s.StartDateTime).Hours()
	if totalHours < 0 {
		totalHours = 0
	}

	var total ocpi.Price
	if s.TotalCost != nil {
		total = *s.TotalCost
	}

	return ocpi.Cdr{
		CountryCode:     s.CountryCode,
		PartyID:         s.PartyID,
		ID:              s.ID,
		StartDateTime:   s.StartDateTime,
		EndDateTime:     endTime,
		SessionID:       s.ID,
		CdrToken:        s.CdrToken,
		AuthMethod:      s.AuthMethod,
		CdrLocation:     cdrLocation(r.location, r.tx),
		Currency:        s.Currency,
		Tariffs:         []ocpi.Tariff{projectTariff(r.tariff, roaming)},
		ChargingPeriods: s.ChargingPeriods,
		TotalCost:       total,
		TotalEnergy:     s.Kwh,
		TotalEnergyCost: total,
		TotalTime:       totalHours,
		// Time, parking, reservation and fixed cost components are
		// integration points against the tariff's price-component list;
		// only energy pricing is wired today.
		LastUpdated: s.LastUpdated,
	}
}

func cdrLocation(l *models.Location, tx models.Transaction) ocpi.CdrLocation {
	out := ocpi.CdrLocation{
		ID:          l.LocationId,
		Name:        l.Name,
		Address:     l.Address,
		City:        l.City,
		PostalCode:  l.PostalCode,
		Country:     l.Country,
		EvseUID:     tx.EvseUid,
		ConnectorID: tx.ConnectorId,
	}
	for _, e := range l.Evses {
		if e.Uid != tx.EvseUid {
			continue
		}
		out.EvseID = e.EvseId
		for _, c := range e.Connectors {
			if c.ConnectorId != tx.ConnectorId {
				continue
			}
			out.ConnectorStandard = c.Standard
			out.ConnectorFormat = c.Format
			out.ConnectorPowerType = c.PowerType
		}
	}
	return out
}

// buildChargingPeriods emits one period per sample timestamp, ordered
// ascending. The first period carries a zero TIME dimension and no ENERGY
// delta, since it has no preceding sample.
func buildChargingPeriods(samples []models.MeterSample) []ocpi.ChargingPeriod {
	if len(samples) == 0 {
		return nil
	}
	sorted := make([]models.MeterSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ts.Before(sorted[j].Ts) })

	var periods []ocpi.ChargingPeriod
	var prevTs time.Time
	var prevEnergyKwh *float64
	first := true

	i := 0
	for i < len(sorted) {
		ts := sorted[i].Ts
		var dims []ocpi.CdrDimension

		for ; i < len(sorted) && sorted[i].Ts.Equal(ts); i++ {
			s := sorted[i]
			switch s.Measurand {
			case models.MeasurandEnergyImportRegister:
				if s.Phase != "" {
					continue
				}
				v, err := strconv.ParseFloat(s.Value, 64)
				if err != nil {
					continue
				}
				kwh := toKwh(v, s.Unit)
				dims = append(dims, ocpi.CdrDimension{Type: ocpi.DimensionEnergyImport, Volume: kwh})
				if prevEnergyKwh != nil {
					dims = append(dims, ocpi.CdrDimension{Type: ocpi.DimensionEnergy, Volume: kwh - *prevEnergyKwh})
				}
				prevEnergyKwh = &kwh
			case models.MeasurandCurrentImport:
				if s.Phase != models.PhaseNeutral {
					continue
				}
				if v, err := strconv.ParseFloat(s.Value, 64); err == nil {
					dims = append(dims, ocpi.CdrDimension{Type: ocpi.DimensionCurrent, Volume: v})
				}
			case models.MeasurandStateOfCharge:
				if v, err := strconv.ParseFloat(s.Value, 64); err == nil {
					dims = append(dims, ocpi.CdrDimension{Type: ocpi.DimensionStateOfCharge, Volume: v})
				}
			}
		}

		var hours float64
		if !first {
			hours = ts.Sub(prevTs).Hours()
		}
		dims = append(dims, ocpi.CdrDimension{Type: ocpi.DimensionTime, Volume: hours})

		periods = append(periods, ocpi.ChargingPeriod{StartDateTime: ts, Dimensions: dims})
		prevTs = ts
		first = false
	}
	return periods
}

// totalKwh prefers the meter start/stop pair, falling back to the register
// span of the sampled values.
func totalKwh(tx models.Transaction, samples []models.MeterSample) float64 {
	if tx.MeterStartWh != nil && tx.MeterStopWh != nil {
		wh := *tx.MeterStopWh - *tx.MeterStartWh
		if wh < 0 {
			wh = 0
		}
		return float64(wh) / 1000.0
	}

	var firstKwh, lastKwh *float64
	for _, s := range samples {
		if s.Measurand != models.MeasurandEnergyImportRegister || s.Phase != "" {
			continue
		}
		v, err := strconv.ParseFloat(s.Value, 64)
		if err != nil {
			continue
		}
		kwh := toKwh(v, s.Unit)
		if firstKwh == nil {
			firstKwh = &kwh
		}
		lastKwh = &kwh
	}
	if firstKwh == nil || lastKwh == nil {
		return 0
	}
	span := *lastKwh - *firstKwh
	if span < 0 {
		return 0
	}
	return span
}

// toKwh normalizes a register value. OCPP reports Wh unless the sample says
// otherwise.
func toKwh(v float64, unit string) float64 {
	if unit == "kWh" {
		return v
	}
	return v / 1000.0
}

// TruncateCost computes kwh*price truncated to two decimals. Truncation is
// deliberate: the gateway never overcharges by rounding up.
func TruncateCost(kwh, pricePerKwh float64) float64 {
	return math.Floor(kwh*pricePerKwh*100) / 100
}

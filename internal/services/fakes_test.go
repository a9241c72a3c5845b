package services

import (
	"context"
	"sync"
	"time"

	"ocpigw/internal/models"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
)

// In-memory stand-ins for the repo layer, shared by the package tests.

type fakeDirectory struct {
	mu       sync.Mutex
	partners map[string]ocpi.Partner
}

func newFakeDirectory(partners ...ocpi.Partner) *fakeDirectory {
	d := &fakeDirectory{partners: make(map[string]ocpi.Partner)}
	for _, p := range partners {
		d.partners[p.Key()] = p
	}
	return d
}

func (d *fakeDirectory) get(key string) (ocpi.Partner, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.partners[key]
	return p, ok
}

func (d *fakeDirectory) GetByKey(_ context.Context, countryCode, partyId string, role ocpi.Role) (*ocpi.Partner, error) {
	p, ok := d.get(countryCode + "*" + partyId + "*" + string(role))
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (d *fakeDirectory) GetByIncomingToken(_ context.Context, token string) (*ocpi.Partner, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.partners {
		if p.IncomingToken == token {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) ListByModule(_ context.Context, owner ocpi.Identity, module ocpi.ModuleID) ([]ocpi.Partner, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []ocpi.Partner
	for _, p := range d.partners {
		if p.Owner != owner {
			continue
		}
		if _, ok := p.Endpoints[module]; !ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *fakeDirectory) Create(_ context.Context, p ocpi.Partner) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.partners[p.Key()] = p
	return nil
}

func (d *fakeDirectory) UpdateIfTokenMatches(_ context.Context, p ocpi.Partner, prevIncomingToken string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := d.partners[p.Key()]
	if !ok || current.IncomingToken != prevIncomingToken {
		return false, nil
	}
	d.partners[p.Key()] = p
	return true, nil
}

func (d *fakeDirectory) TouchLastSeen(_ context.Context, countryCode, partyId string, role ocpi.Role, t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := countryCode + "*" + partyId + "*" + string(role)
	if p, ok := d.partners[key]; ok {
		p.UpdatedAt = t
		d.partners[key] = p
	}
	return nil
}

func (d *fakeDirectory) Delete(_ context.Context, countryCode, partyId string, role ocpi.Role) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := countryCode + "*" + partyId + "*" + string(role)
	if _, ok := d.partners[key]; !ok {
		return false, nil
	}
	delete(d.partners, key)
	return true, nil
}

type fakeLocations struct{ byId map[string]*models.Location }

func (f *fakeLocations) Get(_ context.Context, id string) (*models.Location, error) {
	return f.byId[id], nil
}

type fakeTokens struct{ byUid map[string]*models.DriverToken }

func (f *fakeTokens) Get(_ context.Context, uid string) (*models.DriverToken, error) {
	return f.byUid[uid], nil
}

type fakeTariffs struct {
	byId       map[string]*models.Tariff
	byLocation map[string]*models.Tariff
	roaming    map[string]*models.OcpiTariff
}

func (f *fakeTariffs) Get(_ context.Context, tariffId string) (*models.Tariff, error) {
	return f.byId[tariffId], nil
}

func (f *fakeTariffs) GetActiveForLocation(_ context.Context, locationId string) (*models.Tariff, error) {
	return f.byLocation[locationId], nil
}

func (f *fakeTariffs) GetOcpiByTariffId(_ context.Context, tariffId string) (*models.OcpiTariff, error) {
	return f.roaming[tariffId], nil
}

type fakeSamples struct{ byTx map[string][]models.MeterSample }

func (f *fakeSamples) SamplesForTransaction(_ context.Context, txId string) ([]models.MeterSample, error) {
	return f.byTx[txId], nil
}

// fakePusher records per-partner sends and can fail selectively.
type fakePusher struct {
	mu      sync.Mutex
	sent    []partnerclient.Request
	failFor map[string]error
}

func (f *fakePusher) Push(_ context.Context, r partnerclient.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[r.Partner]; ok {
		return err
	}
	f.sent = append(f.sent, r)
	return nil
}

func (f *fakePusher) PostCdr(ctx context.Context, r partnerclient.Request) (string, error) {
	if err := f.Push(ctx, r); err != nil {
		return "", err
	}
	return r.URL + "/created", nil
}

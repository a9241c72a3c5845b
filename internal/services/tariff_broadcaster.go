package services

import (
	"context"
	"net/http"

	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
)

// TariffBroadcaster publishes and retracts roaming tariffs.
type TariffBroadcaster struct {
	Dispatcher *Dispatcher
	Client     Pusher
	Owner      ocpi.Identity
}

func NewTariffBroadcaster(d *Dispatcher, client Pusher, owner ocpi.Identity) *TariffBroadcaster {
	return &TariffBroadcaster{Dispatcher: d, Client: client, Owner: owner}
}

// PublishTariff broadcasts a full tariff replace (PUT).
func (b *TariffBroadcaster) PublishTariff(ctx context.Context, t ocpi.Tariff) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleTariffs,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if t.ID == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodPut
			base.URL = joinURL(base.URL, t.CountryCode, t.PartyID, t.ID)
			base.Body = t
			return base, nil
		},
		b.Client.Push,
	)
}

// RetractTariff broadcasts a tariff removal (DELETE).
func (b *TariffBroadcaster) RetractTariff(ctx context.Context, tariffId string) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleTariffs,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if tariffId == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodDelete
			base.URL = joinURL(base.URL, tariffId)
			return base, nil
		},
		b.Client.Push,
	)
}

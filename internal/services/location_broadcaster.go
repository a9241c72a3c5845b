package services

import (
	"context"
	"net/http"

	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
)

// LocationBroadcaster pushes location objects and incremental EVSE/connector
// changes to every partner receiving the locations module.
type LocationBroadcaster struct {
	Dispatcher *Dispatcher
	Client     Pusher
	Owner      ocpi.Identity
}

func NewLocationBroadcaster(d *Dispatcher, client Pusher, owner ocpi.Identity) *LocationBroadcaster {
	return &LocationBroadcaster{Dispatcher: d, Client: client, Owner: owner}
}

// PushLocation broadcasts a full location replace (PUT).
func (b *LocationBroadcaster) PushLocation(ctx context.Context, l ocpi.Location) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleLocations,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if l.ID == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodPut
			base.URL = joinURL(base.URL, l.CountryCode, l.PartyID, l.ID)
			base.Body = l
			return base, nil
		},
		b.Client.Push,
	)
}

// PatchEvse broadcasts an incremental EVSE change, typically a status flip.
func (b *LocationBroadcaster) PatchEvse(ctx context.Context, countryCode, partyId, locationId, evseUid string, patch map[string]any) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleLocations,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if locationId == "" || evseUid == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodPatch
			base.URL = joinURL(base.URL, countryCode, partyId, locationId, evseUid)
			base.Body = patch
			return base, nil
		},
		b.Client.Push,
	)
}

// PatchConnector broadcasts an incremental connector change.
func (b *LocationBroadcaster) PatchConnector(ctx context.Context, countryCode, partyId, locationId, evseUid, connectorId string, patch map[string]any) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleLocations,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if locationId == "" || evseUid == "" || connectorId == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodPatch
			base.URL = joinURL(base.URL, countryCode, partyId, locationId, evseUid, connectorId)
			base.Body = patch
			return base, nil
		},
		b.Client.Push,
	)
}

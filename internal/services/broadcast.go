package services

import (
	"context"

	"ocpigw/internal/ids"
	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
)

// BuildFunc shapes the module-specific part of a partner request. The base
// request already carries the partner's bearer token, a fresh correlation
// id, the negotiated version, the capability URL and both identity pairs;
// the builder adds method, path suffix and body.
type BuildFunc func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error)

// SendFunc delivers one built request.
type SendFunc func(ctx context.Context, r partnerclient.Request) error

// Dispatcher is the generic broadcast fan-out primitive. All domain
// broadcasters are thin instantiations of Dispatch.
type Dispatcher struct {
	Partners PartnerDirectory
}

func NewDispatcher(partners PartnerDirectory) *Dispatcher {
	return &Dispatcher{Partners: partners}
}

// Dispatch resolves the owner's partners that advertise the module for the
// receiver role and sends to each independently. Broadcasting is best-effort:
// an empty target set is a logged no-op, and a failure for one partner never
// prevents sends to the rest nor surfaces to the caller. Delivery is
// at-most-once per invocation.
func (d *Dispatcher) Dispatch(ctx context.Context, owner ocpi.Identity, module ocpi.ModuleID, build BuildFunc, send SendFunc) {
	partners, err := d.Partners.ListByModule(ctx, owner, module)
	if err != nil {
		obs.Error("broadcast: partner lookup failed", map[string]any{
			"module": module, "error": err.Error(),
		})
		return
	}

	var targets []ocpi.Partner
	for _, p := range partners {
		ep, ok := p.EndpointFor(module)
		if !ok || ep.Role != ocpi.InterfaceReceiver {
			continue
		}
		if !p.Registered() {
			continue
		}
		targets = append(targets, p)
	}

	if len(targets) == 0 {
		obs.Log(map[string]any{"msg": "broadcast: no receivers", "module": module})
		return
	}

	for _, p := range targets {
		ep, _ := p.EndpointFor(module)
		base := partnerclient.Request{
			URL:           ep.URL,
			Token:         p.OutgoingToken,
			RequestID:     ids.Correlation(),
			CorrelationID: ids.Correlation(),
			From:          owner,
			To:            ocpi.Identity{CountryCode: p.CountryCode, PartyID: p.PartyID},
			Version:       p.NegotiatedVersion,
			Module:        module,
			Partner:       p.Key(),
		}

		req, err := build(p, base)
		if err != nil {
			obs.BroadcastSend(string(module), false)
			obs.Error("broadcast: build failed", map[string]any{
				"module": module, "partner": p.Key(), "error": err.Error(),
			})
			continue
		}

		if err := send(ctx, req); err != nil {
			obs.BroadcastSend(string(module), false)
			obs.Error("broadcast: send failed", map[string]any{
				"module": module, "partner": p.Key(), "url": req.URL, "error": err.Error(),
			})
			continue
		}
		obs.BroadcastSend(string(module), true)
	}
}

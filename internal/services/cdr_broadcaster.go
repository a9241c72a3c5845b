package services

import (
	"context"
	"net/http"

	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
)

// CdrBroadcaster posts finalized settlement records to every partner
// receiving the cdrs module.
type CdrBroadcaster struct {
	Dispatcher *Dispatcher
	Client     Pusher
	Owner      ocpi.Identity
}

func NewCdrBroadcaster(d *Dispatcher, client Pusher, owner ocpi.Identity) *CdrBroadcaster {
	return &CdrBroadcaster{Dispatcher: d, Client: client, Owner: owner}
}

// PushCdr broadcasts one CDR (POST, append semantics). The partner must
// answer with a Location reference to the created resource; a missing
// reference is a protocol error and is handled like any other send failure.
func (b *CdrBroadcaster) PushCdr(ctx context.Context, c ocpi.Cdr) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleCdrs,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if c.ID == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodPost
			base.Body = c
			return base, nil
		},
		func(ctx context.Context, r partnerclient.Request) error {
			ref, err := b.Client.PostCdr(ctx, r)
			if err != nil {
				return err
			}
			obs.Log(map[string]any{
				"msg": "cdr accepted", "partner": r.Partner, "cdr": c.ID, "ref": ref,
			})
			return nil
		},
	)
}

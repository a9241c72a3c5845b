package services

import (
	"context"
	"net/http"
	"strings"

	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
)

// Pusher is the slice of the partner client the broadcasters send through.
type Pusher interface {
	Push(ctx context.Context, r partnerclient.Request) error
	PostCdr(ctx context.Context, r partnerclient.Request) (string, error)
}

func joinURL(parts ...string) string {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed = append(trimmed, strings.Trim(p, "/"))
	}
	return strings.Join(trimmed, "/")
}

// SessionBroadcaster pushes session objects to every partner receiving the
// sessions module.
type SessionBroadcaster struct {
	Dispatcher *Dispatcher
	Client     Pusher
	Owner      ocpi.Identity
}

func NewSessionBroadcaster(d *Dispatcher, client Pusher, owner ocpi.Identity) *SessionBroadcaster {
	return &SessionBroadcaster{Dispatcher: d, Client: client, Owner: owner}
}

// PushSession broadcasts a full session replace (PUT).
func (b *SessionBroadcaster) PushSession(ctx context.Context, s ocpi.Session) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleSessions,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if s.ID == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodPut
			base.URL = joinURL(base.URL, s.CountryCode, s.PartyID, s.ID)
			base.Body = s
			return base, nil
		},
		b.Client.Push,
	)
}

// PatchSession broadcasts a partial session update (PATCH). The patch body
// must always carry last_updated so receivers can order changes.
func (b *SessionBroadcaster) PatchSession(ctx context.Context, countryCode, partyId, id string, patch map[string]any) {
	b.Dispatcher.Dispatch(ctx, b.Owner, ocpi.ModuleSessions,
		func(p ocpi.Partner, base partnerclient.Request) (partnerclient.Request, error) {
			if id == "" {
				return base, ocpi.ErrMissingField
			}
			base.Method = http.MethodPatch
			base.URL = joinURL(base.URL, countryCode, partyId, id)
			base.Body = patch
			return base, nil
		},
		b.Client.Push,
	)
}

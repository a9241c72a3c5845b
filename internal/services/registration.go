package services

import (
	"context"
	"time"

	"ocpigw/internal/ids"
	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/partnerclient"
	"ocpigw/internal/security"
)

// Registration drives the credential handshake: it creates, refreshes and
// revokes partner tokens and capability-endpoint tables. Every step is
// all-or-nothing from the caller's perspective: nothing is persisted until
// the outbound negotiation succeeded, so a failed step leaves the prior
// state valid and retryable.
type Registration struct {
	Partners PartnerDirectory
	Client   HandshakeClient

	// Own identity, as presented in headers and credentials documents.
	Self     ocpi.Identity
	SelfName string

	// URL of this gateway's own versions endpoint, handed to partners.
	VersionsURL string

	// The single OCPI version this gateway speaks.
	RequiredVersion string

	// When true, a partner advertising two endpoints for the same module is
	// rejected instead of first-wins.
	StrictEndpoints bool
}

// LookupByIncomingToken resolves the caller presenting token to a partner.
func (s *Registration) LookupByIncomingToken(ctx context.Context, token string) (*ocpi.Partner, error) {
	if token == "" {
		return nil, ocpi.ErrNotFound
	}
	p, err := s.Partners.GetByIncomingToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ocpi.ErrNotFound
	}
	// Best effort; an inbound call should not fail on bookkeeping.
	_ = s.Partners.TouchLastSeen(ctx, p.CountryCode, p.PartyID, p.Role, time.Now().UTC())
	return p, nil
}

// AcceptRegistration is the receiver-side first contact: the partner calls
// our credentials endpoint with token A, handing over its own credentials.
// On success the partner's version list and endpoint table have been fetched
// with the supplied remote credentials, a brand-new incoming token has been
// rotated in, and the remote token/URL/endpoints are stored.
func (s *Registration) AcceptRegistration(ctx context.Context, incomingToken string, remote ocpi.Credentials, requestedVersion string) (p *ocpi.Partner, err error) {
	defer func() { obs.HandshakeOp("accept", err) }()

	p, err = s.LookupByIncomingToken(ctx, incomingToken)
	if err != nil {
		return nil, err
	}
	if p.OutgoingToken != "" {
		return nil, ocpi.ErrAlreadyRegistered
	}
	if requestedVersion != "" && requestedVersion != p.NegotiatedVersion {
		return nil, ocpi.ErrVersionMismatch
	}
	return s.completeHandshake(ctx, p, remote)
}

// UpdateRegistration is receiver-side re-registration: same negotiation and
// token rotation as acceptance, but requires prior credentials and skips the
// version-precommit check.
func (s *Registration) UpdateRegistration(ctx context.Context, incomingToken string, remote ocpi.Credentials) (p *ocpi.Partner, err error) {
	defer func() { obs.HandshakeOp("update", err) }()

	p, err = s.LookupByIncomingToken(ctx, incomingToken)
	if err != nil {
		return nil, err
	}
	if p.OutgoingToken == "" {
		return nil, ocpi.ErrNotRegistered
	}
	return s.completeHandshake(ctx, p, remote)
}

func (s *Registration) completeHandshake(ctx context.Context, p *ocpi.Partner, remote ocpi.Credentials) (*ocpi.Partner, error) {
	if remote.Token == "" || remote.URL == "" {
		return nil, ocpi.ErrMissingField
	}

	version, endpoints, err := s.negotiate(ctx, p, remote.URL, remote.Token)
	if err != nil {
		return nil, err
	}

	updated := *p
	updated.OutgoingToken = remote.Token
	updated.VersionsURL = remote.URL
	updated.IncomingToken = security.NewToken()
	updated.NegotiatedVersion = version
	updated.Endpoints = endpoints
	if role, ok := remote.PartyRole(); ok {
		updated.Name = role.BusinessDetails.Name
	}

	ok, err := s.Partners.UpdateIfTokenMatches(ctx, updated, p.IncomingToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent handshake step won the compare-and-swap.
		return nil, ocpi.ErrAlreadyRegistered
	}

	obs.Log(map[string]any{
		"msg": "registration complete", "partner": updated.Key(), "version": version,
		"token_fp": security.HashTokenSHA256(updated.IncomingToken)[:12],
	})
	return &updated, nil
}

// RevokeRegistration deletes the partner's credential and endpoint state.
// Absence is reported as NotFound, not treated as success.
func (s *Registration) RevokeRegistration(ctx context.Context, incomingToken string) (err error) {
	defer func() { obs.HandshakeOp("revoke", err) }()

	p, err := s.LookupByIncomingToken(ctx, incomingToken)
	if err != nil {
		return err
	}
	deleted, err := s.Partners.Delete(ctx, p.CountryCode, p.PartyID, p.Role)
	if err != nil {
		return err
	}
	if !deleted {
		return ocpi.ErrNotFound
	}
	obs.Log(map[string]any{"msg": "registration revoked", "partner": p.Key()})
	return nil
}

// InitiateRegistration is the initiator-side flow: this system registers with
// a partner it holds a pre-shared token A for. It negotiates version and
// endpoints with token A, persists a fresh incoming token as the partner's
// server-side credential, then POSTs our own credentials document to the
// partner's credentials endpoint and returns whatever document the partner
// hands back.
func (s *Registration) InitiateRegistration(ctx context.Context, countryCode, partyId string, role ocpi.Role, remoteVersionsURL, tokenA, requestedVersion string) (creds ocpi.Credentials, err error) {
	defer func() { obs.HandshakeOp("initiate", err) }()

	p, err := s.Partners.GetByKey(ctx, countryCode, partyId, role)
	if err != nil {
		return ocpi.Credentials{}, err
	}
	if p == nil {
		return ocpi.Credentials{}, ocpi.ErrNotFound
	}
	if p.OutgoingToken != "" {
		return ocpi.Credentials{}, ocpi.ErrAlreadyRegistered
	}
	if requestedVersion != "" && requestedVersion != p.NegotiatedVersion {
		return ocpi.Credentials{}, ocpi.ErrVersionMismatch
	}

	version, endpoints, err := s.negotiate(ctx, p, remoteVersionsURL, tokenA)
	if err != nil {
		return ocpi.Credentials{}, err
	}
	credsEp, ok := endpoints[ocpi.ModuleCredentials]
	if !ok {
		return ocpi.Credentials{}, ocpi.ErrMissingField
	}

	incoming := security.NewToken()

	staged := *p
	staged.IncomingToken = incoming
	staged.VersionsURL = remoteVersionsURL
	staged.NegotiatedVersion = version
	staged.Endpoints = endpoints
	swapped, err := s.Partners.UpdateIfTokenMatches(ctx, staged, p.IncomingToken)
	if err != nil {
		return ocpi.Credentials{}, err
	}
	if !swapped {
		return ocpi.Credentials{}, ocpi.ErrAlreadyRegistered
	}

	remote, err := s.Client.PostCredentials(ctx, s.request(p, credsEp.URL, tokenA), s.SelfCredentials(incoming))
	if err != nil {
		return ocpi.Credentials{}, err
	}
	if remote.Token == "" {
		return ocpi.Credentials{}, ocpi.ErrMissingField
	}

	final := staged
	final.OutgoingToken = remote.Token
	if remote.URL != "" {
		final.VersionsURL = remote.URL
	}
	if _, err := s.Partners.UpdateIfTokenMatches(ctx, final, incoming); err != nil {
		return ocpi.Credentials{}, err
	}

	obs.Log(map[string]any{
		"msg": "registration initiated", "partner": final.Key(), "version": version,
	})
	return remote, nil
}

// RotateOutgoingToken is an administrative forced rotation: re-negotiate the
// endpoint table and push a fresh credentials document to the partner via
// its credentials endpoint. The partner's reply carries the new token this
// system will present from now on.
func (s *Registration) RotateOutgoingToken(ctx context.Context, countryCode, partyId string, role ocpi.Role) (p *ocpi.Partner, err error) {
	defer func() { obs.HandshakeOp("rotate", err) }()

	p, err = s.Partners.GetByKey(ctx, countryCode, partyId, role)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ocpi.ErrNotFound
	}
	if !p.Registered() {
		return nil, ocpi.ErrNotRegistered
	}

	version, endpoints, err := s.negotiate(ctx, p, p.VersionsURL, p.OutgoingToken)
	if err != nil {
		return nil, err
	}
	credsEp, ok := endpoints[ocpi.ModuleCredentials]
	if !ok {
		return nil, ocpi.ErrMissingField
	}

	incoming := security.NewToken()
	remote, err := s.Client.PutCredentials(ctx, s.request(p, credsEp.URL, p.OutgoingToken), s.SelfCredentials(incoming))
	if err != nil {
		return nil, err
	}
	if remote.Token == "" {
		return nil, ocpi.ErrMissingField
	}

	updated := *p
	updated.OutgoingToken = remote.Token
	updated.IncomingToken = incoming
	updated.NegotiatedVersion = version
	updated.Endpoints = endpoints
	if remote.URL != "" {
		updated.VersionsURL = remote.URL
	}

	swapped, err := s.Partners.UpdateIfTokenMatches(ctx, updated, p.IncomingToken)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, ocpi.ErrAlreadyRegistered
	}

	obs.Log(map[string]any{
		"msg": "outgoing token rotated", "partner": updated.Key(),
		"token_fp": security.HashTokenSHA256(updated.IncomingToken)[:12],
	})
	return &updated, nil
}

// negotiate fetches the remote version list, selects the locally required
// version and fetches its endpoint table. When a module appears twice the
// first endpoint wins and the duplicate is logged, unless StrictEndpoints
// turns duplicates into an error.
func (s *Registration) negotiate(ctx context.Context, p *ocpi.Partner, versionsURL, token string) (string, map[ocpi.ModuleID]ocpi.Endpoint, error) {
	versions, err := s.Client.GetVersions(ctx, s.request(p, versionsURL, token))
	if err != nil {
		return "", nil, err
	}

	var match *ocpi.Version
	for i := range versions {
		if versions[i].Version == s.RequiredVersion {
			match = &versions[i]
			break
		}
	}
	if match == nil {
		return "", nil, ocpi.ErrNoMatchingVersion
	}

	details, err := s.Client.GetVersionDetails(ctx, s.request(p, match.URL, token))
	if err != nil {
		return "", nil, err
	}

	endpoints := make(map[ocpi.ModuleID]ocpi.Endpoint, len(details.Endpoints))
	for _, ep := range details.Endpoints {
		if _, dup := endpoints[ep.Identifier]; dup {
			if s.StrictEndpoints {
				return "", nil, ocpi.ErrDuplicateEndpoint
			}
			obs.Log(map[string]any{
				"msg": "duplicate endpoint ignored", "level": "warn",
				"partner": p.Key(), "module": ep.Identifier, "url": ep.URL,
			})
			continue
		}
		endpoints[ep.Identifier] = ep
	}
	if len(endpoints) == 0 {
		return "", nil, ocpi.ErrMissingField
	}
	return match.Version, endpoints, nil
}

func (s *Registration) request(p *ocpi.Partner, url, token string) partnerclient.Request {
	return partnerclient.Request{
		URL:           url,
		Token:         token,
		RequestID:     ids.Correlation(),
		CorrelationID: ids.Correlation(),
		From:          s.Self,
		To:            ocpi.Identity{CountryCode: p.CountryCode, PartyID: p.PartyID},
		Version:       s.RequiredVersion,
		Module:        ocpi.ModuleCredentials,
		Partner:       p.Key(),
	}
}

func (s *Registration) SelfCredentials(token string) ocpi.Credentials {
	return ocpi.Credentials{
		Token: token,
		URL:   s.VersionsURL,
		Roles: []ocpi.CredentialsRole{{
			Role:            ocpi.RoleCPO,
			BusinessDetails: ocpi.BusinessDetails{Name: s.SelfName},
			PartyID:         s.Self.PartyID,
			CountryCode:     s.Self.CountryCode,
		}},
	}
}

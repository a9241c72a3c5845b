package partnerclient

import (
	"context"
	"encoding/json"
	"net/http"

	"ocpigw/internal/ocpi"
)

// Version-discovery and credentials calls used by the registration handshake.
// These take explicit URLs because during first contact the partner record is
// not established yet.

func (c *Client) GetVersions(ctx context.Context, r Request) ([]ocpi.Version, error) {
	r.Method = http.MethodGet
	var out []ocpi.Version
	if err := c.getJSON(ctx, r, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetVersionDetails(ctx context.Context, r Request) (ocpi.VersionDetails, error) {
	r.Method = http.MethodGet
	var out ocpi.VersionDetails
	if err := c.getJSON(ctx, r, &out); err != nil {
		return ocpi.VersionDetails{}, err
	}
	return out, nil
}

func (c *Client) GetCredentials(ctx context.Context, r Request) (ocpi.Credentials, error) {
	r.Method = http.MethodGet
	var out ocpi.Credentials
	if err := c.getJSON(ctx, r, &out); err != nil {
		return ocpi.Credentials{}, err
	}
	return out, nil
}

// PostCredentials performs the first registration against a partner's
// credentials endpoint and returns the credentials document handed back.
func (c *Client) PostCredentials(ctx context.Context, r Request, creds ocpi.Credentials) (ocpi.Credentials, error) {
	r.Method = http.MethodPost
	r.Body = creds
	return c.roundTripCredentials(ctx, r)
}

// PutCredentials performs re-registration or token rotation.
func (c *Client) PutCredentials(ctx context.Context, r Request, creds ocpi.Credentials) (ocpi.Credentials, error) {
	r.Method = http.MethodPut
	r.Body = creds
	return c.roundTripCredentials(ctx, r)
}

func (c *Client) DeleteCredentials(ctx context.Context, r Request) error {
	r.Method = http.MethodDelete
	return c.Push(ctx, r)
}

func (c *Client) roundTripCredentials(ctx context.Context, r Request) (ocpi.Credentials, error) {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return ocpi.Credentials{}, err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return ocpi.Credentials{}, &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Status: resp.Status}
	}
	var out ocpi.Credentials
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return ocpi.Credentials{}, &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Err: err}
	}
	return out, nil
}

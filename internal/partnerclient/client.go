package partnerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"

	"golang.org/x/time/rate"
)

// Request is one outbound OCPI call, fully built before sending. It is an
// immutable value: correlation id, version and identities are filled in by
// the caller, never defaulted here.
type Request struct {
	Method        string
	URL           string
	Token         string
	RequestID     string
	CorrelationID string
	From          ocpi.Identity
	To            ocpi.Identity
	Version       string
	Module        ocpi.ModuleID
	Partner       string
	Body          any
}

// Response is the raw result of a partner call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client issues authenticated calls against partner-supplied URLs.
type Client struct {
	HTTP    *http.Client
	limiter *rate.Limiter
}

// New builds a client with a bounded per-request timeout. When ratePerSec is
// positive, calls across all partners share one limiter.
func New(timeout time.Duration, ratePerSec float64) *Client {
	c := &Client{HTTP: &http.Client{Timeout: timeout}}
	if ratePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1)
	}
	return c
}

// Do sends the request and returns the raw response. Transport failures,
// including timeouts, come back as *ocpi.TransportError; HTTP status is not
// interpreted here.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Err: err}
		}
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Token "+r.Token)
	if r.RequestID != "" {
		req.Header.Set("X-Request-ID", r.RequestID)
	}
	if r.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", r.CorrelationID)
	}
	if r.From.CountryCode != "" {
		req.Header.Set("OCPI-from-country-code", r.From.CountryCode)
		req.Header.Set("OCPI-from-party-id", r.From.PartyID)
	}
	if r.To.CountryCode != "" {
		req.Header.Set("OCPI-to-country-code", r.To.CountryCode)
		req.Header.Set("OCPI-to-party-id", r.To.PartyID)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if r.Module != "" {
		obs.ObservePartnerRequest(string(r.Module), start)
	}
	if err != nil {
		return nil, &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Err: err}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// Push sends the request and requires a 2xx status.
func (c *Client) Push(ctx context.Context, r Request) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Status: resp.Status}
	}
	return nil
}

// PostCdr sends a CDR and returns the created-resource reference the partner
// is required to hand back in the Location header.
func (c *Client) PostCdr(ctx context.Context, r Request) (string, error) {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return "", err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return "", &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Status: resp.Status}
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Err: ocpi.ErrMissingLocationRef}
	}
	return loc, nil
}

func (c *Client) getJSON(ctx context.Context, r Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Status: resp.Status}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &ocpi.TransportError{Partner: r.Partner, URL: r.URL, Err: err}
	}
	return nil
}

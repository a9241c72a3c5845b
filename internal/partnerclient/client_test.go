package partnerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ocpigw/internal/ocpi"
)

func TestDoSetsRoutingHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(5*time.Second, 0)
	err := c.Push(context.Background(), Request{
		Method:        http.MethodPut,
		URL:           srv.URL,
		Token:         "secret-token",
		RequestID:     "req-1",
		CorrelationID: "corr-1",
		From:          ocpi.Identity{CountryCode: "NL", PartyID: "OGW"},
		To:            ocpi.Identity{CountryCode: "DE", PartyID: "EMS"},
		Body:          map[string]string{"id": "S1"},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"Authorization":          "Token secret-token",
		"X-Request-Id":           "req-1",
		"X-Correlation-Id":       "corr-1",
		"Ocpi-From-Country-Code": "NL",
		"Ocpi-From-Party-Id":     "OGW",
		"Ocpi-To-Country-Code":   "DE",
		"Ocpi-To-Party-Id":       "EMS",
		"Content-Type":           "application/json",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("header %s = %q, want %q", k, got.Get(k), v)
		}
	}
}

func TestPushNon2xxIsTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(5*time.Second, 0)
	err := c.Push(context.Background(), Request{Method: http.MethodPut, URL: srv.URL, Partner: "DE*EMS*EMSP"})

	var te *ocpi.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *ocpi.TransportError", err)
	}
	if te.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", te.Status)
	}
	if te.Partner != "DE*EMS*EMSP" {
		t.Errorf("partner = %q, want the request's partner key", te.Partner)
	}
}

func TestPostCdrRequiresLocationHeader(t *testing.T) {
	t.Parallel()

	withLocation := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if withLocation {
			w.Header().Set("Location", "https://partner.example/ocpi/cdrs/CDR1")
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(5*time.Second, 0)

	ref, err := c.PostCdr(context.Background(), Request{Method: http.MethodPost, URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "https://partner.example/ocpi/cdrs/CDR1" {
		t.Errorf("ref = %q, want the Location header value", ref)
	}

	withLocation = false
	_, err = c.PostCdr(context.Background(), Request{Method: http.MethodPost, URL: srv.URL})
	if !errors.Is(err, ocpi.ErrMissingLocationRef) {
		t.Fatalf("err = %v, want ErrMissingLocationRef", err)
	}
}

func TestGetVersionsDecodesList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]ocpi.Version{
			{Version: "2.2.1", URL: "https://partner.example/ocpi/2.2.1"},
		})
	}))
	defer srv.Close()

	c := New(5*time.Second, 0)
	versions, err := c.GetVersions(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 || versions[0].Version != "2.2.1" {
		t.Fatalf("versions = %+v", versions)
	}
}

func TestDoConnectionFailureIsTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(time.Second, 0)
	err := c.Push(context.Background(), Request{Method: http.MethodPut, URL: srv.URL, Partner: "DE*EMS*EMSP"})

	var te *ocpi.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *ocpi.TransportError", err)
	}
	if te.Err == nil {
		t.Error("underlying transport error must be preserved")
	}
}

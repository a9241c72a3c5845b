package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ocpigw/internal/config"
	"ocpigw/internal/models"
	"ocpigw/internal/obs"
	"ocpigw/internal/ocpi"
	"ocpigw/internal/services"

	"github.com/go-chi/chi/v5"
)

// LocationWriter persists internally ingested location data.
type LocationWriter interface {
	Upsert(ctx context.Context, l models.Location) error
}

// Server exposes the minimal inbound surface the gateway needs: version
// discovery, the credentials receiver endpoints, and admin triggers. The
// full partner-facing module REST surface lives outside this subsystem.
type Server struct {
	Cfg          config.Config
	Registration *services.Registration
	Roamer       *services.Roamer
	Locations    LocationWriter
}

func NewServer(cfg config.Config, registration *services.Registration, roamer *services.Roamer, locations LocationWriter) *Server {
	return &Server{Cfg: cfg, Registration: registration, Roamer: roamer, Locations: locations}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/ocpi", func(r chi.Router) {
		r.Get("/versions", s.Versions)
		r.Get("/{version}", s.VersionDetails)
		r.Route("/{version}/credentials", func(r chi.Router) {
			r.Use(RequireOcpiToken)
			r.Get("/", s.GetCredentials)
			r.Post("/", s.PostCredentials)
			r.Put("/", s.PutCredentials)
			r.Delete("/", s.DeleteCredentials)
		})
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return RequireBearer(s.Cfg.AdminAPIKey, next) })
		r.Post("/partners/{countryCode}/{partyId}/{role}/register", s.AdminInitiateRegistration)
		r.Post("/partners/{countryCode}/{partyId}/{role}/rotate", s.AdminRotateToken)
		r.Post("/transactions/{transactionId}/broadcast", s.AdminBroadcastTransaction)
		r.Post("/transactions/{transactionId}/finalize", s.AdminFinalizeTransaction)
		r.Post("/transactions/sweep", s.AdminSweepTransactions)
		r.Post("/tariffs/{tariffId}/broadcast", s.AdminBroadcastTariff)
		r.Post("/locations/{locationId}/broadcast", s.AdminBroadcastLocation)
		r.Put("/locations", s.AdminUpsertLocation)
	})

	r.Handle("/metrics", obs.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the handshake error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var transport *ocpi.TransportError
	switch {
	case errors.Is(err, ocpi.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ocpi.ErrAlreadyRegistered), errors.Is(err, ocpi.ErrNotRegistered):
		http.Error(w, err.Error(), http.StatusMethodNotAllowed)
	case errors.Is(err, ocpi.ErrVersionMismatch), errors.Is(err, ocpi.ErrNoMatchingVersion),
		errors.Is(err, ocpi.ErrMissingField), errors.Is(err, ocpi.ErrDuplicateEndpoint):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &transport):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"ocpigw/internal/models"
	"ocpigw/internal/ocpi"

	"github.com/go-chi/chi/v5"
)

func versionFromPath(r *http.Request) string {
	return chi.URLParam(r, "version")
}

func roleFromPath(r *http.Request) ocpi.Role {
	return ocpi.Role(strings.ToUpper(chi.URLParam(r, "role")))
}

type initiateReq struct {
	VersionsURL string `json:"versions_url"`
	TokenA      string `json:"token_a"`
	Version     string `json:"version,omitempty"`
}

func (s *Server) AdminInitiateRegistration(w http.ResponseWriter, r *http.Request) {
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if req.VersionsURL == "" || req.TokenA == "" {
		http.Error(w, "versions_url and token_a required", http.StatusBadRequest)
		return
	}

	creds, err := s.Registration.InitiateRegistration(r.Context(),
		chi.URLParam(r, "countryCode"), chi.URLParam(r, "partyId"), roleFromPath(r),
		req.VersionsURL, req.TokenA, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) AdminRotateToken(w http.ResponseWriter, r *http.Request) {
	partner, err := s.Registration.RotateOutgoingToken(r.Context(),
		chi.URLParam(r, "countryCode"), chi.URLParam(r, "partyId"), roleFromPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, partner)
}

// Broadcast triggers. Per the delivery model these always answer 202 once
// the derivation succeeded; send outcomes are visible in logs and metrics
// only.

func (s *Server) AdminBroadcastTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.Roamer.TransactionChanged(r.Context(), chi.URLParam(r, "transactionId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) AdminFinalizeTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.Roamer.TransactionEnded(r.Context(), chi.URLParam(r, "transactionId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) AdminSweepTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	n, err := s.Roamer.SweepRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"sessions": n})
}

func (s *Server) AdminBroadcastTariff(w http.ResponseWriter, r *http.Request) {
	if err := s.Roamer.TariffChanged(r.Context(), chi.URLParam(r, "tariffId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) AdminBroadcastLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.Roamer.LocationChanged(r.Context(), chi.URLParam(r, "locationId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// AdminUpsertLocation ingests location data from the internal platform, then
// rebroadcasts the updated object.
func (s *Server) AdminUpsertLocation(w http.ResponseWriter, r *http.Request) {
	var l models.Location
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if l.LocationId == "" {
		http.Error(w, "location_id required", http.StatusBadRequest)
		return
	}
	if err := s.Locations.Upsert(r.Context(), l); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Roamer.LocationChanged(r.Context(), l.LocationId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

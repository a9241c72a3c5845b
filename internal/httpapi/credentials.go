package httpapi

import (
	"encoding/json"
	"net/http"

	"ocpigw/internal/ocpi"
)

// Version discovery: the two documents a partner fetches before and during
// the handshake.

func (s *Server) Versions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []ocpi.Version{{
		Version: s.Cfg.RequiredVersion,
		URL:     s.Cfg.ExternalURL + "/ocpi/" + s.Cfg.RequiredVersion,
	}})
}

func (s *Server) VersionDetails(w http.ResponseWriter, r *http.Request) {
	base := s.Cfg.ExternalURL + "/ocpi/" + s.Cfg.RequiredVersion
	writeJSON(w, http.StatusOK, ocpi.VersionDetails{
		Version: s.Cfg.RequiredVersion,
		Endpoints: []ocpi.Endpoint{
			{Identifier: ocpi.ModuleCredentials, Role: ocpi.InterfaceReceiver, URL: base + "/credentials"},
			{Identifier: ocpi.ModuleSessions, Role: ocpi.InterfaceSender, URL: base + "/sessions"},
			{Identifier: ocpi.ModuleCdrs, Role: ocpi.InterfaceSender, URL: base + "/cdrs"},
			{Identifier: ocpi.ModuleTariffs, Role: ocpi.InterfaceSender, URL: base + "/tariffs"},
			{Identifier: ocpi.ModuleLocations, Role: ocpi.InterfaceSender, URL: base + "/locations"},
		},
	})
}

// Credentials receiver endpoints, delegating to the registration handshake.

func (s *Server) GetCredentials(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())
	if _, err := s.Registration.LookupByIncomingToken(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Registration.SelfCredentials(token))
}

func (s *Server) PostCredentials(w http.ResponseWriter, r *http.Request) {
	var remote ocpi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&remote); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	requestedVersion := versionFromPath(r)

	partner, err := s.Registration.AcceptRegistration(r.Context(), tokenFromContext(r.Context()), remote, requestedVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Registration.SelfCredentials(partner.IncomingToken))
}

func (s *Server) PutCredentials(w http.ResponseWriter, r *http.Request) {
	var remote ocpi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&remote); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	partner, err := s.Registration.UpdateRegistration(r.Context(), tokenFromContext(r.Context()), remote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Registration.SelfCredentials(partner.IncomingToken))
}

func (s *Server) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	if err := s.Registration.RevokeRegistration(r.Context(), tokenFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

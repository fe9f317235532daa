package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
)

type ProfileHandler struct {
	profiles gateway.ProfileGateway
	logger   *slog.Logger
}

func NewProfileHandler(profiles gateway.ProfileGateway, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// profileUpdate is the full replacement state. Every field is written, so a
// missing "bio" clears the bio.
type profileUpdate struct {
	FullName  string   `json:"full_name"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
}

// HandleGet returns a public profile with rating aggregates.
//
// HTTP: GET /api/profiles/{id}
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfileDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate overwrites the caller's profile.
//
// HTTP: PUT /api/profiles/{id}  {"full_name","bio","interests"} → 204
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req profileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	err := h.profiles.UpdateProfile(r.Context(), &model.Profile{
		ID:        chi.URLParam(r, "id"),
		FullName:  req.FullName,
		Bio:       req.Bio,
		Interests: req.Interests,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

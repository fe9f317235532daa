package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
)

// EventHandler serves the event feed, event detail, event creation,
// registrations and my-events.
type EventHandler struct {
	events        gateway.EventGateway
	registrations gateway.RegistrationGateway
	logger        *slog.Logger
}

func NewEventHandler(events gateway.EventGateway, registrations gateway.RegistrationGateway, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, registrations: registrations, logger: logger}
}

// HandleList returns one page of upcoming events.
//
// HTTP: GET /api/events?limit=20&offset=0&q=jazz&category=Music
//
// A missing limit/offset means "use the default"; a non-numeric one is a 400.
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.events.ListEventsWithDetails(r.Context(), gateway.ListParams{
		Limit:    limit,
		Offset:   offset,
		Search:   q.Get("q"),
		Category: q.Get("category"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGet returns one aggregated event.
//
// HTTP: GET /api/events/{id}
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetEventWithDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleCreate creates an event hosted by the authenticated user.
//
// HTTP: POST /api/events  EventDraft → 201 Event
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var draft model.EventDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.events.InsertEvent(r.Context(), &model.Event{
		HostID:       userID,
		Title:        draft.Title,
		Description:  draft.Description,
		EventDate:    draft.EventDate,
		LocationName: draft.LocationName,
		Category:     draft.Category,
		Capacity:     draft.Capacity,
		ImageURL:     draft.ImageURL,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type registrationStatus struct {
	Registered bool `json:"registered"`
}

// HandleRegistrationStatus reports whether the user is registered.
//
// HTTP: GET /api/events/{id}/registrations/{userID} → {"registered": bool}
func (h *EventHandler) HandleRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	ok, err := h.registrations.IsRegistered(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, registrationStatus{Registered: ok})
}

// HandleRegister registers the user for the event.
//
// HTTP: PUT /api/events/{id}/registrations/{userID} → 204, or 409 with the reason
func (h *EventHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	err := h.registrations.InsertRegistration(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnregister removes the user's registration.
//
// HTTP: DELETE /api/events/{id}/registrations/{userID} → 204
func (h *EventHandler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	err := h.registrations.DeleteRegistration(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMyEvents returns the user's hosting and attending lists.
//
// HTTP: GET /api/users/{id}/events → MyEvents
func (h *EventHandler) HandleMyEvents(w http.ResponseWriter, r *http.Request) {
	mine, err := h.events.GetMyEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mine)
}

type hostRating struct {
	HostRating *float64 `json:"host_rating"`
}

// HandleHostRating returns the host's average rating, null when unrated.
//
// HTTP: GET /api/hosts/{id}/rating → {"host_rating": 4.5}
func (h *EventHandler) HandleHostRating(w http.ResponseWriter, r *http.Request) {
	rating, err := h.events.GetHostRating(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hostRating{HostRating: rating})
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/handler"
	"github.com/sakif/eventhub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGateway embeds the interface so only the methods a test sets up need
// an implementation; calling anything else panics, which fails the test.
type mockGateway struct {
	gateway.Gateway

	CapturedList    gateway.ListParams
	CapturedEvent   *model.Event
	CapturedProfile *model.Profile
	CapturedCtxUser string

	ReturnPage    *model.EventPage
	ReturnEvent   *model.Event
	ReturnSession *model.Session
	ReturnRating  *float64
	ReturnErr     error
}

func (m *mockGateway) ListEventsWithDetails(_ context.Context, p gateway.ListParams) (*model.EventPage, error) {
	m.CapturedList = p
	return m.ReturnPage, m.ReturnErr
}

func (m *mockGateway) GetEventWithDetails(_ context.Context, id string) (*model.Event, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnEvent, nil
}

func (m *mockGateway) InsertEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	m.CapturedEvent = e
	m.CapturedCtxUser, _ = auth.UserIDFromContext(ctx)
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	created := *e
	created.ID = "evt-1"
	return &created, nil
}

func (m *mockGateway) GetHostRating(context.Context, string) (*float64, error) {
	return m.ReturnRating, m.ReturnErr
}

func (m *mockGateway) InsertRegistration(ctx context.Context, eventID, userID string) error {
	m.CapturedCtxUser, _ = auth.UserIDFromContext(ctx)
	return m.ReturnErr
}

func (m *mockGateway) DeleteRegistration(context.Context, string, string) error {
	return m.ReturnErr
}

func (m *mockGateway) IsRegistered(context.Context, string, string) (bool, error) {
	return m.ReturnErr == nil, m.ReturnErr
}

func (m *mockGateway) UpdateProfile(_ context.Context, p *model.Profile) error {
	m.CapturedProfile = p
	return m.ReturnErr
}

func (m *mockGateway) SignUp(_ context.Context, email, password, fullName string) (*model.Session, error) {
	return m.ReturnSession, m.ReturnErr
}

func (m *mockGateway) Authenticate(_ context.Context, email, password string) (*model.Session, error) {
	return m.ReturnSession, m.ReturnErr
}

// newRouter mounts the handlers the way the server does, minus auth: the
// caller's identity is injected with asUser.
func newRouter(gw *mockGateway, asUser string) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	events := handler.NewEventHandler(gw, gw, logger)
	profiles := handler.NewProfileHandler(gw, logger)
	authH := handler.NewAuthHandler(gw, logger, false)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if asUser != "" {
				req = req.WithContext(auth.WithUserID(req.Context(), asUser))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/auth/signup", authH.HandleSignUp)
	r.Post("/auth/login", authH.HandleLogin)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Get("/api/events", events.HandleList)
	r.Post("/api/events", events.HandleCreate)
	r.Get("/api/events/{id}", events.HandleGet)
	r.Get("/api/events/{id}/registrations/{userID}", events.HandleRegistrationStatus)
	r.Put("/api/events/{id}/registrations/{userID}", events.HandleRegister)
	r.Delete("/api/events/{id}/registrations/{userID}", events.HandleUnregister)
	r.Get("/api/hosts/{id}/rating", events.HandleHostRating)
	r.Put("/api/profiles/{id}", profiles.HandleUpdate)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func TestHandleList(t *testing.T) {
	t.Run("passes query through", func(t *testing.T) {
		gw := &mockGateway{ReturnPage: &model.EventPage{Events: []model.Event{{ID: "e1"}}, TotalCount: 7}}
		rr := do(t, newRouter(gw, ""), http.MethodGet, "/api/events?limit=5&offset=10&q=jazz&category=Music", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, gateway.ListParams{Limit: 5, Offset: 10, Search: "jazz", Category: "Music"}, gw.CapturedList)

		var page model.EventPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
		assert.Equal(t, 7, page.TotalCount)
		assert.Len(t, page.Events, 1)
	})

	t.Run("non-numeric limit", func(t *testing.T) {
		gw := &mockGateway{}
		rr := do(t, newRouter(gw, ""), http.MethodGet, "/api/events?limit=ten", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decodeError(t, rr).Error)
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		gw := &mockGateway{ReturnErr: errors.New("sqlite: disk I/O error at /var/lib/x.db")}
		rr := do(t, newRouter(gw, ""), http.MethodGet, "/api/events", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		res := decodeError(t, rr)
		assert.Equal(t, "internal_error", res.Error)
		assert.NotContains(t, res.Message, "sqlite")
	})
}

func TestHandleGet_NotFound(t *testing.T) {
	gw := &mockGateway{ReturnErr: apperror.NotFound("event", "nope")}
	rr := do(t, newRouter(gw, ""), http.MethodGet, "/api/events/nope", "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "event not found with id nope", decodeError(t, rr).Message)
}

func TestHandleCreate_HostIsCaller(t *testing.T) {
	gw := &mockGateway{}
	body := `{"title":"Jam","description":"d","event_date":"2030-01-02T15:04:05Z",
		"location_name":"Hall","category":"Music","capacity":10}`
	rr := do(t, newRouter(gw, "user-7"), http.MethodPost, "/api/events", body)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, gw.CapturedEvent)
	assert.Equal(t, "user-7", gw.CapturedEvent.HostID)
	assert.Equal(t, 10, gw.CapturedEvent.Capacity)
	assert.True(t, gw.CapturedEvent.EventDate.Equal(time.Date(2030, 1, 2, 15, 4, 5, 0, time.UTC)))
}

func TestHandleCreate_BadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"unknown field", `{"title":"x","host_id":"someone-else"}`},
		{"two objects", `{"title":"x"}{"title":"y"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newRouter(&mockGateway{}, "user-7"), http.MethodPost, "/api/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestRegistrationRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"register ok", http.MethodPut, nil, http.StatusNoContent, "", ""},
		{"register full", http.MethodPut, apperror.ConstraintViolation("event is full"), http.StatusConflict, "conflict", "event is full"},
		{"register other user", http.MethodPut, apperror.Forbidden("nope"), http.StatusForbidden, "forbidden", "nope"},
		{"unregister ok", http.MethodDelete, nil, http.StatusNoContent, "", ""},
		{"unregister absent", http.MethodDelete, apperror.NotFound("registration", "e/u"), http.StatusNotFound, "not_found", ""},
		{"no session", http.MethodPut, apperror.Unauthenticated("sign in required"), http.StatusUnauthorized, "unauthorized", "sign in required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{ReturnErr: tt.err}
			rr := do(t, newRouter(gw, "u1"), tt.method, "/api/events/e1/registrations/u1", "")

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantKind != "" {
				res := decodeError(t, rr)
				assert.Equal(t, tt.wantKind, res.Error)
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, res.Message)
				}
			}
		})
	}
}

func TestHandleRegistrationStatus(t *testing.T) {
	rr := do(t, newRouter(&mockGateway{}, "u1"), http.MethodGet, "/api/events/e1/registrations/u1", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"registered":true}`, rr.Body.String())
}

func TestHandleHostRating(t *testing.T) {
	rr := do(t, newRouter(&mockGateway{}, ""), http.MethodGet, "/api/hosts/h1/rating", "")
	assert.JSONEq(t, `{"host_rating":null}`, rr.Body.String())

	r := 4.25
	rr = do(t, newRouter(&mockGateway{ReturnRating: &r}, ""), http.MethodGet, "/api/hosts/h1/rating", "")
	assert.JSONEq(t, `{"host_rating":4.25}`, rr.Body.String())
}

func TestHandleUpdateProfile(t *testing.T) {
	gw := &mockGateway{}
	rr := do(t, newRouter(gw, "u1"), http.MethodPut, "/api/profiles/u1",
		`{"full_name":"Uma","interests":["Music","Tech"]}`)

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, &model.Profile{ID: "u1", FullName: "Uma", Interests: []string{"Music", "Tech"}}, gw.CapturedProfile)
}

func TestAuthRoutes(t *testing.T) {
	session := &model.Session{UserID: "u1", Email: "u@example.com", AccessToken: "jwt", ExpiresAt: time.Now().Add(time.Hour)}

	t.Run("signup sets cookie", func(t *testing.T) {
		rr := do(t, newRouter(&mockGateway{ReturnSession: session}, ""), http.MethodPost, "/auth/signup",
			`{"email":"u@example.com","password":"secret123","full_name":"U"}`)

		require.Equal(t, http.StatusCreated, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.CookieName, cookies[0].Name)
		assert.Equal(t, "jwt", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("bad login", func(t *testing.T) {
		gw := &mockGateway{ReturnErr: apperror.Unauthenticated("invalid email or password")}
		rr := do(t, newRouter(gw, ""), http.MethodPost, "/auth/login", `{"email":"x@example.com","password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		rr := do(t, newRouter(&mockGateway{}, ""), http.MethodPost, "/auth/logout", "")

		assert.Equal(t, http.StatusNoContent, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{apperror.ValidationFailed("f", "m"), http.StatusBadRequest, handler.KindValidation},
		{apperror.Unauthenticated("m"), http.StatusUnauthorized, handler.KindUnauthorized},
		{apperror.Forbidden("m"), http.StatusForbidden, handler.KindForbidden},
		{apperror.NotFound("event", "1"), http.StatusNotFound, handler.KindNotFound},
		{apperror.ConstraintViolation("event is full"), http.StatusConflict, handler.KindConflict},
		{errors.New("boom"), http.StatusInternalServerError, handler.KindInternal},
	}
	for _, tt := range tests {
		status, kind := handler.StatusFor(tt.err)
		assert.Equal(t, tt.wantStatus, status, tt.err.Error())
		assert.Equal(t, tt.wantKind, kind, tt.err.Error())
	}
}

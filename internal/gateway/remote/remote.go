// Package remote implements gateway.Gateway over the eventd HTTP API.
//
// Authentication is delegated to an oauth2.TokenSource (in practice the
// session.Manager): calls that act for a user fetch a token and attach it with
// Token.SetAuthHeader. When the source has no token the call fails with
// apperror.ErrUnauthenticated before anything is sent.
//
// Error responses ({"error": kind, "message": text}) are mapped back onto the
// apperror sentinels, so errors.Is(err, apperror.ErrConflict) and
// apperror.Message(err) == "event is full" hold on the client exactly as they
// do in-process.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
)

// ErrRateLimited is the kind of error returned for HTTP 429.
var ErrRateLimited = errors.New("rate limited")

// UserIDExtra is the oauth2.Token extra field carrying the session's user ID.
const UserIDExtra = "user_id"

const (
	requestIDHeader  = "X-Request-Id"
	maxErrorBodySize = 64 << 10
)

var kinds = map[string]error{
	"validation_error": apperror.ErrValidation,
	"not_found":        apperror.ErrNotFound,
	"forbidden":        apperror.ErrForbidden,
	"conflict":         apperror.ErrConflict,
	"unauthorized":     apperror.ErrUnauthenticated,
	"rate_limited":     ErrRateLimited,
}

var statusKinds = map[int]error{
	http.StatusBadRequest:      apperror.ErrValidation,
	http.StatusUnauthorized:    apperror.ErrUnauthenticated,
	http.StatusForbidden:       apperror.ErrForbidden,
	http.StatusNotFound:        apperror.ErrNotFound,
	http.StatusConflict:        apperror.ErrConflict,
	http.StatusTooManyRequests: ErrRateLimited,
}

// Client is a gateway.Gateway backed by HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
	logger  *slog.Logger
}

var _ gateway.Gateway = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a Client for the server at baseURL. tokens may be nil, in
// which case only the public operations succeed.
func New(baseURL string, tokens oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ===== Auth =====

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (*model.Session, error) {
	var s model.Session
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login",
		in: credentials{Email: email, Password: password}, out: &s})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	var s model.Session
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/signup",
		in: credentials{Email: email, Password: password, FullName: fullName}, out: &s})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ===== Events =====

func (c *Client) ListEventsWithDetails(ctx context.Context, p gateway.ListParams) (*model.EventPage, error) {
	q := url.Values{}
	if p.Limit != 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset != 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Search != "" {
		q.Set("q", p.Search)
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}

	var page model.EventPage
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/events", query: q, out: &page}); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetEventWithDetails(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/events/" + url.PathEscape(id), out: &e}); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) GetMyEvents(ctx context.Context, userID string) (*model.MyEvents, error) {
	var mine model.MyEvents
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/users/" + url.PathEscape(userID) + "/events",
		out: &mine, authed: true})
	if err != nil {
		return nil, err
	}
	return &mine, nil
}

func (c *Client) GetHostRating(ctx context.Context, hostID string) (*float64, error) {
	var res struct {
		HostRating *float64 `json:"host_rating"`
	}
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/hosts/" + url.PathEscape(hostID) + "/rating", out: &res})
	if err != nil {
		return nil, err
	}
	return res.HostRating, nil
}

// InsertEvent posts the event's draft fields. The server takes the host from
// the token, so a HostID naming someone else is refused here rather than
// silently rewritten.
func (c *Client) InsertEvent(ctx context.Context, event *model.Event) (*model.Event, error) {
	tok, err := c.token()
	if err != nil {
		return nil, err
	}
	if uid, _ := tok.Extra(UserIDExtra).(string); uid != "" && event.HostID != "" && uid != event.HostID {
		return nil, apperror.Forbidden("events can only be created with yourself as host")
	}

	draft := model.EventDraft{
		Title:        event.Title,
		Description:  event.Description,
		EventDate:    event.EventDate,
		LocationName: event.LocationName,
		Category:     event.Category,
		Capacity:     event.Capacity,
		ImageURL:     event.ImageURL,
	}
	var created model.Event
	err = c.do(ctx, call{method: http.MethodPost, path: "/api/events", in: draft, out: &created, token: tok})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ===== Registrations =====

func registrationPath(eventID, userID string) string {
	return "/api/events/" + url.PathEscape(eventID) + "/registrations/" + url.PathEscape(userID)
}

func (c *Client) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var res struct {
		Registered bool `json:"registered"`
	}
	err := c.do(ctx, call{method: http.MethodGet, path: registrationPath(eventID, userID), out: &res, authed: true})
	return res.Registered, err
}

func (c *Client) InsertRegistration(ctx context.Context, eventID, userID string) error {
	return c.do(ctx, call{method: http.MethodPut, path: registrationPath(eventID, userID), authed: true})
}

func (c *Client) DeleteRegistration(ctx context.Context, eventID, userID string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: registrationPath(eventID, userID), authed: true})
}

// ===== Profiles =====

func (c *Client) GetProfileDetails(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/profiles/" + url.PathEscape(userID), out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	body := struct {
		FullName  string   `json:"full_name"`
		Bio       string   `json:"bio"`
		Interests []string `json:"interests"`
	}{profile.FullName, profile.Bio, profile.Interests}

	return c.do(ctx, call{method: http.MethodPut, path: "/api/profiles/" + url.PathEscape(profile.ID),
		in: body, authed: true})
}

// ===== Transport =====

type call struct {
	method string
	path   string
	query  url.Values
	in     any
	out    any

	// authed requires a token from the source; token, when set, is used as is.
	authed bool
	token  *oauth2.Token
}

func (c *Client) token() (*oauth2.Token, error) {
	if c.tokens == nil {
		return nil, apperror.Unauthenticated("sign in required")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.Unauthenticated(err.Error())
	}
	return tok, nil
}

func (c *Client) do(ctx context.Context, cl call) error {
	tok := cl.token
	if tok == nil && cl.authed {
		var err error
		if tok, err = c.token(); err != nil {
			return err
		}
	}

	var body io.Reader
	if cl.in != nil {
		buf, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("remote: encoding %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("remote: building %s %s: %w", cl.method, cl.path, err)
	}
	if cl.query != nil {
		req.URL.RawQuery = cl.query.Encode()
	}
	if cl.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", cl.method, cl.path, err)
	}
	defer res.Body.Close()

	c.logger.Debug("backend call",
		slog.String("request_id", requestID),
		slog.String("method", cl.method),
		slog.String("path", cl.path),
		slog.Int("status", res.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if res.StatusCode >= 400 {
		return decodeError(res)
	}
	if cl.out == nil || res.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(cl.out); err != nil {
		return fmt.Errorf("remote: decoding %s %s: %w", cl.method, cl.path, err)
	}
	return nil
}

// decodeError rebuilds an *apperror.AppError from an error response. The
// body's kind wins over the status code; responses that are not ours (a proxy
// HTML page, say) fall back to the status. 5xx and unknown statuses become
// plain errors, which callers treat as internal failures.
func decodeError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	_ = json.Unmarshal(raw, &body)

	kind, ok := kinds[body.Error]
	if !ok {
		kind, ok = statusKinds[res.StatusCode]
	}
	message := body.Message
	if message == "" {
		message = http.StatusText(res.StatusCode)
	}
	if !ok {
		return fmt.Errorf("remote: backend returned %d: %s", res.StatusCode, message)
	}
	return &apperror.AppError{Err: kind, Message: message, Field: body.Field}
}

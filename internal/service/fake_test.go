package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/cache"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/session"
)

// =========================================================================
// FAKE GATEWAY
// =========================================================================
//
// fakeGateway implements gateway.Gateway in memory with the same rules the
// real backend enforces: future-only ascending lists, case-insensitive
// search, one registration per (event, user), capacity. Set err to make every
// call fail; calls counts round trips per method so tests can tell a cache
// hit from a refetch.

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu       sync.Mutex
	now      time.Time
	events   map[string]*model.Event
	order    []string
	regs     map[[2]string]bool
	profiles map[string]*model.Profile
	accounts map[string]string // email → password
	err      error
	calls    map[string]int
	nextID   int

	// beforeInsert runs inside InsertRegistration before the capacity check,
	// to simulate another user winning the race.
	beforeInsert func()
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		now:      testNow,
		events:   make(map[string]*model.Event),
		regs:     make(map[[2]string]bool),
		profiles: make(map[string]*model.Profile),
		accounts: make(map[string]string),
		calls:    make(map[string]int),
	}
}

func (f *fakeGateway) enter(method string) error {
	f.calls[method]++
	return f.err
}

func (f *fakeGateway) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// addEvent stores an event starting in `in` from testNow.
func (f *fakeGateway) addEvent(hostID, title, category string, in time.Duration, capacity int) *model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e := &model.Event{
		ID:           fmt.Sprintf("e%d", f.nextID),
		HostID:       hostID,
		Title:        title,
		Description:  "about " + title,
		EventDate:    testNow.Add(in),
		LocationName: "Hall",
		Category:     category,
		Capacity:     capacity,
	}
	f.events[e.ID] = e
	f.order = append(f.order, e.ID)
	return e
}

func (f *fakeGateway) aggregate(e *model.Event) model.Event {
	out := *e
	out.RegistrationCount = 0
	for k := range f.regs {
		if k[0] == e.ID {
			out.RegistrationCount++
		}
	}
	if p, ok := f.profiles[e.HostID]; ok {
		out.HostFullName = p.FullName
	}
	return out
}

func (f *fakeGateway) upcomingSorted(keep func(*model.Event) bool) []model.Event {
	out := []model.Event{}
	for _, id := range f.order {
		e := f.events[id]
		if e.EventDate.Before(f.now) || !keep(e) {
			continue
		}
		out = append(out, f.aggregate(e))
	}
	slices.SortStableFunc(out, func(a, b model.Event) int { return a.EventDate.Compare(b.EventDate) })
	return out
}

func (f *fakeGateway) Authenticate(_ context.Context, email, password string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Authenticate"); err != nil {
		return nil, err
	}
	if pw, ok := f.accounts[email]; !ok || pw != password {
		return nil, apperror.Unauthenticated("invalid email or password")
	}
	return &model.Session{UserID: "id-" + email, Email: email, AccessToken: "tok-" + email}, nil
}

func (f *fakeGateway) SignUp(_ context.Context, email, password, fullName string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SignUp"); err != nil {
		return nil, err
	}
	if _, ok := f.accounts[email]; ok {
		return nil, apperror.New(apperror.ErrConflict, "an account with this email already exists")
	}
	f.accounts[email] = password
	id := "id-" + email
	f.profiles[id] = &model.Profile{ID: id, FullName: fullName, Interests: []string{}}
	return &model.Session{UserID: id, Email: email, AccessToken: "tok-" + email}, nil
}

func (f *fakeGateway) ListEventsWithDetails(_ context.Context, p gateway.ListParams) (*model.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListEventsWithDetails"); err != nil {
		return nil, err
	}
	search := strings.ToLower(p.Search)
	all := f.upcomingSorted(func(e *model.Event) bool {
		if p.Category != "" && e.Category != p.Category {
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(e.Title), search) ||
			strings.Contains(strings.ToLower(e.Description), search) ||
			strings.Contains(strings.ToLower(e.Category), search)
	})

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	lo := min(max(p.Offset, 0), len(all))
	hi := min(lo+limit, len(all))
	return &model.EventPage{Events: all[lo:hi], TotalCount: len(all)}, nil
}

func (f *fakeGateway) GetEventWithDetails(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetEventWithDetails"); err != nil {
		return nil, err
	}
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	out := f.aggregate(e)
	return &out, nil
}

func (f *fakeGateway) GetMyEvents(_ context.Context, userID string) (*model.MyEvents, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetMyEvents"); err != nil {
		return nil, err
	}
	return &model.MyEvents{
		Hosting:   f.upcomingSorted(func(e *model.Event) bool { return e.HostID == userID }),
		Attending: f.upcomingSorted(func(e *model.Event) bool { return f.regs[[2]string{e.ID, userID}] }),
	}, nil
}

func (f *fakeGateway) GetHostRating(_ context.Context, hostID string) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetHostRating"); err != nil {
		return nil, err
	}
	if p, ok := f.profiles[hostID]; ok {
		return p.HostRating, nil
	}
	return nil, nil
}

func (f *fakeGateway) InsertEvent(_ context.Context, e *model.Event) (*model.Event, error) {
	f.mu.Lock()
	if err := f.enter("InsertEvent"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if e.Title == "" {
		f.mu.Unlock()
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	f.mu.Unlock()

	created := f.addEvent(e.HostID, e.Title, e.Category, e.EventDate.Sub(testNow), e.Capacity)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.aggregate(created)
	return &out, nil
}

func (f *fakeGateway) IsRegistered(_ context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("IsRegistered"); err != nil {
		return false, err
	}
	return f.regs[[2]string{eventID, userID}], nil
}

func (f *fakeGateway) InsertRegistration(_ context.Context, eventID, userID string) error {
	f.mu.Lock()
	hook := f.beforeInsert
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InsertRegistration"); err != nil {
		return err
	}
	e, ok := f.events[eventID]
	if !ok {
		return apperror.NotFound("event", eventID)
	}
	key := [2]string{eventID, userID}
	if f.regs[key] {
		return apperror.ConstraintViolation("already registered for this event")
	}
	if agg := f.aggregate(e); agg.IsFull() {
		return apperror.ConstraintViolation("event is full")
	}
	f.regs[key] = true
	return nil
}

func (f *fakeGateway) DeleteRegistration(_ context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteRegistration"); err != nil {
		return err
	}
	key := [2]string{eventID, userID}
	if !f.regs[key] {
		return apperror.NotFound("registration", eventID+"/"+userID)
	}
	delete(f.regs, key)
	return nil
}

// registerDirectly adds a registration behind the client's back, as another
// session would.
func (f *fakeGateway) registerDirectly(eventID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[[2]string{eventID, userID}] = true
}

// unregisterDirectly removes a registration behind the client's back.
func (f *fakeGateway) unregisterDirectly(eventID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.regs, [2]string{eventID, userID})
}

func (f *fakeGateway) GetProfileDetails(_ context.Context, userID string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetProfileDetails"); err != nil {
		return nil, err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	out := *p
	out.Interests = slices.Clone(p.Interests)
	return &out, nil
}

func (f *fakeGateway) UpdateProfile(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateProfile"); err != nil {
		return err
	}
	cur, ok := f.profiles[p.ID]
	if !ok {
		return apperror.NotFound("profile", p.ID)
	}
	if p.FullName == "" {
		return apperror.ValidationFailed("full_name", "full name is required")
	}
	cur.FullName, cur.Bio, cur.Interests = p.FullName, p.Bio, slices.Clone(p.Interests)
	return nil
}

// =========================================================================
// FIXTURE
// =========================================================================

type fixture struct {
	gw       *fakeGateway
	sessions *session.Manager
	cache    *cache.Cache
	feed     *FeedService
	events   *EventService
	mine     *MyEventsService
	profiles *ProfileService
	auth     *AuthService
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := newFakeGateway()
	sessions := session.NewManager()
	c := cache.New(cache.NewMemoryStore(), time.Minute, logger)

	fx := &fixture{
		gw:       gw,
		sessions: sessions,
		cache:    c,
		feed:     NewFeedService(gw, c, logger),
		events:   NewEventService(gw, sessions, c, logger),
		mine:     NewMyEventsService(gw, c, logger),
		profiles: NewProfileService(gw, sessions, c, logger),
		auth:     NewAuthService(gw, sessions, c, logger),
	}
	fx.feed.now = func() time.Time { return gw.now }
	fx.mine.now = func() time.Time { return gw.now }
	return fx
}

// signIn creates a user in the fake and makes them the current session.
func (fx *fixture) signIn(name string) string {
	s, err := fx.auth.SignUp(context.Background(), name+"@example.com", "secret123", name)
	if err != nil {
		panic(err)
	}
	return s.UserID
}

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// CREATE / GET
// =========================================================================

func TestCreateEvent(t *testing.T) {
	db := newTestDB(t)
	host := createTestUser(t, db, "host@example.com", "Hana Host")

	img := "https://img.example.com/1.png"
	e := &model.Event{
		HostID:       host.ID,
		Title:        "Jazz Night",
		Description:  "Live trio",
		EventDate:    testNow.Add(48 * time.Hour),
		LocationName: "Blue Room",
		Category:     "Music",
		Capacity:     30,
		ImageURL:     &img,
	}
	err := db.CreateEvent(context.Background(), e)
	require.NoError(t, err)

	if e.ID == "" {
		t.Error("CreateEvent() did not set ID")
	}
	if !e.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, testNow)
	}

	got, err := db.GetEvent(context.Background(), e.ID)
	require.NoError(t, err)

	assert.Equal(t, "Jazz Night", got.Title)
	assert.Equal(t, "Hana Host", got.HostFullName)
	assert.Equal(t, 0, got.RegistrationCount)
	assert.Nil(t, got.HostRating, "unrated host has no rating")
	assert.True(t, got.EventDate.Equal(e.EventDate))
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, img, *got.ImageURL)
}

func TestCreateEvent_RejectsZeroCapacity(t *testing.T) {
	db := newTestDB(t)
	host := createTestUser(t, db, "host@example.com", "Host")

	e := &model.Event{
		HostID: host.ID, Title: "x", EventDate: testNow.Add(time.Hour),
		LocationName: "x", Category: "Other", Capacity: 0,
	}
	if err := db.CreateEvent(context.Background(), e); err == nil {
		t.Fatal("CreateEvent() should fail the capacity CHECK constraint")
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetEvent(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetEvent() error = %v, want ErrNotFound", err)
	}
}

func TestGetEvent_Aggregates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	host := createTestUser(t, db, "host@example.com", "Host")
	a := createTestUser(t, db, "a@example.com", "A")
	b := createTestUser(t, db, "b@example.com", "B")

	past := createTestEvent(t, db, host.ID, "Past", testNow.Add(-24*time.Hour), 10)
	next := createTestEvent(t, db, host.ID, "Next", testNow.Add(24*time.Hour), 10)

	_, err := db.Register(ctx, next.ID, a.ID)
	require.NoError(t, err)
	_, err = db.Register(ctx, next.ID, b.ID)
	require.NoError(t, err)

	// Ratings on an old event feed the host's rating on every event.
	require.NoError(t, db.CreateRating(ctx, &model.Rating{EventID: past.ID, RaterID: a.ID, Score: 4}))
	require.NoError(t, db.CreateRating(ctx, &model.Rating{EventID: past.ID, RaterID: b.ID, Score: 5}))

	got, err := db.GetEvent(ctx, next.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, got.RegistrationCount)
	require.NotNil(t, got.HostRating)
	assert.InDelta(t, 4.5, *got.HostRating, 1e-9)

	// A past event can still be fetched by id.
	_, err = db.GetEvent(ctx, past.ID)
	assert.NoError(t, err)
}

// =========================================================================
// LIST
// =========================================================================

func seedFeed(t *testing.T, db *DB) string {
	t.Helper()
	host := createTestUser(t, db, "host@example.com", "Host")

	createTestEvent(t, db, host.ID, "Yesterday's Jazz", testNow.Add(-24*time.Hour), 10)

	for _, ev := range []struct {
		title, desc, category string
		in                    time.Duration
	}{
		{"Jazz Brunch", "Eggs and brass", "Food", 72 * time.Hour},
		{"Board Games", "Bring your own JAZZ records", "Social", 24 * time.Hour},
		{"Morning Run", "5k loop", "Sports", 48 * time.Hour},
		{"Open Mic", "Anything goes", "Music", 96 * time.Hour},
		{"Starts Right Now", "Edge of the window", "Other", 0},
	} {
		e := &model.Event{
			HostID: host.ID, Title: ev.title, Description: ev.desc,
			EventDate: testNow.Add(ev.in), LocationName: "Park",
			Category: ev.category, Capacity: 5,
		}
		require.NoError(t, db.CreateEvent(context.Background(), e))
	}
	return host.ID
}

func titles(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func TestListEvents_FutureOnlyAscending(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db)

	events, total, err := db.ListEvents(context.Background(), repository.EventQuery{
		Now: testNow, Limit: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, total)
	assert.Equal(t, []string{
		"Starts Right Now", "Board Games", "Morning Run", "Jazz Brunch", "Open Mic",
	}, titles(events))

	for i, e := range events {
		assert.False(t, e.EventDate.Before(testNow), "past event %q surfaced", e.Title)
		if i > 0 {
			assert.False(t, e.EventDate.Before(events[i-1].EventDate), "not ascending at %d", i)
		}
	}
}

func TestListEvents_Filters(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db)

	tests := []struct {
		name     string
		search   string
		category string
		want     []string
	}{
		{"no filter", "", "", []string{"Starts Right Now", "Board Games", "Morning Run", "Jazz Brunch", "Open Mic"}},
		{"search matches title and description case-insensitively", "jazz", "", []string{"Board Games", "Jazz Brunch"}},
		{"search matches category", "SPORT", "", []string{"Morning Run"}},
		{"category is exact", "", "Music", []string{"Open Mic"}},
		{"category is case-sensitive", "", "music", []string{}},
		{"search and category combine", "jazz", "Food", []string{"Jazz Brunch"}},
		{"no match", "opera", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := db.ListEvents(context.Background(), repository.EventQuery{
				Now: testNow, Search: tt.search, Category: tt.category, Limit: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(events))
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestListEvents_SearchFoldsUnicode(t *testing.T) {
	db := newTestDB(t)
	host := createTestUser(t, db, "host@example.com", "Host")
	createTestEvent(t, db, host.ID, "Über Party", testNow.Add(time.Hour), 10)
	createTestEvent(t, db, host.ID, "Straße Fest", testNow.Add(2*time.Hour), 10)
	createTestEvent(t, db, host.ID, "ÉCOLE Open Day", testNow.Add(3*time.Hour), 10)

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"upper-case umlaut", "ÜBER", []string{"Über Party"}},
		{"title case umlaut", "Über", []string{"Über Party"}},
		{"lower-case umlaut", "über", []string{"Über Party"}},
		{"ascii part", "party", []string{"Über Party"}},
		{"sharp s folds to ss", "STRASSE", []string{"Straße Fest"}},
		{"accented capital", "école", []string{"ÉCOLE Open Day"}},
		{"umlaut is not its base letter", "uber", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := db.ListEvents(context.Background(), repository.EventQuery{
				Now: testNow, Search: tt.search, Limit: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(events))
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestListEvents_Pagination(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db)
	ctx := context.Background()

	page1, total1, err := db.ListEvents(ctx, repository.EventQuery{Now: testNow, Limit: 2, Offset: 0})
	require.NoError(t, err)
	page2, total2, err := db.ListEvents(ctx, repository.EventQuery{Now: testNow, Limit: 2, Offset: 2})
	require.NoError(t, err)
	page3, _, err := db.ListEvents(ctx, repository.EventQuery{Now: testNow, Limit: 2, Offset: 4})
	require.NoError(t, err)

	assert.Equal(t, 5, total1, "total is the filtered set, not the window")
	assert.Equal(t, 5, total2)
	assert.Equal(t, []string{"Starts Right Now", "Board Games"}, titles(page1))
	assert.Equal(t, []string{"Morning Run", "Jazz Brunch"}, titles(page2))
	assert.Equal(t, []string{"Open Mic"}, titles(page3))
}

func TestListEvents_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)

	events, total, err := db.ListEvents(context.Background(), repository.EventQuery{Now: testNow, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Zero(t, total)
}

// =========================================================================
// MY EVENTS
// =========================================================================

func TestListHostingAndAttending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "u@example.com", "U")
	other := createTestUser(t, db, "o@example.com", "Other")

	a := createTestEvent(t, db, u.ID, "A", testNow.Add(48*time.Hour), 10)
	b := createTestEvent(t, db, other.ID, "B", testNow.Add(24*time.Hour), 10)
	oldHosted := createTestEvent(t, db, u.ID, "Old", testNow.Add(-time.Hour), 10)

	_, err := db.Register(ctx, b.ID, u.ID)
	require.NoError(t, err)
	_, err = db.Register(ctx, oldHosted.ID, u.ID)
	require.NoError(t, err)

	hosting, err := db.ListHosting(ctx, u.ID, testNow)
	require.NoError(t, err)
	attending, err := db.ListAttending(ctx, u.ID, testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, titles(hosting))
	assert.Equal(t, []string{"B"}, titles(attending))

	// Registering for your own event puts it in both lists.
	_, err = db.Register(ctx, a.ID, u.ID)
	require.NoError(t, err)

	hosting, err = db.ListHosting(ctx, u.ID, testNow)
	require.NoError(t, err)
	attending, err = db.ListAttending(ctx, u.ID, testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, titles(hosting))
	assert.Equal(t, []string{"B", "A"}, titles(attending))
}

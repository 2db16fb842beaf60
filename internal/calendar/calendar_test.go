package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_InsertOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/calendars/primary/events", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var ev Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))

		switch ev.ID {
		case "taken":
			http.Error(w, `{"error":{"code":409}}`, http.StatusConflict)
		case "boom":
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "tok", 0)
	ctx := context.Background()

	assert.NoError(t, c.Insert(ctx, Event{ID: "fresh", Summary: "Burnable"}))

	err := c.Insert(ctx, Event{ID: "taken"})
	assert.True(t, errors.Is(err, ErrConflict), "409 must map to ErrConflict, got %v", err)

	err = c.Insert(ctx, Event{ID: "boom"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestClient_GetAndUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/calendars/primary/events/known":
			json.NewEncoder(w).Encode(Event{ID: "known", Status: StatusCancelled, Summary: "old"})
		case r.Method == http.MethodGet:
			http.NotFound(w, r)
		case r.Method == http.MethodPut && r.URL.Path == "/calendars/primary/events/known":
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "tok", 0)
	ctx := context.Background()

	ev, err := c.Get(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, ev.Status)

	_, err = c.Get(ctx, "unknown")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, c.Update(ctx, "known", Event{ID: "known", Status: StatusConfirmed}))
}

func TestTokenSource_Refresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))

		switch r.Form.Get("refresh_token") {
		case "good":
			json.NewEncoder(w).Encode(map[string]any{"access_token": "short-lived", "expires_in": 3599})
		case "revoked":
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "client-id", "client-secret", 0)
	ctx := context.Background()

	tok, err := ts.Refresh(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "short-lived", tok)

	_, err = ts.Refresh(ctx, "revoked")
	assert.True(t, errors.Is(err, ErrInvalidGrant), "invalid_grant must map to ErrInvalidGrant, got %v", err)

	_, err = ts.Refresh(ctx, "other")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidGrant))
}

func TestDecorateTitle(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"もやすごみ", "🔥 もやすごみ"},
		{"Non-burnable waste", "🗑️ Non-burnable waste"}, // specific rule wins over "burnable"
		{"PET Bottles", "🍼 PET Bottles"},               // specific rule wins over "bottles"
		{"段ボール", "📦 段ボール"},
		{"Mystery pile", "Mystery pile"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DecorateTitle(tc.title), "title %q", tc.title)
	}
}

// Package calendar implements the external calendar collaborator: a
// Google Calendar v3-style REST client plus the OAuth token exchange.
//
// The sync engine only depends on three outcomes — ok, conflict ("an
// object already exists at that key"), not-found — and on the API's
// "reactivatable but not re-creatable" semantics for cancelled events:
// an event ID that was ever used stays reserved even after the user
// deletes the event, so re-registration must update the cancelled
// object back to confirmed instead of inserting.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Event status values used by the external API.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

var (
	// ErrConflict is the API's "already exists" signal (HTTP 409).
	ErrConflict = errors.New("calendar: event already exists")
	// ErrNotFound is returned by Get for an unknown event ID.
	ErrNotFound = errors.New("calendar: event not found")
)

// EventDate is the all-day date wrapper used by the wire format.
type EventDate struct {
	Date string `json:"date"`
}

// ReminderOverride is a single reminder configuration entry.
type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// Reminders configures event notifications.
type Reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides,omitempty"`
}

// Event is the wire representation of a calendar event.
type Event struct {
	ID          string     `json:"id,omitempty"`
	Status      string     `json:"status,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       *EventDate `json:"start,omitempty"`
	End         *EventDate `json:"end,omitempty"`
	Reminders   *Reminders `json:"reminders,omitempty"`
}

// Client is a per-run calendar API client bound to one access token.
// Runs never share clients; each run constructs its own from the token
// obtained during credential refresh.
type Client struct {
	baseURL    string
	calendarID string
	token      string
	client     *http.Client
}

// NewClient builds a client for one calendar. baseURL may be empty for
// the production endpoint; tests point it at a local server.
func NewClient(baseURL, calendarID, accessToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		calendarID: calendarID,
		token:      accessToken,
		client:     &http.Client{Timeout: timeout},
	}
}

// Insert creates an event under its caller-chosen ID. Returns
// ErrConflict when the ID is already in use.
func (c *Client) Insert(ctx context.Context, ev Event) error {
	url := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, c.calendarID)
	resp, err := c.do(ctx, http.MethodPost, url, &ev)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, ev.ID)
	default:
		return apiError("insert", resp)
	}
}

// Get fetches the event stored at the given ID, including its status.
func (c *Client) Get(ctx context.Context, eventID string) (Event, error) {
	url := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, c.calendarID, eventID)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Event{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var ev Event
		if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
			return Event{}, fmt.Errorf("calendar get %s: %w", eventID, err)
		}
		return ev, nil
	case http.StatusNotFound, http.StatusGone:
		return Event{}, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	default:
		return Event{}, apiError("get", resp)
	}
}

// Update replaces the event stored at the given ID. Used to reactivate
// cancelled objects, which the API forbids re-creating under the same ID.
func (c *Client) Update(ctx context.Context, eventID string, ev Event) error {
	url := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, c.calendarID, eventID)
	resp, err := c.do(ctx, http.MethodPut, url, &ev)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	default:
		return apiError("update", resp)
	}
}

func (c *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("calendar %s: %s: %s", op, resp.Status, strings.TrimSpace(string(body)))
}

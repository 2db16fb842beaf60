package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gomical/internal/model"
)

// The extraction cache is content-addressed: a byte-identical document
// extracted under the same (language, mode) configuration is assumed to
// produce the same result every time, so entries live forever and a hit
// skips the oracle entirely.

// cacheKey builds the fully qualified cache key.
func cacheKey(hash, language, mode string) string {
	return hash + ":" + language + ":" + mode
}

// LookupParse returns the cached extraction for (hash, language, mode).
//
// Rows written before the language/mode dimensions existed are keyed by
// the bare document hash, so a miss on the qualified key probes that
// legacy key before reporting absent. Persistence failures are returned
// as errors, never silently treated as a miss.
func (s *Store) LookupParse(ctx context.Context, hash, language, mode string) (model.ParseResult, bool, error) {
	res, ok, err := s.lookupParseKey(ctx, cacheKey(hash, language, mode))
	if err != nil || ok {
		return res, ok, err
	}
	// Legacy unsuffixed entries predate the (language, mode) key schema.
	return s.lookupParseKey(ctx, hash)
}

func (s *Store) lookupParseKey(ctx context.Context, key string) (model.ParseResult, bool, error) {
	const q = `
SELECT doc_title, events_json FROM parsed_documents WHERE cache_key = ?;
`
	var (
		title      string
		eventsJSON string
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&title, &eventsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ParseResult{}, false, nil
	}
	if err != nil {
		return model.ParseResult{}, false, fmt.Errorf("parse cache lookup: %w", err)
	}

	var events []model.CalendarEvent
	if err := json.Unmarshal([]byte(eventsJSON), &events); err != nil {
		// A corrupt entry is an error, not a miss: silently re-extracting
		// would mask the corruption and last-write-wins the bad row away.
		return model.ParseResult{}, false, fmt.Errorf("parse cache entry corrupt (key %s): %w", key, err)
	}

	return model.ParseResult{Title: title, Events: events}, true, nil
}

// StoreParse upserts the extraction result for (hash, language, mode).
// Last write wins if called twice with the same key.
func (s *Store) StoreParse(ctx context.Context, hash, language, mode string, result model.ParseResult) error {
	eventsJSON, err := json.Marshal(result.Events)
	if err != nil {
		return fmt.Errorf("parse cache store: %w", err)
	}

	const q = `
INSERT INTO parsed_documents (cache_key, document_hash, language, mode, doc_title, events_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET
    doc_title = excluded.doc_title,
    events_json = excluded.events_json;
`
	_, err = s.db.ExecContext(ctx, q,
		cacheKey(hash, language, mode), hash, language, mode,
		result.Title, string(eventsJSON), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("parse cache store: %w", err)
	}
	return nil
}

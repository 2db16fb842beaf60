// Package extract turns a PDF into structured calendar events via an
// external text-extraction oracle.
//
// The oracle's output is duck-typed JSON; this package is the strict
// validation boundary. Records missing a date or title after trimming
// are dropped here with a warning and never reach the sync engine.
package extract

import (
	"context"
	"strings"

	appLog "gomical/internal/log"
	"gomical/internal/model"
)

// Extraction modes.
const (
	ModeGarbage = "garbage"
	ModeGeneral = "general"
)

// Extractor is the oracle contract: PDF bytes in, structured events out.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte, language, mode string) (model.ParseResult, error)
}

// rawEvent mirrors the oracle's loose response shape. Older prompts
// emitted garbage_type instead of title.
type rawEvent struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	GarbageType string `json:"garbage_type"`
	Description string `json:"description"`
}

// normalize converts raw oracle records into CalendarEvents, dropping
// invalid ones. Titles keep their original text apart from trimming;
// an empty description stays empty ("not provided").
func normalize(raw []rawEvent) []model.CalendarEvent {
	events := make([]model.CalendarEvent, 0, len(raw))
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = strings.TrimSpace(r.GarbageType)
		}
		date := strings.TrimSpace(r.Date)

		if date == "" || title == "" {
			appLog.Warn("dropping extracted event with empty field", "date", date, "title", title)
			continue
		}

		events = append(events, model.CalendarEvent{
			Date:        date,
			Title:       title,
			Description: strings.TrimSpace(r.Description),
		})
	}
	return events
}

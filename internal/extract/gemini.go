package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "gomical/internal/log"
	"gomical/internal/model"
)

// garbagePrompt extracts municipal waste-collection calendars. The
// oracle must return a bare JSON array; entries with an empty title are
// excluded at the source, and again by our normalization boundary.
const garbagePrompt = `You are a data extraction assistant for municipal waste-collection calendars.
The attached PDF is a collection schedule distributed by a municipality.

Rules:
- Extract EVERY collection day in the document, including weekday-fixed pickups.
- Return titles exactly as printed in the PDF (abbreviations and symbols included), %s.
- Never emit an entry with an empty title; omit such entries entirely.
- date must be ISO 8601 (YYYY-MM-DD). Infer missing years from nearby cells.
- If one date has several collection types, emit one object per type.
- Set description only when the PDF lists item details for that type; otherwise use "".

Return ONLY a JSON array:
[
  { "date": "YYYY-MM-DD", "title": "collection type", "description": "item details" }
]`

// generalPrompt extracts arbitrary dated entries from a document.
const generalPrompt = `You are a data extraction assistant.
Extract every date and its entry title from the attached PDF, %s.

Rules:
- date must be ISO 8601 (YYYY-MM-DD); infer missing years from context.
- Return titles exactly as printed.
- If one date has several entries, emit one object per entry.

Return ONLY a JSON array:
[
  { "date": "YYYY-MM-DD", "title": "entry title" }
]`

// GeminiClient calls a generateContent-style REST endpoint with the PDF
// attached inline.
type GeminiClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewGeminiClient builds an oracle client. endpoint is the API base URL
// (overridable for tests); timeout bounds a single call.
func NewGeminiClient(endpoint, apiKey, modelName string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    modelName,
		client:   &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"response_mime_type"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract sends the PDF to the oracle and returns normalized events.
func (g *GeminiClient) Extract(ctx context.Context, pdf []byte, language, mode string) (model.ParseResult, error) {
	if len(pdf) == 0 {
		return model.ParseResult{}, errors.New("empty PDF body")
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: promptFor(mode, language)},
				{InlineData: &inlineData{
					MimeType: "application/pdf",
					Data:     base64.StdEncoding.EncodeToString(pdf),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return model.ParseResult{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.ParseResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	appLog.Info("extraction start", "model", g.model, "mode", mode, "language", language, "pdf_bytes", len(pdf))

	resp, err := g.client.Do(req)
	if err != nil {
		return model.ParseResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.ParseResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return model.ParseResult{}, fmt.Errorf("oracle returned %s: %s", resp.Status, truncate(string(body), 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return model.ParseResult{}, fmt.Errorf("oracle response unparseable: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return model.ParseResult{}, errors.New("oracle returned no candidates")
	}

	text := gr.Candidates[0].Content.Parts[0].Text
	raw, err := decodeEventArray(text)
	if err != nil {
		return model.ParseResult{}, err
	}

	events := normalize(raw)
	appLog.Info("extraction completed", "raw_count", len(raw), "event_count", len(events))

	return model.ParseResult{Events: events}, nil
}

func promptFor(mode, language string) string {
	titleLang := "in the document's original language"
	switch language {
	case "ja":
		titleLang = "in the original Japanese"
	case "en":
		titleLang = "in the original English"
	}
	switch mode {
	case ModeGeneral:
		return fmt.Sprintf(generalPrompt, titleLang)
	default:
		return fmt.Sprintf(garbagePrompt, titleLang)
	}
}

// decodeEventArray extracts the first JSON array from the oracle's text
// output. Models occasionally wrap the array in prose or code fences.
func decodeEventArray(text string) ([]rawEvent, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("oracle returned unexpected format: %s", truncate(text, 200))
	}

	var raw []rawEvent
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("oracle JSON unparseable: %w", err)
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

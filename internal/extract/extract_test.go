package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_DropsInvalidRecords(t *testing.T) {
	raw := []rawEvent{
		{Date: "2026-04-01", Title: "Burnable"},
		{Date: "", Title: "No date"},
		{Date: "2026-04-02", Title: "   "},
		{Date: "  2026-04-03 ", Title: " Plastic ", Description: " trays "},
		{Date: "2026-04-04", GarbageType: "Cans"}, // legacy field name
	}

	events := normalize(raw)
	require.Len(t, events, 3)

	assert.Equal(t, "Burnable", events[0].Title)
	assert.Equal(t, "2026-04-03", events[1].Date)
	assert.Equal(t, "Plastic", events[1].Title)
	assert.Equal(t, "trays", events[1].Description)
	assert.Equal(t, "Cans", events[2].Title)
}

func TestNormalize_EmptyDescriptionStaysEmpty(t *testing.T) {
	events := normalize([]rawEvent{{Date: "2026-04-01", Title: "Burnable", Description: "  "}})
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Description, `trimmed-empty description must mean "not provided"`)
}

func TestDecodeEventArray_ToleratesWrapping(t *testing.T) {
	text := "Here is the schedule:\n```json\n[{\"date\":\"2026-04-01\",\"title\":\"Burnable\"}]\n```"
	raw, err := decodeEventArray(text)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "Burnable", raw[0].Title)
}

func TestDecodeEventArray_RejectsNonArray(t *testing.T) {
	_, err := decodeEventArray("I could not read the document.")
	assert.Error(t, err)
}

func oracleResponse(t *testing.T, eventsJSON string) []byte {
	t.Helper()
	resp := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": eventsJSON}},
			},
		}},
	}
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return b
}

func TestGeminiClient_Extract(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.NotEmpty(t, req.Contents[0].Parts[0].Text)
		assert.Equal(t, "application/pdf", req.Contents[0].Parts[1].InlineData.MimeType)

		w.Write(oracleResponse(t,
			`[{"date":"2026-04-01","title":"もやすごみ"},{"date":"","title":"broken"}]`))
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "test-model", 0)
	res, err := c.Extract(context.Background(), []byte("%PDF fake"), "ja", ModeGarbage)
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/test-model:generateContent", gotPath)
	require.Len(t, res.Events, 1, "invalid record must be dropped at the boundary")
	assert.Equal(t, "もやすごみ", res.Events[0].Title)
}

func TestGeminiClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "k", "m", 0)
	_, err := c.Extract(context.Background(), []byte("pdf"), "en", ModeGeneral)
	assert.Error(t, err)
}

func TestGeminiClient_EmptyPDF(t *testing.T) {
	c := NewGeminiClient("http://unused", "k", "m", 0)
	_, err := c.Extract(context.Background(), nil, "ja", ModeGarbage)
	assert.Error(t, err)
}

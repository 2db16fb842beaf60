package eventid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const keyAlphabet = "0123456789abcdefghijklmnopqrstuv"

func TestComputeKey_Deterministic(t *testing.T) {
	a := ComputeKey("2026-04-01", "もやすごみ")
	b := ComputeKey("2026-04-01", "もやすごみ")
	assert.Equal(t, a, b, "same inputs must yield the same key")
}

func TestComputeKey_DistinctInputs(t *testing.T) {
	keys := map[string]string{}
	pairs := [][2]string{
		{"2026-04-01", "Burnable"},
		{"2026-04-08", "Burnable"},
		{"2026-04-01", "Non-burnable"},
		{"2026-04-01", "burnable"}, // case matters; title is original text
		{"2026-04-0", "1Burnable"}, // boundary shift must not collide
	}
	for _, p := range pairs {
		k := ComputeKey(p[0], p[1])
		prev, dup := keys[k]
		assert.False(t, dup, "key collision between %v and %s", p, prev)
		keys[k] = p[0] + "/" + p[1]
	}
}

func TestComputeKey_LengthAndAlphabet(t *testing.T) {
	titles := []string{
		"Burnable",
		"もやすごみ",
		"缶・びん・ペットボトル",
		"🔥 emoji in source text",
		strings.Repeat("long", 500),
		" ",
	}
	for _, title := range titles {
		k := ComputeKey("2026-12-31", title)
		assert.Len(t, k, KeyLength, "title %q", title)
		for _, r := range k {
			assert.Contains(t, keyAlphabet, string(r), "illegal symbol %q in key for title %q", r, title)
		}
	}
}

func TestComputeKey_IgnoresDecoration(t *testing.T) {
	// Keys are computed from the undecorated title; a decorated variant
	// is a different logical identity and must not map to the same key.
	plain := ComputeKey("2026-04-01", "Burnable")
	decorated := ComputeKey("2026-04-01", "🔥 Burnable")
	assert.NotEqual(t, plain, decorated)
}

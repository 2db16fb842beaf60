// Package eventid derives deterministic external calendar event IDs from
// an event's logical identity (date + title).
//
// The target API (Google Calendar v3) requires event IDs of 5-1024
// characters drawn from the base32hex alphabet (RFC 4648: a-v, 0-9) and
// globally unique per calendar. Hashing the logical identity means a
// re-run over the same document always produces the same ID, so a
// duplicate insert surfaces as "already exists" instead of creating a
// second entry. That property is the entire basis of idempotent sync.
package eventid

import (
	"crypto/sha256"
	"encoding/base32"
)

// separator joins date and title before hashing. Dates are fixed-format
// YYYY-MM-DD and can never contain "::", so the concatenation is
// unambiguous.
const separator = "::"

// base32hex lowercase, the character set Calendar accepts for event IDs.
var encoding = base32.NewEncoding("0123456789abcdefghijklmnopqrstuv").WithPadding(base32.NoPadding)

// KeyLength is the length of every key returned by ComputeKey:
// 25 digest bytes * 8 bits / 5 bits per symbol.
const KeyLength = 40

// ComputeKey maps a logical event identity to its external calendar ID.
// Pure function: same (date, title) always yields the same key,
// independent of process, time, or locale. Title must be the undecorated
// extracted text, not the display-decorated form.
func ComputeKey(date, title string) string {
	sum := sha256.Sum256([]byte(date + separator + title))
	return encoding.EncodeToString(sum[:25])
}

package history

import "time"

// RetentionWindow is how long a history entry is kept.
const RetentionWindow = 30 * 24 * time.Hour

// Entry records that a script was the correct answer of a quiz.
// A script may have several entries, one per quiz.
type Entry struct {
	ScriptID string
	UsedAt   time.Time
}

// New creates an entry for scriptID used at the given time.
func New(scriptID string, usedAt time.Time) Entry {
	return Entry{ScriptID: scriptID, UsedAt: usedAt}
}

// Prune returns the entries strictly newer than now - RetentionWindow,
// in their original order. The input slice is not modified.
func Prune(entries []Entry, now time.Time) []Entry {
	cutoff := now.Add(-RetentionWindow)

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.UsedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}

// UsedSince reports whether any entry for scriptID is strictly newer than since.
func UsedSince(entries []Entry, scriptID string, since time.Time) bool {
	for _, e := range entries {
		if e.ScriptID == scriptID && e.UsedAt.After(since) {
			return true
		}
	}
	return false
}

package models

// StatEntry marks a calendar day on which at least one revision was completed.
// The log keeps one entry per day, so it records days with activity rather
// than the number of revisions.
type StatEntry struct {
	Date string `json:"date" db:"date"`
}

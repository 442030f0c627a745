package models

// Topic is a single unit of study scheduled for spaced revision.
// Dates are ISO calendar dates (YYYY-MM-DD).
type Topic struct {
	ID               int64  `json:"id" db:"id"`
	SubjectID        int64  `json:"-" db:"subject_id"`
	Name             string `json:"name" db:"name"`
	LastRevised      string `json:"lastRevised" db:"last_revised"`
	RevisionLevel    int    `json:"revisionLevel" db:"revision_level"`
	NextRevisionDate string `json:"nextRevisionDate" db:"next_revision_date"`
	IsComplete       bool   `json:"isComplete" db:"is_complete"`
}

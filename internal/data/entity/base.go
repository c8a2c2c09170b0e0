package entity

import (
	"time"
)

// Timestamps is embedded by documents that track edits. UpdatedAt stays nil
// until the first edit.
type Timestamps struct {
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" bson:"updated_at"`
}

// Edited reports whether the document left its created state.
func (t Timestamps) Edited() bool {
	return t.UpdatedAt != nil
}

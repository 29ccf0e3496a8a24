package repository

import (
	"encoding/json"
	"time"
)

// Checkpoint is one immutable snapshot of a claim record, written after a
// pipeline stage completed.
type Checkpoint struct {
	ID        string
	ClaimID   string
	RunID     string
	Stage     string
	Decision  string // "" while the run has not decided
	Record    json.RawMessage
	CreatedAt time.Time
}

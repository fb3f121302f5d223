package domain

import (
	"encoding/json"
	"time"
)

// EpisodicEntry is one raw message/emotion event in the bounded episodic log.
// Seq is assigned on append and strictly increases across the log's lifetime.
type EpisodicEntry struct {
	Seq       uint64    `json:"seq"`
	Message   string    `json:"message"`
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
}

// SemanticEntry is a keyed record in semantic memory. Rewrites overwrite.
type SemanticEntry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// MissingNode records a reference that could not be resolved.
type MissingNode struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

package domain

import "time"

// BuildInfo is the incremental build record of one destination.
type BuildInfo struct {
	Destination string    `json:"destination,omitzero"`
	InputHash   string    `json:"input_hash,omitzero"`
	OutputHash  string    `json:"output_hash,omitzero"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	// Inputs are the extra files the last run read, fed back into the next input hash.
	Inputs []string `json:"inputs,omitempty"`
	// Outputs are every file the last run wrote.
	Outputs []string `json:"outputs,omitempty"`
}

package domain

import "time"

// Experiment is a served HTML artifact in the catalog.
// The slug is the only externally addressable identifier; FilePath is reduced
// to its basename before serving so it can never escape the artifact root.
type Experiment struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FilePath    string    `json:"file_path,omitempty"` // Relative locator inside the artifact root
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}

// Grant links one user to one experiment.
// Presence of a row is the sole meaning of explicit access; at most one grant
// exists per (user, experiment) pair.
type Grant struct {
	UserID       string    `json:"user_id"`
	ExperimentID string    `json:"experiment_id"`
	CreatedAt    time.Time `json:"created_at"`
}

package models

import "time"

// SavedQuery represents a named query kept for reuse across runs
type SavedQuery struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Query       string    `yaml:"query"`
	Tags        []string  `yaml:"tags,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
	LastUsed    time.Time `yaml:"last_used,omitempty"`
	UsageCount  int       `yaml:"usage_count"`
}

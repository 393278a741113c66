package queries

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rowanharker/tabgrid/internal/models"
	"gopkg.in/yaml.v3"
)

// Manager manages saved queries
type Manager struct {
	path    string
	queries []models.SavedQuery
}

// NewManager creates a new saved-query manager
func NewManager(configDir string) (*Manager, error) {
	path := filepath.Join(configDir, "queries.yaml")

	m := &Manager{
		path:    path,
		queries: []models.SavedQuery{},
	}

	// Load existing queries if file exists
	if _, err := os.Stat(path); err == nil {
		if err := m.Load(); err != nil {
			return nil, fmt.Errorf("failed to load saved queries: %w", err)
		}
	}

	return m, nil
}

// Load loads saved queries from the YAML file
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read saved queries file: %w", err)
	}

	if err := yaml.Unmarshal(data, &m.queries); err != nil {
		return fmt.Errorf("failed to parse saved queries: %w", err)
	}

	return nil
}

// Save saves queries to the YAML file
func (m *Manager) Save() error {
	data, err := yaml.Marshal(m.queries)
	if err != nil {
		return fmt.Errorf("failed to marshal saved queries: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write saved queries file: %w", err)
	}

	return nil
}

// Add adds a new saved query
func (m *Manager) Add(name, description, query string, tags []string) (*models.SavedQuery, error) {
	name = strings.TrimSpace(name)
	query = strings.TrimSpace(query)

	if name == "" {
		return nil, fmt.Errorf("query name cannot be empty")
	}
	if query == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	// Names are unique, case-insensitively
	for _, sq := range m.queries {
		if strings.EqualFold(sq.Name, name) {
			return nil, fmt.Errorf("a saved query named '%s' already exists", name)
		}
	}

	saved := models.SavedQuery{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Query:       query,
		Tags:        tags,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	m.queries = append(m.queries, saved)

	if err := m.Save(); err != nil {
		return nil, fmt.Errorf("failed to save query: %w", err)
	}

	return &saved, nil
}

// Update updates an existing saved query
func (m *Manager) Update(id string, name, description, query string, tags []string) error {
	name = strings.TrimSpace(name)
	query = strings.TrimSpace(query)

	if name == "" {
		return fmt.Errorf("query name cannot be empty")
	}
	if query == "" {
		return fmt.Errorf("query text cannot be empty")
	}

	for _, sq := range m.queries {
		if sq.ID != id && strings.EqualFold(sq.Name, name) {
			return fmt.Errorf("a saved query named '%s' already exists", name)
		}
	}

	for i, sq := range m.queries {
		if sq.ID == id {
			m.queries[i].Name = name
			m.queries[i].Description = strings.TrimSpace(description)
			m.queries[i].Query = query
			m.queries[i].Tags = tags
			m.queries[i].UpdatedAt = time.Now()
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save query: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("saved query with ID '%s' was not found", id)
}

// Delete deletes a saved query by ID
func (m *Manager) Delete(id string) error {
	for i, sq := range m.queries {
		if sq.ID == id {
			m.queries = append(m.queries[:i], m.queries[i+1:]...)
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save queries after deletion: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("saved query with ID '%s' was not found", id)
}

// Get returns a saved query by ID
func (m *Manager) Get(id string) (*models.SavedQuery, error) {
	for _, sq := range m.queries {
		if sq.ID == id {
			return &sq, nil
		}
	}
	return nil, fmt.Errorf("saved query with ID '%s' was not found", id)
}

// GetByName returns a saved query by its case-insensitive name
func (m *Manager) GetByName(name string) (*models.SavedQuery, error) {
	for _, sq := range m.queries {
		if strings.EqualFold(sq.Name, name) {
			return &sq, nil
		}
	}
	return nil, fmt.Errorf("saved query named '%s' was not found", name)
}

// GetAll returns all saved queries
func (m *Manager) GetAll() []models.SavedQuery {
	return m.queries
}

// Search searches saved queries by name, description, or tags
func (m *Manager) Search(query string) []models.SavedQuery {
	if query == "" {
		return m.queries
	}

	query = strings.ToLower(query)
	var results []models.SavedQuery

	for _, sq := range m.queries {
		if strings.Contains(strings.ToLower(sq.Name), query) {
			results = append(results, sq)
			continue
		}

		if strings.Contains(strings.ToLower(sq.Description), query) {
			results = append(results, sq)
			continue
		}

		for _, tag := range sq.Tags {
			if strings.Contains(strings.ToLower(tag), query) {
				results = append(results, sq)
				break
			}
		}
	}

	return results
}

// RecordUsage updates usage statistics for a saved query
func (m *Manager) RecordUsage(id string) error {
	for i, sq := range m.queries {
		if sq.ID == id {
			m.queries[i].UsageCount++
			m.queries[i].LastUsed = time.Now()
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save usage statistics: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("saved query with ID '%s' was not found", id)
}

// GetRecent returns the most recently used saved queries
func (m *Manager) GetRecent(limit int) []models.SavedQuery {
	sorted := make([]models.SavedQuery, len(m.queries))
	copy(sorted, m.queries)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastUsed.After(sorted[j].LastUsed)
	})

	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	return sorted
}

package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rowanharker/tabgrid/internal/models"
)

// Manager owns the database connections and tells interested parties when
// one goes away, so connection-derived caches can be dropped with it.
type Manager struct {
	mu           sync.RWMutex
	poolSize     int
	connections  map[string]*Connection
	active       string
	onDisconnect []func()
}

// Connection wraps a pool with metadata
type Connection struct {
	ID          string
	Config      models.ConnectionConfig
	Pool        *Pool
	ConnectedAt time.Time
}

// NewManager creates a connection manager; poolSize bounds each connection's
// pool, 0 for the default
func NewManager(poolSize int) *Manager {
	return &Manager{
		poolSize:    poolSize,
		connections: make(map[string]*Connection),
	}
}

// OnDisconnect registers a callback invoked after any connection is closed
func (m *Manager) OnDisconnect(fn func()) {
	m.mu.Lock()
	m.onDisconnect = append(m.onDisconnect, fn)
	m.mu.Unlock()
}

// Connect establishes a new connection and makes it active
func (m *Manager) Connect(ctx context.Context, config models.ConnectionConfig) (string, error) {
	id := generateConnectionID(config)

	pool, err := NewPool(ctx, config, m.poolSize)
	if err != nil {
		return id, err
	}

	m.mu.Lock()
	m.connections[id] = &Connection{
		ID:          id,
		Config:      config,
		Pool:        pool,
		ConnectedAt: time.Now(),
	}
	m.active = id
	m.mu.Unlock()

	return id, nil
}

// Disconnect closes a connection and notifies the disconnect callbacks
func (m *Manager) Disconnect(id string) error {
	m.mu.Lock()
	conn, ok := m.connections[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("connection %s not found", id)
	}

	delete(m.connections, id)
	if m.active == id {
		m.active = ""
	}
	callbacks := make([]func(), len(m.onDisconnect))
	copy(callbacks, m.onDisconnect)
	m.mu.Unlock()

	if conn.Pool != nil {
		conn.Pool.Close()
	}
	for _, fn := range callbacks {
		fn()
	}

	return nil
}

// GetActive returns the active connection
func (m *Manager) GetActive() (*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == "" {
		return nil, fmt.Errorf("no active connection")
	}

	conn, ok := m.connections[m.active]
	if !ok {
		return nil, fmt.Errorf("active connection not found")
	}

	return conn, nil
}

// generateConnectionID creates a unique connection ID
func generateConnectionID(config models.ConnectionConfig) string {
	if config.Name != "" {
		return config.Name
	}
	return fmt.Sprintf("%s@%s:%d/%s", config.User, config.Host, config.Port, config.Database)
}

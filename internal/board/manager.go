package board

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrUnknownBoard is returned for a board code that is not registered.
	ErrUnknownBoard = errors.New("unknown board")

	// ErrDuplicateBoard is returned when a board code is registered twice.
	ErrDuplicateBoard = errors.New("board already registered")
)

// Manager holds the boards of a session.
type Manager struct {
	mu     sync.RWMutex
	boards map[string]*Board
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{boards: make(map[string]*Board)}
}

// Add registers b under its code.
func (m *Manager) Add(b *Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[b.Code()]; ok {
		return ErrDuplicateBoard
	}
	m.boards[b.Code()] = b
	return nil
}

// Get returns the board registered under code.
func (m *Manager) Get(code string) (*Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.boards[code]
	if !ok {
		return nil, ErrUnknownBoard
	}
	return b, nil
}

// List returns the boards ordered by code.
func (m *Manager) List() []*Board {
	m.mu.RLock()
	list := make([]*Board, 0, len(m.boards))
	for _, b := range m.boards {
		list = append(list, b)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Code() < list[j].Code() })
	return list
}

// StartAll starts every board with its configured delay.
func (m *Manager) StartAll(ctx context.Context) {
	for _, b := range m.List() {
		b.StartDefault(ctx)
	}
}

// StopAll stops every board.
func (m *Manager) StopAll() {
	for _, b := range m.List() {
		b.Stop()
	}
}

// RunOnce crawls every board once, one after the other.
func (m *Manager) RunOnce(ctx context.Context) {
	for _, b := range m.List() {
		if ctx.Err() != nil {
			return
		}
		b.RunOnce(ctx)
	}
}

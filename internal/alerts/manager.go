package alerts

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"StockLens/internal/model"
)

// Manager remembers the last announced signal date per symbol so each signal
// bar is alerted once, across restarts.
type Manager struct {
	mu       sync.Mutex
	state    *model.AlertState
	filePath string
}

// NewManager creates a Manager, loading state from disk when present.
func NewManager(filePath string) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load alert state: %w", err)
	}
	return &Manager{state: state, filePath: filePath}, nil
}

func (m *Manager) bucket(kind model.SignalKind) map[string]time.Time {
	if kind == model.SignalSell {
		return m.state.LastSell
	}
	return m.state.LastBuy
}

// ShouldAlert reports whether a kind signal on date is new for symbol and,
// if so, records it. A date at or before the last alerted one is stale.
func (m *Manager) ShouldAlert(symbol string, kind model.SignalKind, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbol = strings.ToUpper(symbol)
	date = model.DayOf(date)
	b := m.bucket(kind)
	if last, ok := b[symbol]; ok && !date.After(last) {
		return false, nil
	}

	prev, had := b[symbol]
	b[symbol] = date
	if err := SaveState(m.filePath, m.state); err != nil {
		if had {
			b[symbol] = prev
		} else {
			delete(b, symbol)
		}
		return false, fmt.Errorf("save alert state: %w", err)
	}
	return true, nil
}

// LastAlert returns the last alerted date for symbol and kind.
func (m *Manager) LastAlert(symbol string, kind model.SignalKind) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.bucket(kind)[strings.ToUpper(symbol)]
	return t, ok
}

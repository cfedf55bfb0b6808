package alerts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"StockLens/internal/model"
)

// LoadState reads the alert state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.AlertState, error) {
	state := &model.AlertState{}
	data, err := os.ReadFile(filePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, state); err != nil {
			return nil, err
		}
	}
	if state.LastBuy == nil {
		state.LastBuy = map[string]time.Time{}
	}
	if state.LastSell == nil {
		state.LastSell = map[string]time.Time{}
	}
	return state, nil
}

// SaveState writes the alert state to a JSON file, creating its directory.
func SaveState(filePath string, state *model.AlertState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0o644)
}

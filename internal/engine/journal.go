package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scout/pkg/model"
)

// Record is one journal line: an accepted trade plus the stats snapshot
// taken right after it was applied.
type Record struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Symbol     string           `json:"symbol"`
	Qty        int              `json:"qty"`
	Price      float64          `json:"price"`
	TakeProfit float64          `json:"take_profit"`
	StopLoss   float64          `json:"stop_loss"`
	OrderID    string           `json:"order_id,omitempty"`
	Stats      model.TradeStats `json:"stats"`
}

// Journal appends trade records to a line-delimited JSON file. The file is
// opened and closed per record so a crash never loses more than the line
// being written.
type Journal struct {
	mu   sync.Mutex
	path string
}

// NewJournal creates a journal at path, creating parent directories as
// needed.
func NewJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	return &Journal{path: path}, nil
}

// Append writes one record as a single JSON line.
func (j *Journal) Append(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StatusEntry is one audit record of an order status transition.
type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	UpdatedBy string      `json:"updatedBy"`
	Notes     string      `json:"notes"`
}

// StatusHistory is an append-only sequence of status entries. The zero value
// is an empty history; Append never modifies the receiver.
type StatusHistory struct {
	entries []StatusEntry
}

// NewStatusHistory builds a history from entries, copying them.
func NewStatusHistory(entries ...StatusEntry) StatusHistory {
	return StatusHistory{entries: append([]StatusEntry(nil), entries...)}
}

// Append returns a new history with e added at the end.
func (h StatusHistory) Append(e StatusEntry) StatusHistory {
	next := make([]StatusEntry, len(h.entries), len(h.entries)+1)
	copy(next, h.entries)
	return StatusHistory{entries: append(next, e)}
}

func (h StatusHistory) Len() int { return len(h.entries) }

// At returns the i-th entry; it panics when i is out of range like a slice would.
func (h StatusHistory) At(i int) StatusEntry { return h.entries[i] }

// Last returns the most recent entry.
func (h StatusHistory) Last() (StatusEntry, bool) {
	if len(h.entries) == 0 {
		return StatusEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the entries in order.
func (h StatusHistory) Entries() []StatusEntry {
	return append([]StatusEntry(nil), h.entries...)
}

func (h StatusHistory) MarshalJSON() ([]byte, error) {
	if h.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.entries)
}

func (h *StatusHistory) UnmarshalJSON(data []byte) error {
	var entries []StatusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	h.entries = entries
	return nil
}

// GormDataType stores the history as a JSON document on the order row.
func (StatusHistory) GormDataType() string { return "text" }

func (h StatusHistory) Value() (driver.Value, error) {
	b, err := h.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (h *StatusHistory) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		h.entries = nil
		return nil
	case []byte:
		return h.UnmarshalJSON(v)
	case string:
		return h.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("status history: unsupported column type %T", src)
	}
}

// Package settings loads the backend's page configuration for the dashboard.
// The backend owns these values; the console caches them briefly and renders
// them as-is.
package settings

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one rendered setting.
type Entry struct {
	Key   string
	Value string
}

// Snapshot is the settings as loaded for one request.
type Snapshot struct {
	Entries []Entry
}

// Get returns the value of a setting, or "" when absent.
func (s *Snapshot) Get(key string) string {
	if s == nil {
		return ""
	}
	for _, e := range s.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return ""
}

// newSnapshot flattens backend settings into entries sorted by key. Scalars
// are rendered as text; nested values as compact JSON.
func newSnapshot(raw map[string]any) *Snapshot {
	entries := make([]Entry, 0, len(raw))
	for k, v := range raw {
		entries = append(entries, Entry{Key: k, Value: render(v)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return &Snapshot{Entries: entries}
}

func render(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, float64, json.Number:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

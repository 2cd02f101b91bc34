// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

// LoadRegistry reads a registry file. A missing file yields an empty registry.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ActivityRegistry{Version: "1.0.0"}, nil
	}
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Upsert replaces the activity with the same ID or appends it, keeping the
// list ordered by ID.
func (r *ActivityRegistry) Upsert(activity Activity, now time.Time) {
	replaced := false
	for i := range r.Activities {
		if r.Activities[i].ID == activity.ID {
			r.Activities[i] = activity
			replaced = true
			break
		}
	}
	if !replaced {
		r.Activities = append(r.Activities, activity)
	}
	sort.Slice(r.Activities, func(i, j int) bool {
		return r.Activities[i].ID < r.Activities[j].ID
	})
	r.LastUpdated = now.UTC().Format(time.RFC3339)
}

// Find returns the activity registered under taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Save writes the registry as indented JSON.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

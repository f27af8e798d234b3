package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFromFile loads a registry from a JSON file.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	return LoadFromJSON(data)
}

// LoadFromJSON loads a registry from JSON bytes, validating that every
// capability references configured endpoints.
func LoadFromJSON(data []byte) (*Registry, error) {
	r := &Registry{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse registry config: %w", err)
	}

	if len(r.endpoints) == 0 {
		return nil, fmt.Errorf("registry config has no endpoints")
	}

	for cap, cfg := range r.capabilities {
		for _, name := range append(append([]string{}, cfg.Preferred...), cfg.Fallback...) {
			if _, ok := r.endpoints[name]; !ok {
				return nil, fmt.Errorf("capability %s references unknown endpoint %q", cap, name)
			}
		}
	}

	if r.defaultName == "" {
		// Pick any configured endpoint as the default.
		for name := range r.endpoints {
			r.defaultName = name
			break
		}
	}

	return r, nil
}

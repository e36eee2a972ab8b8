package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/marketing-hub/internal/schemas"
	"github.com/jonathan/marketing-hub/internal/types"
	"gopkg.in/yaml.v3"
)

// loadLeads reads a lead list file. JSON is chosen by the .json extension and
// YAML otherwise. The file may hold a bare array or an object with a "leads" key.
func loadLeads(path string) ([]*types.Lead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lead file %s: %w", path, err)
	}

	var doc any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse lead file %s: %w", path, err)
	}

	if err := schemas.ValidateLeadList(doc); err != nil {
		return nil, err
	}

	// Round-trip through JSON so both formats decode with the same field names.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize lead file: %w", err)
	}

	var leads []*types.Lead
	if _, isList := doc.([]any); isList {
		err = json.Unmarshal(normalized, &leads)
	} else {
		var wrapped struct {
			Leads []*types.Lead `json:"leads"`
		}
		err = json.Unmarshal(normalized, &wrapped)
		leads = wrapped.Leads
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode leads: %w", err)
	}

	seen := make(map[string]bool, len(leads))
	for _, l := range leads {
		if seen[l.ID] {
			return nil, fmt.Errorf("duplicate lead id %q in %s", l.ID, path)
		}
		seen[l.ID] = true
	}
	return leads, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

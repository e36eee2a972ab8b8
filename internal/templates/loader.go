// Package templates personalizes email templates with lead data and loads the
// built-in system emails. System emails are stored as JSON files and embedded at compile time.
package templates

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// SystemFile holds the subjects and bodies of emails the server sends on its own behalf.
const SystemFile = "system.json"

//go:embed *.json
var systemFiles embed.FS

// cache stores parsed files to avoid repeated JSON parsing
var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get retrieves a system template by filename and key.
// Returns an error if the file or key is not found.
func Get(filename, key string) (string, error) {
	entries, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	tpl, exists := entries[key]
	if !exists {
		return "", fmt.Errorf("template key %q not found in %s", key, filename)
	}

	return tpl, nil
}

// MustGet retrieves a system template, panicking if not found.
// Use this for templates that are required at initialization time.
func MustGet(filename, key string) string {
	tpl, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load template: %v", err))
	}
	return tpl
}

// loadFile loads and caches a template file.
func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if entries, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return entries, nil
	}
	cacheMu.RUnlock()

	data, err := systemFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", filename, err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse template file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = entries
	cacheMu.Unlock()

	return entries, nil
}

// ClearCache clears the template cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}

// List returns all template keys in a file, sorted.
func List(filename string) ([]string, error) {
	entries, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

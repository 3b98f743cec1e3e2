package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"
)

// saveJSON persists v with atomic replace semantics: serialize, write to the
// sibling temp file, then rename over the destination. A crash mid-write can
// never leave a half-written primary file.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := tmpPath(path)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}

	return nil
}

// loadJSON reads a persisted store file. If the primary file fails to parse,
// the adjacent temp file is tried before falling back to the zero value:
// a crash between temp-write and rename leaves a valid temp file behind.
// A missing file is not an error.
func loadJSON[T any](path string) T {
	var zero T

	data, err := os.ReadFile(path)
	if err == nil {
		var v T
		parseErr := json.Unmarshal(data, &v)
		if parseErr == nil {
			return v
		}
		slog.Warn("Failed to parse store file, trying temp fallback", "path", path, "error", parseErr)
	} else if !os.IsNotExist(err) {
		slog.Warn("Failed to read store file", "path", path, "error", err)
	}

	// A crash before the first successful rename leaves only the temp file.
	tmpData, err := os.ReadFile(tmpPath(path))
	if err != nil {
		return zero
	}

	var rescued T
	if err := json.Unmarshal(tmpData, &rescued); err != nil {
		slog.Warn("Temp fallback is not valid either, using defaults", "path", path, "error", err)
		return zero
	}
	return rescued
}

func tmpPath(path string) string {
	return path + ".tmp"
}

// identitySet is a set of entry identities, persisted as a sorted JSON array.
type identitySet map[string]struct{}

func (s identitySet) MarshalJSON() ([]byte, error) {
	keys := lo.Keys(s)
	sort.Strings(keys)
	return json.Marshal(keys)
}

func (s *identitySet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = make(identitySet, len(keys))
	for _, key := range keys {
		(*s)[key] = struct{}{}
	}
	return nil
}

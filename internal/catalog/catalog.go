// Package catalog loads the seed list of activities the registry starts with.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"example.com/extracurricular/internal/domain"
)

//go:embed activities.toml
var defaultCatalog []byte

// ErrInvalidCatalog wraps every validation failure.
var ErrInvalidCatalog = errors.New("invalid activity catalog")

type catalogFile struct {
	Activities []catalogEntry `toml:"activity"`
}

type catalogEntry struct {
	Name            string   `toml:"name"`
	Description     string   `toml:"description"`
	Schedule        string   `toml:"schedule"`
	MaxParticipants int      `toml:"max_participants"`
	Participants    []string `toml:"participants"`
}

// Default returns the built-in activity list.
func Default() ([]domain.Activity, error) {
	return Parse(defaultCatalog)
}

// Load reads activities from path, or the built-in list when path is empty.
func Load(path string) ([]domain.Activity, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML catalog.
func Parse(data []byte) ([]domain.Activity, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(file.Activities) == 0 {
		return nil, fmt.Errorf("%w: no activities defined", ErrInvalidCatalog)
	}

	seen := make(map[string]struct{}, len(file.Activities))
	out := make([]domain.Activity, 0, len(file.Activities))
	for i, entry := range file.Activities {
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("%w: activity %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate activity %q", ErrInvalidCatalog, entry.Name)
		}
		seen[entry.Name] = struct{}{}

		participants := make([]string, len(entry.Participants))
		copy(participants, entry.Participants)
		out = append(out, domain.Activity{
			Name:            entry.Name,
			Description:     entry.Description,
			Schedule:        entry.Schedule,
			MaxParticipants: entry.MaxParticipants,
			Participants:    participants,
		})
	}
	return out, nil
}

func (e catalogEntry) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("name is required")
	}
	if e.MaxParticipants <= 0 {
		return fmt.Errorf("%q: max_participants must be > 0", e.Name)
	}
	emails := make(map[string]struct{}, len(e.Participants))
	for _, email := range e.Participants {
		if strings.TrimSpace(email) == "" {
			return fmt.Errorf("%q: blank participant email", e.Name)
		}
		if _, dup := emails[email]; dup {
			return fmt.Errorf("%q: duplicate participant %s", e.Name, email)
		}
		emails[email] = struct{}{}
	}
	return nil
}

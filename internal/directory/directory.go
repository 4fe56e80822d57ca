// Package directory maps human names and team names to email addresses.
// The directory is read-only once loaded; resolution never invents an
// address for an unknown name.
package directory

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/meetwise/meetwise/internal/errors"
)

// Directory is an immutable name-to-email lookup table.
type Directory struct {
	people map[string]string
	teams  map[string][]string
}

type directoryFile struct {
	People map[string]string   `yaml:"people"`
	Teams  map[string][]string `yaml:"teams"`
}

// New builds a directory from name->email and team->emails maps.
// The inputs are copied; later mutation of the arguments has no effect.
func New(people map[string]string, teams map[string][]string) *Directory {
	d := &Directory{
		people: make(map[string]string, len(people)),
		teams:  make(map[string][]string, len(teams)),
	}
	for name, email := range people {
		d.people[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(email)
	}
	for team, emails := range teams {
		copied := make([]string, len(emails))
		copy(copied, emails)
		d.teams[strings.ToLower(strings.TrimSpace(team))] = copied
	}
	return d
}

// Load reads a directory from a YAML file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.ErrDirectoryNotFound.Code, "name directory not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDirectoryInvalid.Code, "reading name directory")
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDirectoryInvalid.Code, "parsing name directory")
	}

	return New(file.People, file.Teams), nil
}

// Empty returns a directory with no entries.
func Empty() *Directory {
	return New(nil, nil)
}

// Resolve looks a person up by name. It tries an exact (case-insensitive)
// match first, then the local part of each known address. A miss returns
// ok=false; no address is ever fabricated.
func (d *Directory) Resolve(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if email, ok := d.people[key]; ok {
		return email, true
	}

	// Fall back to the local part of known addresses, in sorted order so
	// the result is deterministic.
	names := make([]string, 0, len(d.people))
	for name := range d.people {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		email := d.people[name]
		local := strings.ToLower(strings.SplitN(email, "@", 2)[0])
		if local == key || strings.HasPrefix(local, key+".") {
			return email, true
		}
	}
	return "", false
}

// Team expands a team name into its member addresses.
func (d *Directory) Team(name string) ([]string, bool) {
	emails, ok := d.teams[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	out := make([]string, len(emails))
	copy(out, emails)
	return out, true
}

// Teams lists the known team names.
func (d *Directory) Teams() []string {
	names := make([]string, 0, len(d.teams))
	for name := range d.teams {
		names = append(names, name)
	}
	return names
}

// Len returns the number of people in the directory.
func (d *Directory) Len() int {
	return len(d.people)
}

// KnownName reports whether an email belongs to anyone in the directory
// and returns their name.
func (d *Directory) KnownName(email string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(email))
	for name, addr := range d.people {
		if strings.ToLower(addr) == needle {
			return name, true
		}
	}
	return "", false
}

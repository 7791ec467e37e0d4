package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// InheritKey lists the parents of a section.
	InheritKey = "%inherit"
	// DefaultSection holds the variables applied to every environment.
	DefaultSection = "hubble"
	// CommandsSection maps invocation names to executable paths.
	CommandsSection = "hubble-commands"
)

// Item is a single key/value attribute of a section view.
type Item struct {
	Key   string
	Value string
}

// Store is the parsed, inheritance-resolved rc configuration. It is not
// modified after Parse or Load return.
type Store struct {
	views    map[string][]Item
	order    []string
	defaults []Item
	sources  []string
}

// DefaultLocations returns the rc files read when none are configured.
func DefaultLocations() []string {
	return []string{"~/.hubblerc", ".hubblerc"}
}

// Load reads every existing file in paths, later files overriding earlier
// ones key by key. It fails with ErrConfig when none of them exist.
func Load(paths []string) (*Store, error) {
	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		expanded := ExpandHome(path)
		if _, err := os.Stat(expanded); err == nil {
			existing = append(existing, expanded)
		}
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("%w: unable to find config files in these locations [%s]",
			ErrConfig, strings.Join(paths, ", "))
	}

	sources := make([]any, len(existing))
	for i, path := range existing {
		sources[i] = path
	}

	file, err := ini.LoadSources(loadOptions(), sources[0], sources[1:]...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, strings.Join(existing, ", "), err)
	}

	store, err := newStore(file)
	if err != nil {
		return nil, err
	}
	store.sources = existing
	return store, nil
}

// Parse builds a Store from in-memory rc contents, later contents
// overriding earlier ones.
func Parse(contents ...[]byte) (*Store, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: no config sources supplied", ErrConfig)
	}

	sources := make([]any, len(contents))
	for i, content := range contents {
		sources[i] = content
	}

	file, err := ini.LoadSources(loadOptions(), sources[0], sources[1:]...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return newStore(file)
}

func loadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
		PreserveSurroundedQuote:    true,
		KeyValueDelimiters:         "=",
	}
}

func newStore(file *ini.File) (*Store, error) {
	raw := make(map[string]rawSection, len(file.Sections()))
	order := make([]string, 0, len(file.Sections()))

	for _, section := range file.Sections() {
		name := section.Name()
		rs := rawSection{}
		for _, key := range section.Keys() {
			if key.Name() == InheritKey {
				parents, err := parseInherit(key.Value())
				if err != nil {
					return nil, fmt.Errorf("section [%s]: %w", name, err)
				}
				rs.parents = parents
				continue
			}
			rs.items = append(rs.items, Item{Key: key.Name(), Value: key.Value()})
		}
		raw[name] = rs
		order = append(order, name)
	}

	views, err := resolveAll(raw, order)
	if err != nil {
		return nil, err
	}

	store := &Store{views: views}
	for _, name := range order {
		if isReserved(name) {
			continue
		}
		store.order = append(store.order, name)
	}

	var defaults itemSet
	defaults.merge(views[ini.DefaultSection])
	defaults.merge(views[DefaultSection])
	store.defaults = defaults.list()

	return store, nil
}

func isReserved(name string) bool {
	return name == ini.DefaultSection || name == DefaultSection || name == CommandsSection
}

// Sections returns the user selectable environments in declaration order.
func (s *Store) Sections() []string {
	return slices.Clone(s.order)
}

// Sources returns the files the store was loaded from.
func (s *Store) Sources() []string {
	return slices.Clone(s.sources)
}

// HasSection reports whether name is defined in any source.
func (s *Store) HasSection(name string) bool {
	_, ok := s.views[name]
	return ok
}

// Items returns the inheritance-resolved view of a section. Defaults are
// not included.
func (s *Store) Items(section string) ([]Item, error) {
	view, ok := s.views[section]
	if !ok {
		return nil, fmt.Errorf("%w [%s]", ErrNoSuchSection, section)
	}
	return slices.Clone(view), nil
}

// Defaults returns the variables applied to every environment.
func (s *Store) Defaults() []Item {
	return slices.Clone(s.defaults)
}

// Get looks key up in the section view, then in the defaults.
func (s *Store) Get(section, key string) (string, error) {
	view, ok := s.views[section]
	if !ok {
		return "", fmt.Errorf("%w [%s]", ErrNoSuchSection, section)
	}
	if value, ok := lookup(view, key); ok {
		return value, nil
	}
	if value, ok := lookup(s.defaults, key); ok {
		return value, nil
	}
	return "", fmt.Errorf("%w '%s' in section [%s]", ErrNoSuchKey, key, section)
}

// SafeGet is Get without the error.
func (s *Store) SafeGet(section, key string) (string, bool) {
	value, err := s.Get(section, key)
	if err != nil {
		return "", false
	}
	return value, true
}

// DefaultValue returns a key from the defaults only.
func (s *Store) DefaultValue(key string) (string, bool) {
	return lookup(s.defaults, key)
}

// Command returns the executable registered for an invocation name.
func (s *Store) Command(name string) (string, bool) {
	value, ok := lookup(s.views[CommandsSection], name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// ToMap flattens items into a map; later items win.
func ToMap(items []Item) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.Key] = item.Value
	}
	return out
}

func lookup(items []Item, key string) (string, bool) {
	for _, item := range items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return "", false
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

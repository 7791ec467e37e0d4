package storage

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const inheritanceConfig = `
[hubble]
spam = eggs
[a]
a = 1
[b]
b = 2
spam = bar
[c]
%inherit = a
c = 3
[d]
%inherit = c
d = 4
spam = foo
[e]
%inherit =
  d
  b
e = 5
`

func mustParse(t *testing.T, contents ...string) *Store {
	t.Helper()

	sources := make([][]byte, len(contents))
	for i, c := range contents {
		sources[i] = []byte(c)
	}
	store, err := Parse(sources...)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return store
}

func keySet(t *testing.T, store *Store, section string) map[string]struct{} {
	t.Helper()

	items, err := store.Items(section)
	if err != nil {
		t.Fatalf("Items(%s) returned error: %v", section, err)
	}
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item.Key] = struct{}{}
	}
	return out
}

func isSuperset(super, sub map[string]struct{}) bool {
	for k := range sub {
		if _, ok := super[k]; !ok {
			return false
		}
	}
	return true
}

func TestItemsInheritance(t *testing.T) {
	t.Parallel()

	store := mustParse(t, inheritanceConfig)

	if !isSuperset(keySet(t, store, "c"), keySet(t, store, "a")) {
		t.Fatalf("expected c to contain every key of a")
	}
	if !isSuperset(keySet(t, store, "d"), keySet(t, store, "a")) {
		t.Fatalf("expected d to contain every key of a")
	}
}

func TestItemsMultipleInheritance(t *testing.T) {
	t.Parallel()

	store := mustParse(t, inheritanceConfig)

	e := keySet(t, store, "e")
	if !isSuperset(e, keySet(t, store, "b")) {
		t.Fatalf("expected e to contain every key of b")
	}
	if !isSuperset(e, keySet(t, store, "d")) {
		t.Fatalf("expected e to contain every key of d")
	}
	if _, ok := e[InheritKey]; ok {
		t.Fatalf("%s must not appear in a section view", InheritKey)
	}
}

func TestValueResolution(t *testing.T) {
	t.Parallel()

	store := mustParse(t, inheritanceConfig)

	tests := []struct {
		section string
		want    string
	}{
		{section: "b", want: "bar"},
		{section: "c", want: "eggs"},
		{section: "d", want: "foo"},
		{section: "e", want: "foo"},
	}

	for _, tc := range tests {
		got, err := store.Get(tc.section, "spam")
		if err != nil {
			t.Fatalf("Get(%s, spam) returned error: %v", tc.section, err)
		}
		if got != tc.want {
			t.Fatalf("Get(%s, spam) = %q, want %q", tc.section, got, tc.want)
		}
	}
}

func TestItemsMatchGet(t *testing.T) {
	t.Parallel()

	store := mustParse(t, inheritanceConfig)

	items, err := store.Items("c")
	if err != nil {
		t.Fatalf("Items returned error: %v", err)
	}
	got, err := store.Get("c", "a")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ToMap(items)["a"] != got {
		t.Fatalf("expected Items and Get to agree, got %q and %q", ToMap(items)["a"], got)
	}
}

func TestItemsOrderAncestorsFirst(t *testing.T) {
	t.Parallel()

	store := mustParse(t, inheritanceConfig)

	items, err := store.Items("d")
	if err != nil {
		t.Fatalf("Items returned error: %v", err)
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	if want := []string{"a", "c", "d", "spam"}; !slices.Equal(keys, want) {
		t.Fatalf("expected order %v, got %v", want, keys)
	}
}

func TestDiamondInheritance(t *testing.T) {
	t.Parallel()

	store := mustParse(t, `
[base]
x = base
[left]
%inherit = base
l = 1
[right]
%inherit = base
x = right
[bottom]
%inherit = [left, right]
`)

	view := ToMap(mustItems(t, store, "bottom"))
	if view["l"] != "1" {
		t.Fatalf("expected l from left, got %q", view["l"])
	}
	// base is shared, so it sits behind right and right's own x wins.
	if view["x"] != "right" {
		t.Fatalf("expected right's x to override base, got %q", view["x"])
	}
}

func TestDiamondInheritanceFirstParentWins(t *testing.T) {
	t.Parallel()

	store := mustParse(t, `
[base]
x = base
[left]
%inherit = base
x = left
[right]
%inherit = base
x = right
[bottom]
%inherit = [left, right, left]
`)

	if got, err := store.Get("bottom", "x"); err != nil || got != "left" {
		t.Fatalf("expected left to win over right, got %q (%v)", got, err)
	}
}

func TestInconsistentInheritanceOrderIsConfigError(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
[a]
v = 1
[b]
%inherit = a
[c]
%inherit = [a, b]
`))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestInheritanceCycleIsConfigError(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("[a]\n%inherit = b\n[b]\n%inherit = a\n"))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle in error message, got %v", err)
	}
}

func TestSelfInheritanceIsConfigError(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("[a]\n%inherit = a\n")); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestUnknownParentIsConfigError(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("[a]\n%inherit = missing\n"))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected parent name in error, got %v", err)
	}
}

func TestGetErrors(t *testing.T) {
	t.Parallel()

	store := mustParse(t, inheritanceConfig)

	if _, err := store.Get("nope", "a"); !errors.Is(err, ErrNoSuchSection) {
		t.Fatalf("expected ErrNoSuchSection, got %v", err)
	}
	if _, err := store.Get("a", "nope"); !errors.Is(err, ErrNoSuchKey) {
		t.Fatalf("expected ErrNoSuchKey, got %v", err)
	}
	if _, err := store.Items("nope"); !errors.Is(err, ErrNoSuchSection) {
		t.Fatalf("expected ErrNoSuchSection from Items, got %v", err)
	}
	if _, ok := store.SafeGet("nope", "a"); ok {
		t.Fatalf("expected SafeGet to report missing value")
	}
}

func TestDefaultsAndReservedSections(t *testing.T) {
	t.Parallel()

	store := mustParse(t, `
default-env = dev
OS_AUTH_URL = https://outside
[hubble]
OS_AUTH_URL = https://identity
[hubble-commands]
nova = /usr/local/bin/nova
[dev]
A = 1
[prod]
A = 2
`)

	if want := []string{"dev", "prod"}; !slices.Equal(store.Sections(), want) {
		t.Fatalf("expected sections %v, got %v", want, store.Sections())
	}
	defaults := ToMap(store.Defaults())
	if defaults["OS_AUTH_URL"] != "https://identity" {
		t.Fatalf("expected [hubble] to override keys outside sections, got %q", defaults["OS_AUTH_URL"])
	}
	if env, ok := store.DefaultValue("default-env"); !ok || env != "dev" {
		t.Fatalf("expected default-env=dev, got %q", env)
	}
	if path, ok := store.Command("nova"); !ok || path != "/usr/local/bin/nova" {
		t.Fatalf("expected registered nova command, got %q", path)
	}
	if _, ok := store.Command("cinder"); ok {
		t.Fatalf("expected cinder to be unregistered")
	}
}

func TestValuesKeptRaw(t *testing.T) {
	t.Parallel()

	store := mustParse(t, `
[raw]
cmd = echo "a=b" # not a comment
url = https://example.com:5000/v2.0
meta = ['dfw', 'ord']
`)

	view := ToMap(mustItems(t, store, "raw"))
	if view["cmd"] != `echo "a=b" # not a comment` {
		t.Fatalf("unexpected cmd value %q", view["cmd"])
	}
	if view["url"] != "https://example.com:5000/v2.0" {
		t.Fatalf("unexpected url value %q", view["url"])
	}
	if view["meta"] != "['dfw', 'ord']" {
		t.Fatalf("unexpected meta value %q", view["meta"])
	}
}

func TestLaterSourcesOverride(t *testing.T) {
	t.Parallel()

	store := mustParse(t, "[dev]\nA = home\nB = home\n", "[dev]\nA = local\n")

	view := ToMap(mustItems(t, store, "dev"))
	if view["A"] != "local" || view["B"] != "home" {
		t.Fatalf("unexpected merge result %v", view)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hubblerc")
	if err := os.WriteFile(path, []byte("[dev]\nA = 1\n"), 0o600); err != nil {
		t.Fatalf("write rc: %v", err)
	}

	store, err := Load([]string{filepath.Join(dir, "missing"), path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !slices.Equal(store.Sources(), []string{path}) {
		t.Fatalf("unexpected sources %v", store.Sources())
	}
	if !store.HasSection("dev") {
		t.Fatalf("expected dev section")
	}
}

func TestLoadNoSources(t *testing.T) {
	dir := t.TempDir()

	_, err := Load([]string{filepath.Join(dir, "a"), filepath.Join(dir, "b")})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), filepath.Join(dir, "a")) {
		t.Fatalf("expected attempted locations in error, got %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if got := ExpandHome("~/.hubblerc"); got != filepath.Join(home, ".hubblerc") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := ExpandHome("/etc/~/x"); got != "/etc/~/x" {
		t.Fatalf("expected untouched path, got %q", got)
	}
}

func mustItems(t *testing.T, store *Store, section string) []Item {
	t.Helper()

	items, err := store.Items(section)
	if err != nil {
		t.Fatalf("Items(%s) returned error: %v", section, err)
	}
	return items
}

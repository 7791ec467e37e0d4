package storage

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseList parses a bracketed list literal such as ['dfw', "ord"] or
// [dfw, ord] into its items. Only scalar items are accepted; nested
// collections, aliases, tags and null entries are rejected with ErrConfig.
func ParseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, fmt.Errorf("%w: expected a bracketed list, got %q", ErrConfig, raw)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid list %q: %v", ErrConfig, raw, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: expected a list of names, got %q", ErrConfig, raw)
	}

	seq := doc.Content[0]
	items := make([]string, 0, len(seq.Content))
	for _, node := range seq.Content {
		if node.Kind != yaml.ScalarNode || node.Style&yaml.TaggedStyle != 0 || node.ShortTag() == "!!null" {
			return nil, fmt.Errorf("%w: list %q may only contain names", ErrConfig, raw)
		}
		name := strings.TrimSpace(node.Value)
		if name == "" {
			return nil, fmt.Errorf("%w: list %q contains an empty name", ErrConfig, raw)
		}
		items = append(items, name)
	}
	return items, nil
}

// parseInherit splits a %inherit value. Bracketed values go through
// ParseList, anything else is a whitespace or newline separated list.
func parseInherit(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		return ParseList(raw)
	}
	return strings.Fields(raw), nil
}

package storage

import (
	"fmt"
	"strings"
)

type rawSection struct {
	parents []string
	items   []Item
}

// itemSet is an insertion-ordered key/value set. Overwriting a key keeps
// its original position.
type itemSet struct {
	items []Item
	index map[string]int
}

func (s *itemSet) set(key, value string) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if idx, ok := s.index[key]; ok {
		s.items[idx].Value = value
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, Item{Key: key, Value: value})
}

func (s *itemSet) merge(items []Item) {
	for _, item := range items {
		s.set(item.Key, item.Value)
	}
}

func (s *itemSet) list() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

type inheritResolver struct {
	raw    map[string]rawSection
	orders map[string][]string
	views  map[string][]Item
}

// resolveAll computes the view of every section, memoized by name.
func resolveAll(raw map[string]rawSection, order []string) (map[string][]Item, error) {
	r := &inheritResolver{
		raw:    raw,
		orders: make(map[string][]string, len(raw)),
		views:  make(map[string][]Item, len(raw)),
	}
	for _, name := range order {
		if _, err := r.resolve(name); err != nil {
			return nil, err
		}
	}
	return r.views, nil
}

// resolve folds the section's ancestors from the most distant to the
// section itself, so closer sections override.
func (r *inheritResolver) resolve(name string) ([]Item, error) {
	if view, ok := r.views[name]; ok {
		return view, nil
	}

	lineage, err := r.linearize(name, nil)
	if err != nil {
		return nil, err
	}

	var view itemSet
	for i := len(lineage) - 1; i >= 0; i-- {
		view.merge(r.raw[lineage[i]].items)
	}

	r.views[name] = view.list()
	return r.views[name], nil
}

// linearize returns the C3 order of name and its ancestors, nearest first.
// A shared ancestor appears once, after every section that inherits it.
func (r *inheritResolver) linearize(name string, chain []string) ([]string, error) {
	if lineage, ok := r.orders[name]; ok {
		return lineage, nil
	}
	for _, seen := range chain {
		if seen == name {
			return nil, fmt.Errorf("%w: inheritance cycle %s -> %s", ErrConfig, strings.Join(chain, " -> "), name)
		}
	}

	section, ok := r.raw[name]
	if !ok {
		child := "?"
		if len(chain) > 0 {
			child = chain[len(chain)-1]
		}
		return nil, fmt.Errorf("%w: section [%s] inherits from undefined section [%s]", ErrConfig, child, name)
	}

	chain = append(chain, name)

	parents := uniqueNames(section.parents)
	seqs := make([][]string, 0, len(parents)+1)
	for _, parent := range parents {
		lineage, err := r.linearize(parent, chain)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, lineage)
	}
	seqs = append(seqs, parents)

	merged, err := c3Merge(seqs)
	if err != nil {
		return nil, fmt.Errorf("%w: section [%s]: %w", ErrConfig, name, err)
	}

	r.orders[name] = append([]string{name}, merged...)
	return r.orders[name], nil
}

func c3Merge(seqs [][]string) ([]string, error) {
	pending := make([][]string, 0, len(seqs))
	for _, seq := range seqs {
		if len(seq) > 0 {
			pending = append(pending, seq)
		}
	}

	var out []string
	for len(pending) > 0 {
		head := ""
		for _, seq := range pending {
			if !inTail(pending, seq[0]) {
				head = seq[0]
				break
			}
		}
		if head == "" {
			return nil, fmt.Errorf("inconsistent %%inherit order around [%s]", pending[0][0])
		}

		out = append(out, head)
		next := pending[:0]
		for _, seq := range pending {
			if seq[0] == head {
				seq = seq[1:]
			}
			if len(seq) > 0 {
				next = append(next, seq)
			}
		}
		pending = next
	}
	return out, nil
}

func inTail(seqs [][]string, name string) bool {
	for _, seq := range seqs {
		for _, other := range seq[1:] {
			if other == name {
				return true
			}
		}
	}
	return false
}

func uniqueNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

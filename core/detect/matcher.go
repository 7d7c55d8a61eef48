package detect

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"
)

// Matcher resolves media types from byte prefixes.
// It is immutable once built and safe for concurrent use.
type Matcher struct {
	rules       []Rule
	defaultType string
	maxPrefix   int
}

// New validates rules and builds a Matcher. Rules need not be sorted; they
// are ordered by descending specificity, then ascending offset, then the
// order in which they were given.
func New(rules []Rule, defaultType string, maxPrefix int) (*Matcher, error) {
	if maxPrefix <= 0 {
		return nil, &ConfigError{Rule: -1, Reason: fmt.Sprintf("max prefix length must be positive, got %d", maxPrefix)}
	}
	if defaultType == "" {
		return nil, &ConfigError{Rule: -1, Reason: "default media type is empty"}
	}

	seen := make(map[string]int, len(rules))
	compiled := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if err := validate(i, r, maxPrefix); err != nil {
			return nil, err
		}

		sig := r.signature()
		if j, ok := seen[sig]; ok {
			if rules[j].MediaType != r.MediaType {
				return nil, &ConfigError{
					Rule:      i,
					MediaType: r.MediaType,
					Reason:    fmt.Sprintf("same pattern and offset as rule %d (%s)", j, rules[j].MediaType),
				}
			}
			continue
		}
		seen[sig] = i

		compiled = append(compiled, Rule{
			MediaType: r.MediaType,
			Offset:    r.Offset,
			Pattern:   slices.Clone(r.Pattern),
		})
	}

	slices.SortStableFunc(compiled, func(a, b Rule) int {
		if c := cmp.Compare(b.Specificity(), a.Specificity()); c != 0 {
			return c
		}
		return cmp.Compare(a.Offset, b.Offset)
	})

	return &Matcher{
		rules:       compiled,
		defaultType: defaultType,
		maxPrefix:   maxPrefix,
	}, nil
}

func validate(i int, r Rule, maxPrefix int) error {
	fail := func(format string, args ...any) error {
		return &ConfigError{Rule: i, MediaType: r.MediaType, Reason: fmt.Sprintf(format, args...)}
	}

	if r.MediaType == "" {
		return fail("media type is empty")
	}
	if len(r.Pattern) == 0 {
		return fail("pattern is empty")
	}
	if r.Offset < 0 {
		return fail("negative offset %d", r.Offset)
	}
	for pos, t := range r.Pattern {
		if t != Wild && (t < 0 || t > 0xFF) {
			return fail("token %d at position %d is not a byte", t, pos)
		}
	}
	if r.Specificity() == 0 {
		return fail("pattern has only wildcards")
	}
	if r.End() > maxPrefix {
		return fail("pattern ends at %d, beyond max prefix length %d", r.End(), maxPrefix)
	}
	return nil
}

// Resolve returns the media type of the first matching rule, or the default
// type. It never fails; input beyond the max prefix length is ignored.
func (m *Matcher) Resolve(b []byte) string {
	if r, ok := m.Match(b); ok {
		return r.MediaType
	}
	return m.defaultType
}

// Match returns the highest ranked rule matching b.
func (m *Matcher) Match(b []byte) (Rule, bool) {
	if len(b) > m.maxPrefix {
		b = b[:m.maxPrefix]
	}
	for _, r := range m.rules {
		if r.matches(b) {
			return r, true
		}
	}
	return Rule{}, false
}

// Detect reads the prefix of src and resolves it.
func (m *Matcher) Detect(src Source) (string, error) {
	prefix, err := ReadPrefix(src, m.maxPrefix)
	if err != nil {
		return "", err
	}
	return m.Resolve(prefix), nil
}

// Sniff resolves the media type of a stream and returns a reader that yields
// the whole stream, prefix included.
func (m *Matcher) Sniff(r io.Reader) (string, io.Reader, error) {
	prefix, err := ReadPrefix(Stream{Reader: r}, m.maxPrefix)
	if err != nil {
		return "", nil, err
	}
	return m.Resolve(prefix), io.MultiReader(bytes.NewReader(prefix), r), nil
}

// Rules returns the registry in matching order.
func (m *Matcher) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	for i, r := range m.rules {
		out[i] = Rule{MediaType: r.MediaType, Offset: r.Offset, Pattern: slices.Clone(r.Pattern)}
	}
	return out
}

// DefaultType is the type returned when nothing matches.
func (m *Matcher) DefaultType() string {
	return m.defaultType
}

// MaxPrefix is the number of leading bytes the matcher inspects.
func (m *Matcher) MaxPrefix() int {
	return m.maxPrefix
}

package detect

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Token is a single pattern position: a byte value 0..255 or Wild.
type Token int16

// Wild matches any byte.
const Wild Token = -1

// Pattern is an ordered sequence of tokens compared from a rule's offset.
type Pattern []Token

// Rule maps a byte pattern at a fixed offset to a media type.
type Rule struct {
	// MediaType is the type returned when the rule matches (e.g. image/png).
	MediaType string
	// Offset is where matching begins, counted from the first byte.
	Offset int
	// Pattern is compared byte for byte; Wild positions always match.
	Pattern Pattern
}

// Specificity is the number of non-wildcard positions in the pattern.
func (r Rule) Specificity() int {
	n := 0
	for _, t := range r.Pattern {
		if t != Wild {
			n++
		}
	}
	return n
}

// End is the exclusive end offset of the pattern.
func (r Rule) End() int {
	return r.Offset + len(r.Pattern)
}

// matches reports whether b covers the rule and agrees at every fixed position.
func (r Rule) matches(b []byte) bool {
	if len(b) < r.End() {
		return false
	}
	window := b[r.Offset:r.End()]
	for i, t := range r.Pattern {
		if t != Wild && byte(t) != window[i] {
			return false
		}
	}
	return true
}

// signature identifies a (pattern, offset) pair for duplicate detection.
func (r Rule) signature() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(r.Offset))
	sb.WriteByte(':')
	sb.WriteString(r.Pattern.String())
	return sb.String()
}

// String renders p in the syntax accepted by ParsePattern.
func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		if t == Wild {
			parts[i] = "??"
			continue
		}
		parts[i] = fmt.Sprintf("%02X", int(t))
	}
	return strings.Join(parts, " ")
}

// ParsePattern parses the textual pattern syntax:
//
//	89 50 4E 47        hex bytes
//	??                 one wildcard
//	??{26}             26 wildcards
//	"ftypM4A "         the ASCII bytes between the quotes
//
// Tokens are separated by whitespace.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	rs := []rune(s)
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}

		if rs[i] == '"' {
			end := i + 1
			for end < len(rs) && rs[end] != '"' {
				end++
			}
			if end == len(rs) {
				return nil, fmt.Errorf("unterminated string at position %d", i)
			}
			for _, r := range rs[i+1 : end] {
				if r > unicode.MaxASCII {
					return nil, fmt.Errorf("non-ASCII character %q in string", r)
				}
				p = append(p, Token(r))
			}
			i = end + 1
			continue
		}

		end := i
		for end < len(rs) && !unicode.IsSpace(rs[end]) {
			end++
		}
		tok := string(rs[i:end])
		i = end

		switch {
		case tok == "??":
			p = append(p, Wild)
		case strings.HasPrefix(tok, "??{") && strings.HasSuffix(tok, "}"):
			n, err := strconv.Atoi(tok[3 : len(tok)-1])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid wildcard run %q", tok)
			}
			for range n {
				p = append(p, Wild)
			}
		default:
			if len(tok) != 2 {
				return nil, fmt.Errorf("invalid byte %q", tok)
			}
			v, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid byte %q", tok)
			}
			p = append(p, Token(v))
		}
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	return p, nil
}

// MustParsePattern is ParsePattern for static tables; it panics on error.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(fmt.Sprintf("detect: bad pattern %q: %v", s, err))
	}
	return p
}

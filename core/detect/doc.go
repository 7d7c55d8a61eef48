// Package detect resolves the media type of a resource from its leading bytes.
//
// File names and extensions are attacker controlled, so uploads never trust
// them. Instead a Matcher compares a bounded prefix of the content against a
// registry of magic-number signatures and returns the most specific match.
//
// # Rules
//
// A Rule is a Pattern anchored at an Offset. Pattern positions are bytes or
// Wild, which matches anything and lets one rule cover formats that carry a
// length or checksum inside their signature (RIFF, ZIP local headers).
//
// Rules are ranked by specificity (fixed positions), then by offset, then by
// definition order. A container variant such as EPUB is therefore checked
// before the plain ZIP signature it shares a prefix with.
//
// # Resolution
//
// Resolve is total: empty, short or unknown input yields the default type.
// Building a Matcher is the only place configuration errors surface.
//
// # Usage
//
//	m, err := detect.New(detect.DefaultRules(), detect.DefaultType, detect.DefaultMaxPrefix)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	contentType, err := m.Detect(detect.Path("/tmp/upload.bin"))
package detect

package patterns

import (
	"fmt"
	"regexp"
	"strings"
)

// delimited matches the wire form "/source/flags"
var delimited = regexp.MustCompile(`^/(.*)/([gimsuy]*)$`)

// Pattern is a compiled, case-insensitive hoster matcher
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// ParseError reports a wire pattern that could not be compiled
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid hoster pattern %q: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse turns a wire string such as "/(www\.)?host\.com\/file\/.+/i" into a Pattern.
// Delimiting slashes and trailing flags are removed; matching is always
// case-insensitive. The m and s flags carry over, g, i, u and y are no-ops here.
func Parse(raw string) (*Pattern, error) {
	src := strings.TrimSpace(raw)
	flags := "i"

	if m := delimited.FindStringSubmatch(src); m != nil {
		src = m[1]
		for _, f := range m[2] {
			switch f {
			case 'm', 's':
				if !strings.ContainsRune(flags, f) {
					flags += string(f)
				}
			}
		}
	}

	if src == "" {
		return nil, &ParseError{Source: raw, Err: fmt.Errorf("empty pattern")}
	}

	re, err := regexp.Compile("(?" + flags + ")" + src)
	if err != nil {
		return nil, &ParseError{Source: raw, Err: err}
	}
	return &Pattern{source: raw, re: re}, nil
}

// Source returns the wire string the pattern was parsed from
func (p *Pattern) Source() string {
	return p.source
}

// MatchString reports whether the pattern matches anywhere in s
func (p *Pattern) MatchString(s string) bool {
	return p.re.MatchString(s)
}

func (p *Pattern) String() string {
	return p.re.String()
}

// Set is the hoster matcher: a URL is a hoster link when any pattern matches it
type Set []*Pattern

// Match reports whether any pattern in the set matches url
func (s Set) Match(url string) bool {
	for _, p := range s {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// Sources lists the wire strings of the set, in order
func (s Set) Sources() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.source
	}
	return out
}

// ParseAll parses every wire string, keeping the good ones and returning one
// ParseError per rejected entry
func ParseAll(raw []string) (Set, []error) {
	set := make(Set, 0, len(raw))
	var errs []error
	for _, r := range raw {
		p, err := Parse(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set = append(set, p)
	}
	return set, errs
}

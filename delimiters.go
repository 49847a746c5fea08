package subst

import (
	"iter"
	"strings"
)

const (
	// DefaultStartDelimiter opens a reference when no delimiters are configured.
	DefaultStartDelimiter = "{"
	// DefaultEndDelimiter closes a reference when no delimiters are configured.
	DefaultEndDelimiter = "}"
)

// Delimiters is the immutable start/end token pair that bounds a reference.
type Delimiters struct {
	Start string
	End   string
}

// Reference is one delimiter-bounded span found in a value. Start and End are
// byte offsets of the whole token (delimiters included) in the scanned value.
type Reference struct {
	Body  string
	Token string
	Start int
	End   int
}

// NewDelimiters validates and returns a delimiter pair. Both tokens must be
// non-empty.
func NewDelimiters(start, end string) (Delimiters, error) {
	if start == "" {
		return Delimiters{}, &ConfigError{Field: "start delimiter", Err: errEmptyDelimiter}
	}
	if end == "" {
		return Delimiters{}, &ConfigError{Field: "end delimiter", Err: errEmptyDelimiter}
	}
	return Delimiters{Start: start, End: end}, nil
}

// DefaultDelimiters returns the `{` `}` pair.
func DefaultDelimiters() Delimiters {
	return Delimiters{Start: DefaultStartDelimiter, End: DefaultEndDelimiter}
}

// Wrap returns body enclosed in the delimiters.
func (d Delimiters) Wrap(body string) string {
	return d.Start + body + d.End
}

// References yields the references found in value from left to right. Spans
// never overlap and never nest: when the text between a start token and the
// next end token contains another start token, the innermost one opens the
// span. Unmatched tokens and empty bodies are skipped. The sequence holds no
// state between iterations.
func (d Delimiters) References(value string) iter.Seq[Reference] {
	return func(yield func(Reference) bool) {
		if d.Start == "" || d.End == "" {
			return
		}
		offset := 0
		for offset < len(value) {
			i := strings.Index(value[offset:], d.Start)
			if i < 0 {
				return
			}
			open := offset + i
			bodyStart := open + len(d.Start)

			j := strings.Index(value[bodyStart:], d.End)
			if j < 0 {
				return
			}
			bodyEnd := bodyStart + j

			if k := strings.LastIndex(value[bodyStart:bodyEnd], d.Start); k >= 0 {
				open = bodyStart + k
				bodyStart = open + len(d.Start)
			}

			end := bodyEnd + len(d.End)
			offset = end
			if bodyStart >= bodyEnd {
				continue
			}

			ref := Reference{
				Body:  value[bodyStart:bodyEnd],
				Token: value[open:end],
				Start: open,
				End:   end,
			}
			if !yield(ref) {
				return
			}
		}
	}
}

// FindReferences collects References into a slice.
func (d Delimiters) FindReferences(value string) []Reference {
	var refs []Reference
	for ref := range d.References(value) {
		refs = append(refs, ref)
	}
	return refs
}

// Contains reports whether value holds at least one reference.
func (d Delimiters) Contains(value string) bool {
	for range d.References(value) {
		return true
	}
	return false
}

package techrules

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

var (
	lineBreak     = regexp.MustCompile(`\r?\n`)
	assignmentRow = regexp.MustCompile(`^[\s\p{Z}\x{FEFF}]*([A-Za-z0-9_]+)[\s\p{Z}\x{FEFF}]*=[\s\p{Z}\x{FEFF}]*(.+)$`)
)

// isBlank matches any Unicode space, including NBSP and the byte order mark
// that pasted text often carries.
func isBlank(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) || r == '\uFEFF'
}

// Formulas maps formula names to expression text and remembers the order in
// which names were first declared.
type Formulas struct {
	names []string
	exprs map[string]string
}

// Set stores expr under name. Redeclaring a name replaces its expression
// but keeps its original position.
func (f *Formulas) Set(name, expr string) {
	if f.exprs == nil {
		f.exprs = make(map[string]string)
	}
	if _, ok := f.exprs[name]; !ok {
		f.names = append(f.names, name)
	}
	f.exprs[name] = expr
}

// Get returns the expression declared for name.
func (f *Formulas) Get(name string) (string, bool) {
	expr, ok := f.exprs[name]
	return expr, ok
}

// Len returns the number of distinct names.
func (f *Formulas) Len() int { return len(f.names) }

// Names returns the names in declaration order.
func (f *Formulas) Names() []string {
	return append([]string(nil), f.names...)
}

// Map returns a plain copy of the formulas.
func (f *Formulas) Map() map[string]string {
	out := make(map[string]string, len(f.exprs))
	for k, v := range f.exprs {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the formulas as an object in declaration order.
func (f Formulas) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, f.exprs[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeString appends s as a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON reads a flat object of string values, keeping key order.
func (f *Formulas) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = Formulas{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var expr string
		if err := dec.Decode(&expr); err != nil {
			return err
		}
		f.Set(name, expr)
	}
	_, err := dec.Token()
	return err
}

// ParseFormulas extracts "name = expression" assignments from free text.
// Blank, comment and malformed lines are skipped.
func ParseFormulas(text string) *Formulas {
	f := &Formulas{}
	for _, line := range lineBreak.Split(text, -1) {
		m := assignmentRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		f.Set(m[1], strings.TrimFunc(m[2], isBlank))
	}
	return f
}

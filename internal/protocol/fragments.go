package protocol

import (
	"strings"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// fragments splits text on every '{' and '}'. Empty pieces are kept so that
// positions stay fixed.
func fragments(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '}' {
			out = append(out, text[start:i])
			start = i + 1
		}
	}
	return append(out, text[start:])
}

// message is a split protocol message with checked positional access.
type message struct {
	op    string
	frags []string
}

func newMessage(op, text string, minFragments int) (*message, error) {
	if text == "" {
		return nil, analysis.Wrap(analysis.ParseFailure, op, analysis.ErrNullArgument)
	}
	m := &message{op: op, frags: fragments(text)}
	if len(m.frags) < minFragments {
		return nil, analysis.Errorf(analysis.ParseFailure, op, "expected at least %d fragments, got %d", minFragments, len(m.frags))
	}
	return m, nil
}

func (m *message) count() int {
	return len(m.frags)
}

func (m *message) at(i int) (string, error) {
	if i < 0 || i >= len(m.frags) {
		return "", analysis.Errorf(analysis.ParseFailure, m.op, "fragment %d out of range (%d fragments)", i, len(m.frags))
	}
	return m.frags[i], nil
}

// numbers parses fragment i as a comma separated list. A blank fragment is an
// empty list; a blank item inside a list is an error.
func (m *message) numbers(i int) ([]float64, error) {
	frag, err := m.at(i)
	if err != nil {
		return nil, err
	}
	return parseList(frag)
}

func parseList(frag string) ([]float64, error) {
	if strings.TrimSpace(frag) == "" {
		return []float64{}, nil
	}
	items := strings.Split(frag, ",")
	out := make([]float64, len(items))
	for i, s := range items {
		v, err := ParseFloat(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// flags parses fragment i as exactly n booleans.
func (m *message) flags(i, n int) ([]bool, error) {
	frag, err := m.at(i)
	if err != nil {
		return nil, err
	}
	items := strings.Split(frag, ",")
	if len(items) != n {
		return nil, analysis.Errorf(analysis.ParseFailure, m.op, "expected %d flags in fragment %d, got %d", n, i, len(items))
	}
	out := make([]bool, n)
	for k, s := range items {
		if out[k], err = ParseBool(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// tokens returns the non-blank comma separated items of the glue fragment i,
// the text between two braced lists.
func (m *message) tokens(i, want int) ([]string, error) {
	frag, err := m.at(i)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range strings.Split(frag, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) < want {
		return nil, analysis.Errorf(analysis.ParseFailure, m.op, "expected %d fields in fragment %d, got %d", want, i, len(out))
	}
	return out, nil
}

// flag parses the single boolean of glue fragment i.
func (m *message) flag(i int) (bool, error) {
	t, err := m.tokens(i, 1)
	if err != nil {
		return false, err
	}
	return ParseBool(t[0])
}

// rows parses the gradient rows held in fragments [start, end). Rows sit at
// every second fragment with separators between them, and the list closes
// with one more separator, so a list of n rows spans 2n fragments. An empty
// row keeps its position and reads as nil.
func (m *message) rows(start, end int) ([][]float64, error) {
	if end < start || (end-start)%2 != 0 {
		return nil, analysis.Errorf(analysis.ParseFailure, m.op, "malformed gradient rows between fragments %d and %d", start, end)
	}
	var rows [][]float64
	for i := start; i < end; i += 2 {
		if !blank(m.frags[i+1]) {
			return nil, analysis.Errorf(analysis.ParseFailure, m.op, "unexpected text %q between gradient rows", strings.TrimSpace(m.frags[i+1]))
		}
		row, err := parseList(m.frags[i])
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			row = nil
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(frag string) bool {
	return strings.Trim(frag, " \t\r\n,") == ""
}

func joinNumbers(v []float64) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = FormatFloat(x)
	}
	return strings.Join(s, ", ")
}

func joinFlags(b ...bool) string {
	s := make([]string, len(b))
	for i, x := range b {
		s[i] = formatBool(x)
	}
	return strings.Join(s, ", ")
}

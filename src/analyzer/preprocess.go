package analyzer

import (
	"strings"
)

// UnconfiguredCode is a byte range disabled by a shader def condition
type UnconfiguredCode struct {
	Start int
	End   int
	// Def is the shader def whose condition disabled the range
	Def string
}

// ImportDirective is an active #import line
type ImportDirective struct {
	Key   string
	Start int
	End   int
}

// Preprocessed is the result of running the shader preprocessor over a
// source. Text has the same length as Source with inactive lines blanked, so
// offsets into Text are offsets into Source.
type Preprocessed struct {
	Source       string
	Text         string
	Unconfigured []UnconfiguredCode
	Imports      []ImportDirective

	lines []ppLine
}

type ppLine struct {
	start, next int
	// keep is false for inactive lines and conditional directives
	keep bool
	// imp indexes Imports, or -1
	imp int
}

type ppFrame struct {
	def          string
	parentActive bool
	branchActive bool
	blockStart   int
}

func (f *ppFrame) active() bool {
	return f.parentActive && f.branchActive
}

// Preprocess evaluates #ifdef, #ifndef, #else and #endif against defs and
// collects #import directives from active lines.
func Preprocess(src string, defs map[string]bool) *Preprocessed {
	p := &Preprocessed{Source: src}
	text := []byte(src)
	var stack []*ppFrame

	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active()
	}
	closeBlock := func(f *ppFrame, end int) {
		if f.blockStart < end {
			p.Unconfigured = append(p.Unconfigured, UnconfiguredCode{Start: f.blockStart, End: end, Def: f.def})
		}
	}

	for start := 0; start < len(src) || start == 0; {
		next := len(src)
		if i := strings.IndexByte(src[start:], '\n'); i >= 0 {
			next = start + i + 1
		}
		line := ppLine{start: start, next: next, keep: true, imp: -1}
		fields := strings.Fields(src[start:next])
		directive := ""
		if len(fields) > 0 && strings.HasPrefix(fields[0], "#") {
			directive = fields[0]
		}

		switch directive {
		case "#ifdef", "#ifndef":
			def := ""
			if len(fields) > 1 {
				def = fields[1]
			}
			cond := defs[def]
			if directive == "#ifndef" {
				cond = !cond
			}
			f := &ppFrame{def: def, parentActive: active(), branchActive: cond, blockStart: next}
			stack = append(stack, f)
			line.keep = false

		case "#else":
			line.keep = false
			if len(stack) == 0 {
				break
			}
			f := stack[len(stack)-1]
			if f.parentActive {
				if f.branchActive {
					f.blockStart = next
				} else {
					closeBlock(f, start)
				}
			}
			f.branchActive = !f.branchActive

		case "#endif":
			line.keep = false
			if len(stack) == 0 {
				break
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if f.parentActive && !f.branchActive {
				closeBlock(f, start)
			}

		default:
			if !active() {
				line.keep = false
				blank(text[start:next])
			} else if directive == "#import" && len(fields) > 1 {
				end := next
				for end > start && (src[end-1] == '\n' || src[end-1] == '\r') {
					end--
				}
				line.imp = len(p.Imports)
				p.Imports = append(p.Imports, ImportDirective{Key: importKey(fields[1]), Start: start, End: end})
			}
		}

		p.lines = append(p.lines, line)
		if next == start {
			break
		}
		start = next
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if f := stack[i]; f.parentActive && !f.branchActive {
			closeBlock(f, len(src))
		}
	}

	p.Text = string(text)
	return p
}

// blank replaces everything but line terminators with spaces
func blank(b []byte) {
	for i, c := range b {
		if c != '\n' && c != '\r' {
			b[i] = ' '
		}
	}
}

func importKey(s string) string {
	s = strings.Trim(s, `"`)
	s = strings.TrimPrefix(s, "<")
	return strings.TrimSuffix(s, ">")
}

// ImportKeys returns the distinct import keys in source order
func (p *Preprocessed) ImportKeys() []string {
	seen := make(map[string]bool, len(p.Imports))
	var keys []string
	for _, imp := range p.Imports {
		if !seen[imp.Key] {
			seen[imp.Key] = true
			keys = append(keys, imp.Key)
		}
	}
	return keys
}

// IsUnconfigured reports whether offset lies in a disabled range
func (p *Preprocessed) IsUnconfigured(offset int) (UnconfiguredCode, bool) {
	for _, u := range p.Unconfigured {
		if u.Start <= offset && offset < u.End {
			return u, true
		}
	}
	return UnconfiguredCode{}, false
}

// Expand renders the active source: conditional directives and disabled
// lines are dropped and each #import line is replaced by resolve(key). An
// import that fails to resolve stays in place with the reason appended as a
// comment.
func (p *Preprocessed) Expand(resolve func(key string) (string, error)) string {
	var b strings.Builder
	b.Grow(len(p.Source))
	for _, line := range p.lines {
		if !line.keep {
			continue
		}
		if line.imp < 0 {
			b.WriteString(p.Source[line.start:line.next])
			continue
		}

		imp := p.Imports[line.imp]
		terminator := p.Source[imp.End:line.next]
		source, err := resolve(imp.Key)
		if err != nil {
			b.WriteString(p.Source[imp.Start:imp.End])
			b.WriteString(" // unresolved import: ")
			b.WriteString(strings.ReplaceAll(err.Error(), "\n", " "))
			b.WriteString(terminator)
			continue
		}
		b.WriteString(source)
		if terminator != "" && !strings.HasSuffix(source, "\n") {
			b.WriteString(terminator)
		}
	}
	return b.String()
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/lspext"
)

// PrintMethods writes the extension catalog as a table, or as JSON
func PrintMethods(w io.Writer, asJSON bool) error {
	specs := lspext.Catalog()
	if asJSON {
		return writeJSON(w, specs)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tDIRECTION\tPARAMS\tRESULT")
	for _, s := range specs {
		name := s.Method.String()
		if s.Experimental {
			name += " (experimental)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, s.Direction, s.Params, s.Result)
	}
	return tw.Flush()
}

func writeText(w io.Writer, text string, asJSON bool) error {
	if asJSON {
		return writeJSON(w, text)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeHints lists each hint with its position and the source line it
// annotates, the label spliced in where an editor would draw it.
func writeHints(w io.Writer, line func(int) string, hints []lspext.InlayHint) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, h := range hints {
		fmt.Fprintf(tw, "%d:%d\t%s\t%q\t%s\n",
			h.Position.Line, h.Position.Character, h.Kind, h.Label,
			strings.TrimSpace(spliceHint(line(int(h.Position.Line)), h)))
	}
	return tw.Flush()
}

func spliceHint(text string, h lspext.InlayHint) string {
	units := 0
	for i, r := range text {
		if units >= int(h.Position.Character) {
			return text[:i] + renderLabel(h) + text[i:]
		}
		units++
		if r >= 0x10000 {
			units++
		}
	}
	return text + renderLabel(h)
}

func renderLabel(h lspext.InlayHint) string {
	label := h.Label
	if h.PaddingLeft {
		label = " " + label
	}
	if h.PaddingRight {
		label += " "
	}
	return "⟨" + label + "⟩"
}

// describeError names the wire code behind err, or returns "" when err
// carries none.
func describeError(err error) string {
	code, ok := errs.CodeOf(err)
	if !ok {
		return ""
	}
	desc := fmt.Sprintf("%s (code %d, %s)", errs.GetErrorCodeMessage(code), code, errs.GetErrorCodeCategory(code))
	if errs.IsRetryableError(code) {
		desc += "; retrying may succeed"
	}
	return desc
}

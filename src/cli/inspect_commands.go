package cli

import (
	"fmt"
	"io"
	"time"

	"go.lsp.dev/protocol"

	clicommon "shader-lsp/src/cli/common"
	"shader-lsp/src/lspext"
	"shader-lsp/src/utils/lspconv"
)

// InspectKind selects the extension request an inspect run issues
type InspectKind string

const (
	InspectSyntaxTree InspectKind = CmdInspectTree
	InspectFullSource InspectKind = CmdInspectSource
	InspectDebug      InspectKind = CmdInspectDebug
	InspectInlayHints InspectKind = CmdInspectHints
)

// InspectOptions configures an inspect run
type InspectOptions struct {
	ConfigPath   string
	SettingsPath string
	// Range is "line:char-line:char"; empty means the whole file
	Range string
	// Position is "line:char", required by InspectDebug
	Position string
	JSON     bool
	Verbose  bool
	Timeout  time.Duration
}

// RunInspect opens file in an in-process session and writes the answer to
// the request selected by kind.
func RunInspect(w io.Writer, kind InspectKind, file string, opts InspectOptions) error {
	var rng *protocol.Range
	if opts.Range != "" {
		r, err := lspconv.ParseRange(opts.Range)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", FlagRange, err)
		}
		rng = &r
	}
	var pos protocol.Position
	switch {
	case opts.Position != "":
		p, err := lspconv.ParsePosition(opts.Position)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", FlagPosition, err)
		}
		pos = p
	case kind == InspectDebug:
		return fmt.Errorf("%s needs --%s", CmdInspectDebug, FlagPosition)
	}

	cc, err := clicommon.NewCommandContext(opts.ConfigPath, clicommon.CommandContextOptions{
		Timeout:      opts.Timeout,
		SettingsPath: opts.SettingsPath,
		Verbose:      opts.Verbose,
	})
	if err != nil {
		return err
	}
	defer cc.Cleanup()

	doc, err := cc.OpenFile(file)
	if err != nil {
		return err
	}
	id := protocol.TextDocumentIdentifier{URI: doc.URI}

	switch kind {
	case InspectSyntaxTree:
		tree, err := cc.Client.SyntaxTree(cc.Context, lspext.SyntaxTreeParams{TextDocument: id, Range: rng})
		if err != nil {
			return err
		}
		return writeText(w, tree, opts.JSON)

	case InspectFullSource:
		source, err := cc.Client.FullSource(cc.Context, lspext.FullSourceParams{TextDocument: id})
		if err != nil {
			return err
		}
		return writeText(w, source, opts.JSON)

	case InspectDebug:
		out, err := cc.Client.DebugCommand(cc.Context, lspext.DebugCommandParams{TextDocument: id, Position: pos})
		if err != nil {
			return err
		}
		return writeText(w, out, opts.JSON)

	case InspectInlayHints:
		whole := protocol.Range{End: doc.End()}
		if rng != nil {
			whole = *rng
		}
		hints, err := cc.Client.InlayHints(cc.Context, lspext.InlayHintsParams{TextDocument: id, Range: whole})
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(w, hints)
		}
		return writeHints(w, doc.Line, hints)
	}
	return fmt.Errorf("unknown inspect kind %q", kind)
}

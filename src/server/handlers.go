package server

import (
	"shader-lsp/src/analyzer"
	"shader-lsp/src/lspext"
	"shader-lsp/src/utils/lspconv"
)

// syntaxTree renders the parse tree of the document, or of the nodes that
// intersect params.Range.
func (ss *session) syntaxTree(params lspext.SyntaxTreeParams) (string, error) {
	doc, err := ss.document(params.TextDocument)
	if err != nil {
		return "", err
	}
	start, end, err := doc.Span(params.Range)
	if err != nil {
		return "", err
	}

	a := ss.analyze(doc, ss.currentSettings())
	if params.Range == nil {
		return a.Tree.Format(), nil
	}
	return a.Tree.FormatSpan(start, end), nil
}

func (ss *session) debugCommand(params lspext.DebugCommandParams) (string, error) {
	doc, err := ss.document(params.TextDocument)
	if err != nil {
		return "", err
	}
	if err := doc.CheckPosition(params.Position); err != nil {
		return "", err
	}
	offset, err := doc.Offset(params.Position)
	if err != nil {
		return "", err
	}

	a := ss.analyze(doc, ss.currentSettings())
	return a.Debug(offset, lspconv.FormatPosition(params.Position)), nil
}

func (ss *session) inlayHints(params lspext.InlayHintsParams) ([]lspext.InlayHint, error) {
	doc, err := ss.document(params.TextDocument)
	if err != nil {
		return nil, err
	}
	start, end, err := doc.Span(&params.Range)
	if err != nil {
		return nil, err
	}

	settings := ss.currentSettings()
	out := []lspext.InlayHint{}
	if !settings.InlayHints.Enabled {
		return out, nil
	}

	a := ss.analyze(doc, settings)
	hints := analyzer.InlayHints(a.Tree, start, end, analyzer.HintOptions{
		TypeHints:      settings.InlayHints.TypeHints,
		ParameterHints: settings.InlayHints.ParameterHints,
	})
	for _, h := range hints {
		out = append(out, lspext.InlayHint{
			Position:     doc.PositionAt(h.Offset),
			Label:        h.Label,
			Kind:         h.Kind,
			PaddingLeft:  h.PaddingLeft,
			PaddingRight: h.PaddingRight,
		})
	}
	return out, nil
}

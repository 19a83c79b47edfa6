package lspext

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
)

// InlayHintKind is the kind of an inlay hint. Values outside the known set
// must be accepted and rendered generically.
type InlayHintKind int

const (
	InlayHintKindType      InlayHintKind = 1
	InlayHintKindParameter InlayHintKind = 2
)

func (k InlayHintKind) String() string {
	switch k {
	case InlayHintKindType:
		return "type"
	case InlayHintKindParameter:
		return "parameter"
	default:
		return "other"
	}
}

// Known reports whether k is one of the defined kinds
func (k InlayHintKind) Known() bool {
	return k == InlayHintKindType || k == InlayHintKindParameter
}

// InlayHint is one inline annotation. The shape follows LSP 3.17, which
// go.lsp.dev/protocol v0.12.0 predates.
type InlayHint struct {
	Position     protocol.Position `json:"position"`
	Label        string            `json:"label"`
	Kind         InlayHintKind     `json:"kind,omitempty"`
	PaddingLeft  bool              `json:"paddingLeft,omitempty"`
	PaddingRight bool              `json:"paddingRight,omitempty"`
}

// UnmarshalJSON accepts a label given either as a string or as label parts
func (h *InlayHint) UnmarshalJSON(data []byte) error {
	var wire struct {
		Position     protocol.Position `json:"position"`
		Label        json.RawMessage   `json:"label"`
		Kind         InlayHintKind     `json:"kind"`
		PaddingLeft  bool              `json:"paddingLeft"`
		PaddingRight bool              `json:"paddingRight"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	label, err := decodeLabel(wire.Label)
	if err != nil {
		return err
	}

	*h = InlayHint{
		Position:     wire.Position,
		Label:        label,
		Kind:         wire.Kind,
		PaddingLeft:  wire.PaddingLeft,
		PaddingRight: wire.PaddingRight,
	}
	return nil
}

func decodeLabel(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("inlay hint label: %w", err)
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Value)
	}
	return b.String(), nil
}

// Render formats the hint for display, e.g. "3:9 type : f32"
func (h InlayHint) Render() string {
	return fmt.Sprintf("%d:%d %s %s", h.Position.Line, h.Position.Character, h.Kind, h.Label)
}

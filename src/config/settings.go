package config

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Settings are the analyzer settings negotiated through
// wgsl-analyzer/requestConfiguration. Unknown keys are ignored.
type Settings struct {
	ShaderDefs    []string          `json:"shaderDefs" yaml:"shader_defs,omitempty"`
	CustomImports map[string]string `json:"customImports" yaml:"custom_imports,omitempty"`
	InlayHints    InlayHintSettings `json:"inlayHints" yaml:"inlay_hints"`
	Trace         TraceSettings     `json:"trace" yaml:"trace"`
}

// InlayHintSettings switch the experimental/inlayHints producers
type InlayHintSettings struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	TypeHints      bool `json:"typeHints" yaml:"type_hints"`
	ParameterHints bool `json:"parameterHints" yaml:"parameter_hints"`
}

// TraceSettings mirror the client's trace.server option
type TraceSettings struct {
	Server string `json:"server" yaml:"server"`
}

// DefaultSettings returns the settings used when the client sends none
func DefaultSettings() Settings {
	return Settings{
		InlayHints: InlayHintSettings{
			Enabled:        true,
			TypeHints:      true,
			ParameterHints: true,
		},
		Trace: TraceSettings{Server: "off"},
	}
}

// DecodeSettings overlays a requestConfiguration answer on base. An empty
// object or null leaves base unchanged.
func DecodeSettings(raw []byte, base Settings) (Settings, error) {
	out := base.Clone()
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("decoding settings: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of s
func (s Settings) Clone() Settings {
	out := s
	if s.ShaderDefs != nil {
		out.ShaderDefs = append([]string(nil), s.ShaderDefs...)
	}
	if s.CustomImports != nil {
		out.CustomImports = make(map[string]string, len(s.CustomImports))
		for k, v := range s.CustomImports {
			out.CustomImports[k] = v
		}
	}
	return out
}

// DefSet returns the shader defs as a lookup set
func (s Settings) DefSet() map[string]bool {
	set := make(map[string]bool, len(s.ShaderDefs))
	for _, d := range s.ShaderDefs {
		set[d] = true
	}
	return set
}

// ImportKeys returns the custom import keys in sorted order
func (s Settings) ImportKeys() []string {
	keys := make([]string, 0, len(s.CustomImports))
	for k := range s.CustomImports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

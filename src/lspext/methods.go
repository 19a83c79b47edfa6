// Package lspext defines the wgsl-analyzer extensions to the Language Server
// Protocol: the method catalog and the wire shape of every params and result
// type.
package lspext

import (
	"sort"
)

// Namespace prefixes every vendor method so it cannot collide with the base
// protocol or other extensions.
const Namespace = "wgsl-analyzer"

// Method is the wire name of an extension request. The set of valid methods
// is closed; see Catalog.
type Method string

const (
	MethodSyntaxTree           Method = Namespace + "/syntaxTree"
	MethodDebugCommand         Method = Namespace + "/debugCommand"
	MethodFullSource           Method = Namespace + "/fullSource"
	MethodRequestConfiguration Method = Namespace + "/requestConfiguration"
	MethodReadFile             Method = Namespace + "/readFile"
	MethodInlayHints           Method = "experimental/inlayHints"
)

func (m Method) String() string {
	return string(m)
}

// Direction says which party issues a request
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

func (d Direction) String() string {
	if d == ServerToClient {
		return "server→client"
	}
	return "client→server"
}

// MarshalText renders d by name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Spec describes one message kind
type Spec struct {
	Method       Method    `json:"method"`
	Direction    Direction `json:"direction"`
	Experimental bool      `json:"experimental,omitempty"`
	Params       string    `json:"params"`
	Result       string    `json:"result"`
	Summary      string    `json:"summary"`
}

var catalog = []Spec{
	{
		Method:    MethodSyntaxTree,
		Direction: ClientToServer,
		Params:    "{textDocument, range?}",
		Result:    "string",
		Summary:   "text serialization of the parse tree, whole document when range is null",
	},
	{
		Method:    MethodDebugCommand,
		Direction: ClientToServer,
		Params:    "{textDocument, position}",
		Result:    "string",
		Summary:   "free-text dump of analyzer state at the position",
	},
	{
		Method:    MethodFullSource,
		Direction: ClientToServer,
		Params:    "{textDocument}",
		Result:    "string",
		Summary:   "preprocessed source with imports expanded",
	},
	{
		Method:    MethodRequestConfiguration,
		Direction: ServerToClient,
		Params:    "(none)",
		Result:    "any",
		Summary:   "current client settings; {} when none are configured",
	},
	{
		Method:    MethodReadFile,
		Direction: ServerToClient,
		Params:    "{identifier, filepath, original}",
		Result:    "{identifier, filepath, original, source}",
		Summary:   "client reads filepath relative to original and echoes identifier",
	},
	{
		Method:       MethodInlayHints,
		Direction:    ClientToServer,
		Experimental: true,
		Params:       "{textDocument, range}",
		Result:       "InlayHint[]",
		Summary:      "type and parameter hints anchored within range",
	},
}

var byMethod = func() map[Method]Spec {
	m := make(map[Method]Spec, len(catalog))
	for _, s := range catalog {
		m[s.Method] = s
	}
	return m
}()

// Catalog returns every extension message kind in a fixed order
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds the catalog entry for a wire method name
func Lookup(name string) (Spec, bool) {
	s, ok := byMethod[Method(name)]
	return s, ok
}

// IsExtension reports whether name is one of the catalog methods
func IsExtension(name string) bool {
	_, ok := byMethod[Method(name)]
	return ok
}

// Methods returns the catalog methods flowing in direction d, sorted
func Methods(d Direction) []Method {
	var out []Method
	for _, s := range catalog {
		if s.Direction == d {
			out = append(out, s.Method)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Direction returns the direction of m. Unknown methods report ClientToServer.
func (m Method) Direction() Direction {
	return byMethod[m].Direction
}

// Known reports whether m is in the catalog
func (m Method) Known() bool {
	_, ok := byMethod[m]
	return ok
}

package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"shader-lsp/src/lspext"
)

// Hint is an inlay hint anchored at a byte offset
type Hint struct {
	Offset       int
	Label        string
	Kind         lspext.InlayHintKind
	PaddingLeft  bool
	PaddingRight bool
}

// HintOptions select the hint producers
type HintOptions struct {
	TypeHints      bool
	ParameterHints bool
}

const (
	abstractInt   = "AbstractInt"
	abstractFloat = "AbstractFloat"
)

var (
	vecShorthand = regexp.MustCompile(`^vec([234])([fihu])$`)
	matShorthand = regexp.MustCompile(`^mat([234])x([234])([fh])$`)
	vecOrMat     = regexp.MustCompile(`^(vec[234]|mat[234]x[234])$`)
	vecOfScalar  = regexp.MustCompile(`^vec[234]<(\w+)>$`)

	scalarSuffix = map[string]string{"f": "f32", "i": "i32", "h": "f16", "u": "u32"}
	scalarCtors  = map[string]bool{"f32": true, "f16": true, "i32": true, "u32": true, "bool": true}
)

type fnInfo struct {
	params []string
	ret    string
}

type hinter struct {
	opts    HintOptions
	funcs   map[string]fnInfo
	structs map[string]bool
	hints   []Hint
}

// InlayHints infers type hints for untyped bindings and parameter name hints
// for calls to functions declared in the tree. Only hints anchored within
// the byte span [start, end) are returned, ordered by offset.
func InlayHints(t *Tree, start, end int, opts HintOptions) []Hint {
	h := &hinter{
		opts:    opts,
		funcs:   make(map[string]fnInfo),
		structs: make(map[string]bool),
	}
	h.collectItems(t.Root)

	globals := make(map[string]string)
	for _, item := range t.Root.Children {
		switch item.Kind {
		case GlobalConst, GlobalVar:
			h.binding(item, globals)
		}
	}
	for _, item := range t.Root.Children {
		if item.Kind != Function {
			continue
		}
		scope := make(map[string]string, len(globals))
		for k, v := range globals {
			scope[k] = v
		}
		if pl := item.Child(ParamList); pl != nil {
			for _, param := range pl.Children {
				if param.Kind == Param {
					if ty := typeAfterColon(param.Significant()); ty != "" {
						scope[param.Name()] = ty
					}
				}
			}
		}
		h.walkBody(item, scope)
	}

	if opts.ParameterHints {
		t.Root.Walk(func(n *Node) bool {
			if n.Kind == CallExpr {
				h.paramHints(n)
			}
			return true
		})
	}

	out := h.hints[:0]
	for _, hint := range h.hints {
		if start <= hint.Offset && hint.Offset < end {
			out = append(out, hint)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset < out[j].Offset
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (h *hinter) collectItems(root *Node) {
	for _, item := range root.Children {
		switch item.Kind {
		case Struct:
			if name := item.Name(); name != "" {
				h.structs[name] = true
			}
		case Function:
			name := item.Name()
			if name == "" {
				continue
			}
			info := fnInfo{}
			if pl := item.Child(ParamList); pl != nil {
				for _, param := range pl.Children {
					if param.Kind == Param {
						info.params = append(info.params, param.Name())
					}
				}
			}
			info.ret = returnType(item)
			h.funcs[name] = info
		}
	}
}

func returnType(fn *Node) string {
	var toks []*Node
	seenArrow := false
	for _, c := range fn.Significant() {
		switch {
		case c.Kind == Arrow:
			seenArrow = true
		case !seenArrow || c.Kind == Attribute:
		case c.Kind == Block:
			return joinTokens(toks)
		default:
			toks = append(toks, c)
		}
	}
	return joinTokens(toks)
}

func (h *hinter) walkBody(n *Node, scope map[string]string) {
	for _, c := range n.Children {
		switch c.Kind {
		case LetStmt, VarStmt, ConstStmt:
			h.binding(c, scope)
		case Block, ExprStmt:
			h.walkBody(c, scope)
		}
	}
}

// binding records the type of a let/var/const declaration and emits a type
// hint when the type is not written out.
func (h *hinter) binding(n *Node, scope map[string]string) {
	sig := n.Significant()
	for len(sig) > 0 && sig[0].Kind == Attribute {
		sig = sig[1:]
	}
	i := 1
	if i < len(sig) && sig[i].Kind == LAngle {
		for i < len(sig) && sig[i].Kind != RAngle {
			i++
		}
		i++
	}
	if i >= len(sig) || sig[i].Kind != Ident {
		return
	}
	name := sig[i]
	rest := sig[i+1:]

	if ty := typeAfterColon(sig[i:]); ty != "" {
		scope[name.Text] = ty
		return
	}
	if len(rest) == 0 || rest[0].Kind != Eq {
		return
	}

	init := rest[1:]
	if len(init) > 0 && init[len(init)-1].Kind == Semicolon {
		init = init[:len(init)-1]
	}
	ty := h.inferExpr(init, scope)
	if ty == "" {
		return
	}
	scope[name.Text] = ty
	if h.opts.TypeHints {
		h.hints = append(h.hints, Hint{
			Offset: name.End,
			Label:  ": " + ty,
			Kind:   lspext.InlayHintKindType,
		})
	}
}

// typeAfterColon returns the type written after a colon in a declaration
func typeAfterColon(sig []*Node) string {
	for i, c := range sig {
		if c.Kind == Colon {
			var toks []*Node
			for _, t := range sig[i+1:] {
				if t.Kind == Eq || t.Kind == Semicolon {
					break
				}
				toks = append(toks, t)
			}
			return joinTokens(toks)
		}
		if c.Kind == Eq {
			return ""
		}
	}
	return ""
}

func joinTokens(toks []*Node) string {
	var b strings.Builder
	for _, t := range toks {
		if t.Kind.IsTrivia() {
			continue
		}
		if !t.IsToken() {
			b.WriteString(joinTokens(t.Significant()))
			continue
		}
		b.WriteString(t.Text)
		if t.Kind == Comma {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func (h *hinter) inferExpr(elems []*Node, scope map[string]string) string {
	if len(elems) == 0 {
		return ""
	}
	if len(elems) == 1 {
		return concrete(h.inferElem(elems[0], scope))
	}

	types := make(map[string]bool)
	for _, e := range elems {
		switch e.Kind {
		case LParen, RParen:
			continue
		case LAngle, RAngle:
			return "bool"
		case Operator:
			switch e.Text {
			case "==", "!=", "<=", ">=", "&&", "||", "!":
				return "bool"
			}
			continue
		case Dot, LBrack, RBrack:
			return ""
		}
		ty := h.inferElem(e, scope)
		if ty == "" {
			return ""
		}
		types[ty] = true
	}
	return unify(types)
}

// unify combines operand types of an arithmetic expression. Abstract
// literals adopt the concrete type; a vector absorbs its scalar.
func unify(types map[string]bool) string {
	concreteTypes := make([]string, 0, len(types))
	for ty := range types {
		if ty != abstractInt && ty != abstractFloat {
			concreteTypes = append(concreteTypes, ty)
		}
	}
	sort.Strings(concreteTypes)

	switch len(concreteTypes) {
	case 0:
		if types[abstractFloat] {
			return "f32"
		}
		return "i32"
	case 1:
		return concreteTypes[0]
	case 2:
		for i, ty := range concreteTypes {
			other := concreteTypes[1-i]
			if m := vecOfScalar.FindStringSubmatch(ty); m != nil && m[1] == other {
				return ty
			}
		}
	}
	return ""
}

func concrete(ty string) string {
	switch ty {
	case abstractInt:
		return "i32"
	case abstractFloat:
		return "f32"
	}
	return ty
}

func (h *hinter) inferElem(n *Node, scope map[string]string) string {
	switch n.Kind {
	case IntLiteral:
		switch {
		case strings.HasSuffix(n.Text, "u"):
			return "u32"
		case strings.HasSuffix(n.Text, "i"):
			return "i32"
		}
		return abstractInt
	case FloatLiteral:
		switch {
		case strings.HasSuffix(n.Text, "h"):
			return "f16"
		case strings.HasSuffix(n.Text, "f"):
			return "f32"
		}
		return abstractFloat
	case TrueKw, FalseKw:
		return "bool"
	case Ident:
		return scope[n.Text]
	case CallExpr:
		return h.inferCall(n, scope)
	}
	return ""
}

func (h *hinter) inferCall(n *Node, scope map[string]string) string {
	callee := n.Name()
	var template []*Node
	inTemplate := false
	for _, c := range n.Significant() {
		switch {
		case c.Kind == LAngle && !inTemplate:
			inTemplate = true
			template = append(template, c)
		case c.Kind == ArgList:
			inTemplate = false
		case inTemplate:
			template = append(template, c)
		}
	}
	if len(template) > 0 {
		return callee + joinTokens(template)
	}

	if m := vecShorthand.FindStringSubmatch(callee); m != nil {
		return "vec" + m[1] + "<" + scalarSuffix[m[2]] + ">"
	}
	if m := matShorthand.FindStringSubmatch(callee); m != nil {
		return "mat" + m[1] + "x" + m[2] + "<" + scalarSuffix[m[3]] + ">"
	}
	if scalarCtors[callee] || h.structs[callee] {
		return callee
	}
	if fn, ok := h.funcs[callee]; ok {
		return fn.ret
	}
	if vecOrMat.MatchString(callee) {
		args := splitArgs(n.Child(ArgList))
		if len(args) == 0 {
			return ""
		}
		elem := h.inferExpr(args[0], scope)
		if m := vecOfScalar.FindStringSubmatch(elem); m != nil {
			elem = m[1]
		}
		if elem == "" {
			return ""
		}
		return callee + "<" + elem + ">"
	}
	return ""
}

// splitArgs splits an ARG_LIST into its arguments
func splitArgs(list *Node) [][]*Node {
	if list == nil {
		return nil
	}
	sig := list.Significant()
	if len(sig) > 0 && sig[0].Kind == LParen {
		sig = sig[1:]
	}
	if len(sig) > 0 && sig[len(sig)-1].Kind == RParen {
		sig = sig[:len(sig)-1]
	}

	var args [][]*Node
	var cur []*Node
	depth := 0
	for _, c := range sig {
		switch c.Kind {
		case LParen, LBrack:
			depth++
		case RParen, RBrack:
			depth--
		case Comma:
			if depth == 0 {
				args = append(args, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		args = append(args, cur)
	}
	return args
}

func (h *hinter) paramHints(call *Node) {
	fn, ok := h.funcs[call.Name()]
	if !ok {
		return
	}
	for i, arg := range splitArgs(call.Child(ArgList)) {
		if i >= len(fn.params) || len(arg) == 0 {
			break
		}
		name := fn.params[i]
		if name == "" || len(arg) == 1 && arg[0].Kind == Ident && arg[0].Text == name {
			continue
		}
		h.hints = append(h.hints, Hint{
			Offset:       arg[0].Start,
			Label:        name + ":",
			Kind:         lspext.InlayHintKindParameter,
			PaddingRight: true,
		})
	}
}

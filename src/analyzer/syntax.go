// Package analyzer is the lightweight WGSL front end behind the extension
// methods: a lossless lexer and structural parser, the shader preprocessor,
// inlay hint inference and the debug dump.
package analyzer

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind names a node or token in the syntax tree
type Kind string

// Node kinds
const (
	SourceFile  Kind = "SOURCE_FILE"
	Function    Kind = "FUNCTION"
	ParamList   Kind = "PARAM_LIST"
	Param       Kind = "PARAM"
	Struct      Kind = "STRUCT"
	FieldList   Kind = "FIELD_LIST"
	Field       Kind = "FIELD"
	GlobalVar   Kind = "GLOBAL_VAR"
	GlobalConst Kind = "GLOBAL_CONST"
	TypeAlias   Kind = "TYPE_ALIAS"
	Attribute   Kind = "ATTRIBUTE"
	Block       Kind = "BLOCK"
	LetStmt     Kind = "LET_STMT"
	VarStmt     Kind = "VAR_STMT"
	ConstStmt   Kind = "CONST_STMT"
	ReturnStmt  Kind = "RETURN_STMT"
	ExprStmt    Kind = "EXPR_STMT"
	CallExpr    Kind = "CALL_EXPR"
	ArgList     Kind = "ARG_LIST"
	Import      Kind = "IMPORT"
	Directive   Kind = "DIRECTIVE"
	ErrorNode   Kind = "ERROR"
)

// Token kinds
const (
	Whitespace    Kind = "WHITESPACE"
	Comment       Kind = "COMMENT"
	Ident         Kind = "IDENT"
	IntLiteral    Kind = "INT_LITERAL"
	FloatLiteral  Kind = "FLOAT_LITERAL"
	DirectiveLine Kind = "DIRECTIVE_LINE"
	ErrorToken    Kind = "ERROR_TOKEN"

	FnKw       Kind = "FN_KW"
	LetKw      Kind = "LET_KW"
	VarKw      Kind = "VAR_KW"
	ConstKw    Kind = "CONST_KW"
	OverrideKw Kind = "OVERRIDE_KW"
	StructKw   Kind = "STRUCT_KW"
	AliasKw    Kind = "ALIAS_KW"
	TypeKw     Kind = "TYPE_KW"
	ReturnKw   Kind = "RETURN_KW"
	TrueKw     Kind = "TRUE_KW"
	FalseKw    Kind = "FALSE_KW"
	IfKw       Kind = "IF_KW"
	ElseKw     Kind = "ELSE_KW"
	ForKw      Kind = "FOR_KW"
	WhileKw    Kind = "WHILE_KW"
	LoopKw     Kind = "LOOP_KW"
	SwitchKw   Kind = "SWITCH_KW"
	CaseKw     Kind = "CASE_KW"
	DefaultKw  Kind = "DEFAULT_KW"
	BreakKw    Kind = "BREAK_KW"
	ContinueKw Kind = "CONTINUE_KW"
	DiscardKw  Kind = "DISCARD_KW"
	EnableKw   Kind = "ENABLE_KW"

	LParen    Kind = "L_PAREN"
	RParen    Kind = "R_PAREN"
	LBrace    Kind = "L_BRACE"
	RBrace    Kind = "R_BRACE"
	LBrack    Kind = "L_BRACK"
	RBrack    Kind = "R_BRACK"
	LAngle    Kind = "L_ANGLE"
	RAngle    Kind = "R_ANGLE"
	Comma     Kind = "COMMA"
	Colon     Kind = "COLON"
	Semicolon Kind = "SEMICOLON"
	Eq        Kind = "EQ"
	Arrow     Kind = "ARROW"
	At        Kind = "AT"
	Dot       Kind = "DOT"
	Operator  Kind = "OPERATOR"
)

// IsTrivia reports whether tokens of kind k carry no syntax
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == Comment
}

// Node is a syntax tree node. Tokens are leaves with Text set; the
// concatenated text of all leaves equals the parsed source.
type Node struct {
	Kind     Kind
	Start    int
	End      int
	Text     string
	Children []*Node
	Parent   *Node

	leaf bool
}

// IsToken reports whether n is a leaf token
func (n *Node) IsToken() bool {
	return n.leaf
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Significant returns the children that are not trivia
func (n *Node) Significant() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.Kind.IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct child of kind k, or nil
func (n *Node) Child(k Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == k {
			return c
		}
	}
	return nil
}

// Name returns the first identifier token directly under n, or ""
func (n *Node) Name() string {
	if c := n.Child(Ident); c != nil {
		return c.Text
	}
	return ""
}

// Source returns the text covered by n
func (n *Node) Source() string {
	if n.IsToken() {
		return n.Text
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.IsToken() {
			b.WriteString(c.Text)
			return false
		}
		return true
	})
	return b.String()
}

// Label renders the node header used by the text format, e.g.
// FUNCTION@0..12 or IDENT@3..7 "main".
func (n *Node) Label() string {
	if n.IsToken() {
		return fmt.Sprintf("%s@%d..%d %s", n.Kind, n.Start, n.End, strconv.Quote(n.Text))
	}
	return fmt.Sprintf("%s@%d..%d", n.Kind, n.Start, n.End)
}

// Tree is a parsed document
type Tree struct {
	Root   *Node
	Source string
}

// TokenAt returns the token covering offset. At a boundary between two
// tokens the non-trivia one wins, preferring the right.
func (t *Tree) TokenAt(offset int) *Node {
	var left, right *Node
	t.Root.Walk(func(n *Node) bool {
		if offset < n.Start || offset > n.End {
			return false
		}
		if !n.IsToken() {
			return true
		}
		if n.Start <= offset && offset < n.End {
			right = n
		}
		if n.End == offset {
			left = n
		}
		return false
	})
	switch {
	case right != nil && (!right.Kind.IsTrivia() || left == nil || left.Kind.IsTrivia()):
		return right
	case left != nil:
		return left
	default:
		return right
	}
}

// Ancestors returns the chain of nodes from n's parent up to the root
func Ancestors(n *Node) []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

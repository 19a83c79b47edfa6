package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var keywords = map[string]Kind{
	"fn":       FnKw,
	"let":      LetKw,
	"var":      VarKw,
	"const":    ConstKw,
	"override": OverrideKw,
	"struct":   StructKw,
	"alias":    AliasKw,
	"type":     TypeKw,
	"return":   ReturnKw,
	"true":     TrueKw,
	"false":    FalseKw,
	"if":       IfKw,
	"else":     ElseKw,
	"for":      ForKw,
	"while":    WhileKw,
	"loop":     LoopKw,
	"switch":   SwitchKw,
	"case":     CaseKw,
	"default":  DefaultKw,
	"break":    BreakKw,
	"continue": ContinueKw,
	"discard":  DiscardKw,
	"enable":   EnableKw,
	"requires": EnableKw,
}

var punct = map[byte]Kind{
	'(': LParen,
	')': RParen,
	'{': LBrace,
	'}': RBrace,
	'[': LBrack,
	']': RBrack,
	'<': LAngle,
	'>': RAngle,
	',': Comma,
	':': Colon,
	';': Semicolon,
	'=': Eq,
	'@': At,
	'.': Dot,
}

var twoCharOps = []string{
	"==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
}

// Lex splits src into tokens. Every byte of src belongs to exactly one
// token; unknown characters become ERROR_TOKEN.
func Lex(src string) []*Node {
	l := &lexer{src: src, lineStart: true}
	for l.pos < len(src) {
		l.next()
	}
	return l.tokens
}

type lexer struct {
	src    string
	pos    int
	tokens []*Node
	// lineStart is true while only blanks precede pos on its line
	lineStart bool
}

func (l *lexer) emit(kind Kind, end int) {
	l.tokens = append(l.tokens, &Node{Kind: kind, Start: l.pos, End: end, Text: l.src[l.pos:end], leaf: true})
	l.pos = end
}

func (l *lexer) next() {
	src := l.src
	c := src[l.pos]

	switch {
	case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		end := l.pos
		for end < len(src) && strings.IndexByte(" \t\r\n", src[end]) >= 0 {
			if src[end] == '\n' {
				l.lineStart = true
			}
			end++
		}
		l.emit(Whitespace, end)
		return

	case c == '#' && l.lineStart:
		l.emit(DirectiveLine, l.lineEnd(l.pos))
		return

	case strings.HasPrefix(src[l.pos:], "//"):
		l.emit(Comment, l.lineEnd(l.pos))
		return

	case strings.HasPrefix(src[l.pos:], "/*"):
		l.emit(Comment, l.blockCommentEnd())
		l.lineStart = false
		return
	}

	l.lineStart = false

	switch {
	case isIdentStart(c):
		end := l.pos
		for end < len(src) {
			r, w := utf8.DecodeRuneInString(src[end:])
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			end += w
		}
		if end == l.pos {
			_, w := utf8.DecodeRuneInString(src[l.pos:])
			l.emit(ErrorToken, l.pos+w)
			return
		}
		kind := Ident
		if kw, ok := keywords[src[l.pos:end]]; ok {
			kind = kw
		}
		l.emit(kind, end)

	case isDigit(c) || c == '.' && l.pos+1 < len(src) && isDigit(src[l.pos+1]):
		kind, end := l.number()
		l.emit(kind, end)

	case strings.HasPrefix(src[l.pos:], "->"):
		l.emit(Arrow, l.pos+2)

	default:
		for _, op := range twoCharOps {
			if strings.HasPrefix(src[l.pos:], op) {
				l.emit(Operator, l.pos+2)
				return
			}
		}
		if kind, ok := punct[c]; ok {
			l.emit(kind, l.pos+1)
			return
		}
		if strings.IndexByte("+-*/%&|^!~", c) >= 0 {
			l.emit(Operator, l.pos+1)
			return
		}
		_, w := utf8.DecodeRuneInString(src[l.pos:])
		l.emit(ErrorToken, l.pos+w)
	}
}

// lineEnd returns the offset of the line terminator at or after from
func (l *lexer) lineEnd(from int) int {
	end := strings.IndexByte(l.src[from:], '\n')
	if end < 0 {
		return len(l.src)
	}
	end += from
	if end > from && l.src[end-1] == '\r' {
		end--
	}
	return end
}

// blockCommentEnd handles nested /* */ comments. An unterminated comment
// runs to the end of the source.
func (l *lexer) blockCommentEnd() int {
	depth := 0
	i := l.pos
	for i < len(l.src) {
		switch {
		case strings.HasPrefix(l.src[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(l.src[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(l.src)
}

func (l *lexer) number() (Kind, int) {
	src := l.src
	i := l.pos
	kind := IntLiteral

	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		i += 2
		for i < len(src) && isHexDigit(src[i]) {
			i++
		}
	} else {
		for i < len(src) && isDigit(src[i]) {
			i++
		}
		if i < len(src) && src[i] == '.' {
			kind = FloatLiteral
			i++
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
		if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
			j := i + 1
			if j < len(src) && (src[j] == '+' || src[j] == '-') {
				j++
			}
			if j < len(src) && isDigit(src[j]) {
				kind = FloatLiteral
				i = j
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
		}
	}

	if i < len(src) {
		switch src[i] {
		case 'i', 'u':
			if kind == IntLiteral {
				i++
			}
		case 'f', 'h':
			kind = FloatLiteral
			i++
		}
	}
	return kind, i
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= utf8.RuneSelf
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

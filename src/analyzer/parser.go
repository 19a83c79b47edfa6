package analyzer

import "strings"

// Parse builds a lossless structural tree for src. It never fails:
// unexpected tokens are wrapped in ERROR nodes and parsing resumes.
func Parse(src string) *Tree {
	p := &parser{src: src, toks: Lex(src)}
	p.start(SourceFile)
	for {
		p.skipTrivia()
		if p.eof() {
			break
		}
		p.item()
	}
	root := p.finish()
	root.Start, root.End = 0, len(src)
	return &Tree{Root: root, Source: src}
}

type parser struct {
	src   string
	toks  []*Node
	pos   int
	stack []*Node
}

func (p *parser) start(kind Kind) *Node {
	n := &Node{Kind: kind, Children: []*Node{}}
	p.stack = append(p.stack, n)
	return n
}

func (p *parser) finish() *Node {
	n := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	if len(n.Children) == 0 {
		n.Start = p.offset()
		n.End = n.Start
	} else {
		n.Start = n.Children[0].Start
		n.End = n.Children[len(n.Children)-1].End
	}
	if len(p.stack) > 0 {
		parent := p.stack[len(p.stack)-1]
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}
	return n
}

func (p *parser) offset() int {
	if p.pos < len(p.toks) {
		return p.toks[p.pos].Start
	}
	return len(p.src)
}

func (p *parser) eof() bool {
	return p.pos >= len(p.toks)
}

// bump moves the current token into the innermost open node
func (p *parser) bump() {
	if p.eof() {
		return
	}
	tok := p.toks[p.pos]
	parent := p.stack[len(p.stack)-1]
	tok.Parent = parent
	parent.Children = append(parent.Children, tok)
	p.pos++
}

func (p *parser) skipTrivia() {
	for !p.eof() && p.toks[p.pos].Kind.IsTrivia() {
		p.bump()
	}
}

// peekAt returns the kind of the n-th significant token ahead and its index
func (p *parser) peekAt(n int) (Kind, int) {
	for i := p.pos; i < len(p.toks); i++ {
		if p.toks[i].Kind.IsTrivia() {
			continue
		}
		if n == 0 {
			return p.toks[i].Kind, i
		}
		n--
	}
	return "", len(p.toks)
}

func (p *parser) peek() Kind {
	k, _ := p.peekAt(0)
	return k
}

func (p *parser) at(kinds ...Kind) bool {
	next := p.peek()
	for _, k := range kinds {
		if next == k {
			return true
		}
	}
	return false
}

// eat consumes the next significant token if it has kind k
func (p *parser) eat(k Kind) bool {
	if !p.at(k) {
		return false
	}
	p.skipTrivia()
	p.bump()
	return true
}

// advance consumes the next significant token whatever its kind
func (p *parser) advance() {
	p.skipTrivia()
	p.bump()
}

func (p *parser) item() {
	switch p.peek() {
	case DirectiveLine:
		p.directive()
	case At, FnKw, StructKw, VarKw, ConstKw, OverrideKw, LetKw, AliasKw, TypeKw:
		p.declaration()
	case EnableKw:
		p.skipTrivia()
		p.start(Directive)
		for !p.at(Semicolon, "") {
			p.advance()
		}
		p.eat(Semicolon)
		p.finish()
	case Semicolon:
		p.advance()
	default:
		p.start(ErrorNode)
		p.advance()
		p.finish()
	}
}

func (p *parser) directive() {
	_, i := p.peekAt(0)
	kind := Directive
	if strings.HasPrefix(strings.TrimSpace(p.toks[i].Text), "#import") {
		kind = Import
	}
	p.skipTrivia()
	p.start(kind)
	p.bump()
	p.finish()
}

func (p *parser) declaration() {
	p.skipTrivia()
	n := p.start(ErrorNode)
	p.attributes()

	switch p.peek() {
	case FnKw:
		n.Kind = Function
		p.function()
	case StructKw:
		n.Kind = Struct
		p.structDecl()
	case VarKw:
		n.Kind = GlobalVar
		p.binding()
	case ConstKw, OverrideKw, LetKw:
		n.Kind = GlobalConst
		p.binding()
	case AliasKw, TypeKw:
		n.Kind = TypeAlias
		p.advance()
		p.eat(Ident)
		if p.eat(Eq) {
			p.typeRef()
		}
		p.eat(Semicolon)
	default:
		if len(n.Children) == 0 {
			p.advance()
		}
	}
	p.finish()
}

func (p *parser) attributes() {
	for p.at(At) {
		p.skipTrivia()
		p.start(Attribute)
		p.bump()
		p.eat(Ident)
		if p.at(LParen) {
			p.balanced(LParen, RParen)
		}
		p.finish()
	}
}

// balanced consumes an opening token through its matching close, stopping
// early at a brace or semicolon that cannot belong to the group.
func (p *parser) balanced(open, close Kind) {
	depth := 0
	for !p.eof() {
		switch p.peek() {
		case open:
			depth++
		case close:
			depth--
		case LBrace, RBrace, Semicolon, "":
			return
		}
		p.advance()
		if depth == 0 {
			return
		}
	}
}

func (p *parser) function() {
	p.advance() // fn
	p.eat(Ident)
	if p.at(LParen) {
		p.paramList()
	}
	if p.eat(Arrow) {
		p.attributes()
		p.typeRef()
	}
	if p.at(LBrace) {
		p.block()
	}
}

func (p *parser) paramList() {
	p.skipTrivia()
	p.start(ParamList)
	p.bump()
	for {
		switch p.peek() {
		case RParen:
			p.advance()
			p.finish()
			return
		case "", LBrace, Semicolon:
			p.finish()
			return
		case Comma:
			p.advance()
		default:
			p.param()
		}
	}
}

func (p *parser) param() {
	p.skipTrivia()
	n := p.start(Param)
	p.attributes()
	p.eat(Ident)
	if p.eat(Colon) {
		p.typeRef()
	}
	if len(n.Children) == 0 {
		p.advance()
	}
	p.finish()
}

// typeRef consumes a type such as f32, vec3<f32> or array<u32, 4> and
// returns its text without trivia.
func (p *parser) typeRef() string {
	if !p.at(Ident) {
		return ""
	}
	var b strings.Builder
	_, i := p.peekAt(0)
	p.advance()
	if p.at(LAngle) {
		p.balanced(LAngle, RAngle)
	}
	for j := i; j < p.pos; j++ {
		if !p.toks[j].Kind.IsTrivia() {
			b.WriteString(p.toks[j].Text)
			if p.toks[j].Kind == Comma {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

func (p *parser) structDecl() {
	p.advance() // struct
	p.eat(Ident)
	if !p.at(LBrace) {
		return
	}
	p.skipTrivia()
	p.start(FieldList)
	p.bump()
	for {
		switch p.peek() {
		case RBrace:
			p.advance()
			p.finish()
			return
		case "":
			p.finish()
			return
		case Comma, Semicolon:
			p.advance()
		case DirectiveLine:
			p.directive()
		default:
			p.field()
		}
	}
}

func (p *parser) field() {
	p.skipTrivia()
	n := p.start(Field)
	p.attributes()
	p.eat(Ident)
	if p.eat(Colon) {
		p.typeRef()
	}
	if len(n.Children) == 0 {
		p.advance()
	}
	p.finish()
}

// binding parses the tail of var/let/const/override declarations, from the
// keyword through the terminating semicolon.
func (p *parser) binding() {
	isVar := p.at(VarKw)
	p.advance()
	if isVar && p.at(LAngle) {
		p.balanced(LAngle, RAngle)
	}
	p.eat(Ident)
	if p.eat(Colon) {
		p.typeRef()
	}
	if p.eat(Eq) {
		p.expr()
	}
	p.eat(Semicolon)
}

func (p *parser) block() {
	p.skipTrivia()
	p.start(Block)
	p.bump()
	for {
		switch p.peek() {
		case RBrace:
			p.advance()
			p.finish()
			return
		case "":
			p.finish()
			return
		default:
			p.statement()
		}
	}
}

func (p *parser) statement() {
	switch p.peek() {
	case LetKw:
		p.stmt(LetStmt)
	case VarKw:
		p.stmt(VarStmt)
	case ConstKw:
		p.stmt(ConstStmt)
	case ReturnKw:
		p.skipTrivia()
		p.start(ReturnStmt)
		p.bump()
		p.expr()
		p.eat(Semicolon)
		p.finish()
	case LBrace:
		p.block()
	case DirectiveLine:
		p.directive()
	case Semicolon:
		p.advance()
	default:
		p.exprStmt()
	}
}

func (p *parser) stmt(kind Kind) {
	p.skipTrivia()
	p.start(kind)
	p.binding()
	p.finish()
}

// exprStmt covers assignments, calls and control flow. Blocks inside are
// parsed as BLOCK nodes; an else after a block continues the statement.
func (p *parser) exprStmt() {
	p.skipTrivia()
	p.start(ExprStmt)
	for {
		switch p.peek() {
		case Semicolon:
			p.advance()
			p.finish()
			return
		case RBrace, "", DirectiveLine:
			p.finish()
			return
		case LBrace:
			p.block()
			if !p.at(ElseKw) {
				p.finish()
				return
			}
		default:
			p.exprElement()
		}
	}
}

// expr consumes expression elements up to a statement boundary
func (p *parser) expr() {
	for !p.at(Semicolon, LBrace, RBrace, DirectiveLine, "") {
		p.exprElement()
	}
}

func (p *parser) exprElement() {
	switch p.peek() {
	case Ident:
		if p.callAhead() {
			p.call()
			return
		}
		p.advance()
	case LParen:
		p.group(LParen, RParen)
	case LBrack:
		p.group(LBrack, RBrack)
	default:
		p.advance()
	}
}

// group consumes a parenthesized or bracketed expression
func (p *parser) group(open, close Kind) {
	p.advance()
	for {
		switch p.peek() {
		case close:
			p.advance()
			return
		case "", LBrace, RBrace:
			return
		default:
			p.exprElement()
		}
	}
}

// callAhead reports whether the identifier at the cursor starts a call,
// either f(...) or a templated constructor like vec3<f32>(...).
func (p *parser) callAhead() bool {
	next, i := p.peekAt(1)
	if next == LParen {
		return true
	}
	if next != LAngle {
		return false
	}
	depth := 0
	for j := i; j < len(p.toks); j++ {
		switch p.toks[j].Kind {
		case LAngle:
			depth++
		case RAngle:
			depth--
			if depth == 0 {
				for k := j + 1; k < len(p.toks); k++ {
					if !p.toks[k].Kind.IsTrivia() {
						return p.toks[k].Kind == LParen
					}
				}
				return false
			}
		case Semicolon, LBrace, RBrace, LParen, Eq, Operator:
			return false
		}
	}
	return false
}

func (p *parser) call() {
	p.skipTrivia()
	p.start(CallExpr)
	p.bump()
	if p.at(LAngle) {
		p.balanced(LAngle, RAngle)
	}
	p.skipTrivia()
	p.start(ArgList)
	p.bump()
	for {
		switch p.peek() {
		case RParen:
			p.advance()
			p.finish()
			p.finish()
			return
		case "", LBrace, RBrace, Semicolon:
			p.finish()
			p.finish()
			return
		default:
			p.exprElement()
		}
	}
}

package vm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"loxvm/debug"
	e "loxvm/errors"
	"loxvm/utils"
)

// Parser is the single-pass compiler: it simultaneously drives the
// Scanner, parses via precedence climbing, resolves lexical scope, and
// emits bytecode directly into a Chunk. There's no separate AST: each
// parse function emits as it goes.
type Parser struct {
	*Scanner
	interned   *InternTable
	chunk      *Chunk
	prev, curr Token

	// Lexical scope. locals[i] lives at runtime stack slot i; scopeDepth
	// is 0 at global scope and incremented per block.
	locals     []Local
	scopeDepth int

	errors *multierror.Error
	// panicMode suppresses cascading error reports until sync() resumes
	// at the next statement boundary.
	panicMode bool
}

func NewParser(interned *InternTable) *Parser {
	return &Parser{interned: interned}
}

// Local is one entry in the compiler's scope tracker: the declaring token
// (for shadowing/lookup by lexeme) and the scope depth it was declared at.
// uninitDepth marks a local whose initializer is still being compiled —
// reading it in that state is a compile error.
type Local struct {
	name  Token
	depth int
}

const uninitDepth = -1

/* Single-pass compilation */

func (p *Parser) emitConst(val Value) { p.emitBytes(byte(OpConstant), p.mkConst(val)) }

func (p *Parser) mkConst(val Value) byte {
	idx := p.chunk.AddConst(val)
	if idx > math.MaxUint8 {
		p.Error("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (p *Parser) num(_canAssign bool) {
	val, err := strconv.ParseFloat(p.prev.String(), 64)
	if err != nil {
		p.errors = multierror.Append(p.errors, err)
	}
	p.emitConst(VNum(val))
}

func (p *Parser) grouping(_canAssign bool) {
	p.expr()
	p.consume(TRParen, "expect ')' after expression")
}

func (p *Parser) lit(_canAssign bool) {
	switch p.prev.Type {
	case TFalse:
		p.emitBytes(byte(OpFalse))
	case TNil:
		p.emitBytes(byte(OpNil))
	case TTrue:
		p.emitBytes(byte(OpTrue))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) str(_canAssign bool) {
	runes := p.prev.Bytes
	// Copy the lexeme bytes inside the quotes and intern them.
	unquoted := string(runes[1 : len(runes)-1])
	p.emitConst(NewVStr(p.interned.Intern(unquoted)))
}

func (p *Parser) var_(canAssign bool) { p.namedVar(p.prev, canAssign) }

// namedVar resolves name as a local (searching locals top-down so that
// shadowing ties break towards the innermost declaration) or, on a miss,
// treats it as a global referenced by its interned-name constant.
func (p *Parser) namedVar(name Token, canAssign bool) {
	var (
		arg      byte
		get, set OpCode
	)
	if slot := p.resolveLocal(name); slot != uninitDepth {
		arg, get, set = byte(slot), OpGetLocal, OpSetLocal
	} else {
		arg, get, set = p.identConst(&name), OpGetGlobal, OpSetGlobal
	}

	switch {
	case canAssign && p.match(TEqual):
		p.expr()
		p.emitBytes(byte(set), arg)
	default:
		p.emitBytes(byte(get), arg)
	}
}

func (p *Parser) unary(_canAssign bool) {
	op := p.prev.Type

	// Compile the operand, binding tighter than any binary operator.
	p.parsePrec(PrecUnary)

	switch op {
	case TBang:
		p.emitBytes(byte(OpNot))
	case TMinus:
		p.emitBytes(byte(OpNeg))
	default:
		panic(e.Unreachable)
	}
}

// binary compiles the RHS at one precedence tighter than the operator's own
// (making it left-associative) and emits the operator. != >= <= compile to
// Equal/Less/Greater followed by Not rather than dedicated opcodes.
func (p *Parser) binary(_canAssign bool) {
	op := p.prev.Type
	rule := parseRules[op]

	p.parsePrec(rule.Prec + 1)

	switch op {
	case TBangEqual:
		p.emitBytes(byte(OpEqual), byte(OpNot))
	case TEqualEqual:
		p.emitBytes(byte(OpEqual))
	case TGreater:
		p.emitBytes(byte(OpGreater))
	case TGreaterEqual:
		p.emitBytes(byte(OpLess), byte(OpNot))
	case TLess:
		p.emitBytes(byte(OpLess))
	case TLessEqual:
		p.emitBytes(byte(OpGreater), byte(OpNot))
	case TPlus:
		p.emitBytes(byte(OpAdd))
	case TMinus:
		p.emitBytes(byte(OpSub))
	case TStar:
		p.emitBytes(byte(OpMul))
	case TSlash:
		p.emitBytes(byte(OpDiv))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) expr() { p.parsePrec(PrecAssign) }

func (p *Parser) exprStmt() {
	p.expr()
	p.consume(TSemi, "expect ';' after expression")
	p.emitBytes(byte(OpPop))
}

func (p *Parser) printStmt() {
	p.expr()
	p.consume(TSemi, "expect ';' after value")
	p.emitBytes(byte(OpPrint))
}

func (p *Parser) block() {
	for !p.check(TRBrace) && !p.check(TEOF) {
		p.decl()
	}
	p.consume(TRBrace, "expect '}' after block")
}

// ifStmt follows the jump-then-patch protocol: emit a placeholder
// JumpIfFalse, remember its offset, compile the branches, and backpatch
// once the landing point is known. The compiler emits a Pop on both sides
// of the branch point to discard the condition value exactly once on
// whichever path executes.
func (p *Parser) ifStmt() {
	p.consume(TLParen, "expect '(' after 'if'")
	p.expr()
	p.consume(TRParen, "expect ')' after condition")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emitBytes(byte(OpPop)) // Drop the condition before the `then` branch.
	p.stmt()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)

	p.emitBytes(byte(OpPop)) // Drop the condition before the `else` branch.
	if p.match(TElse) {
		p.stmt()
	}
	p.patchJump(elseJump)
}

func (p *Parser) stmt() {
	switch {
	case p.match(TPrint):
		p.printStmt()
	case p.match(TIf):
		p.ifStmt()
	case p.match(TLBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.exprStmt()
	}
}

func (p *Parser) varDecl() {
	global := p.parseVar("expect variable name")
	validName := p.checkPrev(TIdent)
	switch {
	case p.match(TEqual):
		p.expr()
	default:
		p.emitBytes(byte(OpNil))
	}
	p.consume(TSemi, "expect ';' after variable declaration")
	if validName {
		p.defVar(global)
	}
}

func (p *Parser) decl() {
	switch {
	case p.match(TVar):
		p.varDecl()
	default:
		p.stmt()
	}
	if p.panicMode {
		p.sync()
	}
}

type ParseFn = func(p *Parser, canAssign bool)

type ParseRule struct {
	Prefix, Infix ParseFn
	Prec
}

var parseRules []ParseRule

func init() {
	parseRules = make([]ParseRule, TEOF+1)
	parseRules[TLParen] = ParseRule{(*Parser).grouping, nil, PrecNone}
	parseRules[TMinus] = ParseRule{(*Parser).unary, (*Parser).binary, PrecTerm}
	parseRules[TPlus] = ParseRule{nil, (*Parser).binary, PrecTerm}
	parseRules[TSlash] = ParseRule{nil, (*Parser).binary, PrecFactor}
	parseRules[TStar] = ParseRule{nil, (*Parser).binary, PrecFactor}
	parseRules[TBang] = ParseRule{(*Parser).unary, nil, PrecNone}
	parseRules[TBangEqual] = ParseRule{nil, (*Parser).binary, PrecEqual}
	parseRules[TEqualEqual] = ParseRule{nil, (*Parser).binary, PrecEqual}
	parseRules[TGreater] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TGreaterEqual] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TLess] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TLessEqual] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TIdent] = ParseRule{(*Parser).var_, nil, PrecNone}
	parseRules[TStr] = ParseRule{(*Parser).str, nil, PrecNone}
	parseRules[TNum] = ParseRule{(*Parser).num, nil, PrecNone}
	parseRules[TFalse] = ParseRule{(*Parser).lit, nil, PrecNone}
	parseRules[TNil] = ParseRule{(*Parser).lit, nil, PrecNone}
	parseRules[TTrue] = ParseRule{(*Parser).lit, nil, PrecNone}
	// Every other token kind (including reserved words this subset of the
	// grammar never drives, like `for`/`while`/`and`/`or`/`class`/`fun`)
	// keeps the zero ParseRule{nil, nil, PrecNone}, so table lookup stays
	// total without a prefix/infix handler ever firing for them.
}

// parsePrec is the precedence-climbing core: parse one prefix expression,
// then keep folding in infix operators whose precedence is >= prec.
func (p *Parser) parsePrec(prec Prec) {
	p.advance()

	prefix := parseRules[p.prev.Type].Prefix
	if prefix == nil {
		p.Error("expect expression")
		return
	}
	canAssign := prec <= PrecAssign
	prefix(p, canAssign)

	for prec <= parseRules[p.curr.Type].Prec {
		p.advance()
		infix := parseRules[p.prev.Type].Infix
		if infix == nil {
			panic(e.Unreachable)
		}
		infix(p, canAssign)
	}

	if canAssign && p.match(TEqual) {
		p.Error("invalid assignment target")
	}
}

/* Parsing helpers */

func (p *Parser) check(ty TokenType) bool     { return p.curr.Type == ty }
func (p *Parser) checkPrev(ty TokenType) bool { return p.prev.Type == ty }

func (p *Parser) advance() {
	p.prev = p.curr
	for {
		// Skip until the first non-error token, reporting each as we go.
		if p.curr = p.ScanToken(); !p.check(TErr) {
			break
		}
		p.ErrorAtCurr(p.curr.String())
	}
}

func (p *Parser) match(ty TokenType) (matched bool) {
	if !p.check(ty) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(ty TokenType, errorMsg string) *Token {
	if !p.check(ty) {
		p.ErrorAtCurr(errorMsg)
		return nil
	}
	p.advance()
	return &p.prev
}

/* Compiling helpers */

// Compile scans and parses src into a fresh Chunk, returning it along with
// any accumulated compile errors. A non-nil error means the Chunk must not
// be installed into the VM (had_error semantics of spec.md §7).
func (p *Parser) Compile(src string) (*Chunk, error) {
	p.chunk = NewChunk()
	p.Scanner = NewScanner(src)

	p.advance()
	for !p.match(TEOF) {
		p.decl()
	}
	p.endCompiler()

	return p.chunk, p.errors.ErrorOrNil()
}

func (p *Parser) currentChunk() *Chunk { return p.chunk }

func (p *Parser) emitBytes(bs ...byte) {
	for _, b := range bs {
		p.currentChunk().Write(b, p.prev.Line)
	}
}

func (p *Parser) endCompiler() {
	p.emitBytes(byte(OpReturn))
	if debug.DEBUG {
		logrus.Debugln(p.currentChunk().Disassemble("endCompiler"))
	}
}

//go:generate stringer -type=Prec
type Prec int

const (
	PrecNone   Prec = iota
	PrecAssign      // =
	PrecOr          // or
	PrecAnd         // and
	PrecEqual       // == !=
	PrecComp        // < > <= >=
	PrecTerm        // + -
	PrecFactor      // * /
	PrecUnary       // ! -
	PrecCall        // . ()
	PrecPrimary
)

/* Locals: declaration and resolution */

// identConst makes the interned name a constant, for use as a Get/Set/Def
// Global operand.
func (p *Parser) identConst(name *Token) byte { return p.mkConst(NewVStr(p.interned.Intern(name.String()))) }

func (p *Parser) addLocal(name Token) {
	if len(p.locals) >= math.MaxUint8+1 {
		p.Error("too many local variables in function")
		return
	}
	p.locals = append(p.locals, Local{name: name, depth: uninitDepth})
}

// declVar records a local's declaration (global scope is a no-op: globals
// are resolved by name, not by slot). Shadowing a name at a strictly
// shallower scope is fine; redeclaring one at the *same* scope isn't.
func (p *Parser) declVar() {
	if p.scopeDepth == 0 {
		return
	}
	name := p.prev
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if local.depth != uninitDepth && local.depth < p.scopeDepth {
			break
		}
		if name.Eq(local.name) {
			p.Error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

// parseVar consumes the declared name and, for a global, returns a pointer
// to its name-constant index; for a local it returns nil, since locals
// aren't resolved by constant but stay on the value stack.
func (p *Parser) parseVar(errorMsg string) *byte {
	target := p.consume(TIdent, errorMsg)
	if target == nil {
		return nil
	}
	p.declVar()
	if p.scopeDepth > 0 {
		return nil
	}
	return utils.Box(p.identConst(target))
}

func (p *Parser) markInit() {
	if len(p.locals) == 0 {
		return
	}
	p.locals[len(p.locals)-1].depth = p.scopeDepth
}

// defVar finishes a variable declaration: a global emits DefineGlobal, a
// local is simply marked initialized — its value already sits in its slot.
func (p *Parser) defVar(global *byte) {
	if global == nil {
		p.markInit()
		return
	}
	p.emitBytes(byte(OpDefGlobal), *global)
}

// resolveLocal walks locals top-down (correct tie-break for shadowing) and
// returns uninitDepth if name isn't a local (the caller then treats it as
// global).
func (p *Parser) resolveLocal(name Token) int {
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if name.Eq(local.name) {
			if local.depth == uninitDepth {
				p.Error("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return uninitDepth
}

func (p *Parser) beginScope() { p.scopeDepth++ }

func (p *Parser) endScope() {
	p.scopeDepth--
	for len(p.locals) > 0 && p.locals[len(p.locals)-1].depth > p.scopeDepth {
		p.emitBytes(byte(OpPop))
		p.locals = p.locals[:len(p.locals)-1]
	}
}

/* Jump patching */

// emitJump writes op followed by a 2-byte placeholder offset and returns
// the index of the first placeholder byte, to be filled in by patchJump
// once the jump target is known. Patching is always local — there's no
// relocation list.
func (p *Parser) emitJump(op OpCode) int {
	p.emitBytes(byte(op), 0xff, 0xff)
	return len(p.currentChunk().code) - 2
}

func (p *Parser) patchJump(at int) {
	code := p.currentChunk().code
	delta := len(code) - at - 2
	if delta > math.MaxUint16 {
		p.Error("too much code to jump over")
		return
	}
	code[at], code[at+1] = byte(delta>>8&0xff), byte(delta&0xff)
}

/* Error handling */

// sync implements panic-mode recovery: clear panicMode and advance until
// the previous token is ';' or the current token starts a new statement
// (or we hit EOF), so one error doesn't cascade into a wall of nonsense.
func (p *Parser) sync() {
	p.panicMode = false
	for !p.check(TEOF) && !p.checkPrev(TSemi) {
		switch p.curr.Type {
		case TClass, TFun, TVar, TFor, TIf, TWhile, TPrint, TReturn:
			return
		}
		p.advance()
	}
}

func (p *Parser) ErrorAt(tk Token, reason string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var where string
	switch tk.Type {
	case TEOF:
		where = "end"
	case TErr:
		where = ""
	default:
		where = fmt.Sprintf("'%s'", tk)
	}
	err := &e.CompileError{Line: tk.Line, Where: where, Reason: reason}

	if debug.DEBUG {
		logrus.Debugln(err)
	}

	p.errors = multierror.Append(p.errors, err)
}

func (p *Parser) Error(reason string)       { p.ErrorAt(p.prev, reason) }
func (p *Parser) ErrorAtCurr(reason string) { p.ErrorAt(p.curr, reason) }
func (p *Parser) HadError() bool            { return p.errors != nil }

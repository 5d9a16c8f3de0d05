package vm

import "golang.org/x/exp/slices"

//go:generate stringer -type=TokenType
type TokenType int

const (
	TLParen TokenType = iota
	TRParen
	TLBrace
	TRBrace
	TComma
	TDot
	TMinus
	TPlus
	TSemi
	TSlash
	TStar
	TBang
	TBangEqual
	TEqual
	TEqualEqual
	TGreater
	TGreaterEqual
	TLess
	TLessEqual
	TIdent
	TStr
	TNum
	TAnd
	TClass
	TElse
	TFalse
	TFor
	TFun
	TIf
	TNil
	TOr
	TPrint
	TReturn
	TSuper
	TThis
	TTrue
	TVar
	TWhile
	TErr
	TEOF
)

// Token is the unit the Scanner hands to the Parser: a kind, the line it
// started on, and the raw bytes of its lexeme (or, for TErr, the error
// message in place of a lexeme).
type Token struct {
	Type  TokenType
	Line  int
	Bytes []byte
}

func (t Token) String() string  { return string(t.Bytes) }
func (t Token) Eq(u Token) bool { return t.Type == u.Type && slices.Equal(t.Bytes, u.Bytes) }

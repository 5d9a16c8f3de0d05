package vm_test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"loxvm/vm"
)

func init() { logrus.SetLevel(logrus.DebugLevel) }

// run interprets src against a fresh VM and returns everything written by
// `print` statements, in source order.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	vm_ := vm.NewVM()
	var buf bytes.Buffer
	vm_.SetOutput(&buf)
	err := vm_.Interpret(src)
	return strings.TrimRight(buf.String(), "\n"), err
}

// assertPrints interprets src and asserts its combined `print` output,
// joined with "\n", equals want, with no error.
func assertPrints(t *testing.T, src string, want ...string) {
	t.Helper()
	out, err := run(t, src)
	assert.NoError(t, err)
	assert.Equal(t, strings.Join(want, "\n"), out)
}

func TestCalculator(t *testing.T) {
	t.Parallel()
	assertPrints(t, heredoc.Doc(`
		print 2 +2;
		print 11.4 + 5.14 / 19198.10;
		print -6 *(-4+ -3) == 6*4 + 2  *((((9))));
	`), "4", "11.400267734827926", "true")

	assertPrints(t, heredoc.Doc(`
		print 4/1 - 4/3 + 4/5 - 4/7 + 4/9 - 4/11
			+ 4/13 - 4/15 + 4/17 - 4/19 + 4/21 - 4/23;
	`), "3.058402765927333")

	assertPrints(t, heredoc.Doc(`
		print 3
			+ 4/(2*3*4)
			- 4/(4*5*6)
			+ 4/(6*7*8)
			- 4/(8*9*10)
			+ 4/(10*11*12)
			- 4/(12*13*14);
	`), "3.1408813408813407")
}

func TestComparisonOperators(t *testing.T) {
	t.Parallel()
	assertPrints(t, heredoc.Doc(`
		print 1 != 2;
		print 1 != 1;
		print 3 >= 3;
		print 2 >= 3;
		print 3 <= 2;
		print 2 <= 3;
	`), "true", "false", "true", "false", "false", "true")
}

func TestStrings(t *testing.T) {
	t.Parallel()
	assertPrints(t, heredoc.Doc(`
		print "trick or treat";
		print "abc" == "abc";
		print "abc" == "abd";
	`), "trick or treat", "true", "false")
}

func TestGlobalsAndAssignment(t *testing.T) {
	t.Parallel()
	assertPrints(t, heredoc.Doc(`
		var foo = 2;
		print foo;
		print foo + 3 == 1 + foo * foo;
		var bar;
		print bar;
		bar = foo = 5;
		print foo;
		print bar;
	`), "2", "true", "nil", "5", "5")
}

func TestBlocksAndScopeShadowing(t *testing.T) {
	t.Parallel()
	assertPrints(t, heredoc.Doc(`
		var foo = 2;
		{
			foo = foo + 1;
			var foo = 100;
			print foo;
		}
		print foo;
	`), "100", "3")
}

func TestIfElse(t *testing.T) {
	t.Parallel()
	assertPrints(t, heredoc.Doc(`
		var foo = 2;
		if (foo == 2) foo = foo + 1; else { foo = 42; }
		print foo;
		if (foo == 2) { foo = foo + 1; } else foo = nil;
		print foo;
		if (!foo) foo = 1;
		print foo;
	`), "3", "nil", "1")
}

// TestStringInterningEquality checks that two string literals with equal
// content, scanned from different source positions, still canonicalize to
// the same heap object: spec.md defines string equality as identity-of-
// interned-string, not byte comparison.
func TestStringInterningEquality(t *testing.T) {
	t.Parallel()
	assertPrints(t, heredoc.Doc(`
		var a = "hello";
		var b = "hello";
		print a == b;
		print a == "hello";
	`), "true", "true")
}

func TestVarOwnInitializerIsACompileError(t *testing.T) {
	t.Parallel()
	_, err := run(t, heredoc.Doc(`
		var foo = 2;
		{ var foo = foo; }
	`))
	assert.ErrorContains(t, err, "can't read local variable in its own initializer")
}

func TestInvalidAssignmentTarget(t *testing.T) {
	t.Parallel()
	_, err := run(t, "a + b = c;")
	assert.ErrorContains(t, err, "invalid assignment target")
}

func TestUnterminatedString(t *testing.T) {
	t.Parallel()
	_, err := run(t, `print "unterminated;`)
	assert.ErrorContains(t, err, "unterminated string")
}

// TestTooManyConstants overflows the 256-entry constant pool: 257 distinct
// float literals, each made unique by a longer fractional part.
func TestTooManyConstants(t *testing.T) {
	t.Parallel()
	var src strings.Builder
	for i := 0; i < 257; i++ {
		src.WriteString("print 0.")
		src.WriteString(strings.Repeat("1", i+1))
		src.WriteString(";\n")
	}
	_, err := run(t, src.String())
	assert.ErrorContains(t, err, "too many constants in one chunk")
}

// TestTooManyLocals declares 257 locals in one block, one past the
// 256-slot local table the 1-byte slot operand can address.
func TestTooManyLocals(t *testing.T) {
	t.Parallel()
	var src strings.Builder
	src.WriteString("{\n")
	for i := 0; i < 257; i++ {
		src.WriteString("var v")
		src.WriteString(strconv.Itoa(i))
		src.WriteString(" = 0;\n")
	}
	src.WriteString("}\n")
	_, err := run(t, src.String())
	assert.ErrorContains(t, err, "too many local variables in function")
}

// TestTooMuchCodeToJumpOver makes an `if` body long enough that its
// JumpIfFalse displacement overflows the 2-byte jump operand.
func TestTooMuchCodeToJumpOver(t *testing.T) {
	t.Parallel()
	var body strings.Builder
	for i := 0; i < 40000; i++ {
		body.WriteString("1;")
	}
	src := "if (true) {" + body.String() + "}"
	_, err := run(t, src)
	assert.ErrorContains(t, err, "too much code to jump over")
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	t.Parallel()
	_, err := run(t, "print whatever;")
	assert.ErrorContains(t, err, "Undefined variable 'whatever'.")
}

func TestNegatingNilIsRuntimeError(t *testing.T) {
	t.Parallel()
	_, err := run(t, "print -nil;")
	assert.ErrorContains(t, err, "Operand must be a number.")
}

func TestAddingNumberAndStringIsRuntimeError(t *testing.T) {
	t.Parallel()
	_, err := run(t, `print 1 + "two";`)
	assert.ErrorContains(t, err, "Operands must be numbers.")
}

// TestSyncRecoversAfterACompileError checks that one missing-semicolon
// error doesn't prevent the parser from reporting the next statement's
// error too, and that a compile error never installs a runnable chunk.
func TestSyncRecoversAfterACompileError(t *testing.T) {
	t.Parallel()
	out, err := run(t, heredoc.Doc(`
		print 1
		print 2
	`))
	assert.Empty(t, out)
	assert.Error(t, err)
	assert.ErrorContains(t, err, "[line 2] Error at 'print': expect ';' after value")
	assert.ErrorContains(t, err, "[line 3] Error at end: expect ';' after value")
}

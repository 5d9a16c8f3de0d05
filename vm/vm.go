package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
	e "loxvm/errors"
	"loxvm/utils"
)

// VM is the fetch-decode-execute engine: a Chunk, an instruction pointer,
// a value stack, a name table for globals, and the string intern table it
// shares with every Parser it compiles through. All of it is single-
// threaded and owned exclusively by the VM; see spec.md §5.
type VM struct {
	chunk *Chunk
	ip    int
	stack []Value

	globals  map[*ObjStr]Value
	interned *InternTable

	out io.Writer // Destination for the Print opcode; os.Stdout by default.
}

func NewVM() *VM {
	return &VM{
		globals:  make(map[*ObjStr]Value),
		interned: NewInternTable(),
		out:      os.Stdout,
	}
}

// SetOutput redirects the Print opcode's destination, chiefly for tests
// that want to assert on emitted output instead of capturing os.Stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

func (vm *VM) push(val Value) { vm.stack = append(vm.stack, val) }

func (vm *VM) pop() (last Value) {
	n := len(vm.stack)
	vm.stack, last = vm.stack[:n-1], vm.stack[n-1]
	return
}

func (vm *VM) peek(dist int) Value { return vm.stack[len(vm.stack)-1-dist] }

// REPL drives one compile+run cycle per line, prompt "|> ", until EOF.
// There's no multi-line continuation: every line must be a complete,
// semicolon-terminated program on its own.
func (vm *VM) REPL() error {
	rl, err := readline.New("|> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF (Ctrl-D) or readline.ErrInterrupt.
			return nil
		}
		if ierr := vm.Interpret(line); ierr != nil {
			fmt.Fprintln(os.Stderr, ierr)
		}
	}
}

// InterpretFile reads path as UTF-8 and delegates to Interpret. A missing
// or unreadable file is reported to the caller rather than panicking.
func (vm *VM) InterpretFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("can't read file %q: %w", path, err)
	}
	return vm.Interpret(string(src))
}

// Interpret compiles src and, if compilation succeeds, runs the resulting
// Chunk. A compile error leaves the VM's previously installed Chunk (if
// any) untouched.
func (vm *VM) Interpret(src string) error {
	parser := NewParser(vm.interned)
	chunk, err := parser.Compile(src)
	if err != nil {
		return err
	}
	vm.chunk = chunk
	vm.ip = 0
	return vm.run()
}

func (vm *VM) readByte() (res byte) {
	res = vm.chunk.code[vm.ip]
	vm.ip++
	return
}

// readShort decodes a big-endian 2-byte jump offset.
func (vm *VM) readShort() int {
	hi, lo := vm.readByte(), vm.readByte()
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConst() Value { return vm.chunk.consts[vm.readByte()] }

func (vm *VM) readStr() *ObjStr {
	// Guaranteed by the compiler: every name operand of a
	// Get/Set/DefGlobal instruction indexes an interned string constant.
	return vm.readConst().(VObj).Ptr.(*ObjStr)
}

// run is the fetch-decode-execute loop: while ip < len(code), fetch one
// byte, advance ip, dispatch. Side effects (Print, writes to globals)
// happen strictly in bytecode order.
func (vm *VM) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			// A stack underflow or similar invariant violation: this is a
			// compiler bug, not user error, but we still want to fail the
			// Interpret call rather than crash the process (notably the
			// REPL, which must survive a single bad line).
			line := 0
			if vm.ip > 0 && vm.ip-1 < len(vm.chunk.lines) {
				line = vm.chunk.lines[vm.ip-1]
			}
			vm.stack = nil
			err = &e.RuntimeError{Line: line, Reason: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	fault := func(reason string) *e.RuntimeError {
		vm.stack = nil
		return &e.RuntimeError{Line: vm.chunk.lines[vm.ip-1], Reason: reason}
	}

	for vm.ip < len(vm.chunk.code) {
		logrus.Debugln(vm.stackTrace())
		instDump, _ := vm.chunk.DisassembleInst(vm.ip)
		logrus.Debugln(instDump)

		switch inst := OpCode(vm.readByte()); inst {
		case OpConstant:
			vm.push(vm.readConst())
		case OpNil:
			vm.push(VNil{})
		case OpTrue:
			vm.push(VBool(true))
		case OpFalse:
			vm.push(VBool(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			vm.push(vm.stack[vm.readByte()])
		case OpSetLocal:
			vm.stack[vm.readByte()] = vm.peek(0)

		case OpGetGlobal:
			name := vm.readStr()
			val, ok := vm.globals[name]
			if !ok {
				return fault(fmt.Sprintf("Undefined variable '%s'.", name.Chars))
			}
			vm.push(val)
		case OpDefGlobal:
			name := vm.readStr()
			vm.globals[name] = vm.pop()
		case OpSetGlobal:
			name := vm.readStr()
			if _, ok := vm.globals[name]; !ok {
				return fault(fmt.Sprintf("Undefined variable '%s'.", name.Chars))
			}
			vm.globals[name] = vm.peek(0)

		case OpEqual:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(VEq(lhs, rhs))
		case OpGreater:
			rhs, lhs := vm.pop(), vm.pop()
			res, ok := VGreater(lhs, rhs)
			if !ok {
				return fault("Operands must be numbers.")
			}
			vm.push(res)
		case OpLess:
			rhs, lhs := vm.pop(), vm.pop()
			res, ok := VLess(lhs, rhs)
			if !ok {
				return fault("Operands must be numbers.")
			}
			vm.push(res)

		case OpAdd:
			rhs, lhs := vm.pop(), vm.pop()
			res, ok := VAdd(lhs, rhs)
			if !ok {
				return fault("Operands must be numbers.")
			}
			vm.push(res)
		case OpSub:
			rhs, lhs := vm.pop(), vm.pop()
			res, ok := VSub(lhs, rhs)
			if !ok {
				return fault("Operands must be numbers.")
			}
			vm.push(res)
		case OpMul:
			rhs, lhs := vm.pop(), vm.pop()
			res, ok := VMul(lhs, rhs)
			if !ok {
				return fault("Operands must be numbers.")
			}
			vm.push(res)
		case OpDiv:
			rhs, lhs := vm.pop(), vm.pop()
			res, ok := VDiv(lhs, rhs)
			if !ok {
				return fault("Operands must be numbers.")
			}
			vm.push(res)

		case OpNot:
			vm.push(VBool(!VTruthy(vm.pop())))
		case OpNeg:
			res, ok := VNeg(vm.pop())
			if !ok {
				return fault("Operand must be a number.")
			}
			vm.push(res)

		case OpJump:
			offset := vm.readShort()
			vm.ip += offset
		case OpJumpIfFalse:
			offset := vm.readShort()
			truthy := VTruthy(vm.peek(0))
			logrus.Debugf("condition truthy=%d", utils.BoolToInt[int](bool(truthy)))
			if !truthy {
				vm.ip += offset
			}

		case OpPrint:
			fmt.Fprintln(vm.out, vm.pop())

		case OpReturn:
			return nil

		default:
			return fault(fmt.Sprintf("unknown instruction '%d'", inst))
		}
	}
	return nil
}

func (vm *VM) stackTrace() string {
	res := "          "
	for _, slot := range vm.stack {
		res += fmt.Sprintf("[ %s ]", slot)
	}
	return res
}

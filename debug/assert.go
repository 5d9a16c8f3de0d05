package debug

import "fmt"

// DEBUG gates assertions and the compiler's debug logging through logrus
// (the endCompiler disassembly and each compile error). The VM's
// per-instruction logging depends only on the logrus level. Flip to true
// for development builds.
const DEBUG = false

func Assertf(b bool, format string, a ...any) {
	if DEBUG && !b {
		panic(fmt.Sprintf(format, a...))
	}
}

func AssertEq[T comparable](expected, got T) { Assertf(expected == got, "%v != %v", expected, got) }

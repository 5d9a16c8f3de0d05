//go:build tools

package main

// This file records the go:generate toolchain dependency the three
// //go:generate stringer directives under vm/ rely on (TokenType, OpCode,
// Prec); it never builds into the binary.
import (
	_ "golang.org/x/tools/cmd/stringer"
)

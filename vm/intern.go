package vm

import "github.com/josharian/intern"

// InternTable canonicalizes strings so that equal byte sequences share one
// heap *ObjStr, giving string Values identity equality (VEq compares VObj
// by pointer). It's owned by the VM and borrowed by the Parser for the
// duration of one compilation, so that a compile-time constant and any
// later runtime string referring to the same content resolve to the same
// object. github.com/josharian/intern.String first collapses s onto any
// Go string already holding that content, so two lexemes scanned from
// different source positions don't each keep their own backing array
// before the *ObjStr ever gets built.
type InternTable struct {
	strings map[string]*ObjStr
}

func NewInternTable() *InternTable {
	return &InternTable{strings: make(map[string]*ObjStr)}
}

// Intern returns the canonical *ObjStr for s, allocating and hashing it on
// first sight and reusing it on every subsequent call with equal content.
func (t *InternTable) Intern(s string) *ObjStr {
	s = intern.String(s)
	if obj, ok := t.strings[s]; ok {
		return obj
	}
	obj := &ObjStr{Chars: s, Hash: fnv1a32(s)}
	t.strings[s] = obj
	return obj
}

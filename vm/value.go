package vm

import "fmt"

// Value is the tagged cell every stack slot, constant, and global binding
// holds: Nil, a Bool, a Number, or a reference to a heap Obj. The sum type
// is an interface with an unexported marker method rather than a hand-
// rolled tag+union, matching how the rest of this package models variants.
type Value interface {
	isValue()
	fmt.Stringer
}

func NewValue() Value { return VNil{} }

type VBool bool

func (_ VBool) isValue()       {}
func (v VBool) String() string { return fmt.Sprintf("%t", v) }

type VNil struct{}

func (_ VNil) isValue()       {}
func (v VNil) String() string { return "nil" }

type VNum float64

func (_ VNum) isValue()       {}
func (v VNum) String() string { return fmt.Sprintf("%g", float64(v)) }

// VObj wraps a heap object reference. Two VObj values compare equal (via
// VEq) iff they point at the same Obj, which for strings means the same
// interned *ObjStr: see InternTable.
type VObj struct{ Ptr Obj }

func (_ VObj) isValue()       {}
func (v VObj) String() string { return fmt.Sprint(v.Ptr) }

// NewVStr wraps an already-canonicalized *ObjStr as a Value.
func NewVStr(s *ObjStr) VObj { return VObj{Ptr: s} }

func VAdd(v, w Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			return v + w, true
		}
	}
	return
}

func VSub(v, w Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			return v - w, true
		}
	}
	return
}

func VMul(v, w Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			return v * w, true
		}
	}
	return
}

func VDiv(v, w Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			return v / w, true
		}
	}
	return
}

func VGreater(v, w Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			return VBool(v > w), true
		}
	}
	return
}

func VLess(v, w Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			return VBool(v < w), true
		}
	}
	return
}

func VNeg(v Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		return -v, true
	}
	return
}

// VTruthy implements Lox truthiness: only nil and false are falsey.
func VTruthy(v Value) VBool {
	switch v := v.(type) {
	case VBool:
		return v
	case VNil:
		return false
	default:
		return true
	}
}

// VEq compares two values for equality. Objects (currently only strings)
// compare by identity: since all strings are interned, equal content always
// means the same *ObjStr pointer.
func VEq(v, w Value) VBool {
	switch v := v.(type) {
	case VBool:
		switch w := w.(type) {
		case VBool:
			return v == w
		}
	case VNum:
		switch w := w.(type) {
		case VNum:
			return v == w
		}
	case VNil:
		_, ok := w.(VNil)
		return VBool(ok)
	case VObj:
		switch w := w.(type) {
		case VObj:
			return VBool(v.Ptr == w.Ptr)
		}
	}
	return false
}

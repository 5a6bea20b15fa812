package types

import "github.com/tetratelabs/wazero/api"

// Shape is a WIT type compiled once into everything lowering and lifting
// need: kind, layout, member offsets and the flattened core signature.
type Shape struct {
	Elem    *Shape // list element, option payload
	Ok      *Shape // result ok payload, nil for unit
	Err     *Shape // result err payload, nil for unit
	Members []Member
	Cases   []Case
	Flat    []api.ValueType
	Name    string

	Size          uint32
	Align         uint32
	PayloadOffset uint32
	DiscSize      uint32
	FlagCount     int
	Kind          Kind
}

// Member is a record field or tuple element.
type Member struct {
	Shape  *Shape
	Name   string
	Offset uint32
}

// Case is a variant or enum case. Shape is nil for cases without payload.
type Case struct {
	Shape *Shape
	Name  string
}

func (s *Shape) IsPrimitive() bool {
	return s.Kind.IsPrimitive()
}

// IsPure returns true if the type holds no pointers into linear memory, so
// its flat form can be produced without an allocator.
func (s *Shape) IsPure() bool {
	switch s.Kind {
	case KindString, KindList:
		return false
	case KindRecord, KindTuple:
		for _, m := range s.Members {
			if !m.Shape.IsPure() {
				return false
			}
		}
		return true
	case KindOption:
		return s.Elem != nil && s.Elem.IsPure()
	case KindResult:
		okPure := s.Ok == nil || s.Ok.IsPure()
		errPure := s.Err == nil || s.Err.IsPure()
		return okPure && errPure
	case KindVariant:
		for _, c := range s.Cases {
			if c.Shape != nil && !c.Shape.IsPure() {
				return false
			}
		}
		return true
	case KindEnum, KindFlags, KindOwn, KindBorrow:
		return true
	default:
		return s.IsPrimitive()
	}
}

// CaseIndex returns the position of the named case, or -1.
func (s *Shape) CaseIndex(name string) int {
	for i, c := range s.Cases {
		if c.Name == name {
			return i
		}
	}
	return -1
}

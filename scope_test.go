package main

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func variableAt(slot int) ScopeEntry {
	return ScopeEntry{Kind: KindVariable, StackOffset: slot}
}

func TestScopeStackInsertLookup(t *testing.T) {
	s := NewScopeStack()
	s.EnterScope()

	be.Err(t, s.Insert("x", variableAt(0)), nil)
	be.Err(t, s.Insert("y", variableAt(1)), nil)

	entry, err := s.Lookup("y")
	be.Err(t, err, nil)
	be.Equal(t, entry.StackOffset, 1)
	be.Equal(t, entry.Kind, KindVariable)

	_, err = s.Lookup("z")
	be.Err(t, err, ErrUndeclared)
}

func TestScopeStackRedefinition(t *testing.T) {
	s := NewScopeStack()
	s.EnterScope()
	be.Err(t, s.Insert("x", variableAt(0)), nil)

	err := s.Insert("x", variableAt(1))
	be.Err(t, err, ErrRedefinition)

	entry, _ := s.Lookup("x")
	be.Equal(t, entry.StackOffset, 0)
	be.Equal(t, s.Len(), 1)
}

func TestScopeStackShadowing(t *testing.T) {
	s := NewScopeStack()
	s.EnterScope()
	be.Err(t, s.Insert("x", variableAt(0)), nil)

	s.EnterScope()
	be.Err(t, s.Insert("x", variableAt(1)), nil)
	entry, _ := s.Lookup("x")
	be.Equal(t, entry.StackOffset, 1)
	be.Equal(t, s.Depth(), 2)
	be.Equal(t, s.Len(), 2)

	n, err := s.ExitScope()
	be.Err(t, err, nil)
	be.Equal(t, n, 1)

	entry, _ = s.Lookup("x")
	be.Equal(t, entry.StackOffset, 0)
	be.Equal(t, s.Depth(), 1)
}

func TestScopeStackOuterVisibleFromInner(t *testing.T) {
	s := NewScopeStack()
	s.EnterScope()
	be.Err(t, s.Insert("outer", variableAt(0)), nil)
	s.EnterScope()
	s.EnterScope()

	entry, err := s.Lookup("outer")
	be.Err(t, err, nil)
	be.Equal(t, entry.StackOffset, 0)
}

func TestScopeStackExitReportsCount(t *testing.T) {
	s := NewScopeStack()
	s.EnterScope()
	for i, name := range []string{"a", "b", "c"} {
		be.Err(t, s.Insert(name, variableAt(i)), nil)
	}

	n, err := s.ExitScope()
	be.Err(t, err, nil)
	be.Equal(t, n, 3)
	be.Equal(t, s.Depth(), 0)
	be.Equal(t, s.Len(), 0)
}

func TestScopeStackWithoutScope(t *testing.T) {
	s := NewScopeStack()

	_, err := s.ExitScope()
	be.Err(t, err, ErrNoScope)
	be.Err(t, s.Insert("x", variableAt(0)), ErrNoScope)

	_, err = s.Lookup("x")
	be.True(t, errors.Is(err, ErrUndeclared))
}

func TestScopeStackString(t *testing.T) {
	s := NewScopeStack()
	s.EnterScope()
	be.Err(t, s.Insert("b", ScopeEntry{Kind: KindVariable, StackOffset: 0, Loc: Location{2, 9}}), nil)
	be.Err(t, s.Insert("a", ScopeEntry{Kind: KindVariable, StackOffset: 1, Loc: Location{3, 9}}), nil)
	s.EnterScope()
	be.Err(t, s.Insert("main", ScopeEntry{Kind: KindFunction, Loc: Location{1, 1}}), nil)

	want := "scope 0:\n" +
		"  variable b slot=0 at 2:9\n" +
		"  variable a slot=1 at 3:9\n" +
		"scope 1:\n" +
		"  function main slot=0 at 1:1\n"
	be.Equal(t, s.String(), want)
}

func TestIdentifierKindString(t *testing.T) {
	be.Equal(t, KindVariable.String(), "variable")
	be.Equal(t, KindFunction.String(), "function")
	be.Equal(t, IdentifierKind(7).String(), "IdentifierKind(7)")
}

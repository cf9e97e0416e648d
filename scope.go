package main

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRedefinition = errors.New("redefinition of identifier")
	ErrUndeclared   = errors.New("undeclared identifier")
	ErrNoScope      = errors.New("no active scope")
)

type IdentifierKind int

const (
	KindVariable IdentifierKind = iota
	KindFunction
)

func (k IdentifierKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	}
	return fmt.Sprintf("IdentifierKind(%d)", int(k))
}

// ScopeEntry describes a declared name. StackOffset is the virtual stack
// height at which the variable's slot was reserved.
type ScopeEntry struct {
	Kind        IdentifierKind
	StackOffset int
	Loc         Location
}

type scope struct {
	entries map[string]ScopeEntry
	order   []string
}

// ScopeStack maps names to entries, one map per lexical block. Lookups search
// from the innermost scope outwards, so inner declarations shadow outer ones.
type ScopeStack struct {
	scopes []scope
}

func NewScopeStack() *ScopeStack {
	return &ScopeStack{}
}

func (s *ScopeStack) EnterScope() {
	s.scopes = append(s.scopes, scope{entries: make(map[string]ScopeEntry)})
}

// ExitScope pops the innermost scope and returns how many names it held.
func (s *ScopeStack) ExitScope() (int, error) {
	if len(s.scopes) == 0 {
		return 0, ErrNoScope
	}
	n := len(s.scopes[len(s.scopes)-1].order)
	s.scopes = s.scopes[:len(s.scopes)-1]
	return n, nil
}

// Insert declares name in the innermost scope.
func (s *ScopeStack) Insert(name string, entry ScopeEntry) error {
	if len(s.scopes) == 0 {
		return ErrNoScope
	}
	top := &s.scopes[len(s.scopes)-1]
	if _, exists := top.entries[name]; exists {
		return ErrRedefinition
	}
	top.entries[name] = entry
	top.order = append(top.order, name)
	return nil
}

func (s *ScopeStack) Lookup(name string) (ScopeEntry, error) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if entry, ok := s.scopes[i].entries[name]; ok {
			return entry, nil
		}
	}
	return ScopeEntry{}, ErrUndeclared
}

// Depth returns the number of open scopes.
func (s *ScopeStack) Depth() int {
	return len(s.scopes)
}

// Len returns the number of names declared across all open scopes.
func (s *ScopeStack) Len() int {
	n := 0
	for _, sc := range s.scopes {
		n += len(sc.order)
	}
	return n
}

// String dumps the open scopes outermost first, names in declaration order.
func (s *ScopeStack) String() string {
	var sb strings.Builder
	for depth, sc := range s.scopes {
		fmt.Fprintf(&sb, "scope %d:\n", depth)
		for _, name := range sc.order {
			e := sc.entries[name]
			fmt.Fprintf(&sb, "  %s %s slot=%d at %s\n", e.Kind, name, e.StackOffset, e.Loc)
		}
	}
	return sb.String()
}

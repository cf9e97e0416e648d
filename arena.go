package main

// NodeID is the allocation ordinal of a node within its Arena, starting at 1.
type NodeID int

// slab is a typed bump allocator. Chunks are never grown in place, so
// pointers handed out stay valid until the owning Arena is dropped.
type slab[T any] struct {
	chunks    [][]T
	chunkSize int
}

func (s *slab[T]) make() *T {
	if len(s.chunks) == 0 {
		s.chunks = append(s.chunks, make([]T, 0, s.chunkSize))
	}
	last := &s.chunks[len(s.chunks)-1]
	if len(*last) == cap(*last) {
		s.chunks = append(s.chunks, make([]T, 0, s.chunkSize))
		last = &s.chunks[len(s.chunks)-1]
	}
	var zero T
	*last = append(*last, zero)
	return &(*last)[len(*last)-1]
}

// Arena owns every AST node of one compilation. Nodes are never freed
// individually; dropping the Arena (or calling Reset) releases the whole
// tree at once.
type Arena struct {
	count NodeID

	programs       slab[Program]
	blocks         slab[Block]
	declarations   slab[Declaration]
	exprStmts      slab[ExpressionStatement]
	ifStmts        slab[IfStatement]
	whileStmts     slab[WhileStatement]
	returnStmts    slab[ReturnStatement]
	expressions    slab[Expression]
	assignments    slab[AssignmentExpression]
	equality       slab[EqualityExpression]
	relational     slab[RelationalExpression]
	additive       slab[AdditiveExpression]
	multiplicative slab[MultiplicativeExpression]
	postfix        slab[PostfixExpression]
	integers       slab[IntegerLiteral]
	identifiers    slab[Identifier]
	parens         slab[ParenExpr]
}

func NewArena() *Arena {
	a := &Arena{}
	a.setChunkSizes()
	return a
}

func (a *Arena) setChunkSizes() {
	// Expression tiers are allocated for every operand, statements far less.
	a.programs.chunkSize = 1
	a.blocks.chunkSize = 32
	a.declarations.chunkSize = 64
	a.exprStmts.chunkSize = 128
	a.ifStmts.chunkSize = 32
	a.whileStmts.chunkSize = 32
	a.returnStmts.chunkSize = 16
	a.expressions.chunkSize = 256
	a.assignments.chunkSize = 256
	a.equality.chunkSize = 256
	a.relational.chunkSize = 256
	a.additive.chunkSize = 256
	a.multiplicative.chunkSize = 256
	a.postfix.chunkSize = 512
	a.integers.chunkSize = 256
	a.identifiers.chunkSize = 256
	a.parens.chunkSize = 32
}

// Len returns the number of nodes allocated so far.
func (a *Arena) Len() int {
	return int(a.count)
}

// Reset releases every node. Pointers obtained before Reset must not be used
// afterwards.
func (a *Arena) Reset() {
	*a = Arena{}
	a.setChunkSizes()
}

// alloc carves a zeroed node out of s and stamps it with the next NodeID.
func alloc[T any, P interface {
	*T
	setNode(NodeID, Location)
}](a *Arena, s *slab[T], loc Location) P {
	n := P(s.make())
	a.count++
	n.setNode(a.count, loc)
	return n
}

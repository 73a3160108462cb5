package cfg

// ControlFlowGraph is the per-function intermediate representation shared
// by every target: an ordered sequence of basic blocks, with block 0 as the
// unique entry point. A CFG is built once by upstream analysis, mutated in
// place by transformation passes, then consumed read-only by code emission.
type ControlFlowGraph struct {
	Name   string
	Blocks []*BasicBlock
}

// BasicBlock holds an ordered instruction sequence. Successors are derived
// from branch instructions rather than stored, so edges can never go stale
// under instruction rewriting.
type BasicBlock struct {
	Name  string
	Instr []Instr
}

// Edges returns the indices of this block's successor blocks, in the order
// their branch operands appear.
func (b *BasicBlock) Edges() []int {
	var edges []int
	for _, instr := range b.Instr {
		switch t := instr.(type) {
		case *Branch:
			edges = append(edges, t.Block)
		case *BranchCond:
			edges = append(edges, t.True, t.False)
		}
	}
	return edges
}

// NewBlock appends an empty block and returns its index.
func (g *ControlFlowGraph) NewBlock(name string) int {
	g.Blocks = append(g.Blocks, &BasicBlock{Name: name})
	return len(g.Blocks) - 1
}

// Append adds an instruction to the numbered block.
func (g *ControlFlowGraph) Append(block int, instr Instr) {
	g.Blocks[block].Instr = append(g.Blocks[block].Instr, instr)
}

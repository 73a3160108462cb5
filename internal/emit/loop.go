package emit

import "basalt/internal/sema"

// ForLoop emits 'for i := from; i < to; i++ { body(i) }' into bin. The
// insert point ends up in the block following the loop. body may emit into
// additional blocks as long as control returns to wherever it leaves the
// insert point.
func ForLoop(bin *Binary, from, to *Value, name string, body func(index *Value)) {
	cond := bin.NewBlock(name + "_cond")
	loopBody := bin.NewBlock(name + "_body")
	end := bin.NewBlock(name + "_end")

	entry := bin.CurrentBlock()
	bin.Br(cond)

	bin.SetInsertPoint(cond)
	index, addIncoming := bin.Phi(&sema.Uint{Bits: 256}, name+"_index")
	addIncoming(from, entry)
	bin.CondBr(bin.ICmp("ult", index, to), loopBody, end)

	bin.SetInsertPoint(loopBody)
	body(index)
	next := bin.Add(index, bin.ConstInt(&sema.Uint{Bits: 256}, 1))
	addIncoming(next, bin.CurrentBlock())
	bin.Br(cond)

	bin.SetInsertPoint(end)
}

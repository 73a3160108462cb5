package emit

import (
	"math/big"

	"basalt/internal/diag"
	"basalt/internal/sema"
)

// WordType is the width of one storage slot on slot-based targets.
func WordType() sema.Type {
	return &sema.Uint{Bits: 256}
}

// WordStorage is the per-target primitive the slot-recursive policy is
// built on: whole-word access plus slot hashing.
type WordStorage interface {
	Name() string

	// GetStorageWord reads one slot; an unwritten slot reads as zero.
	GetStorageWord(bin *Binary, ty sema.Type, slot *Value) *Value
	SetStorageWord(bin *Binary, slot *Value, val *Value)
	ClearStorageWord(bin *Binary, slot *Value)

	// KeccakSlots hashes the concatenation of the given words into a new
	// slot number. Used to derive the element range of dynamic collections
	// and the entry slots of mappings.
	KeccakSlots(bin *Binary, words ...*Value) *Value
}

// SlotStorage is the single generic storage policy shared by every
// slot-based target: composite values are decomposed recursively into
// per-field or per-element slots computed from a base slot and the type's
// layout. Targets with genuinely different ledger semantics replace it
// wholly instead of overriding pieces.
type SlotStorage struct {
	Words WordStorage
}

func (s *SlotStorage) StorageLoad(bin *Binary, ty sema.Type, slot *Value) *Value {
	switch t := ty.(type) {
	case *sema.Struct:
		dest := bin.Alloca(ty, "struct")
		offset := slot
		for i, field := range t.Def.Fields {
			fieldVal := s.StorageLoad(bin, field.Type, offset)
			bin.Store(bin.StructGEP(t, dest, i, field.Name), fieldVal)
			offset = bin.Add(offset, bin.ConstBig(WordType(), field.Type.StorageSlots()))
		}
		return dest

	case *sema.Array:
		if t.Len != nil {
			return s.loadFixedArray(bin, t, slot)
		}
		return s.loadDynamicArray(bin, t, slot)

	case *sema.String, *sema.DynamicBytes:
		return s.loadBytes(bin, slot)

	case *sema.Mapping:
		// Mappings are only reachable through subscripting.
		diag.Unsupported(s.Words.Name(), "loading a whole mapping from storage")
		return nil

	default:
		return s.Words.GetStorageWord(bin, ty, slot)
	}
}

func (s *SlotStorage) loadFixedArray(bin *Binary, ty *sema.Array, slot *Value) *Value {
	dest := bin.Alloca(ty, "array")
	elemSlots := bin.ConstBig(WordType(), ty.Elem.StorageSlots())
	ForLoop(bin, bin.Zero(WordType()), bin.ConstBig(WordType(), ty.Len), "load", func(index *Value) {
		elemSlot := bin.Add(slot, bin.Mul(index, elemSlots))
		elem := s.StorageLoad(bin, ty.Elem, elemSlot)
		bin.Store(bin.GEP(ty.Elem, dest, index, "elem"), elem)
	})
	return dest
}

func (s *SlotStorage) loadDynamicArray(bin *Binary, ty *sema.Array, slot *Value) *Value {
	length := s.Words.GetStorageWord(bin, WordType(), slot)
	elemSlots := bin.ConstBig(WordType(), ty.Elem.StorageSlots())
	dest := bin.HostCall("vector_new", length, bin.ConstBig(WordType(), elemSize(ty.Elem)))
	base := s.Words.KeccakSlots(bin, slot)
	ForLoop(bin, bin.Zero(WordType()), length, "load", func(index *Value) {
		elemSlot := bin.Add(base, bin.Mul(index, elemSlots))
		elem := s.StorageLoad(bin, ty.Elem, elemSlot)
		bin.Store(bin.GEP(ty.Elem, dest, index, "elem"), elem)
	})
	return dest
}

// loadBytes reads a variable-length byte vector: a length word at the base
// slot, data packed one word per 32 bytes behind the hashed base.
func (s *SlotStorage) loadBytes(bin *Binary, slot *Value) *Value {
	length := s.Words.GetStorageWord(bin, WordType(), slot)
	dest := bin.HostCall("vector_new", length, bin.ConstInt(WordType(), 1))
	base := s.Words.KeccakSlots(bin, slot)
	words := wordCount(bin, length)
	ForLoop(bin, bin.Zero(WordType()), words, "load", func(index *Value) {
		word := s.Words.GetStorageWord(bin, WordType(), bin.Add(base, index))
		bin.HostCall("vector_write_word", dest, index, word)
	})
	return dest
}

func (s *SlotStorage) StorageStore(bin *Binary, ty sema.Type, existing bool, slot *Value, val *Value) {
	switch t := ty.(type) {
	case *sema.Struct:
		offset := slot
		for i, field := range t.Def.Fields {
			fieldPtr := bin.StructGEP(t, val, i, field.Name)
			s.StorageStore(bin, field.Type, existing, offset, loadIfScalar(bin, field.Type, fieldPtr))
			offset = bin.Add(offset, bin.ConstBig(WordType(), field.Type.StorageSlots()))
		}

	case *sema.Array:
		if t.Len != nil {
			s.storeFixedArray(bin, t, existing, slot, val)
		} else {
			s.storeDynamicArray(bin, t, existing, slot, val)
		}

	case *sema.String, *sema.DynamicBytes:
		s.storeBytes(bin, existing, slot, val)

	case *sema.Mapping:
		diag.Unsupported(s.Words.Name(), "storing a whole mapping to storage")

	default:
		s.Words.SetStorageWord(bin, slot, val)
	}
}

func (s *SlotStorage) storeFixedArray(bin *Binary, ty *sema.Array, existing bool, slot *Value, val *Value) {
	elemSlots := bin.ConstBig(WordType(), ty.Elem.StorageSlots())
	ForLoop(bin, bin.Zero(WordType()), bin.ConstBig(WordType(), ty.Len), "store", func(index *Value) {
		elemSlot := bin.Add(slot, bin.Mul(index, elemSlots))
		elemPtr := bin.GEP(ty.Elem, val, index, "elem")
		s.StorageStore(bin, ty.Elem, existing, elemSlot, loadIfScalar(bin, ty.Elem, elemPtr))
	})
}

func (s *SlotStorage) storeDynamicArray(bin *Binary, ty *sema.Array, existing bool, slot *Value, val *Value) {
	length := bin.HostCall("vector_len", val)
	var oldLength *Value
	if existing {
		oldLength = s.Words.GetStorageWord(bin, WordType(), slot)
	}
	s.Words.SetStorageWord(bin, slot, length)

	base := s.Words.KeccakSlots(bin, slot)
	elemSlots := bin.ConstBig(WordType(), ty.Elem.StorageSlots())
	ForLoop(bin, bin.Zero(WordType()), length, "store", func(index *Value) {
		elemSlot := bin.Add(base, bin.Mul(index, elemSlots))
		elemPtr := bin.GEP(ty.Elem, val, index, "elem")
		s.StorageStore(bin, ty.Elem, existing, elemSlot, loadIfScalar(bin, ty.Elem, elemPtr))
	})

	// Shrinking leaves stale elements behind; release them.
	if existing {
		ForLoop(bin, length, oldLength, "clear", func(index *Value) {
			s.StorageDelete(bin, ty.Elem, bin.Add(base, bin.Mul(index, elemSlots)))
		})
	}
}

func (s *SlotStorage) storeBytes(bin *Binary, existing bool, slot *Value, val *Value) {
	length := bin.HostCall("vector_len", val)
	var oldWords *Value
	if existing {
		oldWords = wordCount(bin, s.Words.GetStorageWord(bin, WordType(), slot))
	}
	s.Words.SetStorageWord(bin, slot, length)

	base := s.Words.KeccakSlots(bin, slot)
	words := wordCount(bin, length)
	ForLoop(bin, bin.Zero(WordType()), words, "store", func(index *Value) {
		word := bin.HostCall("vector_read_word", val, index)
		s.Words.SetStorageWord(bin, bin.Add(base, index), word)
	})

	if existing {
		ForLoop(bin, words, oldWords, "clear", func(index *Value) {
			s.Words.ClearStorageWord(bin, bin.Add(base, index))
		})
	}
}

func (s *SlotStorage) StorageDelete(bin *Binary, ty sema.Type, slot *Value) {
	switch t := ty.(type) {
	case *sema.Struct:
		offset := slot
		for _, field := range t.Def.Fields {
			s.StorageDelete(bin, field.Type, offset)
			offset = bin.Add(offset, bin.ConstBig(WordType(), field.Type.StorageSlots()))
		}

	case *sema.Array:
		elemSlots := bin.ConstBig(WordType(), t.Elem.StorageSlots())
		if t.Len != nil {
			ForLoop(bin, bin.Zero(WordType()), bin.ConstBig(WordType(), t.Len), "delete", func(index *Value) {
				s.StorageDelete(bin, t.Elem, bin.Add(slot, bin.Mul(index, elemSlots)))
			})
			return
		}
		length := s.Words.GetStorageWord(bin, WordType(), slot)
		base := s.Words.KeccakSlots(bin, slot)
		ForLoop(bin, bin.Zero(WordType()), length, "delete", func(index *Value) {
			s.StorageDelete(bin, t.Elem, bin.Add(base, bin.Mul(index, elemSlots)))
		})
		s.Words.ClearStorageWord(bin, slot)

	case *sema.String, *sema.DynamicBytes:
		length := s.Words.GetStorageWord(bin, WordType(), slot)
		base := s.Words.KeccakSlots(bin, slot)
		ForLoop(bin, bin.Zero(WordType()), wordCount(bin, length), "delete", func(index *Value) {
			s.Words.ClearStorageWord(bin, bin.Add(base, index))
		})
		s.Words.ClearStorageWord(bin, slot)

	case *sema.Mapping:
		// Mapping entries cannot be enumerated; their base slot holds no
		// data, so there is nothing to clear.

	default:
		s.Words.ClearStorageWord(bin, slot)
	}
}

func (s *SlotStorage) StorageSubscript(bin *Binary, ty sema.Type, slot *Value, index *Value) *Value {
	switch t := ty.(type) {
	case *sema.Mapping:
		return s.Words.KeccakSlots(bin, index, slot)
	case *sema.Array:
		elemSlots := bin.ConstBig(WordType(), t.Elem.StorageSlots())
		if t.Len != nil {
			return bin.Add(slot, bin.Mul(index, elemSlots))
		}
		base := s.Words.KeccakSlots(bin, slot)
		return bin.Add(base, bin.Mul(index, elemSlots))
	default:
		diag.ICE("storage subscript on non-collection type %s", ty)
		return nil
	}
}

// StoragePush appends to a storage array. The element write and the length
// update happen together; no observable state has the new element without
// the new length.
func (s *SlotStorage) StoragePush(bin *Binary, elem sema.Type, slot *Value, val *Value) *Value {
	length := s.Words.GetStorageWord(bin, WordType(), slot)
	base := s.Words.KeccakSlots(bin, slot)
	elemSlot := bin.Add(base, bin.Mul(length, bin.ConstBig(WordType(), elem.StorageSlots())))

	if val == nil {
		// Pushing the zero value: unwritten slots already read as zero,
		// so clearing the element range is enough.
		s.StorageDelete(bin, elem, elemSlot)
		s.Words.SetStorageWord(bin, slot, bin.Add(length, bin.ConstInt(WordType(), 1)))
		return elemSlot
	}
	s.StorageStore(bin, elem, false, elemSlot, val)
	s.Words.SetStorageWord(bin, slot, bin.Add(length, bin.ConstInt(WordType(), 1)))
	return val
}

func (s *SlotStorage) StoragePop(bin *Binary, elem sema.Type, slot *Value, load bool) *Value {
	length := s.Words.GetStorageWord(bin, WordType(), slot)
	newLength := bin.Sub(length, bin.ConstInt(WordType(), 1))
	base := s.Words.KeccakSlots(bin, slot)
	elemSlot := bin.Add(base, bin.Mul(newLength, bin.ConstBig(WordType(), elem.StorageSlots())))

	var popped *Value
	if load {
		popped = s.StorageLoad(bin, elem, elemSlot)
	}
	s.StorageDelete(bin, elem, elemSlot)
	s.Words.SetStorageWord(bin, slot, newLength)
	return popped
}

func (s *SlotStorage) StorageArrayLength(bin *Binary, slot *Value, elem sema.Type) *Value {
	return s.Words.GetStorageWord(bin, WordType(), slot)
}

// loadIfScalar loads word-sized values out of their field pointer;
// composite values keep flowing as pointers.
func loadIfScalar(bin *Binary, ty sema.Type, ptr *Value) *Value {
	switch ty.(type) {
	case *sema.Struct, *sema.Array, *sema.String, *sema.DynamicBytes:
		return ptr
	default:
		return bin.Load(ty, ptr, "field")
	}
}

// wordCount computes ceil(bytes / 32).
func wordCount(bin *Binary, length *Value) *Value {
	sum := bin.Add(length, bin.ConstInt(WordType(), 31))
	// Division is not part of the op set the storage policy needs; shift
	// by the word size instead.
	result := bin.value(WordType(), "words")
	bin.emit(&Op{Kind: "lshr", Args: []*Value{sum, bin.ConstInt(WordType(), 5)}, Result: result})
	return result
}

func elemSize(ty sema.Type) *big.Int {
	return new(big.Int).Mul(ty.StorageSlots(), big.NewInt(32))
}

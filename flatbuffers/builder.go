package flatbuffers

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/blastbao/flatcore/log"
)

// FlatBuffers 从 buffer 尾部往头部写：一个对象必须完整写完，才能被其他对象以相对偏移引用，
// 所以子对象先于父对象构建，Builder 返回的 TailOffsetT 是从尾部量起的距离，扩容时保持不变。
//
// 表字段不是在 Add*Field 时立刻写入，而是先记在 fields 里，EndTable 时按对齐从大到小统一布局，
// 这样同一个 slot 重复写入只保留最后一次，写入默认值等价于从未写入。

// MaxBufferSize is the largest buffer a Builder can grow to.
const MaxBufferSize = 1 << 30

type builderState uint8

const (
	stateIdle builderState = iota
	stateTable
	stateVector
	stateFinished
)

func (s builderState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateTable:
		return "table"
	case stateVector:
		return "vector"
	default:
		return "finished"
	}
}

type fieldKind uint8

const (
	fieldNone fieldKind = iota
	fieldScalar
	fieldStruct
	fieldOffset
)

// pendingField is a value recorded for a slot of the open table.
type pendingField struct {
	kind   fieldKind
	size   int
	align  int
	scalar [8]byte
	raw    []byte
	ref    TailOffsetT
}

// BuilderStats counts what a Builder did since it was created or reset.
type BuilderStats struct {
	VtablesWritten int
	VtablesReused  int
	Grows          int
}

// Builder is a state machine for creating FlatBuffer objects.
// Use a Builder to construct object(s) starting from leaf nodes.
//
// A Builder constructs byte buffers in a last-first manner for simplicity and
// performance. It is not safe for concurrent use.
type Builder struct {
	// `Bytes` gives raw access to the buffer. Most users will want to use
	// FinishedBytes() instead.
	Bytes []byte

	mem       memory.Allocator
	minalign  int
	state     builderState
	fields    []pendingField // 当前表每个 slot 的待写入值
	vtable    []TailOffsetT  // 当前表每个字段写入后的位置，0 表示缺省
	order     []int
	scratch   []byte
	objectEnd TailOffsetT
	vtables   vtableIndex
	strings   map[string]TailOffsetT
	head      int
	stats     BuilderStats
}

// NewBuilder initializes a Builder of size `initialSize`.
// The internal buffer is grown as needed.
func NewBuilder(initialSize int) *Builder {
	return NewBuilderWithAllocator(memory.DefaultAllocator, initialSize)
}

// NewBuilderWithAllocator is like NewBuilder but takes the buffer memory
// from mem. Call Release to hand it back.
func NewBuilderWithAllocator(mem memory.Allocator, initialSize int) *Builder {
	if initialSize < 0 {
		initialSize = 0
	}

	b := &Builder{mem: mem}
	b.Bytes = mem.Allocate(initialSize)
	b.head = initialSize
	b.minalign = 1
	b.vtables = newVtableIndex()

	return b
}

// Reset truncates the underlying Builder buffer, facilitating alloc-free
// reuse of a Builder. It also resets bookkeeping data.
func (b *Builder) Reset() {
	b.vtables.reset()
	if b.strings != nil {
		clear(b.strings)
	}
	b.fields = b.fields[:0]
	b.vtable = b.vtable[:0]

	b.head = len(b.Bytes)
	b.minalign = 1
	b.state = stateIdle
	b.stats = BuilderStats{}
}

// Release returns the buffer to the allocator. The Builder, and any slice
// obtained from FinishedBytes, must not be used afterwards.
func (b *Builder) Release() {
	if b.Bytes != nil {
		b.mem.Free(b.Bytes)
		b.Bytes = nil
	}
	b.head = 0
	b.state = stateIdle
}

// Stats returns counters about vtable deduplication and buffer growth.
func (b *Builder) Stats() BuilderStats {
	return b.stats
}

// Finished reports whether Finish has been called since the last Reset.
func (b *Builder) Finished() bool {
	return b.state == stateFinished
}

// FinishedBytes returns a pointer to the written data in the byte buffer.
// Panics if the builder is not in a finished state (which is caused by calling
// `Finish()`).
func (b *Builder) FinishedBytes() []byte {
	if b.state != stateFinished {
		contractPanic(ErrNotFinished, "FinishedBytes")
	}
	return b.Bytes[b.head:]
}

// StartTable initializes bookkeeping for writing a new table with
// `numFields` slots.
func (b *Builder) StartTable(numFields int) {
	b.assertIdle("StartTable")
	if numFields < 0 || numFields > MaxTableFields {
		contractPanic(ErrTableTooLarge, "StartTable: %d fields, at most %d", numFields, MaxTableFields)
	}
	b.state = stateTable

	if cap(b.fields) < numFields {
		b.fields = make([]pendingField, numFields)
		b.vtable = make([]TailOffsetT, numFields)
	} else {
		b.fields = b.fields[:numFields]
		b.vtable = b.vtable[:numFields]
		clear(b.fields)
		clear(b.vtable)
	}
}

// AddOffsetField records a reference to the finished object `child` at slot
// `slot` of the open table.
func (b *Builder) AddOffsetField(slot int, child TailOffsetT) {
	b.assertTable("AddOffsetField")
	b.checkSlot(slot)
	if child == 0 || child > b.Offset() {
		contractPanic(ErrUnfinalizedChild, "AddOffsetField: slot %d references offset %d, only %d bytes written", slot, child, b.Offset())
	}
	b.fields[slot] = pendingField{kind: fieldOffset, size: SizeUOffsetT, align: SizeUOffsetT, ref: child}
}

// AddStructField records the struct encoded in `raw` inline at slot `slot`.
// `align` is the struct's minimum alignment. raw is copied.
func (b *Builder) AddStructField(slot int, raw []byte, align int) {
	b.assertTable("AddStructField")
	b.checkSlot(slot)
	if len(raw) == 0 {
		b.fields[slot] = pendingField{}
		return
	}
	if len(raw) > math.MaxUint16 {
		contractPanic(ErrTableTooLarge, "AddStructField: slot %d struct of %d bytes", slot, len(raw))
	}
	if align < 1 {
		align = 1
	}
	f := pendingField{kind: fieldStruct, size: len(raw), align: align}
	f.raw = append(f.raw, raw...)
	b.fields[slot] = f
}

// EndTable lays out the recorded fields, writes or reuses the vtable and
// returns the table's offset.
func (b *Builder) EndTable() TailOffsetT {
	b.assertTable("EndTable")
	b.objectEnd = b.Offset()

	// 按对齐从大到小写入，对齐相同时按 slot 升序，保证相同输入得到相同字节。
	b.order = b.order[:0]
	for slot := range b.fields {
		if b.fields[slot].kind != fieldNone {
			b.order = append(b.order, slot)
		}
	}
	slices.SortStableFunc(b.order, func(i, j int) int {
		return b.fields[j].align - b.fields[i].align
	})

	for _, slot := range b.order {
		f := &b.fields[slot]
		switch f.kind {
		case fieldScalar:
			b.Prep(f.size, 0)
			b.head -= f.size
			copy(b.Bytes[b.head:], f.scalar[:f.size])
		case fieldStruct:
			b.Prep(f.align, f.size)
			b.head -= f.size
			copy(b.Bytes[b.head:], f.raw)
		case fieldOffset:
			b.PrependUOffsetT(f.ref)
		}
		b.vtable[slot] = b.Offset()
	}

	n := b.writeVtable()
	b.state = stateIdle
	return n
}

// writeVtable serializes the vtable for the current object.
//
// Before writing out the vtable, this checks pre-existing vtables for equality
// to this one. If an equal vtable is found, point the object to the existing
// vtable and return.
//
// An object has the following format:
//
//	<SOffsetT: offset to this object's vtable (may be negative)>
//	<byte: data>+
func (b *Builder) writeVtable() TailOffsetT {
	// Object 的开头是 4B 的 SOffsetT，先写 0 占位，确定 vtable 位置后再回填。
	b.Prep(SizeSOffsetT, 0)
	b.PlaceSOffsetT(0)

	objectOffset := b.Offset()
	// vtable 里的对象大小和字段偏移都是 VOffsetT。
	if size := objectOffset - b.objectEnd; size > math.MaxUint16 {
		contractPanic(ErrTableTooLarge, "EndTable: object of %d bytes", size)
	}

	// Trim vtable of trailing zeroes.
	i := len(b.vtable) - 1
	for ; i >= 0 && b.vtable[i] == 0; i-- {
	}
	fields := b.vtable[:i+1]

	b.scratch = encodeVtable(b.scratch, fields, objectOffset, b.objectEnd)
	h := hashVtable(b.scratch)

	if existing, ok := b.vtables.find(h, b.scratch, b.Bytes); ok {
		// Found a duplicate vtable: point the object at it.
		b.stats.VtablesReused++
		WriteSOffsetT(b.Bytes[b.head:], SOffsetT(existing)-SOffsetT(objectOffset))
		return objectOffset
	}

	// Did not find a vtable, so write this one to the buffer.
	b.Prep(SizeVOffsetT, len(b.scratch))
	b.head -= len(b.scratch)
	copy(b.Bytes[b.head:], b.scratch)
	vtOffset := b.Offset()

	// Next, write the offset to the new vtable in the already-allocated
	// SOffsetT at the beginning of this object.
	objectStart := len(b.Bytes) - int(objectOffset)
	WriteSOffsetT(b.Bytes[objectStart:], SOffsetT(vtOffset)-SOffsetT(objectOffset))

	// Finally, store this vtable for future deduplication.
	b.vtables.add(h, vtOffset)
	b.stats.VtablesWritten++
	return objectOffset
}

// Doubles the size of the byteslice, and copies the old data towards the
// end of the new byteslice (since we build the buffer backwards).
//
// 扩容到原来 2 倍，旧数据拷贝到新数组的尾部，尾部偏移因此保持有效。
// nextBufferSize doubles cur, capped at MaxBufferSize.
func nextBufferSize(cur int) (int, bool) {
	switch {
	case cur >= MaxBufferSize:
		return 0, false
	case cur == 0:
		return 1, true
	case cur > MaxBufferSize/2:
		return MaxBufferSize, true
	}
	return cur * 2, true
}

func (b *Builder) growByteBuffer() {
	newLen, ok := nextBufferSize(len(b.Bytes))
	if !ok {
		contractPanic(ErrBufferTooLarge, "grow from %d bytes", len(b.Bytes))
	}

	bytes := b.mem.Allocate(newLen)
	copy(bytes[newLen-len(b.Bytes):], b.Bytes)
	if b.Bytes != nil {
		b.mem.Free(b.Bytes)
	}
	b.Bytes = bytes
	b.stats.Grows++

	if ce := log.L().Check(zap.DebugLevel, "flatbuffers: builder grown"); ce != nil {
		ce.Write(zap.Int("size", newLen), zap.Uint32("offset", uint32(b.Offset())))
	}
}

// Head gives the start of useful data in the underlying byte buffer.
// Note: unlike other functions, this value is interpreted as from the left.
func (b *Builder) Head() Position {
	return Position(b.head)
}

// Offset relative to the end of the buffer.
func (b *Builder) Offset() TailOffsetT {
	return TailOffsetT(len(b.Bytes) - b.head)
}

// Pad places zeros at the current offset.
func (b *Builder) Pad(n int) {
	for i := 0; i < n; i++ {
		b.PlaceByte(0)
	}
}

// Prep prepares to write an element of `size` after `additionalBytes`
// have been written, e.g. if you write a string, you need to align such
// the int length field is aligned to SizeInt32, and the string data follows it
// directly.
// If all you need to do is align, `additionalBytes` will be 0.
//
// Prep 保证写完 additionalBytes 之后的位置按 size 对齐，需要时填充 0 并扩容。
func (b *Builder) Prep(size, additionalBytes int) {
	if b.state == stateFinished {
		contractPanic(ErrBuilderClosed, "write after Finish")
	}

	// Track the biggest thing we've ever aligned to.
	if size > b.minalign {
		b.minalign = size
	}

	// Find the amount of alignment needed such that `size` is properly
	// aligned after `additionalBytes`:
	alignSize := (^(len(b.Bytes) - b.head + additionalBytes)) + 1
	alignSize &= (size - 1)

	// Reallocate the buffer if needed:
	for b.head <= alignSize+size+additionalBytes {
		oldBufSize := len(b.Bytes)
		b.growByteBuffer()
		b.head += len(b.Bytes) - oldBufSize
	}

	b.Pad(alignSize)
}

// PrependUOffsetT prepends a reference to the object at `off`, stored
// relative to where it is written.
func (b *Builder) PrependUOffsetT(off TailOffsetT) {
	b.Prep(SizeUOffsetT, 0) // Ensure alignment is already done.
	if off == 0 || off > b.Offset() {
		contractPanic(ErrUnfinalizedChild, "PrependUOffsetT: offset %d, only %d bytes written", off, b.Offset())
	}
	// 存储的是前向相对偏移：当前位置到目标对象的距离，加上偏移量自身的 4B。
	rel := UOffsetT(b.Offset() - off + SizeUOffsetT)
	b.PlaceUOffsetT(rel)
}

// StartVector initializes bookkeeping for writing a new vector.
//
// A vector has the following format:
//
//	<UOffsetT: number of elements in this vector>
//	<T: data>+, where T is the type of elements of this vector.
func (b *Builder) StartVector(elemSize, numElems, alignment int) TailOffsetT {
	b.assertIdle("StartVector")
	b.state = stateVector

	b.Prep(SizeUint32, elemSize*numElems)
	b.Prep(alignment, elemSize*numElems) // Just in case alignment > int.
	return b.Offset()
}

// EndVector writes data necessary to finish vector construction.
func (b *Builder) EndVector(vectorNumElems int) TailOffsetT {
	if b.state != stateVector {
		b.assertIdle("EndVector")
		contractPanic(ErrNotNested, "EndVector")
	}

	// we already made space for this, so write without PrependUint32
	b.PlaceUint32(uint32(vectorNumElems))

	b.state = stateIdle
	return b.Offset()
}

// CreateString writes a null-terminated string as a vector.
func (b *Builder) CreateString(s string) TailOffsetT {
	return b.createBytes(s, true)
}

// CreateSharedString is like CreateString but writes each distinct string
// only once per Builder.
func (b *Builder) CreateSharedString(s string) TailOffsetT {
	if off, ok := b.strings[s]; ok {
		return off
	}
	off := b.CreateString(s)
	if b.strings == nil {
		b.strings = make(map[string]TailOffsetT)
	}
	b.strings[s] = off
	return off
}

// CreateByteString writes a byte slice as a string (null-terminated).
func (b *Builder) CreateByteString(s []byte) TailOffsetT {
	return b.createBytes(byteSliceToString(s), true)
}

// CreateByteVector writes a ubyte vector
func (b *Builder) CreateByteVector(v []byte) TailOffsetT {
	return b.createBytes(byteSliceToString(v), false)
}

func (b *Builder) createBytes(s string, terminate bool) TailOffsetT {
	b.assertIdle("CreateString")
	b.state = stateVector

	n := len(s)
	if terminate {
		n++
	}
	b.Prep(SizeUOffsetT, n*SizeByte)
	if terminate {
		b.PlaceByte(0)
	}

	b.head -= len(s)
	copy(b.Bytes[b.head:], s)

	return b.EndVector(len(s))
}

func (b *Builder) assertIdle(op string) {
	switch b.state {
	case stateIdle:
	case stateFinished:
		contractPanic(ErrBuilderClosed, "%s", op)
	default:
		// If you hit this, you're trying to construct a Table/Vector/String
		// during the construction of its parent table.
		// Move the creation of these sub-objects to before StartTable.
		contractPanic(ErrNestedTable, "%s while a %s is open", op, b.state)
	}
}

func (b *Builder) assertTable(op string) {
	switch b.state {
	case stateTable:
	case stateFinished:
		contractPanic(ErrBuilderClosed, "%s", op)
	default:
		contractPanic(ErrNotNested, "%s outside of a table", op)
	}
}

func (b *Builder) checkSlot(slot int) {
	if slot < 0 || slot >= len(b.fields) {
		contractPanic(ErrSlotRange, "slot %d of table with %d fields", slot, len(b.fields))
	}
}

// FinishWithFileIdentifier finalizes a buffer, pointing to the given `rootTable`,
// and writes the 4-byte file identifier right after the root offset.
func (b *Builder) FinishWithFileIdentifier(rootTable TailOffsetT, fid []byte) {
	b.finish(rootTable, fid, false)
}

// Finish finalizes a buffer, pointing to the given `rootTable`.
func (b *Builder) Finish(rootTable TailOffsetT) {
	b.finish(rootTable, nil, false)
}

// FinishSizePrefixed finalizes a buffer like Finish and prefixes it with its
// length as a little-endian uint32.
func (b *Builder) FinishSizePrefixed(rootTable TailOffsetT) {
	b.finish(rootTable, nil, true)
}

// FinishSizePrefixedWithFileIdentifier combines FinishSizePrefixed and
// FinishWithFileIdentifier.
func (b *Builder) FinishSizePrefixedWithFileIdentifier(rootTable TailOffsetT, fid []byte) {
	b.finish(rootTable, fid, true)
}

func (b *Builder) finish(rootTable TailOffsetT, fid []byte, sizePrefix bool) {
	b.assertIdle("Finish")
	if fid != nil && len(fid) != FileIdentifierLength {
		contractPanic(ErrIdentifier, "got %d bytes", len(fid))
	}

	additional := SizeUOffsetT
	if fid != nil {
		additional += FileIdentifierLength
	}
	if sizePrefix {
		additional += SizePrefixLength
	}
	b.Prep(b.minalign, additional)

	if fid != nil {
		for i := FileIdentifierLength - 1; i >= 0; i-- {
			b.PlaceByte(fid[i])
		}
	}
	b.PrependUOffsetT(rootTable)
	if sizePrefix {
		b.PlaceUint32(uint32(b.Offset()))
	}
	b.state = stateFinished
}

// PlaceUint32 prepends a uint32 to the Builder, without checking for space.
func (b *Builder) PlaceUint32(x uint32) {
	b.head -= SizeUint32
	WriteUint32(b.Bytes[b.head:], x)
}

// PlaceByte prepends a byte to the Builder, without checking for space.
func (b *Builder) PlaceByte(x byte) {
	b.head -= SizeByte
	WriteByte(b.Bytes[b.head:], x)
}

// PlaceSOffsetT prepends a SOffsetT to the Builder, without checking for space.
func (b *Builder) PlaceSOffsetT(x SOffsetT) {
	b.head -= SizeSOffsetT
	WriteSOffsetT(b.Bytes[b.head:], x)
}

// PlaceUOffsetT prepends a UOffsetT to the Builder, without checking for space.
func (b *Builder) PlaceUOffsetT(x UOffsetT) {
	b.head -= SizeUOffsetT
	WriteUOffsetT(b.Bytes[b.head:], x)
}

package flatbuffers

// FlatBuffers 是由一系列表组成的，每个表都从一个 4B 的 SOffsetT 开始，指向自己的 vtable。
// Table 只记录 buffer 和表的起始位置 Pos，绑定是 O(1) 的，不做任何解析；
// 所有校验都推迟到读取字段时进行，并且每次解引用之前都先做边界检查，
// 因为 buffer 可能来自不可信的输入，错误的 offset 只能返回错误，不能越界或 panic。

// Table wraps a byte slice and provides read access to its data.
//
// The variable `Pos` indicates the start of the table therein.
type Table struct {
	Bytes []byte
	Pos   Position
}

// NewTable binds a table starting at `pos` in buf.
func NewTable(buf []byte, pos Position) Table {
	return Table{Bytes: buf, Pos: pos}
}

// Init binds t to the table starting at `pos` in buf.
func (t *Table) Init(buf []byte, pos Position) {
	t.Bytes = buf
	t.Pos = pos
}

// GetRoot binds the root table of a finished buffer.
func GetRoot(buf []byte) (Table, error) {
	t := Table{Bytes: buf}
	root, err := t.Indirect(0)
	if err != nil {
		return Table{}, err
	}
	t.Pos = root
	return t, nil
}

// GetSizePrefixedRoot binds the root table of a buffer finished with
// FinishSizePrefixed. Reads are confined to the prefixed length.
func GetSizePrefixedRoot(buf []byte) (Table, error) {
	t := Table{Bytes: buf}
	p, err := t.span(0, 0, SizePrefixLength)
	if err != nil {
		return Table{}, err
	}
	size := uint64(GetUint32(buf[p:]))
	if size+SizePrefixLength > uint64(len(buf)) {
		return Table{}, outOfBounds(SizePrefixLength, int(size), len(buf))
	}
	t.Bytes = buf[:SizePrefixLength+size]
	root, err := t.Indirect(SizePrefixLength)
	if err != nil {
		return Table{}, err
	}
	t.Pos = root
	return t, nil
}

// span returns base+delta when the n bytes starting there lie within t.Bytes.
func (t *Table) span(base Position, delta uint32, n int) (Position, error) {
	p := uint64(base) + uint64(delta)
	if p+uint64(n) > uint64(len(t.Bytes)) {
		return 0, outOfBounds(int(p), n, len(t.Bytes))
	}
	return Position(p), nil
}

//	vtable:
//	+-------------------+-------------------+-------------------+-------------------+-----+
//	| vtable length (2B)| object size (2B)  | field0 offset (2B)| field1 offset (2B)| ... |
//	+-------------------+-------------------+-------------------+-------------------+-----+
//
//	object:
//	+-------------------+-------------------+-------------------+-----+
//	| vtable soffset(4B)| data for field0   | data for field1   | ... |
//	+-------------------+-------------------+-------------------+-----+
//
// vtable 的位置是 Pos - soffset，soffset 可正可负。

// vtable returns the position and recorded length of the table's vtable.
func (t *Table) vtable() (Position, VOffsetT, error) {
	p, err := t.span(t.Pos, 0, SizeSOffsetT)
	if err != nil {
		return 0, 0, err
	}
	vt := int64(p) - int64(GetSOffsetT(t.Bytes[p:]))
	if vt < 0 || vt+VtableMetadataFields*SizeVOffsetT > int64(len(t.Bytes)) {
		return 0, 0, outOfBounds(int(vt), VtableMetadataFields*SizeVOffsetT, len(t.Bytes))
	}
	size := GetVOffsetT(t.Bytes[vt:])
	if vt+int64(size) > int64(len(t.Bytes)) {
		return 0, 0, outOfBounds(int(vt), int(size), len(t.Bytes))
	}
	return Position(vt), size, nil
}

// Offset returns the offset of slot `slot` relative to the table start, or 0
// when the slot has no storage.
//
// Slots past the end of the vtable were added to the schema after the buffer
// was written; they read as absent, never as an error.
func (t *Table) Offset(slot int) (VOffsetT, error) {
	vt, size, err := t.vtable()
	if err != nil {
		return 0, err
	}
	if slot < 0 {
		return 0, nil
	}
	// 在 uint64 上计算 entry，超大 slot 不能在 VOffsetT 上回绕成小的 entry。
	entry := uint64(VtableMetadataFields+slot) * SizeVOffsetT
	if entry+SizeVOffsetT > uint64(size) {
		return 0, nil
	}
	return GetVOffsetT(t.Bytes[uint64(vt)+entry:]), nil
}

// ObjectSize returns the object size recorded in the table's vtable.
func (t *Table) ObjectSize() (int, error) {
	vt, size, err := t.vtable()
	if err != nil {
		return 0, err
	}
	if size < VtableMetadataFields*SizeVOffsetT {
		return 0, malformed("vtable length %d at %d", size, vt)
	}
	return int(GetVOffsetT(t.Bytes[vt+SizeVOffsetT:])), nil
}

// NumSlots returns the number of slot entries in the table's vtable.
func (t *Table) NumSlots() (int, error) {
	_, size, err := t.vtable()
	if err != nil {
		return 0, err
	}
	n := int(size)/SizeVOffsetT - VtableMetadataFields
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Indirect follows the UOffsetT stored at `p` and returns the position it
// points to.
func (t *Table) Indirect(p Position) (Position, error) {
	q, err := t.span(p, 0, SizeUOffsetT)
	if err != nil {
		return 0, err
	}
	target := uint64(q) + uint64(GetUOffsetT(t.Bytes[q:]))
	if target >= uint64(len(t.Bytes)) {
		return 0, outOfBounds(int(target), 1, len(t.Bytes))
	}
	return Position(target), nil
}

// deref resolves the offset stored in slot `slot`. ok is false when the slot
// is absent.
func (t *Table) deref(slot int) (p Position, ok bool, err error) {
	off, err := t.Offset(slot)
	if err != nil || off == 0 {
		return 0, false, err
	}
	p, err = t.Indirect(t.Pos + Position(off))
	if err != nil {
		return 0, false, err
	}
	return p, true, nil
}

// Child resolves the table referenced from slot `slot`.
func (t *Table) Child(slot int) (Table, bool, error) {
	p, ok, err := t.deref(slot)
	if !ok {
		return Table{}, false, err
	}
	return Table{Bytes: t.Bytes, Pos: p}, true, nil
}

// Union binds t2 to the union value referenced from slot `slot`. The union's
// type tag lives in its own scalar slot.
func (t *Table) Union(slot int, t2 *Table) (bool, error) {
	child, ok, err := t.Child(slot)
	if !ok {
		return false, err
	}
	*t2 = child
	return true, nil
}

// Struct binds the struct of `size` bytes stored inline at slot `slot`.
func (t *Table) Struct(slot int, size int) (Struct, bool, error) {
	off, err := t.Offset(slot)
	if err != nil || off == 0 {
		return Struct{}, false, err
	}
	p, err := t.span(t.Pos, uint32(off), size)
	if err != nil {
		return Struct{}, false, err
	}
	return Struct{Table{Bytes: t.Bytes, Pos: p}}, true, nil
}

// Vector resolves the vector of `elemSize`-byte elements referenced from slot
// `slot`. An absent slot yields an empty vector.
func (t *Table) Vector(slot int, elemSize int) (Vector, error) {
	p, ok, err := t.deref(slot)
	if !ok {
		return Vector{Bytes: t.Bytes, ElemSize: elemSize}, err
	}
	return vectorAt(t.Bytes, p, elemSize)
}

// VectorLen returns the length of the vector referenced from slot `slot`,
// or 0 when absent.
func (t *Table) VectorLen(slot int) (int, error) {
	p, ok, err := t.deref(slot)
	if !ok {
		return 0, err
	}
	q, err := t.span(p, 0, SizeUOffsetT)
	if err != nil {
		return 0, err
	}
	return int(GetUOffsetT(t.Bytes[q:])), nil
}

// ByteVector returns the bytes of the byte vector or string referenced from
// slot `slot`. The slice aliases the buffer.
func (t *Table) ByteVector(slot int) ([]byte, error) {
	v, err := t.Vector(slot, SizeByte)
	if err != nil {
		return nil, err
	}
	return v.Data(), nil
}

// String gets a string referenced from slot `slot`, "" when absent.
//
// 返回的 string 直接引用底层 buffer，不做拷贝，buffer 被修改时 string 也会变化。
func (t *Table) String(slot int) (string, error) {
	b, err := t.ByteVector(slot)
	if err != nil {
		return "", err
	}
	return byteSliceToString(b), nil
}

// StringAt reads the string whose length prefix is at `p`, e.g. a union
// value of string type.
func (t *Table) StringAt(p Position) (string, error) {
	sv, err := vectorAt(t.Bytes, p, SizeByte)
	if err != nil {
		return "", err
	}
	return byteSliceToString(sv.Data()), nil
}

// Vector is a bounds-checked view of a vector in a finished buffer.
//
// 数据部分 data = length(4B) + content[0,...,length)，Start 指向 content 的起点。
type Vector struct {
	Bytes    []byte
	Start    Position
	Len      int
	ElemSize int
}

func vectorAt(buf []byte, p Position, elemSize int) (Vector, error) {
	if uint64(p)+SizeUOffsetT > uint64(len(buf)) {
		return Vector{}, outOfBounds(int(p), SizeUOffsetT, len(buf))
	}
	n := uint64(GetUOffsetT(buf[p:]))
	start := uint64(p) + SizeUOffsetT
	if start+n*uint64(elemSize) > uint64(len(buf)) {
		return Vector{}, outOfBounds(int(start), int(n)*elemSize, len(buf))
	}
	return Vector{Bytes: buf, Start: Position(start), Len: int(n), ElemSize: elemSize}, nil
}

// At returns the position of element i.
func (v Vector) At(i int) (Position, error) {
	if i < 0 || i >= v.Len {
		return 0, outOfBounds(i, 1, v.Len)
	}
	return v.Start + Position(i*v.ElemSize), nil
}

// Data returns the raw element bytes.
func (v Vector) Data() []byte {
	if v.Len == 0 {
		return nil
	}
	return v.Bytes[v.Start : int(v.Start)+v.Len*v.ElemSize]
}

// Table resolves element i of a vector of table references.
func (v Vector) Table(i int) (Table, error) {
	p, err := v.At(i)
	if err != nil {
		return Table{}, err
	}
	t := Table{Bytes: v.Bytes}
	target, err := t.Indirect(p)
	if err != nil {
		return Table{}, err
	}
	t.Pos = target
	return t, nil
}

// String resolves element i of a vector of strings.
func (v Vector) String(i int) (string, error) {
	p, err := v.At(i)
	if err != nil {
		return "", err
	}
	t := Table{Bytes: v.Bytes}
	target, err := t.Indirect(p)
	if err != nil {
		return "", err
	}
	return t.StringAt(target)
}

// VectorAt decodes scalar element i of v.
func VectorAt[T Scalar](v Vector, i int) (T, error) {
	var zero T
	p, err := v.At(i)
	if err != nil {
		return zero, err
	}
	t := Table{Bytes: v.Bytes}
	return ReadAt[T](&t, p, 0)
}

// Struct wraps a byte slice and provides read access to its data.
//
// Structs do not have a vtable. Fields are read with ReadAt at fixed offsets
// from Pos.
type Struct struct {
	Table
}

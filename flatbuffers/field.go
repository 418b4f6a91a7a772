package flatbuffers

// Scalar lists the value types a table slot can hold inline. Enums are
// stored through their underlying integer type.
type Scalar interface {
	bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// Field describes one scalar slot of a table: its stable slot index and
// the schema default. Binding code declares one Field per schema field and
// uses it on both the write and read side.
type Field[T Scalar] struct {
	Slot    int
	Default T
}

// Add records x for the field in the table currently being built.
func (f Field[T]) Add(b *Builder, x T) {
	AddField(b, f.Slot, x, f.Default)
}

// Get reads the field from t, returning the default when absent.
func (f Field[T]) Get(t *Table) (T, error) {
	return ReadField(t, f.Slot, f.Default)
}

// Mutate overwrites the field in place. It reports false when the field
// has no storage in t.
func (f Field[T]) Mutate(t *Table, x T) (bool, error) {
	return MutateField(t, f.Slot, x)
}

// OffsetField describes a slot holding a reference to a table, vector,
// string or union value.
type OffsetField struct {
	Slot int
}

// Add records a reference to the already finished object ref.
func (f OffsetField) Add(b *Builder, ref TailOffsetT) {
	b.AddOffsetField(f.Slot, ref)
}

// Table resolves the referenced table.
func (f OffsetField) Table(t *Table) (Table, bool, error) {
	return t.Child(f.Slot)
}

// AddField records `x` at slot `slot` of the open table. If `x` equals the
// default `d`, nothing is stored and any value recorded earlier for the slot
// is dropped, so the slot reads back as `d`.
func AddField[T Scalar](b *Builder, slot int, x, d T) {
	b.assertTable("AddField")
	b.checkSlot(slot)
	if x == d {
		b.fields[slot] = pendingField{}
		return
	}
	var f pendingField
	f.kind = fieldScalar
	f.size = putScalar(f.scalar[:], x)
	f.align = f.size
	b.fields[slot] = f
}

// ReadField returns the value of slot `slot` in t, or `d` when the slot has
// no storage, either because it was elided or because t was written with an
// older, shorter vtable.
func ReadField[T Scalar](t *Table, slot int, d T) (T, error) {
	off, err := t.Offset(slot)
	if err != nil || off == 0 {
		return d, err
	}
	return ReadAt[T](t, t.Pos, uint32(off))
}

// MutateField overwrites the stored value of slot `slot` in place. It returns
// false, leaving the buffer untouched, when the slot has no storage.
func MutateField[T Scalar](t *Table, slot int, x T) (bool, error) {
	off, err := t.Offset(slot)
	if err != nil || off == 0 {
		return false, err
	}
	if err := MutateAt(t, t.Pos, uint32(off), x); err != nil {
		return false, err
	}
	return true, nil
}

// ReadAt decodes a T stored `delta` bytes after `base`, with bounds checks.
func ReadAt[T Scalar](t *Table, base Position, delta uint32) (T, error) {
	var zero T
	p, err := t.span(base, delta, scalarSize[T]())
	if err != nil {
		return zero, err
	}
	return getScalar[T](t.Bytes[p:]), nil
}

// MutateAt encodes x `delta` bytes after `base`, with bounds checks.
func MutateAt[T Scalar](t *Table, base Position, delta uint32, x T) error {
	var tmp [8]byte
	n := putScalar(tmp[:], x)
	p, err := t.span(base, delta, n)
	if err != nil {
		return err
	}
	copy(t.Bytes[p:], tmp[:n])
	return nil
}

func scalarSize[T Scalar]() int {
	var zero T
	switch any(zero).(type) {
	case bool, int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	default:
		return 8
	}
}

// putScalar writes x little-endian into buf and returns its width.
func putScalar[T Scalar](buf []byte, x T) int {
	switch v := any(x).(type) {
	case bool:
		WriteBool(buf, v)
		return SizeBool
	case int8:
		WriteInt8(buf, v)
		return SizeInt8
	case uint8:
		WriteUint8(buf, v)
		return SizeUint8
	case int16:
		WriteInt16(buf, v)
		return SizeInt16
	case uint16:
		WriteUint16(buf, v)
		return SizeUint16
	case int32:
		WriteInt32(buf, v)
		return SizeInt32
	case uint32:
		WriteUint32(buf, v)
		return SizeUint32
	case int64:
		WriteInt64(buf, v)
		return SizeInt64
	case uint64:
		WriteUint64(buf, v)
		return SizeUint64
	case float32:
		WriteFloat32(buf, v)
		return SizeFloat32
	case float64:
		WriteFloat64(buf, v)
		return SizeFloat64
	}
	panic("unreachable")
}

func getScalar[T Scalar](buf []byte) T {
	var out any
	var zero T
	switch any(zero).(type) {
	case bool:
		out = GetBool(buf)
	case int8:
		out = GetInt8(buf)
	case uint8:
		out = GetUint8(buf)
	case int16:
		out = GetInt16(buf)
	case uint16:
		out = GetUint16(buf)
	case int32:
		out = GetInt32(buf)
	case uint32:
		out = GetUint32(buf)
	case int64:
		out = GetInt64(buf)
	case uint64:
		out = GetUint64(buf)
	case float32:
		out = GetFloat32(buf)
	case float64:
		out = GetFloat64(buf)
	}
	return out.(T)
}

// Prepend writes x to the front of the buffer, aligned to its width. It is
// used when filling vectors and structs.
func Prepend[T Scalar](b *Builder, x T) {
	n := scalarSize[T]()
	b.Prep(n, 0)
	b.head -= n
	putScalar(b.Bytes[b.head:], x)
}

// SizeOf returns the wire width of T.
func SizeOf[T Scalar]() int {
	return scalarSize[T]()
}

package flatbuffers

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/blastbao/flatcore/log"
)

// Verifier 在读取不可信 buffer 之前做一次结构检查：
//	- root offset、每个表的 soffset 和 vtable 都在 buffer 范围内；
//	- vtable 长度为偶数且不小于 4，对象大小至少包含 soffset；
//	- 每个存在的字段都落在对象内部；
//	- 可选的严格对齐检查；
//	- 嵌套深度和表数量上限，防止构造出的环形引用或超大 buffer 耗尽资源。
//
// Verifier 不知道 schema，嵌套的表、vector、string 需要调用方通过 Child / Vector / String 逐一检查。

// VerifierOptions bounds the work a Verifier does.
type VerifierOptions struct {
	// MaxDepth is the maximum nesting of tables below the root.
	MaxDepth int
	// MaxTables is the maximum number of tables verified per buffer.
	MaxTables int
	// StrictAlignment rejects scalars and offsets that are not aligned to
	// their size.
	StrictAlignment bool
}

// DefaultVerifierOptions returns the limits used when none are configured.
func DefaultVerifierOptions() VerifierOptions {
	return VerifierOptions{
		MaxDepth:  64,
		MaxTables: 1000000,
	}
}

// Verifier checks a finished buffer before it is read.
type Verifier struct {
	buf    []byte
	opts   VerifierOptions
	depth  int
	tables int
}

// NewVerifier returns a Verifier for buf.
func NewVerifier(buf []byte, opts VerifierOptions) *Verifier {
	return &Verifier{buf: buf, opts: opts}
}

// Tables returns the number of tables verified so far.
func (v *Verifier) Tables() int {
	return v.tables
}

// Root verifies the root offset and the root table.
func (v *Verifier) Root() (Table, error) {
	t, err := GetRoot(v.buf)
	if err != nil {
		return Table{}, v.reject(err)
	}
	if err := v.Table(t); err != nil {
		return Table{}, err
	}
	return t, nil
}

// SizePrefixedRoot verifies a buffer finished with FinishSizePrefixed.
func (v *Verifier) SizePrefixedRoot() (Table, error) {
	t, err := GetSizePrefixedRoot(v.buf)
	if err != nil {
		return Table{}, v.reject(err)
	}
	v.buf = t.Bytes
	if err := v.Table(t); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Table verifies the vtable and object bounds of t.
func (v *Verifier) Table(t Table) error {
	v.tables++
	if v.opts.MaxTables > 0 && v.tables > v.opts.MaxTables {
		return v.reject(xerrors.Errorf("more than %d tables: %w", v.opts.MaxTables, ErrVerifierLimit))
	}
	if err := v.checkAlign(t.Pos, SizeSOffsetT); err != nil {
		return err
	}

	vt, vtSize, err := t.vtable()
	if err != nil {
		return v.reject(err)
	}
	if err := v.checkAlign(vt, SizeVOffsetT); err != nil {
		return err
	}
	if vtSize < VtableMetadataFields*SizeVOffsetT || vtSize%SizeVOffsetT != 0 {
		return v.reject(malformed("vtable length %d at %d", vtSize, vt))
	}

	objSize := GetVOffsetT(t.Bytes[vt+SizeVOffsetT:])
	if objSize < SizeSOffsetT {
		return v.reject(malformed("object size %d at %d", objSize, t.Pos))
	}
	if _, err := t.span(t.Pos, 0, int(objSize)); err != nil {
		return v.reject(err)
	}

	for e := Position(VtableMetadataFields * SizeVOffsetT); e < Position(vtSize); e += SizeVOffsetT {
		off := GetVOffsetT(t.Bytes[vt+e:])
		if off == 0 {
			continue
		}
		if off < SizeSOffsetT || off >= objSize {
			return v.reject(malformed("field offset %d outside object of %d bytes at %d", off, objSize, t.Pos))
		}
	}
	return nil
}

// Field checks that the scalar of `size` bytes at slot `slot` lies inside
// t's object.
func (v *Verifier) Field(t Table, slot int, size int) error {
	return v.field(t, slot, size, size)
}

// Struct checks that the inline struct of `size` bytes at slot `slot` lies
// inside t's object and is aligned to `align`.
func (v *Verifier) Struct(t Table, slot int, size, align int) error {
	return v.field(t, slot, size, align)
}

func (v *Verifier) field(t Table, slot int, size, align int) error {
	off, err := t.Offset(slot)
	if err != nil {
		return v.reject(err)
	}
	if off == 0 {
		return nil
	}
	objSize, err := t.ObjectSize()
	if err != nil {
		return v.reject(err)
	}
	if int(off)+size > objSize {
		return v.reject(malformed("slot %d of %d bytes at offset %d overruns object of %d bytes", slot, size, off, objSize))
	}
	return v.checkAlign(t.Pos+Position(off), align)
}

// Child verifies the table referenced from slot `slot` and, when fn is not
// nil, lets fn verify its fields one level deeper.
func (v *Verifier) Child(t Table, slot int, fn func(*Verifier, Table) error) error {
	if err := v.Field(t, slot, SizeUOffsetT); err != nil {
		return err
	}
	child, ok, err := t.Child(slot)
	if err != nil {
		return v.reject(err)
	}
	if !ok {
		return nil
	}
	return v.nested(child, fn)
}

// Vector verifies the vector of `elemSize`-byte elements referenced from
// slot `slot` and returns it.
func (v *Verifier) Vector(t Table, slot int, elemSize int) (Vector, error) {
	if err := v.Field(t, slot, SizeUOffsetT); err != nil {
		return Vector{}, err
	}
	vec, err := t.Vector(slot, elemSize)
	if err != nil {
		return Vector{}, v.reject(err)
	}
	if vec.Len > 0 {
		if err := v.checkAlign(vec.Start-SizeUOffsetT, SizeUOffsetT); err != nil {
			return Vector{}, err
		}
	}
	return vec, nil
}

// TableVector verifies every element of a vector of tables referenced from slot
// `slot`.
func (v *Verifier) TableVector(t Table, slot int, fn func(*Verifier, Table) error) error {
	vec, err := v.Vector(t, slot, SizeUOffsetT)
	if err != nil {
		return err
	}
	for i := 0; i < vec.Len; i++ {
		elem, err := vec.Table(i)
		if err != nil {
			return v.reject(err)
		}
		if err := v.nested(elem, fn); err != nil {
			return err
		}
	}
	return nil
}

// String verifies the string referenced from slot `slot`, including its
// null terminator.
func (v *Verifier) String(t Table, slot int) error {
	vec, err := v.Vector(t, slot, SizeByte)
	if err != nil {
		return err
	}
	if vec.Start == 0 {
		return nil
	}
	end := int(vec.Start) + vec.Len
	if end >= len(vec.Bytes) {
		return v.reject(outOfBounds(end, 1, len(vec.Bytes)))
	}
	if vec.Bytes[end] != 0 {
		return v.reject(malformed("string at %d is not null terminated", vec.Start))
	}
	return nil
}

// Nested verifies a table reached by a path the Verifier does not walk
// itself, such as a table element of a union vector.
func (v *Verifier) Nested(t Table, fn func(*Verifier, Table) error) error {
	return v.nested(t, fn)
}

func (v *Verifier) nested(t Table, fn func(*Verifier, Table) error) error {
	v.depth++
	defer func() { v.depth-- }()
	if v.opts.MaxDepth > 0 && v.depth > v.opts.MaxDepth {
		return v.reject(xerrors.Errorf("nesting deeper than %d: %w", v.opts.MaxDepth, ErrVerifierLimit))
	}
	if err := v.Table(t); err != nil {
		return err
	}
	if fn != nil {
		return fn(v, t)
	}
	return nil
}

func (v *Verifier) checkAlign(p Position, align int) error {
	if !v.opts.StrictAlignment || align <= 1 {
		return nil
	}
	if int(p)%align != 0 {
		return v.reject(xerrors.Errorf("value at %d not aligned to %d: %w", p, align, ErrAlignment))
	}
	return nil
}

func (v *Verifier) reject(err error) error {
	if ce := log.L().Check(zap.DebugLevel, "flatbuffers: verifier rejected buffer"); ce != nil {
		ce.Write(zap.Error(err), zap.Int("size", len(v.buf)), zap.Int("depth", v.depth))
	}
	return err
}

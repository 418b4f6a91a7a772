package flatbuffers

import (
	"github.com/apache/arrow/go/v17/arrow/float16"
)

// 半精度浮点数在 buffer 中按 2B 的 uint16 存储，默认值比较也按位进行，
// 所以 +0 与 -0 被视为不同的值。

// AddFloat16Field records a half-precision float at slot `slot`.
func AddFloat16Field(b *Builder, slot int, x, d float16.Num) {
	AddField(b, slot, x.Uint16(), d.Uint16())
}

// ReadFloat16Field reads a half-precision float from slot `slot`.
func ReadFloat16Field(t *Table, slot int, d float16.Num) (float16.Num, error) {
	v, err := ReadField(t, slot, d.Uint16())
	return float16.FromBits(v), err
}

// MutateFloat16Field overwrites a half-precision float in place.
func MutateFloat16Field(t *Table, slot int, x float16.Num) (bool, error) {
	return MutateField(t, slot, x.Uint16())
}

// AddBoolField records a bool at slot `slot`.
func AddBoolField(b *Builder, slot int, x, d bool) {
	AddField(b, slot, x, d)
}

// ReadBoolField reads a bool from slot `slot`. Any non-zero byte reads as
// true.
func ReadBoolField(t *Table, slot int, d bool) (bool, error) {
	v, err := ReadField(t, slot, boolByte(d))
	return v != 0, err
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

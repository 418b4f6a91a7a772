package flatbuffers

import (
	"encoding/binary"
	"math"
)

// 三种 32 位偏移量分别对应三个方向，类型上区分开，避免混用导致的 off-by-one：
//	- TailOffsetT：构建期，Builder 返回的对象位置，从 buffer 尾部往前数；
//	- UOffsetT：   存储在 buffer 中的前向相对偏移，读取时加上自身位置得到目标位置；
//	- Position：   读取期，已完成 buffer 中从头部开始的绝对下标。

type (
	// A SOffsetT stores a signed offset from a table to its vtable.
	SOffsetT int32
	// A UOffsetT is an unsigned offset as stored in a buffer, relative to
	// the location it is stored at and pointing forward.
	UOffsetT uint32
	// A VOffsetT stores an unsigned offset in a vtable.
	VOffsetT uint16
	// A TailOffsetT identifies an object under construction by its distance
	// from the tail of the Builder's buffer. It stays valid across growth.
	TailOffsetT uint32
	// A Position is an absolute index into a finished buffer.
	Position uint32
)

const (
	// VtableMetadataFields is the count of metadata fields in each vtable.
	VtableMetadataFields = 2

	// MaxTableFields is the largest field count whose vtable length still
	// fits in a VOffsetT.
	MaxTableFields = (1<<16-1)/SizeVOffsetT - VtableMetadataFields
)

// SlotOffset returns the byte offset inside a vtable of the entry for
// field slot `slot`, i.e. 4 for slot 0, 6 for slot 1 and so on.
// slot must lie in [0, MaxTableFields).
func SlotOffset(slot int) VOffsetT {
	return VOffsetT((VtableMetadataFields + slot) * SizeVOffsetT)
}

// GetBool decodes a little-endian bool from a byte slice. Any nonzero
// byte reads as true.
func GetBool(buf []byte) bool {
	return buf[0] != 0
}

// GetUint8 decodes a little-endian uint8 from a byte slice.
func GetUint8(buf []byte) uint8 {
	return buf[0]
}

// GetUint16 decodes a little-endian uint16 from a byte slice.
func GetUint16(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

// GetUint32 decodes a little-endian uint32 from a byte slice.
func GetUint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// GetUint64 decodes a little-endian uint64 from a byte slice.
func GetUint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

// GetInt8 decodes a little-endian int8 from a byte slice.
func GetInt8(buf []byte) int8 {
	return int8(buf[0])
}

// GetInt16 decodes a little-endian int16 from a byte slice.
func GetInt16(buf []byte) int16 {
	return int16(GetUint16(buf))
}

// GetInt32 decodes a little-endian int32 from a byte slice.
func GetInt32(buf []byte) int32 {
	return int32(GetUint32(buf))
}

// GetInt64 decodes a little-endian int64 from a byte slice.
func GetInt64(buf []byte) int64 {
	return int64(GetUint64(buf))
}

// GetFloat32 decodes a little-endian float32 from a byte slice.
func GetFloat32(buf []byte) float32 {
	return math.Float32frombits(GetUint32(buf))
}

// GetFloat64 decodes a little-endian float64 from a byte slice.
func GetFloat64(buf []byte) float64 {
	return math.Float64frombits(GetUint64(buf))
}

// GetUOffsetT decodes a little-endian UOffsetT from a byte slice.
func GetUOffsetT(buf []byte) UOffsetT {
	return UOffsetT(GetUint32(buf))
}

// GetSOffsetT decodes a little-endian SOffsetT from a byte slice.
func GetSOffsetT(buf []byte) SOffsetT {
	return SOffsetT(GetInt32(buf))
}

// GetVOffsetT decodes a little-endian VOffsetT from a byte slice.
func GetVOffsetT(buf []byte) VOffsetT {
	return VOffsetT(GetUint16(buf))
}

// WriteByte encodes a little-endian uint8 into a byte slice.
func WriteByte(buf []byte, n byte) {
	buf[0] = n
}

// WriteBool encodes a little-endian bool into a byte slice.
func WriteBool(buf []byte, b bool) {
	buf[0] = 0
	if b {
		buf[0] = 1
	}
}

// WriteUint8 encodes a little-endian uint8 into a byte slice.
func WriteUint8(buf []byte, n uint8) {
	buf[0] = n
}

// WriteUint16 encodes a little-endian uint16 into a byte slice.
func WriteUint16(buf []byte, n uint16) {
	binary.LittleEndian.PutUint16(buf, n)
}

// WriteUint32 encodes a little-endian uint32 into a byte slice.
func WriteUint32(buf []byte, n uint32) {
	binary.LittleEndian.PutUint32(buf, n)
}

// WriteUint64 encodes a little-endian uint64 into a byte slice.
func WriteUint64(buf []byte, n uint64) {
	binary.LittleEndian.PutUint64(buf, n)
}

// WriteInt8 encodes a little-endian int8 into a byte slice.
func WriteInt8(buf []byte, n int8) {
	buf[0] = byte(n)
}

// WriteInt16 encodes a little-endian int16 into a byte slice.
func WriteInt16(buf []byte, n int16) {
	WriteUint16(buf, uint16(n))
}

// WriteInt32 encodes a little-endian int32 into a byte slice.
func WriteInt32(buf []byte, n int32) {
	WriteUint32(buf, uint32(n))
}

// WriteInt64 encodes a little-endian int64 into a byte slice.
func WriteInt64(buf []byte, n int64) {
	WriteUint64(buf, uint64(n))
}

// WriteFloat32 encodes a little-endian float32 into a byte slice.
func WriteFloat32(buf []byte, n float32) {
	WriteUint32(buf, math.Float32bits(n))
}

// WriteFloat64 encodes a little-endian float64 into a byte slice.
func WriteFloat64(buf []byte, n float64) {
	WriteUint64(buf, math.Float64bits(n))
}

// WriteVOffsetT encodes a little-endian VOffsetT into a byte slice.
func WriteVOffsetT(buf []byte, n VOffsetT) {
	WriteUint16(buf, uint16(n))
}

// WriteSOffsetT encodes a little-endian SOffsetT into a byte slice.
func WriteSOffsetT(buf []byte, n SOffsetT) {
	WriteInt32(buf, int32(n))
}

// WriteUOffsetT encodes a little-endian UOffsetT into a byte slice.
func WriteUOffsetT(buf []byte, n UOffsetT) {
	WriteUint32(buf, uint32(n))
}

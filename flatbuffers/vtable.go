package flatbuffers

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// A vtable has the following format:
//
//	<VOffsetT: size of the vtable in bytes, including this value>
//	<VOffsetT: size of the object in bytes, including the vtable offset>
//	<VOffsetT: offset for a field> * N, where N is the number of fields in
//	           the schema for this type. Includes deprecated fields.
//
// Thus, a vtable is made of 2 + N elements, each SizeVOffsetT bytes wide.
//
// 去重按内容进行：候选 vtable 先编码成最终的字节形式，用 xxhash 做索引，
// 命中同一个 hash 的已有 vtable 再逐字节比较，完全相同才复用。
// 对象大小也在比较范围内，所以字段布局相同但对象大小不同的表不会共享 vtable。

// vtableIndex remembers every vtable written to a Builder, keyed by the hash
// of its encoded bytes.
type vtableIndex struct {
	byHash map[uint64][]TailOffsetT
}

func newVtableIndex() vtableIndex {
	return vtableIndex{byHash: make(map[uint64][]TailOffsetT, 16)}
}

// find returns the tail offset of a written vtable identical to encoded.
// buf is the Builder's byte slice, written back to front.
func (x *vtableIndex) find(h uint64, encoded, buf []byte) (TailOffsetT, bool) {
	for _, off := range x.byHash[h] {
		start := len(buf) - int(off)
		if start+len(encoded) > len(buf) {
			continue
		}
		if GetVOffsetT(buf[start:]) != VOffsetT(len(encoded)) {
			continue
		}
		if bytes.Equal(buf[start:start+len(encoded)], encoded) {
			return off, true
		}
	}
	return 0, false
}

func (x *vtableIndex) add(h uint64, off TailOffsetT) {
	x.byHash[h] = append(x.byHash[h], off)
}

func (x *vtableIndex) reset() {
	clear(x.byHash)
}

func (x *vtableIndex) len() int {
	n := 0
	for _, offs := range x.byHash {
		n += len(offs)
	}
	return n
}

func hashVtable(encoded []byte) uint64 {
	return xxhash.Sum64(encoded)
}

// encodeVtable serializes the vtable of the object whose vtable pointer sits
// at tail offset objectOffset into dst. fields holds the tail offset of each
// present field, 0 for absent ones, with trailing absent slots trimmed.
func encodeVtable(dst []byte, fields []TailOffsetT, objectOffset, objectEnd TailOffsetT) []byte {
	vBytes := (len(fields) + VtableMetadataFields) * SizeVOffsetT
	if cap(dst) < vBytes {
		dst = make([]byte, vBytes)
	}
	dst = dst[:vBytes]

	WriteVOffsetT(dst, VOffsetT(vBytes))
	WriteVOffsetT(dst[SizeVOffsetT:], VOffsetT(objectOffset-objectEnd))
	for i, f := range fields {
		var off VOffsetT
		if f != 0 {
			// Forward reference to field, measured from the object start.
			off = VOffsetT(objectOffset - f)
		}
		WriteVOffsetT(dst[(VtableMetadataFields+i)*SizeVOffsetT:], off)
	}
	return dst
}

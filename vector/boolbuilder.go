// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/blastbao/flatcore/flatbuffers"
)

// BoolBuilder accumulates bools bit-packed; on the wire each element takes
// one byte.
type BoolBuilder struct {
	builder

	data    *memory.Buffer
	rawData []byte
}

func NewBoolBuilder(mem memory.Allocator) *BoolBuilder {
	return &BoolBuilder{
		builder: builder{
			refCount: 1,
			mem:      mem,
		},
	}
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed.
// Release may be called simultaneously from multiple goroutines.
func (b *BoolBuilder) Release() {
	if b.release() {
		b.releaseData()
	}
}

func (b *BoolBuilder) releaseData() {
	if b.data != nil {
		b.data.Release()
		b.data = nil
		b.rawData = nil
	}
}

func (b *BoolBuilder) Append(v bool) {
	b.Reserve(1)
	b.UnsafeAppend(v)
}

func (b *BoolBuilder) AppendByte(v byte) {
	b.Reserve(1)
	b.UnsafeAppend(v != 0)
}

func (b *BoolBuilder) UnsafeAppend(v bool) {
	// 设置 `b.rawData` 中第 b.length 个 bit
	bitutil.SetBitTo(b.rawData, b.length, v)
	// 更新元素总数
	b.length++
}

func (b *BoolBuilder) AppendValues(v []bool) {
	if len(v) == 0 {
		return
	}

	b.Reserve(len(v))
	for i, vv := range v {
		bitutil.SetBitTo(b.rawData, b.length+i, vv)
	}
	b.length += len(v)
}

// Value returns element i.
func (b *BoolBuilder) Value(i int) bool {
	return bitutil.BitIsSet(b.rawData, i)
}

func (b *BoolBuilder) init(capacity int) {
	b.capacity = capacity
	// 创建 data buffer ，用于存储数据
	b.data = memory.NewResizableBuffer(b.mem)
	// 计算 n 个 bool 需要占用多少个 bytes
	b.data.Resize(int(bitutil.BytesForBits(int64(capacity))))
	memory.Set(b.data.Buf(), 0)
	// 引用底层的 []byte ，加速访问
	b.rawData = b.data.Bytes()
}

// Reserve ensures there is enough space for appending n elements
// by checking the capacity and calling Resize if necessary.
func (b *BoolBuilder) Reserve(n int) {
	b.builder.reserve(n, b.Resize)
}

// Resize adjusts the space allocated by b to n elements. If n is greater than b.Cap(),
// additional memory will be allocated. If n is smaller, the allocated memory may reduced.
func (b *BoolBuilder) Resize(n int) {
	if n < minBuilderCapacity {
		n = minBuilderCapacity
	}
	if b.capacity == 0 {
		b.init(n)
		return
	}
	b.builder.resize(n)
	b.data.Resize(int(bitutil.BytesForBits(int64(n))))
	// 更新引用，因为 resize 操作可能会新建底层 []byte
	b.rawData = b.data.Bytes()
}

// Finish writes the accumulated bools as a ubyte vector and resets b.
func (b *BoolBuilder) Finish(fb *flatbuffers.Builder) flatbuffers.TailOffsetT {
	n := b.length
	fb.StartVector(flatbuffers.SizeBool, n, flatbuffers.SizeBool)
	for i := n - 1; i >= 0; i-- {
		flatbuffers.Prepend(fb, bitutil.BitIsSet(b.rawData, i))
	}
	off := fb.EndVector(n)

	b.reset()
	b.releaseData()
	return off
}

var (
	_ Builder = (*BoolBuilder)(nil)
)

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
	"unsafe"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/blastbao/flatcore/flatbuffers"
)

// ScalarBuilder accumulates fixed-width scalars.
type ScalarBuilder[T flatbuffers.Scalar] struct {
	builder

	data    *memory.Buffer
	rawData []T
}

func NewScalarBuilder[T flatbuffers.Scalar](mem memory.Allocator) *ScalarBuilder[T] {
	return &ScalarBuilder[T]{
		builder: builder{
			refCount: 1,
			mem:      mem,
		},
	}
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed.
// Release may be called simultaneously from multiple goroutines.
func (b *ScalarBuilder[T]) Release() {
	if b.release() {
		b.releaseData()
	}
}

func (b *ScalarBuilder[T]) releaseData() {
	if b.data != nil {
		b.data.Release()
		b.data = nil
		b.rawData = nil
	}
}

func (b *ScalarBuilder[T]) Append(v T) {
	b.Reserve(1)
	b.UnsafeAppend(v)
}

func (b *ScalarBuilder[T]) UnsafeAppend(v T) {
	b.rawData[b.length] = v
	b.length++
}

func (b *ScalarBuilder[T]) AppendValues(v []T) {
	if len(v) == 0 {
		return
	}
	b.Reserve(len(v))
	copy(b.rawData[b.length:], v)
	b.length += len(v)
}

// Value returns element i.
func (b *ScalarBuilder[T]) Value(i int) T { return b.rawData[i] }

// Values returns the accumulated elements. The slice is only valid until
// the next call that grows or finishes b.
func (b *ScalarBuilder[T]) Values() []T { return b.rawData[:b.length] }

func (b *ScalarBuilder[T]) init(capacity int) {
	b.capacity = capacity
	b.data = memory.NewResizableBuffer(b.mem)
	b.data.Resize(capacity * flatbuffers.SizeOf[T]())
	b.rawData = castFromBytes[T](b.data.Bytes())
}

// Reserve ensures there is enough space for appending n elements
// by checking the capacity and calling Resize if necessary.
func (b *ScalarBuilder[T]) Reserve(n int) {
	b.builder.reserve(n, b.Resize)
}

// Resize adjusts the space allocated by b to n elements. If n is greater than b.Cap(),
// additional memory will be allocated. If n is smaller, the allocated memory may reduced.
func (b *ScalarBuilder[T]) Resize(n int) {
	if n < minBuilderCapacity {
		n = minBuilderCapacity
	}
	if b.capacity == 0 {
		b.init(n)
		return
	}
	b.builder.resize(n)
	b.data.Resize(n * flatbuffers.SizeOf[T]())
	b.rawData = castFromBytes[T](b.data.Bytes())
}

// Finish writes the accumulated elements as a vector and resets b.
func (b *ScalarBuilder[T]) Finish(fb *flatbuffers.Builder) flatbuffers.TailOffsetT {
	size := flatbuffers.SizeOf[T]()
	n := b.length
	fb.StartVector(size, n, size)
	for i := n - 1; i >= 0; i-- {
		flatbuffers.Prepend(fb, b.rawData[i])
	}
	off := fb.EndVector(n)

	b.reset()
	b.releaseData()
	return off
}

// castFromBytes 把 []byte 重新解释为 []T，不做拷贝；memory.Buffer 按 64 字节对齐，满足 T 的对齐要求。
func castFromBytes[T any](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var zero T
	n := len(b) / int(unsafe.Sizeof(zero))
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

var (
	_ Builder = (*ScalarBuilder[int32])(nil)
)

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
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/blastbao/flatcore/flatbuffers"
)

// OffsetBuilder accumulates references to finished objects: tables, strings
// or union values.
type OffsetBuilder struct {
	builder

	data    *memory.Buffer
	rawData []flatbuffers.TailOffsetT
}

func NewOffsetBuilder(mem memory.Allocator) *OffsetBuilder {
	return &OffsetBuilder{
		builder: builder{
			refCount: 1,
			mem:      mem,
		},
	}
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed.
func (b *OffsetBuilder) Release() {
	if b.release() {
		b.releaseData()
	}
}

func (b *OffsetBuilder) releaseData() {
	if b.data != nil {
		b.data.Release()
		b.data = nil
		b.rawData = nil
	}
}

func (b *OffsetBuilder) Append(ref flatbuffers.TailOffsetT) {
	b.Reserve(1)
	b.rawData[b.length] = ref
	b.length++
}

func (b *OffsetBuilder) AppendValues(refs []flatbuffers.TailOffsetT) {
	if len(refs) == 0 {
		return
	}
	b.Reserve(len(refs))
	copy(b.rawData[b.length:], refs)
	b.length += len(refs)
}

// Value returns element i.
func (b *OffsetBuilder) Value(i int) flatbuffers.TailOffsetT { return b.rawData[i] }

func (b *OffsetBuilder) init(capacity int) {
	b.capacity = capacity
	b.data = memory.NewResizableBuffer(b.mem)
	b.data.Resize(capacity * flatbuffers.SizeUOffsetT)
	b.rawData = castFromBytes[flatbuffers.TailOffsetT](b.data.Bytes())
}

// Reserve ensures there is enough space for appending n elements
// by checking the capacity and calling Resize if necessary.
func (b *OffsetBuilder) Reserve(n int) {
	b.builder.reserve(n, b.Resize)
}

// Resize adjusts the space allocated by b to n elements.
func (b *OffsetBuilder) Resize(n int) {
	if n < minBuilderCapacity {
		n = minBuilderCapacity
	}
	if b.capacity == 0 {
		b.init(n)
		return
	}
	b.builder.resize(n)
	b.data.Resize(n * flatbuffers.SizeUOffsetT)
	b.rawData = castFromBytes[flatbuffers.TailOffsetT](b.data.Bytes())
}

// Finish writes the references as a vector of offsets and resets b. Every
// reference must have been returned by fb.
func (b *OffsetBuilder) Finish(fb *flatbuffers.Builder) flatbuffers.TailOffsetT {
	n := b.length
	fb.StartVector(flatbuffers.SizeUOffsetT, n, flatbuffers.SizeUOffsetT)
	for i := n - 1; i >= 0; i-- {
		fb.PrependUOffsetT(b.rawData[i])
	}
	off := fb.EndVector(n)

	b.reset()
	b.releaseData()
	return off
}

var (
	_ Builder = (*OffsetBuilder)(nil)
)

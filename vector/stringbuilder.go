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

// StringBuilder accumulates strings.
//
// 字符串内容连续存放在 values 中，offsets 记录每个字符串的起始位置。
// Finish 时先逐个写入字符串，再写入引用它们的 vector。
type StringBuilder struct {
	builder

	values  *memory.Buffer
	offsets *ScalarBuilder[uint32]
	shared  bool
}

func NewStringBuilder(mem memory.Allocator) *StringBuilder {
	return &StringBuilder{
		builder: builder{
			refCount: 1,
			mem:      mem,
		},
		offsets: NewScalarBuilder[uint32](mem),
	}
}

// NewSharedStringBuilder returns a StringBuilder that writes repeated
// strings only once per flatbuffers.Builder.
func NewSharedStringBuilder(mem memory.Allocator) *StringBuilder {
	b := NewStringBuilder(mem)
	b.shared = true
	return b
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed.
func (b *StringBuilder) Release() {
	if b.release() {
		b.releaseData()
		b.offsets.Release()
	}
}

func (b *StringBuilder) releaseData() {
	if b.values != nil {
		b.values.Release()
		b.values = nil
	}
}

func (b *StringBuilder) Append(s string) {
	b.Reserve(1)
	if b.values == nil {
		b.values = memory.NewResizableBuffer(b.mem)
	}
	start := b.values.Len()
	b.offsets.Append(uint32(start))
	b.values.Resize(start + len(s))
	copy(b.values.Bytes()[start:], s)
	b.length++
}

func (b *StringBuilder) AppendValues(v []string) {
	b.Reserve(len(v))
	for _, s := range v {
		b.Append(s)
	}
}

// Value returns a copy of element i.
func (b *StringBuilder) Value(i int) string {
	start := int(b.offsets.Value(i))
	end := b.values.Len()
	if i+1 < b.length {
		end = int(b.offsets.Value(i + 1))
	}
	return string(b.values.Bytes()[start:end])
}

// Reserve ensures there is enough space for appending n elements.
func (b *StringBuilder) Reserve(n int) {
	b.builder.reserve(n, b.Resize)
}

// Resize adjusts the number of strings b can hold without growing.
func (b *StringBuilder) Resize(n int) {
	if n < minBuilderCapacity {
		n = minBuilderCapacity
	}
	b.builder.resize(n)
	b.offsets.Resize(n)
}

// Finish writes every string followed by the vector referencing them, and
// resets b.
func (b *StringBuilder) Finish(fb *flatbuffers.Builder) flatbuffers.TailOffsetT {
	refs := NewOffsetBuilder(b.mem)
	defer refs.Release()

	refs.Reserve(b.length)
	for i := 0; i < b.length; i++ {
		if b.shared {
			refs.Append(fb.CreateSharedString(b.Value(i)))
		} else {
			refs.Append(fb.CreateString(b.Value(i)))
		}
	}
	off := refs.Finish(fb)

	b.reset()
	b.releaseData()
	b.offsets.reset()
	b.offsets.releaseData()
	return off
}

var (
	_ Builder = (*StringBuilder)(nil)
)

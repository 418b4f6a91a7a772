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

// Package vector accumulates vector elements in allocator-backed memory and
// writes them to a flatbuffers.Builder in one call.
//
// flatbuffers 的 Builder 是从后往前写的，vector 的元素必须倒序 prepend，
// 并且在 vector 写完之前不能开始其他对象；这里的 builder 先把元素按正序攒起来，
// Finish 时一次性倒序写入，调用方就不用关心写入顺序了。
package vector

import (
	"sync/atomic"

	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/blastbao/flatcore/flatbuffers"
)

const (
	minBuilderCapacity = 1 << 5
)

// Builder provides an interface to build flatbuffers vectors.
type Builder interface {
	// Retain increases the reference count by 1.
	// Retain may be called simultaneously from multiple goroutines.
	Retain()

	// Release decreases the reference count by 1.
	Release()

	// Len returns the number of elements in the vector builder.
	Len() int

	// Cap returns the total number of elements that can be stored
	// without allocating additional memory.
	Cap() int

	// Reserve ensures there is enough space for appending n elements
	// by checking the capacity and calling Resize if necessary.
	Reserve(n int)

	// Resize adjusts the space allocated by b to n elements. If n is greater than b.Cap(),
	// additional memory will be allocated. If n is smaller, the allocated memory may reduced.
	Resize(n int)

	// Finish writes the accumulated elements as a vector into fb and resets
	// the builder so it can be used to build a new vector.
	//
	// fb 不能处于 table 或 vector 构建过程中。
	Finish(fb *flatbuffers.Builder) flatbuffers.TailOffsetT
}

// builder provides common bookkeeping for vector builders.
type builder struct {
	refCount int64            // 引用计数
	mem      memory.Allocator // 内存分配器
	length   int              // 长度
	capacity int              // 容量
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (b *builder) Retain() {
	atomic.AddInt64(&b.refCount, 1)
}

// Len returns the number of elements in the vector builder.
func (b *builder) Len() int { return b.length }

// Cap returns the total number of elements that can be stored without allocating additional memory.
func (b *builder) Cap() int { return b.capacity }

func (b *builder) release() bool {
	if atomic.LoadInt64(&b.refCount) <= 0 {
		panic("vector: too many releases")
	}
	return atomic.AddInt64(&b.refCount, -1) == 0
}

// 如果新增 elements 个元素会导致超过容量，则扩容到下一个 2 的幂。
func (b *builder) reserve(elements int, resize func(int)) {
	if b.length+elements > b.capacity {
		newCap := bitutil.NextPowerOf2(b.length + elements)
		resize(newCap)
	}
}

// 缩容时截断已有元素。
func (b *builder) resize(n int) {
	b.capacity = n
	if n < b.length {
		b.length = n
	}
}

func (b *builder) reset() {
	b.length = 0
	b.capacity = 0
}

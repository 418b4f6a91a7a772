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

package vector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/blastbao/flatcore/flatbuffers"
	"github.com/blastbao/flatcore/vector"
)

// finishInTable 把 vector 挂到一个单字段表上，返回读出的根表。
func finishInTable(t *testing.T, fb *flatbuffers.Builder, vec flatbuffers.TailOffsetT) flatbuffers.Table {
	t.Helper()
	fb.StartTable(1)
	fb.AddOffsetField(0, vec)
	fb.Finish(fb.EndTable())
	tab, err := flatbuffers.GetRoot(fb.FinishedBytes())
	require.NoError(t, err)
	return tab
}

func TestBoolBuilder(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ab := vector.NewBoolBuilder(mem)
	defer ab.Release()

	want := make([]bool, 70)
	for i := range want {
		want[i] = i%3 == 0
	}
	ab.AppendValues(want[:40])
	for _, v := range want[40:] {
		ab.Append(v)
	}
	ab.AppendByte(7)
	want = append(want, true)

	assert.Equal(t, len(want), ab.Len())
	assert.GreaterOrEqual(t, ab.Cap(), ab.Len())
	assert.True(t, ab.Value(0))
	assert.False(t, ab.Value(1))

	fb := flatbuffers.NewBuilder(0)
	tab := finishInTable(t, fb, ab.Finish(fb))
	assert.Zero(t, ab.Len())
	assert.Zero(t, ab.Cap())

	v, err := tab.Vector(0, flatbuffers.SizeBool)
	require.NoError(t, err)
	require.Equal(t, len(want), v.Len)
	for i, w := range want {
		got, err := flatbuffers.VectorAt[bool](v, i)
		require.NoError(t, err)
		assert.Equal(t, w, got, "element %d", i)
	}
}

func TestScalarBuilder(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ib := vector.NewScalarBuilder[int64](mem)
	defer ib.Release()

	ib.AppendValues([]int64{-1, 2, -3})
	for i := 0; i < 100; i++ {
		ib.Append(int64(i) << 33)
	}
	assert.Equal(t, 103, ib.Len())
	assert.Equal(t, int64(-3), ib.Value(2))
	assert.Len(t, ib.Values(), 103)

	fb := flatbuffers.NewBuilder(0)
	tab := finishInTable(t, fb, ib.Finish(fb))

	v, err := tab.Vector(0, flatbuffers.SizeInt64)
	require.NoError(t, err)
	require.Equal(t, 103, v.Len)
	first, err := flatbuffers.VectorAt[int64](v, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), first)
	last, err := flatbuffers.VectorAt[int64](v, 102)
	require.NoError(t, err)
	assert.Equal(t, int64(99)<<33, last)

	p, err := v.At(0)
	require.NoError(t, err)
	assert.Zero(t, int(p)%flatbuffers.SizeInt64, "elements are aligned to their width")
}

func TestScalarBuilderResize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	f32 := vector.NewScalarBuilder[float32](mem)
	defer f32.Release()

	f32.Reserve(10)
	assert.Equal(t, 32, f32.Cap())
	for i := 0; i < 40; i++ {
		f32.Append(float32(i))
	}
	assert.Equal(t, 64, f32.Cap())

	f32.Resize(33)
	assert.Equal(t, 33, f32.Len())
	assert.Equal(t, float32(32), f32.Value(32))
}

func TestOffsetBuilderUnionVector(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	fb := flatbuffers.NewBuilder(0)
	ob := vector.NewOffsetBuilder(mem)
	defer ob.Release()

	for i := 0; i < 5; i++ {
		fb.StartTable(1)
		flatbuffers.AddField(fb, 0, int32(i*10), -1)
		ob.Append(fb.EndTable())
	}
	tab := finishInTable(t, fb, ob.Finish(fb))

	v, err := tab.Vector(0, flatbuffers.SizeUOffsetT)
	require.NoError(t, err)
	require.Equal(t, 5, v.Len)
	for i := 0; i < v.Len; i++ {
		elem, err := v.Table(i)
		require.NoError(t, err)
		x, err := flatbuffers.ReadField(&elem, 0, int32(-1))
		require.NoError(t, err)
		assert.Equal(t, int32(i*10), x)
	}
}

func TestStringBuilder(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	for _, shared := range []bool{false, true} {
		sb := vector.NewStringBuilder(mem)
		if shared {
			sb.Release()
			sb = vector.NewSharedStringBuilder(mem)
		}

		want := []string{"belle", "", "rapunzel", "belle", "mulan"}
		sb.AppendValues(want)
		require.Equal(t, len(want), sb.Len())
		assert.Equal(t, "rapunzel", sb.Value(2))
		assert.Equal(t, "", sb.Value(1))

		fb := flatbuffers.NewBuilder(0)
		tab := finishInTable(t, fb, sb.Finish(fb))
		assert.Zero(t, sb.Len())

		v, err := tab.Vector(0, flatbuffers.SizeUOffsetT)
		require.NoError(t, err)
		require.Equal(t, len(want), v.Len)
		for i, w := range want {
			got, err := v.String(i)
			require.NoError(t, err)
			assert.Equal(t, w, got)
		}

		p0, _ := v.At(0)
		p3, _ := v.At(3)
		a, _ := (&flatbuffers.Table{Bytes: tab.Bytes}).Indirect(p0)
		b, _ := (&flatbuffers.Table{Bytes: tab.Bytes}).Indirect(p3)
		assert.Equal(t, shared, a == b, "shared=%v", shared)

		sb.Release()
	}
}

func TestReleasePanicsWhenOverReleased(t *testing.T) {
	b := vector.NewBoolBuilder(memory.DefaultAllocator)
	b.Release()
	assert.Panics(t, func() { b.Release() })
}

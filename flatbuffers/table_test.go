package flatbuffers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/apache/arrow/go/v17/arrow/float16"
)

// monster 是测试用的表：hp(int16, 默认 100)、name(string)、pos(struct{x,y float32})、
// friend(table)、mana(float16)。
var (
	monsterHP     = Field[int16]{Slot: 0, Default: 100}
	monsterName   = OffsetField{Slot: 1}
	monsterFriend = OffsetField{Slot: 3}
)

const (
	monsterPosSlot = 2
	monsterPosX    = 0
	monsterPosY    = 4
)

func buildMonster(t *testing.T, hp int16, name string, withFriend bool) []byte {
	t.Helper()
	b := NewBuilder(0)

	var friend TailOffsetT
	if withFriend {
		b.StartTable(5)
		monsterHP.Add(b, 7)
		friend = b.EndTable()
	}
	n := b.CreateString(name)

	pos := make([]byte, 8)
	WriteFloat32(pos[monsterPosX:], 1.5)
	WriteFloat32(pos[monsterPosY:], -2)

	b.StartTable(5)
	monsterHP.Add(b, hp)
	monsterName.Add(b, n)
	b.AddStructField(monsterPosSlot, pos, 4)
	if withFriend {
		monsterFriend.Add(b, friend)
	}
	AddFloat16Field(b, 4, float16.New(0.5), float16.New(0))
	b.Finish(b.EndTable())
	return b.FinishedBytes()
}

func TestReaderMonster(t *testing.T) {
	buf := buildMonster(t, 300, "orc", true)
	tab, err := GetRoot(buf)
	require.NoError(t, err)

	hp, err := monsterHP.Get(&tab)
	require.NoError(t, err)
	assert.Equal(t, int16(300), hp)

	name, err := tab.String(monsterName.Slot)
	require.NoError(t, err)
	assert.Equal(t, "orc", name)

	pos, ok, err := tab.Struct(monsterPosSlot, 8)
	require.NoError(t, err)
	require.True(t, ok)
	x, err := ReadAt[float32](&pos.Table, pos.Pos, uint32(monsterPosX))
	require.NoError(t, err)
	y, err := ReadAt[float32](&pos.Table, pos.Pos, uint32(monsterPosY))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), x)
	assert.Equal(t, float32(-2), y)

	friend, ok, err := monsterFriend.Table(&tab)
	require.NoError(t, err)
	require.True(t, ok)
	fhp, err := monsterHP.Get(&friend)
	require.NoError(t, err)
	assert.Equal(t, int16(7), fhp)

	mana, err := ReadFloat16Field(&tab, 4, float16.New(0))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), mana.Float32())
	ok, err = MutateFloat16Field(&tab, 4, float16.New(2))
	require.NoError(t, err)
	assert.True(t, ok)
	mana, err = ReadFloat16Field(&tab, 4, float16.New(0))
	require.NoError(t, err)
	assert.Equal(t, float32(2), mana.Float32())

	var u Table
	ok, err = tab.Union(monsterFriend.Slot, &u)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, friend, u)
}

func TestReaderDefaultsWhenAbsent(t *testing.T) {
	buf := buildMonster(t, 100, "", false)
	tab, err := GetRoot(buf)
	require.NoError(t, err)

	hp, err := monsterHP.Get(&tab)
	require.NoError(t, err)
	assert.Equal(t, int16(100), hp)
	off, err := tab.Offset(monsterHP.Slot)
	require.NoError(t, err)
	assert.Zero(t, off, "default hp must not be stored")

	_, ok, err := monsterFriend.Table(&tab)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchemaEvolution(t *testing.T) {
	// 旧 schema 只有两个字段。
	b := NewBuilder(0)
	b.StartTable(2)
	AddField(b, 0, uint32(1), 0)
	AddField(b, 1, uint32(2), 0)
	b.Finish(b.EndTable())
	tab, err := GetRoot(b.FinishedBytes())
	require.NoError(t, err)

	n, err := tab.NumSlots()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// 新 schema 增加的字段读到默认值，而不是错误。
	for slot := 2; slot < 64; slot++ {
		v, err := ReadField(&tab, slot, int64(-42))
		require.NoError(t, err)
		assert.Equal(t, int64(-42), v)
	}

	// 新 schema 写出的 buffer 用旧 schema 读，多出的字段被忽略。
	b = NewBuilder(0)
	b.StartTable(4)
	AddField(b, 0, uint32(1), 0)
	AddField(b, 3, float64(9), 0)
	b.Finish(b.EndTable())
	tab, err = GetRoot(b.FinishedBytes())
	require.NoError(t, err)
	v0, err := ReadField(&tab, 0, uint32(0))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v0)
	v1, err := ReadField(&tab, 1, uint32(5))
	require.NoError(t, err)
	assert.Equal(t, uint32(5), v1)
}

func TestShortVtableNeverReadsPastItself(t *testing.T) {
	// 手工构造：vtable 只有 4 字节的头部，紧跟在 buffer 末尾。
	//	[0..4)  root = 4
	//	[4..8)  soffset = -4 -> vtable at 8
	//	[8..12) vtable: len=4, objsize=4
	buf := make([]byte, 12)
	WriteUOffsetT(buf[0:], 4)
	WriteSOffsetT(buf[4:], -4)
	WriteVOffsetT(buf[8:], 4)
	WriteVOffsetT(buf[10:], 4)

	tab, err := GetRoot(buf)
	require.NoError(t, err)
	v, err := ReadField(&tab, 0, int32(3))
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)

	require.NoError(t, NewVerifier(buf, DefaultVerifierOptions()).Table(tab))
}

func TestSlotsPastVtableReadDefault(t *testing.T) {
	b := NewBuilder(0)
	b.StartTable(2)
	AddField(b, 0, int32(10), 0)
	AddField(b, 1, int32(20), 0)
	b.Finish(b.EndTable())
	tab, err := GetRoot(b.FinishedBytes())
	require.NoError(t, err)

	// slot 32766 的 entry 偏移是 65536，不能回绕成 vtable 的长度字段。
	for _, slot := range []int{MaxTableFields, MaxTableFields + 1, MaxTableFields + 2, 1 << 20} {
		v, err := ReadField(&tab, slot, int32(-1))
		require.NoError(t, err, "slot %d", slot)
		assert.Equal(t, int32(-1), v, "slot %d", slot)

		ok, err := MutateField(&tab, slot, int32(777))
		require.NoError(t, err, "slot %d", slot)
		assert.False(t, ok, "slot %d", slot)
	}
	v0, err := ReadField(&tab, 0, int32(0))
	require.NoError(t, err)
	assert.Equal(t, int32(10), v0)
	v1, err := ReadField(&tab, 1, int32(0))
	require.NoError(t, err)
	assert.Equal(t, int32(20), v1)

	b.Reset()
	b.StartTable(1)
	AddField(b, 0, int8(5), 0)
	b.Finish(b.EndTable())
	tab, err = GetRoot(b.FinishedBytes())
	require.NoError(t, err)
	v, err := ReadField(&tab, MaxTableFields+1, int8(-1))
	require.NoError(t, err)
	assert.Equal(t, int8(-1), v)
}

func TestBoolReadsNonzeroAsTrue(t *testing.T) {
	b := NewBuilder(0)
	b.StartTable(1)
	AddField(b, 0, uint8(2), 0)
	b.Finish(b.EndTable())
	tab, err := GetRoot(b.FinishedBytes())
	require.NoError(t, err)

	v, err := Field[bool]{Slot: 0}.Get(&tab)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = ReadField(&tab, 0, false)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = ReadBoolField(&tab, 0, false)
	require.NoError(t, err)
	assert.True(t, v)

	assert.True(t, GetBool([]byte{2}))
	assert.False(t, GetBool([]byte{0}))
}

func TestMaliciousInput(t *testing.T) {
	t.Run("root offset 0xFFFFFFFF", func(t *testing.T) {
		buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0}
		_, err := GetRoot(buf)
		assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
		_, err = NewVerifier(buf, DefaultVerifierOptions()).Root()
		assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
	})

	t.Run("short buffer", func(t *testing.T) {
		for _, buf := range [][]byte{nil, {1}, {4, 0, 0}} {
			_, err := GetRoot(buf)
			assert.True(t, xerrors.Is(err, ErrOutOfBounds))
		}
		_, err := GetSizePrefixedRoot([]byte{1, 0})
		assert.True(t, xerrors.Is(err, ErrOutOfBounds))
	})

	for name, soff := range map[string]int32{
		"vtable past end":        -1 << 20,
		"vtable before start":    1 << 20,
		"vtable header past end": -1000,
		"vtable min int":         -1 << 31,
	} {
		soff := soff
		t.Run(name, func(t *testing.T) {
			buf := append([]byte(nil), buildMonster(t, 300, "orc", true)...)
			tab, err := GetRoot(buf)
			require.NoError(t, err)
			WriteSOffsetT(buf[tab.Pos:], SOffsetT(soff))

			_, err = monsterHP.Get(&tab)
			assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
			_, err = MutateField(&tab, 0, int16(1))
			assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
			_, _, err = tab.Child(monsterFriend.Slot)
			assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
			_, err = NewVerifier(buf, DefaultVerifierOptions()).Root()
			assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
		})
	}

	t.Run("field offset past end", func(t *testing.T) {
		buf := append([]byte(nil), buildMonster(t, 300, "orc", true)...)
		tab, err := GetRoot(buf)
		require.NoError(t, err)
		vt, _, err := tab.vtable()
		require.NoError(t, err)
		WriteVOffsetT(buf[vt+Position(SlotOffset(0)):], 0xFFF0)

		_, err = monsterHP.Get(&tab)
		assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
		_, err = NewVerifier(buf, DefaultVerifierOptions()).Root()
		assert.True(t, xerrors.Is(err, ErrMalformed), "%v", err)
	})

	t.Run("string length past end", func(t *testing.T) {
		buf := append([]byte(nil), buildMonster(t, 300, "orc", false)...)
		tab, err := GetRoot(buf)
		require.NoError(t, err)
		off, err := tab.Offset(monsterName.Slot)
		require.NoError(t, err)
		p, err := tab.Indirect(tab.Pos + Position(off))
		require.NoError(t, err)
		WriteUint32(buf[p:], 0x7FFFFFFF)

		_, err = tab.String(monsterName.Slot)
		assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
	})

	t.Run("child offset past end", func(t *testing.T) {
		buf := append([]byte(nil), buildMonster(t, 300, "orc", true)...)
		tab, err := GetRoot(buf)
		require.NoError(t, err)
		off, err := tab.Offset(monsterFriend.Slot)
		require.NoError(t, err)
		WriteUOffsetT(buf[tab.Pos+Position(off):], 0xFFFFFFF0)

		_, _, err = monsterFriend.Table(&tab)
		assert.True(t, xerrors.Is(err, ErrOutOfBounds), "%v", err)
	})
}

func TestVerifier(t *testing.T) {
	buf := buildMonster(t, 300, "orc", true)

	verifyMonster := func(v *Verifier, tab Table) error {
		if err := v.Field(tab, monsterHP.Slot, SizeInt16); err != nil {
			return err
		}
		if err := v.String(tab, monsterName.Slot); err != nil {
			return err
		}
		if err := v.Struct(tab, monsterPosSlot, 8, 4); err != nil {
			return err
		}
		return v.Child(tab, monsterFriend.Slot, nil)
	}

	t.Run("valid", func(t *testing.T) {
		v := NewVerifier(buf, VerifierOptions{MaxDepth: 4, MaxTables: 8, StrictAlignment: true})
		tab, err := v.Root()
		require.NoError(t, err)
		require.NoError(t, verifyMonster(v, tab))
		assert.Equal(t, 2, v.Tables())
	})

	t.Run("table limit", func(t *testing.T) {
		v := NewVerifier(buf, VerifierOptions{MaxTables: 1})
		tab, err := v.Root()
		require.NoError(t, err)
		err = verifyMonster(v, tab)
		assert.True(t, xerrors.Is(err, ErrVerifierLimit), "%v", err)
	})

	t.Run("depth limit", func(t *testing.T) {
		b := NewBuilder(0)
		b.StartTable(1)
		ref := b.EndTable()
		for i := 0; i < 5; i++ {
			b.StartTable(1)
			b.AddOffsetField(0, ref)
			ref = b.EndTable()
		}
		b.Finish(ref)

		var walk func(v *Verifier, tab Table) error
		walk = func(v *Verifier, tab Table) error { return v.Child(tab, 0, walk) }

		v := NewVerifier(b.FinishedBytes(), VerifierOptions{MaxDepth: 5})
		tab, err := v.Root()
		require.NoError(t, err)
		require.NoError(t, walk(v, tab))

		v = NewVerifier(b.FinishedBytes(), VerifierOptions{MaxDepth: 4})
		tab, err = v.Root()
		require.NoError(t, err)
		err = walk(v, tab)
		assert.True(t, xerrors.Is(err, ErrVerifierLimit), "%v", err)
	})

	t.Run("misaligned", func(t *testing.T) {
		// root offset 之后插入 1 字节，之后所有绝对位置都偏移 1，相对偏移不变。
		odd := make([]byte, SizeUOffsetT+1, len(buf)+1)
		odd = append(odd, buf[SizeUOffsetT:]...)
		WriteUOffsetT(odd, GetUOffsetT(buf)+1)

		v := NewVerifier(odd, VerifierOptions{StrictAlignment: true})
		_, err := v.Root()
		assert.True(t, xerrors.Is(err, ErrAlignment), "%v", err)

		v = NewVerifier(odd, VerifierOptions{})
		_, err = v.Root()
		assert.NoError(t, err)
	})

	t.Run("unterminated string", func(t *testing.T) {
		bad := append([]byte(nil), buildMonster(t, 300, "orc", false)...)
		tab, err := GetRoot(bad)
		require.NoError(t, err)
		sv, err := tab.Vector(monsterName.Slot, SizeByte)
		require.NoError(t, err)
		bad[int(sv.Start)+sv.Len] = 'x'

		v := NewVerifier(bad, DefaultVerifierOptions())
		tab, err = v.Root()
		require.NoError(t, err)
		err = v.String(tab, monsterName.Slot)
		assert.True(t, xerrors.Is(err, ErrMalformed), "%v", err)
	})

	t.Run("size prefixed", func(t *testing.T) {
		b := NewBuilder(0)
		b.StartTable(1)
		AddField(b, 0, int32(1), 0)
		b.FinishSizePrefixed(b.EndTable())
		_, err := NewVerifier(b.FinishedBytes(), DefaultVerifierOptions()).SizePrefixedRoot()
		assert.NoError(t, err)
	})
}

type attackerView struct {
	_tab Table
}

func (a *attackerView) Init(buf []byte, pos Position) { a._tab = NewTable(buf, pos) }
func (a *attackerView) Table() Table                 { return a._tab }

func TestGetRootAs(t *testing.T) {
	buf := buildMonster(t, 12, "x", false)
	var a attackerView
	require.NoError(t, GetRootAs(buf, 0, &a))
	tab := a.Table()
	hp, err := monsterHP.Get(&tab)
	require.NoError(t, err)
	assert.Equal(t, int16(12), hp)

	assert.Error(t, GetRootAs(buf, Position(len(buf)), &a))
}

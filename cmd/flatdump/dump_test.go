package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastbao/flatcore/codec"
	"github.com/blastbao/flatcore/flatbuffers"
	"github.com/blastbao/flatcore/unionvector"
)

func movieBuilder() *flatbuffers.Builder {
	m := &unionvector.MovieT{
		MainCharacter: &unionvector.CharacterT{Type: unionvector.CharacterMuLan, Value: &unionvector.AttackerT{SwordAttackDamage: 3}},
		Characters: []*unionvector.CharacterT{
			{Type: unionvector.CharacterOther, Value: "Ariel"},
		},
	}
	b := flatbuffers.NewBuilder(0)
	unionvector.FinishMovieBuffer(b, m.Pack(b))
	return b
}

func movieFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "movie.bin")
	require.NoError(t, os.WriteFile(path, movieBuilder().FinishedBytes(), 0o600))
	return path
}

func TestSpans(t *testing.T) {
	got := spans([]slotLayout{
		{Slot: 0, Offset: 16},
		{Slot: 1, Offset: 4},
		{Slot: 3, Offset: 8},
	}, 20)
	assert.Equal(t, []slotLayout{
		{Slot: 0, Offset: 16, Span: 4},
		{Slot: 1, Offset: 4, Span: 4},
		{Slot: 3, Offset: 8, Span: 8},
	}, got)
}

func TestInspect(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	b.StartTable(3)
	flatbuffers.AddField(b, 0, int64(1), 0)
	flatbuffers.AddField(b, 2, int32(2), 0)
	b.Finish(b.EndTable())

	r := inspect("t", b.FinishedBytes(), flatbuffers.DefaultVerifierOptions(), false)
	require.NoError(t, r.Err)
	assert.Equal(t, 3, r.NumSlots)
	assert.Equal(t, 1, r.Tables)
	require.Len(t, r.Slots, 2)
	assert.Equal(t, 0, r.Slots[0].Slot)
	assert.Equal(t, 2, r.Slots[1].Slot)
	assert.GreaterOrEqual(t, r.Slots[0].Span, 8)
	assert.GreaterOrEqual(t, r.Slots[1].Span, 4)
	assert.LessOrEqual(t, r.Slots[0].Span+r.Slots[1].Span, r.ObjectSize-flatbuffers.SizeSOffsetT)

	b.Reset()
	b.StartTable(1)
	b.FinishSizePrefixed(b.EndTable())
	r = inspect("p", b.FinishedBytes(), flatbuffers.DefaultVerifierOptions(), true)
	require.NoError(t, r.Err)
	assert.Empty(t, r.Slots)

	r = inspect("short", []byte{1, 2}, flatbuffers.DefaultVerifierOptions(), false)
	assert.ErrorIs(t, r.Err, flatbuffers.ErrOutOfBounds)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	movie := movieFile(t, dir)

	var out bytes.Buffer
	require.NoError(t, run([]string{"--log-level", "error", movie}, &out))
	assert.Contains(t, out.String(), `identifier "MOVI"`)
	assert.Contains(t, out.String(), "4 slots")
	assert.Contains(t, out.String(), "slot  offset  span")

	bad := filepath.Join(dir, "bad.bin")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0}, 0o600))
	out.Reset()
	err := run([]string{"--log-level", "error", movie, bad}, &out)
	assert.ErrorContains(t, err, "1 of 2 files failed verification")
	assert.Contains(t, out.String(), "bad.bin: 8 bytes: INVALID")

	out.Reset()
	err = run([]string{"--log-level", "error", "--size-prefixed", movie}, &out)
	assert.Error(t, err, "the identifier is read as the root offset")
	assert.Contains(t, out.String(), "INVALID")

	assert.Error(t, run([]string{"--log-level", "error", filepath.Join(dir, "missing.bin")}, &out))
	assert.Error(t, run(nil, &out))
}

func TestRunZstd(t *testing.T) {
	dir := t.TempDir()
	movie := movieFile(t, dir)
	raw, err := os.ReadFile(movie)
	require.NoError(t, err)

	z, err := codec.NewZstdCodec(codec.New(), codec.ZstdOptions{MinSize: 1})
	require.NoError(t, err)
	defer z.Close()
	framed, err := z.Marshal(movieBuilder())
	require.NoError(t, err)
	frame := filepath.Join(dir, "movie.zst")
	require.NoError(t, os.WriteFile(frame, framed, 0o600))

	prom := filepath.Join(dir, "flatdump.prom")
	var out bytes.Buffer
	err = run([]string{"--log-level", "error", "--zstd", "--metrics-file", prom, frame, movie}, &out)
	assert.ErrorContains(t, err, "1 of 2 files failed verification")
	assert.Contains(t, out.String(), `identifier "MOVI"`)
	assert.Contains(t, out.String(), fmt.Sprintf("movie.bin: %d bytes: INVALID", len(raw)))

	text, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(text), `flatcore_codec_ops_total{codec="flatbuffers-zstd",op="unmarshal",result="success"} 1`)
	assert.Contains(t, string(text), "flatcore_verify_failures_total")
}

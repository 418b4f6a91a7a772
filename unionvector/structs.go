package unionvector

import (
	"github.com/blastbao/flatcore/flatbuffers"
)

// Rapunzel 和 BookReader 都是只有一个 int32 的 struct，作为 union 成员时单独写在 buffer 中，
// union 字段保存指向它的 offset。

const (
	RapunzelSize   = 4
	BookReaderSize = 4
)

type Rapunzel struct {
	_tab flatbuffers.Struct
}

func (rcv *Rapunzel) Init(buf []byte, i flatbuffers.Position) {
	rcv._tab.Init(buf, i)
}

func (rcv *Rapunzel) Table() flatbuffers.Table {
	return rcv._tab.Table
}

func (rcv *Rapunzel) HairLength() (int32, error) {
	return flatbuffers.ReadAt[int32](&rcv._tab.Table, rcv._tab.Pos, 0)
}

func (rcv *Rapunzel) MutateHairLength(n int32) error {
	return flatbuffers.MutateAt(&rcv._tab.Table, rcv._tab.Pos, 0, n)
}

func CreateRapunzel(builder *flatbuffers.Builder, hairLength int32) flatbuffers.TailOffsetT {
	builder.Prep(4, RapunzelSize)
	flatbuffers.Prepend(builder, hairLength)
	return builder.Offset()
}

type RapunzelT struct {
	HairLength int32
}

func (t *RapunzelT) Pack(builder *flatbuffers.Builder) flatbuffers.TailOffsetT {
	if t == nil {
		return 0
	}
	return CreateRapunzel(builder, t.HairLength)
}

func (rcv *Rapunzel) UnPack() (*RapunzelT, error) {
	n, err := rcv.HairLength()
	if err != nil {
		return nil, err
	}
	return &RapunzelT{HairLength: n}, nil
}

type BookReader struct {
	_tab flatbuffers.Struct
}

func (rcv *BookReader) Init(buf []byte, i flatbuffers.Position) {
	rcv._tab.Init(buf, i)
}

func (rcv *BookReader) Table() flatbuffers.Table {
	return rcv._tab.Table
}

func (rcv *BookReader) BooksRead() (int32, error) {
	return flatbuffers.ReadAt[int32](&rcv._tab.Table, rcv._tab.Pos, 0)
}

func (rcv *BookReader) MutateBooksRead(n int32) error {
	return flatbuffers.MutateAt(&rcv._tab.Table, rcv._tab.Pos, 0, n)
}

func CreateBookReader(builder *flatbuffers.Builder, booksRead int32) flatbuffers.TailOffsetT {
	builder.Prep(4, BookReaderSize)
	flatbuffers.Prepend(builder, booksRead)
	return builder.Offset()
}

type BookReaderT struct {
	BooksRead int32
}

func (t *BookReaderT) Pack(builder *flatbuffers.Builder) flatbuffers.TailOffsetT {
	if t == nil {
		return 0
	}
	return CreateBookReader(builder, t.BooksRead)
}

func (rcv *BookReader) UnPack() (*BookReaderT, error) {
	n, err := rcv.BooksRead()
	if err != nil {
		return nil, err
	}
	return &BookReaderT{BooksRead: n}, nil
}

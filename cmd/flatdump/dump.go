package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/blastbao/flatcore/flatbuffers"
)

// slotLayout 描述根表一个存在的字段：vtable 中记录的偏移，以及推断出的字节跨度
// （到下一个字段或对象末尾为止，包含对齐填充）。
type slotLayout struct {
	Slot   int
	Offset int
	Span   int
}

// report 是对一个文件的检查结果。
type report struct {
	Name       string
	Size       int
	Identifier string
	Root       flatbuffers.Position
	Vtable     flatbuffers.Position
	NumSlots   int
	ObjectSize int
	Tables     int
	Slots      []slotLayout
	Err        error
}

// inspect verifies buf and describes the layout of its root table without
// knowing its schema.
func inspect(name string, buf []byte, opts flatbuffers.VerifierOptions, sizePrefixed bool) *report {
	r := &report{Name: name, Size: len(buf)}

	v := flatbuffers.NewVerifier(buf, opts)
	var (
		root flatbuffers.Table
		err  error
	)
	if sizePrefixed {
		root, err = v.SizePrefixedRoot()
		if err == nil {
			r.Identifier = identifier(buf[flatbuffers.SizePrefixLength:])
		}
	} else {
		root, err = v.Root()
		if err == nil {
			r.Identifier = identifier(buf)
		}
	}
	if err != nil {
		r.Err = errors.Wrap(err, "verify root")
		return r
	}
	r.Tables = v.Tables()
	r.Root = root.Pos

	soff, err := flatbuffers.ReadAt[int32](&root, root.Pos, 0)
	if err != nil {
		r.Err = err
		return r
	}
	r.Vtable = flatbuffers.Position(int64(root.Pos) - int64(soff))

	if r.NumSlots, err = root.NumSlots(); err != nil {
		r.Err = err
		return r
	}
	if r.ObjectSize, err = root.ObjectSize(); err != nil {
		r.Err = err
		return r
	}

	for slot := 0; slot < r.NumSlots; slot++ {
		off, err := root.Offset(slot)
		if err != nil {
			r.Err = err
			return r
		}
		if off != 0 {
			r.Slots = append(r.Slots, slotLayout{Slot: slot, Offset: int(off)})
		}
	}
	r.Slots = spans(r.Slots, r.ObjectSize)
	return r
}

// spans fills in the byte span of each present slot from the offsets of
// its neighbours in the object.
func spans(slots []slotLayout, objectSize int) []slotLayout {
	offsets := lo.Map(slots, func(s slotLayout, _ int) int { return s.Offset })
	offsets = append(offsets, objectSize)
	slices.Sort(offsets)
	offsets = slices.Compact(offsets)

	return lo.Map(slots, func(s slotLayout, _ int) slotLayout {
		i, _ := slices.BinarySearch(offsets, s.Offset)
		s.Span = offsets[i+1] - s.Offset
		return s
	})
}

func identifier(buf []byte) string {
	id := flatbuffers.GetBufferIdentifier(buf)
	printable := lo.EveryBy([]byte(id), func(c byte) bool { return c >= 0x20 && c < 0x7f })
	if !printable {
		return ""
	}
	return id
}

func (r *report) print(w io.Writer) {
	if r.Err != nil {
		fmt.Fprintf(w, "%s: %d bytes: INVALID: %v\n", r.Name, r.Size, r.Err)
		return
	}
	fmt.Fprintf(w, "%s: %d bytes, %d tables verified", r.Name, r.Size, r.Tables)
	if r.Identifier != "" {
		fmt.Fprintf(w, ", identifier %q", r.Identifier)
	}
	fmt.Fprintf(w, "\n  root table at %d, vtable at %d, %d slots, object %d bytes\n",
		r.Root, r.Vtable, r.NumSlots, r.ObjectSize)
	if len(r.Slots) == 0 {
		fmt.Fprintln(w, "  (no fields present)")
		return
	}
	fmt.Fprintln(w, "  slot  offset  span")
	for _, s := range r.Slots {
		fmt.Fprintf(w, "  %4d  %6d  %4d\n", s.Slot, s.Offset, s.Span)
	}
}

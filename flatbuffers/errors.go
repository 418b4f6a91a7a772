package flatbuffers

import (
	"golang.org/x/xerrors"
)

// Builder-side errors are programmer contract violations: the Builder panics
// with an error wrapping one of these. Reader-side errors are returned.
var (
	// ErrNestedTable is raised when a table, vector or string is started
	// while another one is still open.
	ErrNestedTable = xerrors.New("flatbuffers: nested table construction")
	// ErrNotNested is raised when a table or vector is ended, or a field is
	// added, outside of an open table or vector.
	ErrNotNested = xerrors.New("flatbuffers: no table or vector is open")
	// ErrUnfinalizedChild is raised when an offset field references an
	// object that has not been ended.
	ErrUnfinalizedChild = xerrors.New("flatbuffers: reference to unfinalized object")
	// ErrSlotRange is raised for a field slot outside the open table.
	ErrSlotRange = xerrors.New("flatbuffers: slot out of range")
	// ErrBuilderClosed is raised on writes after Finish.
	ErrBuilderClosed = xerrors.New("flatbuffers: builder is finished")
	// ErrNotFinished is raised when finished bytes are requested before Finish.
	ErrNotFinished = xerrors.New("flatbuffers: builder is not finished")
	// ErrBufferTooLarge is raised when the buffer would grow past
	// MaxBufferSize.
	ErrBufferTooLarge = xerrors.New("flatbuffers: cannot grow buffer beyond 1 gigabyte")
	// ErrTableTooLarge is raised for a table whose vtable or object size
	// does not fit in a VOffsetT.
	ErrTableTooLarge = xerrors.New("flatbuffers: table exceeds 64KiB vtable limits")
	// ErrIdentifier is raised for a file identifier that is not 4 bytes long.
	ErrIdentifier = xerrors.New("flatbuffers: incorrect file identifier length")

	// ErrOutOfBounds is returned when a read would leave the buffer.
	ErrOutOfBounds = xerrors.New("flatbuffers: out of bounds read")
	// ErrAlignment is returned by a strict Verifier for misaligned data.
	ErrAlignment = xerrors.New("flatbuffers: alignment violation")
	// ErrVerifierLimit is returned when a Verifier exceeds its depth or
	// table budget.
	ErrVerifierLimit = xerrors.New("flatbuffers: verifier limit exceeded")
	// ErrMalformed is returned for structurally invalid vtables or objects.
	ErrMalformed = xerrors.New("flatbuffers: malformed buffer")
)

func outOfBounds(pos, n, size int) error {
	return xerrors.Errorf("read of %d bytes at %d in buffer of %d: %w", n, pos, size, ErrOutOfBounds)
}

func malformed(format string, args ...interface{}) error {
	args = append(args, ErrMalformed)
	return xerrors.Errorf(format+": %w", args...)
}

func contractPanic(err error, format string, args ...interface{}) {
	args = append(args, err)
	panic(xerrors.Errorf(format+": %w", args...))
}

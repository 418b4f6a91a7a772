package flatbuffers

// FlatBuffer is the interface that represents a flatbuffer.
type FlatBuffer interface {
	Table() Table
	Init(buf []byte, pos Position)
}

// GetRootAs is a generic helper to initialize a FlatBuffer with the provided
// buffer bytes and the position of its root offset.
func GetRootAs(buf []byte, offset Position, fb FlatBuffer) error {
	t := Table{Bytes: buf}
	root, err := t.Indirect(offset)
	if err != nil {
		return err
	}
	fb.Init(buf, root)
	return nil
}

// GetSizePrefixedRootAs is like GetRootAs for a buffer finished with
// FinishSizePrefixed.
func GetSizePrefixedRootAs(buf []byte, fb FlatBuffer) error {
	t, err := GetSizePrefixedRoot(buf)
	if err != nil {
		return err
	}
	fb.Init(t.Bytes, t.Pos)
	return nil
}

// GetBufferIdentifier returns the file identifier written after the root
// offset, or "" when buf is too short to hold one.
func GetBufferIdentifier(buf []byte) string {
	if len(buf) < SizeUOffsetT+FileIdentifierLength {
		return ""
	}
	return string(buf[SizeUOffsetT : SizeUOffsetT+FileIdentifierLength])
}

// BufferHasIdentifier reports whether buf carries the file identifier id.
func BufferHasIdentifier(buf []byte, id string) bool {
	return len(id) == FileIdentifierLength && GetBufferIdentifier(buf) == id
}

// SizePrefixedBufferHasIdentifier is BufferHasIdentifier for a size-prefixed
// buffer.
func SizePrefixedBufferHasIdentifier(buf []byte, id string) bool {
	if len(buf) < SizePrefixLength {
		return false
	}
	return BufferHasIdentifier(buf[SizePrefixLength:], id)
}

// GetSizePrefix returns the length prefix of a size-prefixed buffer.
func GetSizePrefix(buf []byte) (uint32, error) {
	if len(buf) < SizePrefixLength {
		return 0, outOfBounds(0, SizePrefixLength, len(buf))
	}
	return GetUint32(buf), nil
}

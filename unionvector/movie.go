package unionvector

import (
	"golang.org/x/xerrors"

	"github.com/blastbao/flatcore/flatbuffers"
)

// MovieIdentifier is the file identifier of a finished Movie buffer.
const MovieIdentifier = "MOVI"

var (
	movieMainCharacterType = flatbuffers.Field[uint8]{Slot: 0, Default: uint8(CharacterNONE)}
	movieMainCharacter     = flatbuffers.OffsetField{Slot: 1}
	movieCharactersType    = flatbuffers.OffsetField{Slot: 2}
	movieCharacters        = flatbuffers.OffsetField{Slot: 3}
)

type Movie struct {
	_tab flatbuffers.Table
}

func GetRootAsMovie(buf []byte) (*Movie, error) {
	x := &Movie{}
	if err := flatbuffers.GetRootAs(buf, 0, x); err != nil {
		return nil, err
	}
	return x, nil
}

func GetSizePrefixedRootAsMovie(buf []byte) (*Movie, error) {
	x := &Movie{}
	if err := flatbuffers.GetSizePrefixedRootAs(buf, x); err != nil {
		return nil, err
	}
	return x, nil
}

func MovieBufferHasIdentifier(buf []byte) bool {
	return flatbuffers.BufferHasIdentifier(buf, MovieIdentifier)
}

func (rcv *Movie) Init(buf []byte, i flatbuffers.Position) {
	rcv._tab.Init(buf, i)
}

func (rcv *Movie) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *Movie) MainCharacterType() (Character, error) {
	v, err := movieMainCharacterType.Get(&rcv._tab)
	return Character(v), err
}

func (rcv *Movie) MutateMainCharacterType(n Character) (bool, error) {
	return movieMainCharacterType.Mutate(&rcv._tab, uint8(n))
}

// MainCharacter binds obj to the main character value. Use
// MainCharacterType to pick how to read it.
func (rcv *Movie) MainCharacter(obj *flatbuffers.Table) (bool, error) {
	return rcv._tab.Union(movieMainCharacter.Slot, obj)
}

func (rcv *Movie) CharactersTypeLength() (int, error) {
	return rcv._tab.VectorLen(movieCharactersType.Slot)
}

func (rcv *Movie) CharactersType(j int) (Character, error) {
	vec, err := rcv._tab.Vector(movieCharactersType.Slot, flatbuffers.SizeUint8)
	if err != nil {
		return CharacterNONE, err
	}
	v, err := flatbuffers.VectorAt[uint8](vec, j)
	return Character(v), err
}

func (rcv *Movie) MutateCharactersType(j int, n Character) error {
	vec, err := rcv._tab.Vector(movieCharactersType.Slot, flatbuffers.SizeUint8)
	if err != nil {
		return err
	}
	p, err := vec.At(j)
	if err != nil {
		return err
	}
	return flatbuffers.MutateAt(&rcv._tab, p, 0, uint8(n))
}

func (rcv *Movie) CharactersLength() (int, error) {
	return rcv._tab.VectorLen(movieCharacters.Slot)
}

// Characters binds obj to element j of the characters union vector.
func (rcv *Movie) Characters(j int, obj *flatbuffers.Table) error {
	vec, err := rcv._tab.Vector(movieCharacters.Slot, flatbuffers.SizeUOffsetT)
	if err != nil {
		return err
	}
	t, err := vec.Table(j)
	if err != nil {
		return err
	}
	*obj = t
	return nil
}

// Verify checks every field of the Movie bound at t, including the values
// of both unions.
func (rcv *Movie) Verify(v *flatbuffers.Verifier, t flatbuffers.Table) error {
	return verifyMovie(v, t)
}

func verifyMovie(v *flatbuffers.Verifier, t flatbuffers.Table) error {
	if err := v.Field(t, movieMainCharacterType.Slot, flatbuffers.SizeUint8); err != nil {
		return err
	}
	if err := v.Field(t, movieMainCharacter.Slot, flatbuffers.SizeUOffsetT); err != nil {
		return err
	}
	m := &Movie{_tab: t}
	typ, err := m.MainCharacterType()
	if err != nil {
		return err
	}
	var value flatbuffers.Table
	ok, err := m.MainCharacter(&value)
	if err != nil {
		return err
	}
	if ok {
		if err := verifyCharacter(v, typ, value); err != nil {
			return err
		}
	}

	types, err := v.Vector(t, movieCharactersType.Slot, flatbuffers.SizeUint8)
	if err != nil {
		return err
	}
	values, err := v.Vector(t, movieCharacters.Slot, flatbuffers.SizeUOffsetT)
	if err != nil {
		return err
	}
	if types.Len != values.Len {
		return xerrors.Errorf("characters has %d types for %d values: %w", types.Len, values.Len, flatbuffers.ErrMalformed)
	}
	for i := 0; i < values.Len; i++ {
		typ, err := flatbuffers.VectorAt[uint8](types, i)
		if err != nil {
			return err
		}
		elem, err := values.Table(i)
		if err != nil {
			return err
		}
		if err := verifyCharacter(v, Character(typ), elem); err != nil {
			return err
		}
	}
	return nil
}

func MovieStart(builder *flatbuffers.Builder) {
	builder.StartTable(4)
}

func MovieAddMainCharacterType(builder *flatbuffers.Builder, mainCharacterType Character) {
	movieMainCharacterType.Add(builder, uint8(mainCharacterType))
}

func MovieAddMainCharacter(builder *flatbuffers.Builder, mainCharacter flatbuffers.TailOffsetT) {
	movieMainCharacter.Add(builder, mainCharacter)
}

func MovieAddCharactersType(builder *flatbuffers.Builder, charactersType flatbuffers.TailOffsetT) {
	movieCharactersType.Add(builder, charactersType)
}

func MovieStartCharactersTypeVector(builder *flatbuffers.Builder, numElems int) flatbuffers.TailOffsetT {
	return builder.StartVector(flatbuffers.SizeUint8, numElems, flatbuffers.SizeUint8)
}

func MovieAddCharacters(builder *flatbuffers.Builder, characters flatbuffers.TailOffsetT) {
	movieCharacters.Add(builder, characters)
}

func MovieStartCharactersVector(builder *flatbuffers.Builder, numElems int) flatbuffers.TailOffsetT {
	return builder.StartVector(flatbuffers.SizeUOffsetT, numElems, flatbuffers.SizeUOffsetT)
}

func MovieEnd(builder *flatbuffers.Builder) flatbuffers.TailOffsetT {
	return builder.EndTable()
}

func FinishMovieBuffer(builder *flatbuffers.Builder, root flatbuffers.TailOffsetT) {
	builder.FinishWithFileIdentifier(root, []byte(MovieIdentifier))
}

func FinishSizePrefixedMovieBuffer(builder *flatbuffers.Builder, root flatbuffers.TailOffsetT) {
	builder.FinishSizePrefixedWithFileIdentifier(root, []byte(MovieIdentifier))
}

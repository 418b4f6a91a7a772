package unionvector

import (
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/blastbao/flatcore/flatbuffers"
	"github.com/blastbao/flatcore/vector"
)

// MovieT is the object form of Movie.
type MovieT struct {
	MainCharacter *CharacterT
	Characters    []*CharacterT
}

// Pack writes t and everything it references. Union values and both
// characters vectors are written before the Movie table is started.
// Characters that are nil or carry no value are left out of both vectors.
func (t *MovieT) Pack(builder *flatbuffers.Builder) flatbuffers.TailOffsetT {
	if t == nil {
		return 0
	}
	mainCharacter := t.MainCharacter.Pack(builder)

	var charactersType, characters flatbuffers.TailOffsetT
	if t.Characters != nil {
		types := vector.NewScalarBuilder[uint8](memory.DefaultAllocator)
		values := vector.NewOffsetBuilder(memory.DefaultAllocator)
		defer types.Release()
		defer values.Release()

		types.Reserve(len(t.Characters))
		values.Reserve(len(t.Characters))
		for _, c := range t.Characters {
			if c == nil || c.Type == CharacterNONE {
				continue
			}
			off := c.Pack(builder)
			if off == 0 {
				continue
			}
			types.Append(uint8(c.Type))
			values.Append(off)
		}
		charactersType = types.Finish(builder)
		characters = values.Finish(builder)
	}

	MovieStart(builder)
	if t.MainCharacter != nil {
		MovieAddMainCharacterType(builder, t.MainCharacter.Type)
		if mainCharacter != 0 {
			MovieAddMainCharacter(builder, mainCharacter)
		}
	}
	if t.Characters != nil {
		MovieAddCharactersType(builder, charactersType)
		MovieAddCharacters(builder, characters)
	}
	return MovieEnd(builder)
}

func (rcv *Movie) UnPackTo(t *MovieT) error {
	typ, err := rcv.MainCharacterType()
	if err != nil {
		return err
	}
	var value flatbuffers.Table
	ok, err := rcv.MainCharacter(&value)
	if err != nil {
		return err
	}
	if ok {
		if t.MainCharacter, err = UnPackCharacter(typ, value); err != nil {
			return err
		}
	}

	n, err := rcv.CharactersLength()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	t.Characters = make([]*CharacterT, n)
	for j := 0; j < n; j++ {
		typ, err := rcv.CharactersType(j)
		if err != nil {
			return err
		}
		if err := rcv.Characters(j, &value); err != nil {
			return err
		}
		if t.Characters[j], err = UnPackCharacter(typ, value); err != nil {
			return err
		}
	}
	return nil
}

func (rcv *Movie) UnPack() (*MovieT, error) {
	if rcv == nil {
		return nil, nil
	}
	t := &MovieT{}
	if err := rcv.UnPackTo(t); err != nil {
		return nil, err
	}
	return t, nil
}

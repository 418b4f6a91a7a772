package unionvector

import (
	"strconv"

	"golang.org/x/xerrors"

	"github.com/blastbao/flatcore/flatbuffers"
)

type Character uint8

const (
	CharacterNONE     Character = 0
	CharacterMuLan    Character = 1
	CharacterRapunzel Character = 2
	CharacterBelle    Character = 3
	CharacterBookFan  Character = 4
	CharacterOther    Character = 5
	CharacterUnused   Character = 6
)

var EnumNamesCharacter = map[Character]string{
	CharacterNONE:     "NONE",
	CharacterMuLan:    "MuLan",
	CharacterRapunzel: "Rapunzel",
	CharacterBelle:    "Belle",
	CharacterBookFan:  "BookFan",
	CharacterOther:    "Other",
	CharacterUnused:   "Unused",
}

func (v Character) String() string {
	if s, ok := EnumNamesCharacter[v]; ok {
		return s
	}
	return "Character(" + strconv.FormatInt(int64(v), 10) + ")"
}

// ErrUnknownCharacter is returned for a union tag outside the Character enum.
var ErrUnknownCharacter = xerrors.New("unionvector: unknown Character")

// CharacterT is the object form of a Character union value. Value holds
// *AttackerT, *RapunzelT, *BookReaderT or string depending on Type.
type CharacterT struct {
	Type  Character
	Value interface{}
}

// Pack writes the union value and returns its offset. The type tag is stored
// separately by the enclosing table.
func (t *CharacterT) Pack(builder *flatbuffers.Builder) flatbuffers.TailOffsetT {
	if t == nil {
		return 0
	}
	switch t.Type {
	case CharacterMuLan:
		return t.Value.(*AttackerT).Pack(builder)
	case CharacterRapunzel:
		return t.Value.(*RapunzelT).Pack(builder)
	case CharacterBelle, CharacterBookFan:
		return t.Value.(*BookReaderT).Pack(builder)
	case CharacterOther, CharacterUnused:
		return builder.CreateString(t.Value.(string))
	}
	return 0
}

// UnPackCharacter decodes the union value of type typ bound to tab.
func UnPackCharacter(typ Character, tab flatbuffers.Table) (*CharacterT, error) {
	var (
		v   interface{}
		err error
	)
	switch typ {
	case CharacterNONE:
		return nil, nil
	case CharacterMuLan:
		x := &Attacker{_tab: tab}
		v, err = x.UnPack()
	case CharacterRapunzel:
		x := &Rapunzel{}
		x.Init(tab.Bytes, tab.Pos)
		v, err = x.UnPack()
	case CharacterBelle, CharacterBookFan:
		x := &BookReader{}
		x.Init(tab.Bytes, tab.Pos)
		v, err = x.UnPack()
	case CharacterOther, CharacterUnused:
		v, err = tab.StringAt(tab.Pos)
	default:
		return nil, xerrors.Errorf("tag %d: %w", typ, ErrUnknownCharacter)
	}
	if err != nil {
		return nil, err
	}
	return &CharacterT{Type: typ, Value: v}, nil
}

// verifyCharacter checks the union value of type typ bound to tab.
func verifyCharacter(v *flatbuffers.Verifier, typ Character, tab flatbuffers.Table) error {
	switch typ {
	case CharacterNONE:
		return nil
	case CharacterMuLan:
		return v.Nested(tab, verifyAttacker)
	case CharacterRapunzel, CharacterBelle, CharacterBookFan:
		_, err := flatbuffers.ReadAt[int32](&tab, tab.Pos, 0)
		return err
	case CharacterOther, CharacterUnused:
		_, err := tab.StringAt(tab.Pos)
		return err
	}
	return xerrors.Errorf("tag %d: %w", typ, ErrUnknownCharacter)
}

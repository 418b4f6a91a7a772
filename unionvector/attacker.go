// Package unionvector is a hand-written binding for the union_vector test
// schema:
//
//	table Attacker { sword_attack_damage: int; }
//	struct Rapunzel { hair_length: int; }
//	struct BookReader { books_read: int; }
//	union Character { MuLan: Attacker, Rapunzel, Belle: BookReader,
//	                  BookFan: BookReader, Other: string, Unused: string }
//	table Movie { main_character: Character; characters: [Character]; }
//	root_type Movie;
//	file_identifier "MOVI";
//
// 每个字段用一个 flatbuffers.Field / OffsetField 描述 slot 和默认值，
// 读写两侧共用同一份描述，不再为每个字段手写 vtable 偏移。
package unionvector

import (
	"github.com/blastbao/flatcore/flatbuffers"
)

var attackerSwordAttackDamage = flatbuffers.Field[int32]{Slot: 0, Default: 0}

type Attacker struct {
	_tab flatbuffers.Table
}

// GetRootAsAttacker binds the Attacker whose root offset is at `offset`.
func GetRootAsAttacker(buf []byte, offset flatbuffers.Position) (*Attacker, error) {
	x := &Attacker{}
	if err := flatbuffers.GetRootAs(buf, offset, x); err != nil {
		return nil, err
	}
	return x, nil
}

func (rcv *Attacker) Init(buf []byte, i flatbuffers.Position) {
	rcv._tab.Init(buf, i)
}

func (rcv *Attacker) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *Attacker) SwordAttackDamage() (int32, error) {
	return attackerSwordAttackDamage.Get(&rcv._tab)
}

// MutateSwordAttackDamage reports false when the field was elided at build
// time and so has no storage to overwrite.
func (rcv *Attacker) MutateSwordAttackDamage(n int32) (bool, error) {
	return attackerSwordAttackDamage.Mutate(&rcv._tab, n)
}

// Verify checks the Attacker fields of t.
func (rcv *Attacker) Verify(v *flatbuffers.Verifier, t flatbuffers.Table) error {
	return verifyAttacker(v, t)
}

func verifyAttacker(v *flatbuffers.Verifier, t flatbuffers.Table) error {
	return v.Field(t, attackerSwordAttackDamage.Slot, flatbuffers.SizeInt32)
}

func AttackerStart(builder *flatbuffers.Builder) {
	builder.StartTable(1)
}

func AttackerAddSwordAttackDamage(builder *flatbuffers.Builder, swordAttackDamage int32) {
	attackerSwordAttackDamage.Add(builder, swordAttackDamage)
}

func AttackerEnd(builder *flatbuffers.Builder) flatbuffers.TailOffsetT {
	return builder.EndTable()
}

func CreateAttacker(builder *flatbuffers.Builder, swordAttackDamage int32) flatbuffers.TailOffsetT {
	AttackerStart(builder)
	AttackerAddSwordAttackDamage(builder, swordAttackDamage)
	return AttackerEnd(builder)
}

// AttackerT is the object form of Attacker.
type AttackerT struct {
	SwordAttackDamage int32
}

// Pack writes t as an Attacker table. A nil t packs to 0.
func (t *AttackerT) Pack(builder *flatbuffers.Builder) flatbuffers.TailOffsetT {
	if t == nil {
		return 0
	}
	return CreateAttacker(builder, t.SwordAttackDamage)
}

func (rcv *Attacker) UnPackTo(t *AttackerT) error {
	dmg, err := rcv.SwordAttackDamage()
	if err != nil {
		return err
	}
	t.SwordAttackDamage = dmg
	return nil
}

func (rcv *Attacker) UnPack() (*AttackerT, error) {
	if rcv == nil {
		return nil, nil
	}
	t := &AttackerT{}
	if err := rcv.UnPackTo(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"fmt"

	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/prim"
	"github.com/fastpb-io/fastpb/internal/token"
)

// intSlot abstracts over the two numeric dictionary arrays (int32, int64)
// so decodeNumeric/encodeNumeric are written once and shared by
// Int32/Int32Opt/Int64/Int64Opt and their Decimal-subfield equivalents.
type intSlot interface {
	Get(d *dict.Dictionary, instance int) int64
	Set(d *dict.Dictionary, instance int, v int64)
	SetNull(d *dict.Dictionary, instance int)
	Presence(d *dict.Dictionary, instance int) dict.Presence
}

type int32Slot struct{}

func (int32Slot) Get(d *dict.Dictionary, i int) int64    { return int64(d.Int32[i]) }
func (int32Slot) Set(d *dict.Dictionary, i int, v int64)  { d.SetInt32(i, int32(v)) }
func (int32Slot) SetNull(d *dict.Dictionary, i int)       { d.SetInt32Null(i) }
func (int32Slot) Presence(d *dict.Dictionary, i int) dict.Presence { return d.Int32Presence(i) }

type int64Slot struct{}

func (int64Slot) Get(d *dict.Dictionary, i int) int64    { return d.Int64[i] }
func (int64Slot) Set(d *dict.Dictionary, i int, v int64) { d.SetInt64(i, v) }
func (int64Slot) SetNull(d *dict.Dictionary, i int)      { d.SetInt64Null(i) }
func (int64Slot) Presence(d *dict.Dictionary, i int) dict.Presence { return d.Int64Presence(i) }

func slotFor(t token.Type) intSlot {
	switch t {
	case token.Int64, token.Int64Opt, token.DecimalMantissa, token.DecimalMantissaOpt:
		return int64Slot{}
	default:
		return int32Slot{}
	}
}

func init() {
	for _, t := range []token.Type{
		token.Int32, token.Int32Opt, token.Int64, token.Int64Opt,
		token.DecimalExponent, token.DecimalExponentOpt,
		token.DecimalMantissa, token.DecimalMantissaOpt,
		token.GroupLength,
	} {
		for _, opt := range []bool{false, true} {
			if t.Optional() != opt {
				continue
			}
			for op := token.None; op <= token.Increment; op++ {
				register(t, op, opt, decodeNumeric, encodeNumeric)
			}
			register(t, token.Delta, opt, decodeNumeric, encodeNumeric)
		}
	}
}

func decodeNumeric(rd *prim.Reader, pm *prim.PMapReader, d *dict.Dictionary, f token.Field, _ [][]byte) (Value, error) {
	slot := slotFor(f.Type)

	switch f.Op {
	case token.None:
		wire, err := rd.ReadVarInt()
		if err != nil {
			return Value{}, err
		}
		if !f.Optional {
			slot.Set(d, f.Instance, wire)
			return Value{Int: wire}, nil
		}
		v, isNull := decodeNullableInt(wire)
		if isNull {
			slot.SetNull(d, f.Instance)
			return Value{Null: true}, nil
		}
		slot.Set(d, f.Instance, v)
		return Value{Int: v}, nil

	case token.Constant:
		bit := 1
		if f.Optional {
			b, err := pm.PopBit()
			if err != nil {
				return Value{}, err
			}
			bit = b
		}
		if bit == 0 {
			return Value{Null: true}, nil
		}
		if slot.Presence(d, f.Instance) == dict.Undefined {
			return Value{}, fmt.Errorf("dispatch: constant field %d has no declared value", f.Instance)
		}
		return Value{Int: slot.Get(d, f.Instance)}, nil

	case token.Default:
		bit, err := pm.PopBit()
		if err != nil {
			return Value{}, err
		}
		if bit == 0 {
			if slot.Presence(d, f.Instance) == dict.Null || slot.Presence(d, f.Instance) == dict.Undefined {
				return Value{Null: true}, nil
			}
			return Value{Int: slot.Get(d, f.Instance)}, nil
		}
		wire, err := rd.ReadVarInt()
		if err != nil {
			return Value{}, err
		}
		if !f.Optional {
			return Value{Int: wire}, nil
		}
		v, isNull := decodeNullableInt(wire)
		return Value{Int: v, Null: isNull}, nil

	case token.Copy:
		bit, err := pm.PopBit()
		if err != nil {
			return Value{}, err
		}
		if bit == 0 {
			switch slot.Presence(d, f.Instance) {
			case dict.Null, dict.Undefined:
				return Value{Null: true}, nil
			default:
				return Value{Int: slot.Get(d, f.Instance)}, nil
			}
		}
		wire, err := rd.ReadVarInt()
		if err != nil {
			return Value{}, err
		}
		if !f.Optional {
			slot.Set(d, f.Instance, wire)
			return Value{Int: wire}, nil
		}
		v, isNull := decodeNullableInt(wire)
		if isNull {
			slot.SetNull(d, f.Instance)
			return Value{Null: true}, nil
		}
		slot.Set(d, f.Instance, v)
		return Value{Int: v}, nil

	case token.Increment:
		bit, err := pm.PopBit()
		if err != nil {
			return Value{}, err
		}
		if bit == 0 {
			switch slot.Presence(d, f.Instance) {
			case dict.Null, dict.Undefined:
				return Value{Null: true}, nil
			default:
				v := slot.Get(d, f.Instance) + 1
				slot.Set(d, f.Instance, v)
				return Value{Int: v}, nil
			}
		}
		wire, err := rd.ReadVarInt()
		if err != nil {
			return Value{}, err
		}
		if !f.Optional {
			slot.Set(d, f.Instance, wire)
			return Value{Int: wire}, nil
		}
		v, isNull := decodeNullableInt(wire)
		if isNull {
			slot.SetNull(d, f.Instance)
			return Value{Null: true}, nil
		}
		slot.Set(d, f.Instance, v)
		return Value{Int: v}, nil

	case token.Delta:
		wire, err := rd.ReadVarInt()
		if err != nil {
			return Value{}, err
		}
		delta := wire
		isNull := false
		if f.Optional {
			delta, isNull = decodeNullableInt(wire)
			if isNull {
				slot.SetNull(d, f.Instance)
				return Value{Null: true}, nil
			}
		}
		base := int64(0)
		if slot.Presence(d, f.Instance) != dict.Undefined {
			base = slot.Get(d, f.Instance)
		}
		v := base + delta
		slot.Set(d, f.Instance, v)
		return Value{Int: v}, nil

	default:
		return Value{}, fmt.Errorf("dispatch: unsupported operator %s on numeric field", f.Op)
	}
}

func encodeNumeric(wr *prim.Writer, pm *prim.PMapWriter, d *dict.Dictionary, f token.Field, _ [][]byte, in Value) error {
	slot := slotFor(f.Type)

	switch f.Op {
	case token.None:
		if in.Null {
			slot.SetNull(d, f.Instance)
		} else {
			slot.Set(d, f.Instance, in.Int)
		}
		if !f.Optional {
			return wr.WriteVarInt(in.Int)
		}
		return wr.WriteVarInt(encodeNullableInt(in.Int, in.Null))

	case token.Constant:
		if !f.Optional {
			return nil
		}
		pm.PushBit(!in.Null)
		return nil

	case token.Default:
		var def bool
		switch {
		case in.Null:
			def = slot.Presence(d, f.Instance) == dict.Null || slot.Presence(d, f.Instance) == dict.Undefined
		default:
			def = slot.Presence(d, f.Instance) != dict.Null && slot.Presence(d, f.Instance) != dict.Undefined &&
				slot.Get(d, f.Instance) == in.Int
		}
		if def {
			pm.PushBit(false)
			return nil
		}
		pm.PushBit(true)
		if !f.Optional {
			return wr.WriteVarInt(in.Int)
		}
		return wr.WriteVarInt(encodeNullableInt(in.Int, in.Null))

	case token.Copy:
		same := false
		switch slot.Presence(d, f.Instance) {
		case dict.Null:
			same = in.Null
		case dict.Undefined:
			same = in.Null
		default:
			same = !in.Null && slot.Get(d, f.Instance) == in.Int
		}
		if same {
			pm.PushBit(false)
			return nil
		}
		pm.PushBit(true)
		if in.Null {
			slot.SetNull(d, f.Instance)
			return wr.WriteVarInt(0)
		}
		slot.Set(d, f.Instance, in.Int)
		if !f.Optional {
			return wr.WriteVarInt(in.Int)
		}
		return wr.WriteVarInt(encodeNullableInt(in.Int, false))

	case token.Increment:
		predicted := slot.Presence(d, f.Instance) != dict.Undefined && slot.Presence(d, f.Instance) != dict.Null &&
			!in.Null && slot.Get(d, f.Instance)+1 == in.Int
		if predicted {
			slot.Set(d, f.Instance, in.Int)
			pm.PushBit(false)
			return nil
		}
		pm.PushBit(true)
		if in.Null {
			slot.SetNull(d, f.Instance)
			return wr.WriteVarInt(0)
		}
		slot.Set(d, f.Instance, in.Int)
		if !f.Optional {
			return wr.WriteVarInt(in.Int)
		}
		return wr.WriteVarInt(encodeNullableInt(in.Int, false))

	case token.Delta:
		base := int64(0)
		if slot.Presence(d, f.Instance) != dict.Undefined {
			base = slot.Get(d, f.Instance)
		}
		if in.Null {
			slot.SetNull(d, f.Instance)
			return wr.WriteVarInt(0)
		}
		delta := in.Int - base
		slot.Set(d, f.Instance, in.Int)
		if !f.Optional {
			return wr.WriteVarInt(delta)
		}
		return wr.WriteVarInt(encodeNullableInt(delta, false))

	default:
		return fmt.Errorf("dispatch: unsupported operator %s on numeric field", f.Op)
	}
}

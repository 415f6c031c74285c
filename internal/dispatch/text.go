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
	"bytes"
	"fmt"

	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/prim"
	"github.com/fastpb-io/fastpb/internal/token"
)

// String-family fields (ascii text, unicode text, byte vectors) all share
// one wire shape: a length prefix followed by raw bytes, with the length
// prefix carrying the FAST null-shift when the field is optional, a
// generalization of FAST's "stop-bit-set zero payload means null" rule to
// arbitrary lengths rather than only the empty string. AsciiText and
// UnicodeText differ only in how a caller above this package interprets the
// resulting bytes as characters; ByteVector never does.

func init() {
	for _, t := range []token.Type{
		token.AsciiText, token.AsciiTextOpt,
		token.UnicodeText, token.UnicodeTextOpt,
		token.ByteVector, token.ByteVectorOpt,
	} {
		opt := t.Optional()
		for _, op := range []token.Op{token.None, token.Constant, token.Default, token.Copy, token.Tail} {
			register(t, op, opt, decodeText, encodeText)
		}
	}
}

func readFreshBytes(rd *prim.Reader, optional bool) (value []byte, isNull bool, err error) {
	rawLen, err := rd.ReadVarUint()
	if err != nil {
		return nil, false, err
	}
	length := rawLen
	if optional {
		if rawLen == 0 {
			return nil, true, nil
		}
		length = rawLen - 1
	}
	b, err := rd.ReadRaw(int(length))
	if err != nil {
		return nil, false, err
	}
	return b, false, nil
}

func writeFreshBytes(wr *prim.Writer, optional bool, b []byte, isNull bool) error {
	if optional {
		if isNull {
			return wr.WriteVarUint(0)
		}
		if err := wr.WriteVarUint(uint64(len(b)) + 1); err != nil {
			return err
		}
		return wr.WriteRawBytes(b)
	}
	if err := wr.WriteVarUint(uint64(len(b))); err != nil {
		return err
	}
	return wr.WriteRawBytes(b)
}

func copyOut(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func decodeText(rd *prim.Reader, pm *prim.PMapReader, d *dict.Dictionary, f token.Field, _ [][]byte) (Value, error) {
	switch f.Op {
	case token.None:
		b, isNull, err := readFreshBytes(rd, f.Optional)
		if err != nil {
			return Value{}, err
		}
		if isNull {
			d.SetBytesNull(f.Instance)
			return Value{Null: true}, nil
		}
		d.SetBytes(f.Instance, b)
		return Value{Bytes: b}, nil

	case token.Constant:
		bit := 1
		if f.Optional {
			bb, err := pm.PopBit()
			if err != nil {
				return Value{}, err
			}
			bit = bb
		}
		if bit == 0 {
			return Value{Null: true}, nil
		}
		if d.BytesPresence(f.Instance) == dict.Undefined {
			return Value{}, fmt.Errorf("dispatch: constant field %d has no declared value", f.Instance)
		}
		return Value{Bytes: copyOut(d.GetBytes(f.Instance))}, nil

	case token.Default:
		bit, err := pm.PopBit()
		if err != nil {
			return Value{}, err
		}
		if bit == 0 {
			switch d.BytesPresence(f.Instance) {
			case dict.Null, dict.Undefined:
				return Value{Null: true}, nil
			default:
				return Value{Bytes: copyOut(d.GetBytes(f.Instance))}, nil
			}
		}
		b, isNull, err := readFreshBytes(rd, f.Optional)
		if err != nil {
			return Value{}, err
		}
		return Value{Bytes: b, Null: isNull}, nil

	case token.Copy:
		bit, err := pm.PopBit()
		if err != nil {
			return Value{}, err
		}
		if bit == 0 {
			switch d.BytesPresence(f.Instance) {
			case dict.Null, dict.Undefined:
				return Value{Null: true}, nil
			default:
				return Value{Bytes: copyOut(d.GetBytes(f.Instance))}, nil
			}
		}
		b, isNull, err := readFreshBytes(rd, f.Optional)
		if err != nil {
			return Value{}, err
		}
		if isNull {
			d.SetBytesNull(f.Instance)
			return Value{Null: true}, nil
		}
		d.SetBytes(f.Instance, b)
		return Value{Bytes: b}, nil

	case token.Tail:
		bit, err := pm.PopBit()
		if err != nil {
			return Value{}, err
		}
		if bit == 0 {
			switch d.BytesPresence(f.Instance) {
			case dict.Null, dict.Undefined:
				return Value{Null: true}, nil
			default:
				return Value{Bytes: copyOut(d.GetBytes(f.Instance))}, nil
			}
		}
		tailLen, err := rd.ReadVarUint()
		if err != nil {
			return Value{}, err
		}
		tailBytes, isNull, err := readFreshBytes(rd, f.Optional)
		if err != nil {
			return Value{}, err
		}
		if isNull {
			d.SetBytesNull(f.Instance)
			return Value{Null: true}, nil
		}
		oldLen := 0
		if d.BytesPresence(f.Instance) != dict.Undefined {
			oldLen = len(d.GetBytes(f.Instance))
		}
		commonPrefix := oldLen - int(tailLen)
		if commonPrefix < 0 {
			commonPrefix = 0
		}
		d.TailBytes(f.Instance, tailBytes, commonPrefix)
		return Value{Bytes: copyOut(d.GetBytes(f.Instance))}, nil

	default:
		return Value{}, fmt.Errorf("dispatch: unsupported operator %s on string field", f.Op)
	}
}

func encodeText(wr *prim.Writer, pm *prim.PMapWriter, d *dict.Dictionary, f token.Field, _ [][]byte, in Value) error {
	switch f.Op {
	case token.None:
		if in.Null {
			d.SetBytesNull(f.Instance)
		} else {
			d.SetBytes(f.Instance, in.Bytes)
		}
		return writeFreshBytes(wr, f.Optional, in.Bytes, in.Null)

	case token.Constant:
		if !f.Optional {
			return nil
		}
		pm.PushBit(!in.Null)
		return nil

	case token.Default:
		var isDefault bool
		switch {
		case in.Null:
			isDefault = d.BytesPresence(f.Instance) == dict.Null || d.BytesPresence(f.Instance) == dict.Undefined
		default:
			isDefault = d.BytesPresence(f.Instance) == dict.Assigned && bytes.Equal(d.GetBytes(f.Instance), in.Bytes)
		}
		if isDefault {
			pm.PushBit(false)
			return nil
		}
		pm.PushBit(true)
		return writeFreshBytes(wr, f.Optional, in.Bytes, in.Null)

	case token.Copy:
		var same bool
		switch d.BytesPresence(f.Instance) {
		case dict.Null, dict.Undefined:
			same = in.Null
		default:
			same = !in.Null && bytes.Equal(d.GetBytes(f.Instance), in.Bytes)
		}
		if same {
			pm.PushBit(false)
			return nil
		}
		pm.PushBit(true)
		if in.Null {
			d.SetBytesNull(f.Instance)
		} else {
			d.SetBytes(f.Instance, in.Bytes)
		}
		return writeFreshBytes(wr, f.Optional, in.Bytes, in.Null)

	case token.Tail:
		var same bool
		switch d.BytesPresence(f.Instance) {
		case dict.Null, dict.Undefined:
			same = in.Null
		default:
			same = !in.Null && bytes.Equal(d.GetBytes(f.Instance), in.Bytes)
		}
		if same {
			pm.PushBit(false)
			return nil
		}
		pm.PushBit(true)
		if in.Null {
			d.SetBytesNull(f.Instance)
			return writeFreshBytes(wr, f.Optional, nil, true)
		}
		old := []byte(nil)
		if d.BytesPresence(f.Instance) != dict.Undefined {
			old = d.GetBytes(f.Instance)
		}
		commonPrefix := commonPrefixLen(old, in.Bytes)
		tail := in.Bytes[commonPrefix:]
		if err := wr.WriteVarUint(uint64(len(old) - commonPrefix)); err != nil {
			return err
		}
		d.TailBytes(f.Instance, tail, commonPrefix)
		return writeFreshBytes(wr, f.Optional, tail, false)

	default:
		return fmt.Errorf("dispatch: unsupported operator %s on string field", f.Op)
	}
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

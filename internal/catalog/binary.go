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

package catalog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"rsc.io/ordered"

	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/token"
)

var magic = [8]byte{'F', 'A', 'S', 'T', 'C', 'A', 'T', '0'}

const catalogVersion = uint32(2)

// MarshalBinary produces the bit-exact catalog interchange format: a
// header naming the script length and template count, followed by the
// packed token array, the template-id table, the reset-group table, the
// byte-constant pool, and the default dictionary values. Multi-byte fields
// are little-endian throughout, and reset groups (and each group's entries,
// keyed by their (kind, slot) pair) are emitted in a canonical order
// independent of Go map iteration or event registration order, so identical
// XML input always produces identical bytes regardless of source order.
func (c *Catalog) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32(&buf, catalogVersion)
	writeU32(&buf, uint32(len(c.Templates)))
	writeU32(&buf, uint32(len(c.Script)))
	writeU32(&buf, uint32(c.MaxPMapBytes))

	for _, tok := range c.Script {
		writeU32(&buf, uint32(tok))
	}

	for _, t := range c.Templates {
		writeU32(&buf, uint32(t.ID))
		writeString(&buf, t.Name)
		writeU32(&buf, uint32(t.Start))
		writeU32(&buf, uint32(t.Limit))
		writeBool(&buf, t.HasPMap)
		writeU32(&buf, uint32(len(t.ResetGroups)))
		for _, name := range t.ResetGroups {
			writeString(&buf, name)
		}
	}

	names := make([]string, 0, len(c.Dict.Groups))
	for name := range c.Dict.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	writeU32(&buf, uint32(len(names)))
	for _, name := range names {
		g := c.Dict.Groups[name]
		writeString(&buf, name)
		entries := append([]dict.ResetEntry(nil), g.Entries...)
		sort.Slice(entries, func(i, j int) bool {
			ki := ordered.Encode(uint8(entries[i].Kind), int64(entries[i].Slot))
			kj := ordered.Encode(uint8(entries[j].Kind), int64(entries[j].Slot))
			return bytes.Compare(ki, kj) < 0
		})
		writeU32(&buf, uint32(len(entries)))
		for _, e := range entries {
			buf.WriteByte(byte(e.Kind))
			writeU32(&buf, uint32(e.Slot))
			writeBool(&buf, e.InitialAbsent)
			switch e.Kind {
			case dict.Int32Slot:
				writeU32(&buf, uint32(e.Int32Initial))
			case dict.Int64Slot:
				writeU64(&buf, uint64(e.Int64Initial))
			case dict.BytesSlot:
				writeBytes(&buf, e.BytesInitial)
			}
		}
	}

	writeU32(&buf, uint32(len(c.Constants)))
	for _, v := range c.Constants {
		writeBytes(&buf, v)
	}

	writeU32(&buf, uint32(len(c.Dict.Defaults.Int32)))
	for _, v := range c.Dict.Defaults.Int32 {
		writeU32(&buf, uint32(v))
	}
	writeU32(&buf, uint32(len(c.Dict.Defaults.Int64)))
	for _, v := range c.Dict.Defaults.Int64 {
		writeU64(&buf, uint64(v))
	}
	writeU32(&buf, uint32(len(c.Dict.Defaults.Bytes)))
	for _, v := range c.Dict.Defaults.Bytes {
		writeBytes(&buf, v)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary rebuilds a Catalog from bytes produced by MarshalBinary.
func UnmarshalBinary(data []byte) (*Catalog, error) {
	r := &reader{buf: data}

	var m [8]byte
	if err := r.read(m[:]); err != nil {
		return nil, err
	}
	if m != magic {
		return nil, fmt.Errorf("catalog: bad magic %q", m[:])
	}
	version, err := r.u32()
	if err != nil {
		return nil, err
	}
	if version != catalogVersion {
		return nil, fmt.Errorf("catalog: unsupported version %d", version)
	}
	templateCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	scriptLength, err := r.u32()
	if err != nil {
		return nil, err
	}
	maxPMapBytes, err := r.u32()
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		templateByID: make(map[int]int),
		Fragments:    make(map[int]FragmentInfo),
		MaxPMapBytes: int(maxPMapBytes),
	}

	c.Script = make([]token.Token, scriptLength)
	for i := range c.Script {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		c.Script[i] = token.Token(v)
	}

	c.Templates = make([]TemplateInfo, templateCount)
	for i := range c.Templates {
		id, err := r.u32()
		if err != nil {
			return nil, err
		}
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		start, err := r.u32()
		if err != nil {
			return nil, err
		}
		limit, err := r.u32()
		if err != nil {
			return nil, err
		}
		hasPMap, err := r.boolean()
		if err != nil {
			return nil, err
		}
		resetGroupCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		var resetGroups []string
		if resetGroupCount > 0 {
			resetGroups = make([]string, resetGroupCount)
			for j := range resetGroups {
				name, err := r.str()
				if err != nil {
					return nil, err
				}
				resetGroups[j] = name
			}
		}
		c.Templates[i] = TemplateInfo{
			ID: int(id), Name: name, Start: int(start), Limit: int(limit), HasPMap: hasPMap,
			ResetGroups: resetGroups,
		}
		c.templateByID[int(id)] = i
	}

	groupCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	groups := make(map[string]dict.ResetGroup, groupCount)
	for i := uint32(0); i < groupCount; i++ {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		entryCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		entries := make([]dict.ResetEntry, entryCount)
		for j := range entries {
			kindByte, err := r.byteVal()
			if err != nil {
				return nil, err
			}
			slot, err := r.u32()
			if err != nil {
				return nil, err
			}
			absent, err := r.boolean()
			if err != nil {
				return nil, err
			}
			e := dict.ResetEntry{Kind: dict.SlotKind(kindByte), Slot: int(slot), InitialAbsent: absent}
			switch e.Kind {
			case dict.Int32Slot:
				v, err := r.u32()
				if err != nil {
					return nil, err
				}
				e.Int32Initial = int32(v)
			case dict.Int64Slot:
				v, err := r.u64()
				if err != nil {
					return nil, err
				}
				e.Int64Initial = int64(v)
			case dict.BytesSlot:
				v, err := r.bytesVal()
				if err != nil {
					return nil, err
				}
				e.BytesInitial = v
			}
			entries[j] = e
		}
		groups[name] = dict.ResetGroup{Name: name, Entries: entries}
	}

	constCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	c.Constants = make([][]byte, constCount)
	for i := range c.Constants {
		v, err := r.bytesVal()
		if err != nil {
			return nil, err
		}
		c.Constants[i] = v
	}

	numInt32, err := r.u32()
	if err != nil {
		return nil, err
	}
	int32Defaults := make([]int32, numInt32)
	for i := range int32Defaults {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		int32Defaults[i] = int32(v)
	}
	numInt64, err := r.u32()
	if err != nil {
		return nil, err
	}
	int64Defaults := make([]int64, numInt64)
	for i := range int64Defaults {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		int64Defaults[i] = int64(v)
	}
	numBytes, err := r.u32()
	if err != nil {
		return nil, err
	}
	bytesDefaults := make([][]byte, numBytes)
	for i := range bytesDefaults {
		v, err := r.bytesVal()
		if err != nil {
			return nil, err
		}
		bytesDefaults[i] = v
	}

	f := dict.NewFactory(int(numInt32), int(numInt64), int(numBytes))
	f.Defaults = dict.Defaults{Int32: int32Defaults, Int64: int64Defaults, Bytes: bytesDefaults}
	f.Groups = groups
	c.Dict = f

	// Reconstruct fragment reservation tables from the script's own bracket
	// positions: one entry per template and one per sequence body (a
	// Group-open token directly preceded by its GroupLength), since the
	// binary form does not duplicate sizes already implied by the script.
	for _, t := range c.Templates {
		c.Fragments[t.Start] = fragmentInfoFromScript(c.Script, t.Start, t.Limit)
		var opens []int
		for i := t.Start + 1; i < t.Limit-1; i++ {
			if c.Script[i].Type() != token.Group {
				continue
			}
			if c.Script[i].GroupOpen() {
				opens = append(opens, i)
				continue
			}
			open := opens[len(opens)-1]
			opens = opens[:len(opens)-1]
			if c.Script[open-1].Type() == token.GroupLength {
				c.Fragments[open] = fragmentInfoFromScript(c.Script, open, i+1)
			}
		}
	}

	return c, nil
}

// fragmentInfoFromScript recomputes a template's or sequence body's
// reservation size and script length directly from its script slice,
// skipping over nested sequence bodies (which are reserved independently,
// once per repetition, at runtime) while still counting plain nested
// groups, brackets and contents, which always execute inline with their
// enclosing fragment.
func fragmentInfoFromScript(script []token.Token, start, limit int) FragmentInfo {
	slab, tokens := sumOwnLevel(script, start+1, limit-1)
	return FragmentInfo{SlabSlots: slab + 2, ScriptLen: tokens + 2}
}

func sumOwnLevel(script []token.Token, from, to int) (slab, tokens int) {
	for i := from; i < to; {
		f := script[i].Unpack()
		if f.Type == token.Group && script[i].GroupOpen() {
			isSeq := i-1 >= from && script[i-1].Unpack().Type == token.GroupLength
			depth := 1
			j := i + 1
			for j < to && depth > 0 {
				gf := script[j].Unpack()
				if gf.Type == token.Group {
					if script[j].GroupOpen() {
						depth++
					} else {
						depth--
					}
				}
				j++
			}
			if !isSeq {
				s, n := sumOwnLevel(script, i+1, j-1)
				slab += s
				tokens += n + 2
			}
			i = j
			continue
		}
		slab += f.Type.SlabSlots()
		tokens++
		i++
	}
	return slab, tokens
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeBytes(buf *bytes.Buffer, v []byte) {
	if v == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeU32(buf, uint32(len(v)))
	buf.Write(v)
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) read(dst []byte) error {
	if r.pos+len(dst) > len(r.buf) {
		return fmt.Errorf("catalog: truncated binary catalog")
	}
	copy(dst, r.buf[r.pos:])
	r.pos += len(dst)
	return nil
}

func (r *reader) u32() (uint32, error) {
	var b [4]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (r *reader) u64() (uint64, error) {
	var b [8]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (r *reader) byteVal() (byte, error) {
	var b [1]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) boolean() (bool, error) {
	b, err := r.byteVal()
	return b != 0, err
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if err := r.read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) bytesVal() ([]byte, error) {
	present, err := r.byteVal()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := r.read(b); err != nil {
		return nil, err
	}
	return b, nil
}

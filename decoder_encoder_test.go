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

package fastpb_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb"
)

// TestDecoderEncoderRelayThroughRing wires a Decoder's Producer and an
// Encoder's Consumer to opposite ends of the same Ring and drains both in
// their own goroutines, mirroring how two separate pipeline stages would
// share a Ring in production. For a template with no PMap and a single
// None-operator field, the relay is lossless: the bytes the Encoder
// produces must equal the bytes the Decoder consumed.
func TestDecoderEncoderRelayThroughRing(t *testing.T) {
	cat := buildSingleFieldCatalog(t, 3)
	cfg := fastpb.DefaultConfig()

	// Template id 3 (single byte, stop-bit set) followed by Value = 42
	// (single byte, stop-bit set): both fit under FAST's 7-bit group with
	// room to spare.
	wire := []byte{0x80 | 3, 0x80 | 42}

	rg := fastpb.NewRing(cfg)
	prod := rg.NewProducer()
	cons := rg.NewConsumer()

	dec, err := fastpb.NewDecoder(cat, bytes.NewReader(wire), prod, cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	enc, err := fastpb.NewEncoder(cat, &out, cons, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	decodeDone := make(chan error, 1)
	go func() {
		for {
			_, err := dec.Next(ctx)
			if err != nil {
				if err == io.EOF {
					decodeDone <- nil
					return
				}
				decodeDone <- err
				return
			}
		}
	}()

	for {
		_, err := enc.Next(ctx, nil)
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("encoder.Next: %v", err)
		}
	}

	require.NoError(t, <-decodeDone)
	require.Equal(t, wire, out.Bytes())
}

// TestDecoderRejectsUnknownTemplate checks that a template id absent from
// the catalog surfaces as ErrProtocolViolation: the catalog itself compiled
// fine, the wire just named a template id it doesn't define, the same kind
// of desync as a bad PMap bit or a forbidden null encoding.
func TestDecoderRejectsUnknownTemplate(t *testing.T) {
	cat := buildSingleFieldCatalog(t, 3)
	cfg := fastpb.DefaultConfig()

	wire := []byte{0x80 | 9} // unknown template id, single byte

	rg := fastpb.NewRing(cfg)
	prod := rg.NewProducer()

	dec, err := fastpb.NewDecoder(cat, bytes.NewReader(wire), prod, cfg)
	require.NoError(t, err)

	_, err = dec.Next(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, fastpb.ErrProtocolViolation)
}

// TestEncoderRejectsWrongPreambleLength checks that Encoder.Next rejects a
// preamble whose length does not match Config.PreambleBytes.
func TestEncoderRejectsWrongPreambleLength(t *testing.T) {
	cat := buildSingleFieldCatalog(t, 3)
	cfg := fastpb.DefaultConfig()
	cfg.PreambleBytes = 4

	rg := fastpb.NewRing(cfg)
	cons := rg.NewConsumer()

	var out bytes.Buffer
	enc, err := fastpb.NewEncoder(cat, &out, cons, cfg)
	require.NoError(t, err)

	_, err = enc.Next(context.Background(), []byte{1, 2, 3})
	require.Error(t, err)
}

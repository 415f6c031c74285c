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

package fastpb

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config controls the size and batching of one Decoder/Encoder pair's
// Ring, plus the pass-through header every message carries.
type Config struct {
	// SlabBits and BlobBits size the Ring: 1<<SlabBits int32 slots and
	// 1<<BlobBits bytes.
	SlabBits int `yaml:"slabBits"`
	BlobBits int `yaml:"blobBits"`

	// PreambleBytes is the length of a fixed per-message header read or
	// written verbatim ahead of the template id; 0 disables it. The header
	// does not travel through the ring: a Decoder returns it in
	// Fragment.Preamble and an Encoder takes it as an argument to Next.
	PreambleBytes int `yaml:"preambleBytes"`

	// MaxTextLen and MaxByteVectorLen size the primitive Reader's and
	// Writer's internal buffer (the larger of the two is used). They are
	// not enforced as per-field limits: a length prefix is trusted once
	// read.
	MaxTextLen       int `yaml:"maxTextLen"`
	MaxByteVectorLen int `yaml:"maxByteVectorLen"`

	// BatchPublishSize and BatchReleaseSize are the Producer/Consumer
	// batch sizes: how many fragments accumulate locally before a
	// release-store makes them visible to the other side of the ring. 1
	// publishes/releases every fragment immediately.
	BatchPublishSize int `yaml:"batchPublishSize"`
	BatchReleaseSize int `yaml:"batchReleaseSize"`

	// DebugFlags is carried in the configuration only; no code in this
	// module reads it.
	DebugFlags uint32 `yaml:"debugFlags"`
}

// DefaultConfig returns the configuration used by the package's own tests:
// a small ring, no preamble, and immediate batch release.
func DefaultConfig() Config {
	return Config{
		SlabBits:         12,
		BlobBits:         16,
		PreambleBytes:    0,
		MaxTextLen:       4096,
		MaxByteVectorLen: 4096,
		BatchPublishSize: 1,
		BatchReleaseSize: 1,
	}
}

// LoadConfig reads a YAML-encoded Config from r and validates it.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("fastpb: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to w as YAML.
func (c Config) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("fastpb: encode config: %w", err)
	}
	return nil
}

// Validate enforces the ring's sizing constraints, catching a
// misconfiguration before it reaches ring.New's panic.
func (c Config) Validate() error {
	if c.SlabBits < 6 || c.SlabBits > 24 {
		return fmt.Errorf("fastpb: slabBits %d out of range [6,24]", c.SlabBits)
	}
	if c.BlobBits < 0 || c.BlobBits > 28 {
		return fmt.Errorf("fastpb: blobBits %d out of range [0,28]", c.BlobBits)
	}
	if c.PreambleBytes < 0 {
		return fmt.Errorf("fastpb: preambleBytes must be non-negative, got %d", c.PreambleBytes)
	}
	if c.MaxTextLen < 0 || c.MaxByteVectorLen < 0 {
		return fmt.Errorf("fastpb: maxTextLen/maxByteVectorLen must be non-negative")
	}
	if c.BatchPublishSize < 0 || c.BatchReleaseSize < 0 {
		return fmt.Errorf("fastpb: batchPublishSize/batchReleaseSize must be non-negative")
	}
	return nil
}

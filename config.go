/*
   Copyright Mycophonic.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package alac

import (
	"encoding/binary"
	"fmt"

	alacint "github.com/mycophonic/saprobe-alac/internal/alac"
)

// PacketConfig holds the container-level codec parameters QuickTime stores
// in the ALACSpecificConfig ("magic cookie") atom. PB/MB/KB, MaxRun, and
// AvgBitRate are round-tripped verbatim for interoperability; the core
// codec itself is driven by Options, not by this struct.
type PacketConfig struct {
	FrameLength   uint32
	BitDepth      uint8
	NumChannels   uint8
	PB            uint8
	MB            uint8
	KB            uint8
	MaxRun        uint16
	MaxFrameBytes uint32
	AvgBitRate    uint32
	SampleRate    uint32
}

const (
	configSize     = 24 // ALACSpecificConfig binary size.
	atomHeaderSize = 12 // MPEG4 atom header: size (4) + type (4) + payload (4).
)

// ParseMagicCookie reads an ALACSpecificConfig from a magic cookie byte slice.
// Handles legacy wrappers ('frma' and 'alac' atoms).
func ParseMagicCookie(cookie []byte) (PacketConfig, error) {
	data := cookie

	// Skip 'frma' atom if present: [size:4][type:'frma'][format:'alac']
	if len(data) >= atomHeaderSize && data[4] == 'f' && data[5] == 'r' && data[6] == 'm' && data[7] == 'a' {
		data = data[atomHeaderSize:]
	}

	// Skip 'alac' atom header if present: [size:4][type:'alac'][version:4]
	if len(data) >= atomHeaderSize && data[4] == 'a' && data[5] == 'l' && data[6] == 'a' && data[7] == 'c' {
		data = data[atomHeaderSize:]
	}

	if len(data) < configSize {
		return PacketConfig{}, fmt.Errorf("%w: %w", ErrConfig, alacint.ErrInvalidCookie)
	}

	compatibleVersion := data[4]
	if compatibleVersion > 0 {
		return PacketConfig{}, fmt.Errorf("%w: %w: %d", ErrConfig, alacint.ErrUnsupportedVersion, compatibleVersion)
	}

	return PacketConfig{
		FrameLength:   binary.BigEndian.Uint32(data[0:4]),
		BitDepth:      data[5],
		PB:            data[6],
		MB:            data[7],
		KB:            data[8],
		NumChannels:   data[9],
		MaxRun:        binary.BigEndian.Uint16(data[10:12]),
		MaxFrameBytes: binary.BigEndian.Uint32(data[12:16]),
		AvgBitRate:    binary.BigEndian.Uint32(data[16:20]),
		SampleRate:    binary.BigEndian.Uint32(data[20:24]),
	}, nil
}

// WriteMagicCookie serialises cfg into a bare 24-byte ALACSpecificConfig
// (no 'frma'/'alac' wrapper atoms — the mp4 muxer adds those itself).
func WriteMagicCookie(cfg PacketConfig) []byte {
	data := make([]byte, configSize)

	binary.BigEndian.PutUint32(data[0:4], cfg.FrameLength)
	data[4] = 0 // compatible version
	data[5] = cfg.BitDepth
	data[6] = cfg.PB
	data[7] = cfg.MB
	data[8] = cfg.KB
	data[9] = cfg.NumChannels
	binary.BigEndian.PutUint16(data[10:12], cfg.MaxRun)
	binary.BigEndian.PutUint32(data[12:16], cfg.MaxFrameBytes)
	binary.BigEndian.PutUint32(data[16:20], cfg.AvgBitRate)
	binary.BigEndian.PutUint32(data[20:24], cfg.SampleRate)

	return data
}

// Options configures the core codec (§3). PB/MB/KB from PacketConfig are
// not consulted here — the residual coder and decorrelator take their
// tunables from these fields instead.
type Options struct {
	BlockSize         uint32
	BitsPerSample     uint8
	NumChannels       uint8
	SampleRate        uint32
	InitialHistory    uint32
	HistoryMultiplier uint32
	MaximumK          uint32
	MinLeftweight     int32
	MaxLeftweight     int32
}

// Reference defaults from the standalone reference encoder, reused as this
// module's flag defaults (cmd/alaccore) and as DefaultOptions.
const (
	DefaultBlockSize         = 4096
	DefaultInitialHistory    = 10
	DefaultHistoryMultiplier = 40
	DefaultMaximumK          = 14
	DefaultMinLeftweight     = 0
	DefaultMaxLeftweight     = 4
)

// DefaultOptions returns Options with the reference encoder's tunables,
// leaving BitsPerSample/NumChannels/SampleRate zero for the caller to fill in.
func DefaultOptions() Options {
	return Options{
		BlockSize:         DefaultBlockSize,
		InitialHistory:    DefaultInitialHistory,
		HistoryMultiplier: DefaultHistoryMultiplier,
		MaximumK:          DefaultMaximumK,
		MinLeftweight:     DefaultMinLeftweight,
		MaxLeftweight:     DefaultMaxLeftweight,
	}
}

func (o Options) frameOptions() alacint.FrameOptions {
	return alacint.FrameOptions{
		InitialHistory:    o.InitialHistory,
		HistoryMultiplier: o.HistoryMultiplier,
		MaximumK:          o.MaximumK,
		MinLeftweight:     o.MinLeftweight,
		MaxLeftweight:     o.MaxLeftweight,
	}
}

// packetConfigFromOptions builds the ALACSpecificConfig fields for a stream
// encoded with opts. PB/MB/KB are populated with the reference encoder's own
// defaults purely for QuickTime compatibility; this codec's decoder ignores them.
func packetConfigFromOptions(opts Options, maxFrameBytes, avgBitRate uint32) PacketConfig {
	return PacketConfig{
		FrameLength:   opts.BlockSize,
		BitDepth:      opts.BitsPerSample,
		NumChannels:   opts.NumChannels,
		PB:            40, //nolint:mnd // reference encoder's fixed pb factor
		MB:            10, //nolint:mnd // reference encoder's fixed mb
		KB:            14, //nolint:mnd // reference encoder's fixed kb
		MaxRun:        255,
		MaxFrameBytes: maxFrameBytes,
		AvgBitRate:    avgBitRate,
		SampleRate:    opts.SampleRate,
	}
}

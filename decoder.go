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
	"fmt"
	"slices"

	alacint "github.com/mycophonic/saprobe-alac/internal/alac"
)

// Decoder decodes ALAC packets (framesets) into interleaved LE signed PCM.
//
// The adaptive residual coder's history parameters (initial_history,
// history_multiplier, maximum_k) are not carried in the ALACSpecificConfig
// cookie. The decoder always uses the reference values (DefaultInitialHistory
// etc), the same way the standalone reference tool hard-codes them outside
// of getopt overrides, so it decodes streams from an Encoder that kept those
// defaults (as cmd/alaccore does); packets from an Encoder built with other
// InitialHistory, HistoryMultiplier or MaximumK values do not decode
// correctly here.
type Decoder struct {
	config PacketConfig
	format PCMFormat
	frOpts alacint.FrameOptions
	bits   alacint.BitReader
}

// NewDecoder creates a new ALAC decoder from the given container config.
func NewDecoder(config PacketConfig) (*Decoder, error) {
	if !slices.Contains(alacBitDepths, config.BitDepth) {
		return nil, fmt.Errorf("%w: %w: %d", ErrConfig, alacint.ErrBitDepth, config.BitDepth)
	}

	defaults := DefaultOptions()

	return &Decoder{
		config: config,
		format: PCMFormat{
			SampleRate: int(config.SampleRate),
			BitDepth:   int(config.BitDepth),
			Channels:   int(config.NumChannels),
		},
		frOpts: defaults.frameOptions(),
	}, nil
}

// Format returns the PCM output format.
func (d *Decoder) Format() PCMFormat {
	return d.format
}

// DecodePacket decodes a single ALAC packet into interleaved LE signed PCM bytes.
func (d *Decoder) DecodePacket(packet []byte) ([]byte, error) {
	numChan := int(d.config.NumChannels)
	bps := alacint.BytesPerSample(d.config.BitDepth)
	output := make([]byte, int(d.config.FrameLength)*numChan*bps)

	n, err := d.decodePacketInto(packet, output)
	if err != nil {
		return nil, err
	}

	return output[:n], nil
}

// decodePacketInto decodes a single ALAC packet (one frameset) into the
// provided output buffer, returning the number of bytes written. The
// buffer must be large enough for a full block
// (FrameLength * NumChannels * BytesPerSample).
func (d *Decoder) decodePacketInto(packet, output []byte) (int, error) {
	d.bits.Reset(packet)

	channels, _, err := alacint.DecodeFrameset(
		&d.bits, int(d.config.NumChannels), uint(d.config.BitDepth), d.config.FrameLength, d.frOpts,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	// A complete frameset ends exactly on the last byte (Pos == Size); only a
	// position beyond it means the decoder read into the zero padding.
	if d.bits.Pos > d.bits.Size {
		return 0, fmt.Errorf("%w: %w", ErrDecode, alacint.ErrBitstreamOverrun)
	}

	written := writeInterleavedLE(output, channels, d.config.BitDepth)

	return written, nil
}

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
	"errors"
	"fmt"
	"io"
	"slices"

	alacint "github.com/mycophonic/saprobe-alac/internal/alac"
)

//nolint:gochecknoglobals
var alacBitDepths = []uint8{16, 24}

// Encoder turns blocks of PCM samples read from a PCMSource into a stream
// of ALAC packets (framesets), one per EncodeAll iteration, written to an
// OutputSink.
type Encoder struct {
	opts   Options
	frOpts alacint.FrameOptions
	block  [][]int32
	bits   alacint.BitWriter
}

// NewEncoder validates opts and returns an Encoder ready for EncodeAll.
func NewEncoder(opts Options) (*Encoder, error) {
	if !slices.Contains(alacBitDepths, opts.BitsPerSample) {
		return nil, fmt.Errorf("%w: %w: %d", ErrConfig, alacint.ErrBitDepth, opts.BitsPerSample)
	}

	if opts.NumChannels == 0 {
		return nil, fmt.Errorf("%w: %w", ErrConfig, alacint.ErrInvalidFrameChannelCount)
	}

	block := make([][]int32, opts.NumChannels)
	for c := range block {
		block[c] = make([]int32, opts.BlockSize)
	}

	frOpts := opts.frameOptions()
	frOpts.Window = alacint.TukeyWindow(int(opts.BlockSize))

	return &Encoder{
		opts:   opts,
		frOpts: frOpts,
		block:  block,
	}, nil
}

// PacketConfig returns the ALACSpecificConfig fields for a stream this
// Encoder produces, given the totals a completed EncodeAll accumulated.
func (e *Encoder) PacketConfig(maxFrameBytes, avgBitRate uint32) PacketConfig {
	return packetConfigFromOptions(e.opts, maxFrameBytes, avgBitRate)
}

// EncodeAll drains src block by block, writing one ALAC packet (frameset)
// per block to sink, and returns the byte length and pcm frame count of
// each packet in emission order — exactly the order a container's stsz and
// stco entries must follow (§9 Open Question: emission order must be
// preserved for container indexing).
func (e *Encoder) EncodeAll(sink OutputSink, src PCMSource) ([]FrameSize, error) {
	var sizes []FrameSize

	for {
		n, err := src.Read(e.block)
		if n > 0 {
			sz, encErr := e.encodeBlock(sink, n)
			if encErr != nil {
				return sizes, encErr
			}

			sizes = append(sizes, sz)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return sizes, nil
			}

			return sizes, fmt.Errorf("%w: reading pcm source: %w", ErrEncode, err)
		}

		if n == 0 {
			return sizes, nil
		}
	}
}

func (e *Encoder) encodeBlock(sink OutputSink, n int) (FrameSize, error) {
	e.bits.Reset()

	channels := make([][]int32, len(e.block))
	for c := range e.block {
		channels[c] = e.block[c][:n]
	}

	alacint.EncodeFrameset(&e.bits, channels, uint(e.opts.BitsPerSample), e.opts.BlockSize, e.frOpts)

	packet := e.bits.Bytes()
	if _, err := sink.Write(packet); err != nil {
		return FrameSize{}, fmt.Errorf("%w: writing packet: %w", ErrEncode, err)
	}

	return FrameSize{Bytes: len(packet), Frames: uint32(n)}, nil
}

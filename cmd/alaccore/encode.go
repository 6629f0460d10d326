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

package main

import (
	"fmt"
	"os"

	alac "github.com/mycophonic/saprobe-alac"
	"github.com/mycophonic/saprobe-alac/internal/mp4"
	"github.com/mycophonic/saprobe-alac/internal/pcmio"
)

func runEncode(args []string) error {
	in := encodeFlags.String("in", "", "source WAV path")
	out := encodeFlags.String("out", "", "destination M4A path")
	blockSize := encodeFlags.Uint("block-size", alac.DefaultBlockSize, "samples per frameset")

	if err := encodeFlags.Parse(args); err != nil {
		return err
	}

	if *in == "" || *out == "" {
		return fmt.Errorf("%w: -in and -out are required", errUsage)
	}

	src, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	wav, err := pcmio.NewReader(src)
	if err != nil {
		return fmt.Errorf("reading wav header: %w", err)
	}

	format := wav.Format()

	opts := alac.DefaultOptions()
	opts.BlockSize = uint32(*blockSize)
	opts.BitsPerSample = uint8(format.BitDepth)
	opts.NumChannels = uint8(format.Channels)
	opts.SampleRate = uint32(format.SampleRate)

	enc, err := alac.NewEncoder(opts)
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}

	collector := &packetCollector{}

	sizes, err := enc.EncodeAll(collector, wav)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	var maxFrameBytes uint32
	for _, sz := range sizes {
		if uint32(sz.Bytes) > maxFrameBytes { //nolint:gosec // packet sizes fit uint32 for any realistic block size
			maxFrameBytes = uint32(sz.Bytes)
		}
	}

	packetConfig := enc.PacketConfig(maxFrameBytes, averageBitRate(sizes, format.SampleRate))

	dst, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer dst.Close()

	muxCfg := mp4.MuxConfig{
		NumChannels: format.Channels,
		SampleRate:  uint32(format.SampleRate),
		BitDepth:    format.BitDepth,
		MagicCookie: alac.WriteMagicCookie(packetConfig),
	}

	packets := make([]mp4.Packet, len(collector.packets))
	for i, data := range collector.packets {
		packets[i] = mp4.Packet{Data: data, Frames: sizes[i].Frames}
	}

	if err := mp4.WriteM4A(dst, muxCfg, packets); err != nil {
		return fmt.Errorf("writing m4a: %w", err)
	}

	return nil
}

// averageBitRate estimates the encoded stream's average bit rate from its
// packet sizes and pcm frame counts, for the AvgBitRate cookie field.
func averageBitRate(sizes []alac.FrameSize, sampleRate int) uint32 {
	var totalBytes uint64

	var totalFrames uint64

	for _, sz := range sizes {
		totalBytes += uint64(sz.Bytes)
		totalFrames += uint64(sz.Frames)
	}

	if totalFrames == 0 {
		return 0
	}

	const bitsPerByte = 8

	return uint32(totalBytes * bitsPerByte * uint64(sampleRate) / totalFrames) //nolint:gosec // bounded by realistic audio bitrates
}

// packetCollector implements alac.OutputSink by keeping each encoded packet
// separate, so an mp4.Packet list can be built from them afterward.
type packetCollector struct {
	packets [][]byte
	pos     int64
}

func (c *packetCollector) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	c.packets = append(c.packets, buf)
	c.pos += int64(len(p))

	return len(p), nil
}

func (c *packetCollector) Pos() int64 { return c.pos }

func (c *packetCollector) WriteAt(p []byte, off int64) (int, error) {
	return 0, fmt.Errorf("%w: packetCollector does not support WriteAt", errUsage)
}

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

//nolint:gosec // Integer conversions are bounded by the codec's 16/24-bit sample widths.
package alac

import (
	"io"

	alacint "github.com/mycophonic/saprobe-alac/internal/alac"
)

// PCMFormat describes the interleaved PCM a Decoder produces or an Encoder
// consumes.
type PCMFormat struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// PCMSource supplies per-channel sample blocks to an Encoder. Read fills
// frames (one []int32 per channel, all the same length) and returns how
// many samples it actually filled; n < len(frames[0]) signals the final,
// short block of the stream. io.EOF with n == 0 signals a clean end.
type PCMSource interface {
	Read(frames [][]int32) (n int, err error)
}

// PCMSink accepts per-channel sample blocks decoded by a Decoder.
type PCMSink interface {
	Write(frames [][]int32) error
}

// OutputSink is where an Encoder writes container-framed ALAC output. Pos
// and WriteAt let the caller patch up a size field (e.g. the mdat box)
// after the payload has been written.
type OutputSink interface {
	io.Writer
	Pos() int64
	WriteAt(p []byte, off int64) (int, error)
}

// FrameSize records one frameset's encoded byte length and pcm frame
// count, the data an MP4 muxer needs to populate stsz and stco.
type FrameSize struct {
	Bytes  int
	Frames uint32
}

// writeInterleavedLE packs numCh channel slices of n samples each into dst
// as interleaved little-endian signed PCM at the given bit depth, returning
// the number of bytes written.
func writeInterleavedLE(dst []byte, channels [][]int32, bitsPerSample uint8) int {
	bps := alacint.BytesPerSample(bitsPerSample)
	n := len(channels[0])
	off := 0

	for i := 0; i < n; i++ {
		for c := range channels {
			v := channels[c][i]

			for b := 0; b < bps; b++ {
				dst[off] = byte(v >> (8 * b))
				off++
			}
		}
	}

	return off
}

// readInterleavedLE is the inverse of writeInterleavedLE: it unpacks n
// interleaved little-endian signed samples per channel from src into
// channels.
func readInterleavedLE(channels [][]int32, src []byte, bitsPerSample uint8, n int) {
	bps := alacint.BytesPerSample(bitsPerSample)
	shift := uint(32 - int(bitsPerSample))
	off := 0

	for i := 0; i < n; i++ {
		for c := range channels {
			var v int32
			for b := 0; b < bps; b++ {
				v |= int32(src[off+b]) << (8 * b)
			}

			off += bps
			channels[c][i] = (v << shift) >> shift
		}
	}
}

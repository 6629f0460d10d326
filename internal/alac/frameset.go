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

// framesetTerminator is the 3-bit code that ends a frameset (§4.G).
const framesetTerminator = 0b111

// EncodeFrameset encodes one block's worth of samples, one slice per
// channel, as the fixed sequence of frame groups ChannelLayout dictates for
// len(samples) channels (§3, §4.G "Frameset").
func EncodeFrameset(sink *BitWriter, samples [][]int32, bitsPerSample uint, blockSize uint32, opts FrameOptions) {
	for _, group := range ChannelLayout(len(samples)) {
		sink.Write(uint32(len(group)-1), 3)

		chData := make([][]int32, len(group))
		for i, idx := range group {
			chData[i] = samples[idx]
		}

		EncodeFrame(sink, chData, bitsPerSample, blockSize, opts)
	}

	sink.Write(framesetTerminator, 3)
	sink.ByteAlign()
}

// DecodeFrameset reads one frameset for a stream of numChannels channels,
// returning one sample slice per channel in stream channel order.
func DecodeFrameset(r *BitReader, numChannels int, bitsPerSample uint, blockSize uint32, opts FrameOptions) ([][]int32, uint32, error) {
	groups := ChannelLayout(numChannels)
	out := make([][]int32, numChannels)

	var n uint32

	for _, group := range groups {
		code := r.ReadSmall(3)
		if code == framesetTerminator {
			return nil, 0, ErrFrameBlockSizeMismatch
		}

		count := int(code) + 1
		if count != len(group) {
			return nil, 0, ErrInvalidFrameChannelCount
		}

		channels, frameN, err := DecodeFrame(r, count, bitsPerSample, blockSize, opts)
		if err != nil {
			return nil, 0, err
		}

		switch {
		case n == 0:
			n = frameN
		case frameN != n:
			return nil, 0, ErrFrameBlockSizeMismatch
		}

		for i, idx := range group {
			out[idx] = channels[i]
		}
	}

	term := r.ReadSmall(3)
	if term != framesetTerminator {
		return nil, 0, ErrExcessiveFramesetChannels
	}

	r.ByteAlign()

	return out, n, nil
}

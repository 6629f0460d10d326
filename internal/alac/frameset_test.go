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

import "testing"

func TestEncodeDecodeFramesetChannelCounts(t *testing.T) {
	t.Parallel()

	for numChannels := 1; numChannels <= 8; numChannels++ {
		samples := make([][]int32, numChannels)
		for c := range samples {
			samples[c] = frameTestChannel(1024, 5000, float64(c)*0.4)
		}

		var w BitWriter

		EncodeFrameset(&w, samples, 16, uint32(len(samples[0])), testFrameOptions(len(samples[0])))

		var r BitReader
		r.Reset(w.Bytes())

		got, n, err := DecodeFrameset(&r, numChannels, 16, uint32(len(samples[0])), testFrameOptions(len(samples[0])))
		if err != nil {
			t.Fatalf("channels=%d: DecodeFrameset: %v", numChannels, err)
		}

		if n != uint32(len(samples[0])) {
			t.Fatalf("channels=%d: decoded n = %d, want %d", numChannels, n, len(samples[0]))
		}

		for c := range samples {
			for i := range samples[c] {
				if got[c][i] != samples[c][i] {
					t.Fatalf("channels=%d: channel %d sample[%d] = %d, want %d", numChannels, c, i, got[c][i], samples[c][i])
				}
			}
		}
	}
}

func TestDecodeFramesetRejectsWrongGroupSize(t *testing.T) {
	t.Parallel()

	// A two-channel stream's first group is a stereo pair; misreading it as
	// numChannels==1 must fail rather than silently misparse.
	samples := [][]int32{
		frameTestChannel(256, 4000, 0),
		frameTestChannel(256, 4000, 0.2),
	}

	var w BitWriter

	EncodeFrameset(&w, samples, 16, uint32(len(samples[0])), testFrameOptions(len(samples[0])))

	var r BitReader
	r.Reset(w.Bytes())

	if _, _, err := DecodeFrameset(&r, 1, 16, uint32(len(samples[0])), testFrameOptions(len(samples[0]))); err == nil {
		t.Fatal("expected an error decoding a stereo frameset as mono")
	}
}

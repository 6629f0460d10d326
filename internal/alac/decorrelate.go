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

// InterlacingShift is the fixed shift the encoder always uses (§4.F).
// The decoder honours whatever shift value is present on the wire.
const InterlacingShift = 2

// CorrelateChannels decorrelates a stereo pair in place: c0 receives the
// mid-like channel, c1 the side channel. Passthrough when leftweight==0.
func CorrelateChannels(c0, c1 []int32, s0, s1 []int32, shift, leftweight int32) {
	if leftweight == 0 {
		copy(c0, s0)
		copy(c1, s1)

		return
	}

	for i := range s0 {
		c0[i] = s1[i] + (((s0[i] - s1[i]) * leftweight) >> shift)
		c1[i] = s0[i] - s1[i]
	}
}

// DecorrelateChannels reverses CorrelateChannels.
func DecorrelateChannels(left, right []int32, c0, c1 []int32, shift, leftweight int32) {
	if leftweight == 0 {
		copy(left, c0)
		copy(right, c1)

		return
	}

	for i := range c0 {
		r := c0[i] - ((c1[i] * leftweight) >> shift)
		left[i] = c1[i] + r
		right[i] = r
	}
}

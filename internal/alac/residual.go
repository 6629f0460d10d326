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

//nolint:gosec // Integer conversions match the reference fixed-width arithmetic.
package alac

import "math/bits"

// log2Floor returns the position of the highest set bit in v (floor(log2
// v)), with the convention log2Floor(0) == 0 used by the residual coder's
// history-derived parameter selection.
func log2Floor(v uint32) uint32 {
	if v == 0 {
		return 0
	}

	return uint32(31 - bits.LeadingZeros32(v))
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}

	return b
}

// ResidualCoderParams bundles the adaptive coder's tunables (§3).
type ResidualCoderParams struct {
	InitialHistory    uint32
	HistoryMultiplier uint32
	MaximumK          uint32
}

// EncodeResidualBlock writes one channel's residuals with the adaptive
// history-based coder (§4.E). Returns errResidualOverflow (never crossing
// the package boundary uninterpreted — see errors.go) if any residual's
// folded magnitude reaches the escape threshold, signalling the caller to
// discard this attempt and retry the enclosing frame as uncompressed.
func EncodeResidualBlock(w *BitWriter, residuals []int32, sampleSize uint, p ResidualCoderParams) error {
	history := p.InitialHistory
	signModifier := uint32(0)
	n := len(residuals)

	for i := 0; i < n; i++ {
		u := FoldSigned(residuals[i])
		if u >= uint32(1)<<sampleSize {
			return errResidualOverflow
		}

		k := minU32(log2Floor((history>>9)+3), p.MaximumK)
		writeGolomb(w, u-signModifier, k, uint32(sampleSize))
		signModifier = 0

		if u <= 0xFFFF {
			history += u*p.HistoryMultiplier - ((history * p.HistoryMultiplier) >> 9)
		} else {
			history = 0xFFFF
		}

		if history < 128 && i+1 < n {
			zeroRun := uint32(0)
			for i+1 < n && residuals[i+1] == 0 {
				zeroRun++
				i++
			}

			kPrime := minU32(7-log2Floor(history)+((history+16)>>6), p.MaximumK)
			writeGolomb(w, zeroRun, kPrime, 16)

			history = 0
			if zeroRun < 0xFFFF {
				signModifier = 1
			}
		}
	}

	return nil
}

// DecodeResidualBlock reads n residuals coded by EncodeResidualBlock.
func DecodeResidualBlock(r *BitReader, n int, sampleSize uint, p ResidualCoderParams) []int32 {
	history := p.InitialHistory
	signModifier := uint32(0)
	out := make([]int32, n)

	for i := 0; i < n; i++ {
		k := minU32(log2Floor((history>>9)+3), p.MaximumK)

		raw := readGolomb(r, k, uint32(sampleSize))
		u := raw + signModifier
		signModifier = 0

		out[i] = UnfoldSigned(u)

		if u <= 0xFFFF {
			history += u*p.HistoryMultiplier - ((history * p.HistoryMultiplier) >> 9)
		} else {
			history = 0xFFFF
		}

		if history < 128 && i+1 < n {
			kPrime := minU32(7-log2Floor(history)+((history+16)>>6), p.MaximumK)
			zeroRun := readGolomb(r, kPrime, 16)

			for j := uint32(0); j < zeroRun && i+1 < n; j++ {
				i++
				out[i] = 0
			}

			history = 0
			if zeroRun < 0xFFFF {
				signModifier = 1
			}
		}
	}

	return out
}

// writeGolomb emits value v at Rice parameter k with escape width
// escapeWidth (§4.E "Code a value v at parameter k and escape width W").
func writeGolomb(w *BitWriter, v, k, escapeWidth uint32) {
	if k == 0 {
		k = 1
	}

	divisor := uint32(1)<<k - 1
	msb := v / divisor
	lsb := v % divisor

	if msb > 8 {
		w.Write(0x1FF, 9)
		w.Write(v, uint8(escapeWidth))

		return
	}

	w.WriteUnary(msb)

	if k > 1 {
		if lsb > 0 {
			w.Write(lsb+1, uint8(k))
		} else {
			w.Write(0, uint8(k-1))
		}
	}
}

// readGolomb is the decode-side mirror of writeGolomb. When the unary run
// hits the 9-ones escape marker, it reads escapeWidth raw bits instead.
// Otherwise it reads k-1 bits and, only if those are nonzero, one more
// "bump" bit to complete a k-bit codeword — the two-length trick that lets
// writeGolomb use k-1 bits whenever lsb is zero.
func readGolomb(r *BitReader, k, escapeWidth uint32) uint32 {
	if k == 0 {
		k = 1
	}

	msb := r.ReadHuffmanMSB()
	if msb < 0 {
		return r.Read(uint8(escapeWidth))
	}

	divisor := uint32(1)<<k - 1

	if k == 1 {
		return uint32(msb) * divisor
	}

	partial := r.Read(uint8(k - 1))

	var lsb uint32
	if partial != 0 {
		bump := r.Read(1)
		val := (partial << 1) | bump
		lsb = val - 1
	}

	return uint32(msb)*divisor + lsb
}

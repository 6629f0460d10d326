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

// Adaptive integer LPC predictor (§4.D). The encode and decode sides share
// adaptCoefficients so their coefficient trajectories cannot drift apart
// (§9): encode adapts on the just-computed residual, decode adapts on the
// just-decoded residual, before either is added into the reconstruction.

// CalculateResiduals computes prediction residuals for samples using
// coeffs (order = len(coeffs)), mutating coeffs in place as the adaptive
// predictor evolves. shift is the fractional shift (9 on encode).
func CalculateResiduals(coeffs []int16, samples []int32, sampleSize uint, shift uint) []int32 {
	order := len(coeffs)
	n := len(samples)
	res := make([]int32, n)

	if n == 0 {
		return res
	}

	res[0] = samples[0]

	warmup := min(order, n-1)
	for i := 1; i <= warmup; i++ {
		res[i] = Truncate(int64(samples[i])-int64(samples[i-1]), sampleSize)
	}

	bias := int64(1) << (shift - 1)

	for i := order + 1; i < n; i++ {
		base := int64(samples[i-order-1])

		lpcSum := bias
		for j := range order {
			lpcSum += int64(coeffs[j]) * (int64(samples[i-j-1]) - base)
		}

		lpcSum >>= shift

		errVal := Truncate(int64(samples[i])-base-lpcSum, sampleSize)
		res[i] = errVal

		adaptCoefficients(coeffs, samples, i, order, int64(errVal), base, shift)
	}

	return res
}

// ReconstructSamples is the decode-side mirror of CalculateResiduals: it
// consumes decoded residuals and coeffs (order = len(coeffs)) and rebuilds
// the sample sequence, applying the identical adaptation rule to residual
// values before they are folded into the running reconstruction, per the
// decoder edge case in §4.D.
func ReconstructSamples(coeffs []int16, residuals []int32, shift uint) []int32 {
	order := len(coeffs)
	n := len(residuals)
	out := make([]int32, n)

	if n == 0 {
		return out
	}

	out[0] = residuals[0]

	warmup := min(order, n-1)
	for i := 1; i <= warmup; i++ {
		out[i] = out[i-1] + residuals[i]
	}

	bias := int64(1) << (shift - 1)

	for i := order + 1; i < n; i++ {
		base := int64(out[i-order-1])

		lpcSum := bias
		for j := range order {
			lpcSum += int64(coeffs[j]) * (int64(out[i-j-1]) - base)
		}

		lpcSum >>= shift

		errVal := int64(residuals[i])

		out[i] = int32(lpcSum + base + errVal)

		adaptCoefficients(coeffs, out, i, order, errVal, base, shift)
	}

	return out
}

// adaptCoefficients applies the self-adjusting coefficient update driven
// by the sign of errVal (§4.D step 5). samples is the reconstructed
// sequence on decode and the source samples on encode — in both cases the
// array whose already-known entries at i-order..i-1 the update reads back.
// shift is the same fractional shift the dot product above used; the
// adaptation term must scale by it too, not by a fixed constant, so a
// subframe with a wire shift_needed other than the encoder's default still
// adapts consistently between CalculateResiduals and ReconstructSamples.
func adaptCoefficients(coeffs []int16, samples []int32, i, order int, errVal int64, base int64, shift uint) {
	switch {
	case errVal > 0:
		for j := range order {
			diff := base - int64(samples[i-order+j])
			sign := SignOf64(diff)
			coeffs[order-j-1] -= int16(sign)
			errVal -= ((diff * sign) >> shift) * int64(j+1)

			if errVal <= 0 {
				break
			}
		}
	case errVal < 0:
		for j := range order {
			diff := base - int64(samples[i-order+j])
			sign := -SignOf64(diff)
			coeffs[order-j-1] -= int16(sign)
			errVal -= ((diff * sign) >> shift) * int64(j+1)

			if errVal >= 0 {
				break
			}
		}
	}
}

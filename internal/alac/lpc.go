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

import "math"

const (
	// QuantPrecision is the bit width of a quantised LPC coefficient.
	QuantPrecision = 16
	// QuantShift is the fractional shift embedded into quantised coefficients.
	QuantShift = 9
	// MaxLPCOrder is the highest LPC order the encoder computes and competes.
	MaxLPCOrder = 8
	// MaxCoefficients is the decoder's hard cap on a subframe's coefficient count.
	MaxCoefficients = 31

	qlpMax = 1<<(QuantPrecision-1) - 1
	qlpMin = -(1 << (QuantPrecision - 1))
)

// LevinsonDurbin runs the standard Levinson recursion over the
// autocorrelation vector r (length maxOrder+1) and returns, for every
// order i = 1..maxOrder, the LP coefficient vector of length i such that
// the predicted sample is sum(coef[j]*x[n-1-j]) for j = 0..i-1.
func LevinsonDurbin(r []float64, maxOrder int) [][]float64 {
	coeffsByOrder := make([][]float64, maxOrder)

	err := r[0]
	a := make([]float64, 0, maxOrder)

	for order := 1; order <= maxOrder; order++ {
		acc := r[order]
		for j := 1; j < order; j++ {
			acc -= a[j-1] * r[order-j]
		}

		var k float64
		if err != 0 {
			k = acc / err
		}

		next := make([]float64, order)
		for j := 0; j < order-1; j++ {
			next[j] = a[j] - k*a[order-2-j]
		}

		next[order-1] = k
		a = next

		err *= 1 - k*k

		coeffsByOrder[order-1] = append([]float64(nil), a...)
	}

	return coeffsByOrder
}

// QuantizeCoefficients quantises a length-O LP coefficient vector into
// signed 16-bit coefficients with a 9-bit fractional shift (§4.C). The
// running error accumulator is kept as an integer despite the
// intermediate sum being a float — matching the reference encoder's
// quantize_coefficients bit-for-bit, per the design note that this
// affects the emitted bitstream.
func QuantizeCoefficients(lp []float64) []int16 {
	qlp := make([]int16, len(lp))

	var runningError int64

	for i, c := range lp {
		sum := float64(runningError) + c*(1<<QuantShift)

		rounded := math.Round(sum)

		clamped := rounded
		if clamped > qlpMax {
			clamped = qlpMax
		} else if clamped < qlpMin {
			clamped = qlpMin
		}

		qlp[i] = int16(clamped)
		runningError = int64(sum - clamped)
	}

	return qlp
}

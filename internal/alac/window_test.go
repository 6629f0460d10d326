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
	"math"
	"testing"
)

func TestTukeyWindowShape(t *testing.T) {
	t.Parallel()

	w := TukeyWindow(64)

	if len(w) != 64 {
		t.Fatalf("TukeyWindow returned %d samples, want 64", len(w))
	}

	if math.Abs(w[0]) > 1e-9 {
		t.Errorf("w[0] = %v, want ~0 at the taper edge", w[0])
	}

	mid := len(w) / 2
	if w[mid] < 0.99 {
		t.Errorf("w[%d] = %v, want ~1 in the flat middle", mid, w[mid])
	}

	for i, v := range w {
		if v < -1e-9 || v > 1+1e-9 {
			t.Errorf("w[%d] = %v out of [0,1]", i, v)
		}
	}
}

func TestTukeyWindowTinyBlockIsFlat(t *testing.T) {
	t.Parallel()

	w := TukeyWindow(2)
	for i, v := range w {
		if v != 1 {
			t.Errorf("w[%d] = %v, want 1 for a too-small block", i, v)
		}
	}
}

func TestWindowSignal(t *testing.T) {
	t.Parallel()

	window := []float64{0.5, 1, 0.5}
	samples := []int32{10, 20, 30}
	dst := make([]float64, 3)

	WindowSignal(dst, window, samples)

	want := []float64{5, 20, 15}
	for i := range dst {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestAutocorrelateZeroLagIsEnergy(t *testing.T) {
	t.Parallel()

	signal := []float64{1, 2, 3, 4}

	r := Autocorrelate(signal, 2)
	if len(r) != 3 {
		t.Fatalf("Autocorrelate returned %d lags, want 3", len(r))
	}

	want0 := 1.0 + 4 + 9 + 16
	if r[0] != want0 {
		t.Errorf("r[0] = %v, want %v", r[0], want0)
	}

	// r[m] must never exceed r[0] in magnitude for a real-valued signal.
	for m, v := range r {
		if math.Abs(v) > r[0]+1e-9 {
			t.Errorf("r[%d] = %v exceeds zero-lag energy %v", m, v, r[0])
		}
	}
}

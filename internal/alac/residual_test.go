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

func testResidualParams() ResidualCoderParams {
	return ResidualCoderParams{
		InitialHistory:    10,
		HistoryMultiplier: 40,
		MaximumK:          14,
	}
}

func TestEncodeDecodeResidualBlockRoundTrip(t *testing.T) {
	t.Parallel()

	residuals := make([]int32, 512)

	seed := uint32(1)
	for i := range residuals {
		seed = seed*1664525 + 1013904223
		residuals[i] = int32(seed>>20) % 200 //nolint:gosec // deterministic small residual magnitudes
	}

	// Sprinkle in negatives and a long zero run to exercise the zero-run path.
	for i := 0; i < len(residuals); i += 7 {
		residuals[i] = -residuals[i]
	}

	for i := 100; i < 140; i++ {
		residuals[i] = 0
	}

	var w BitWriter

	if err := EncodeResidualBlock(&w, residuals, 16, testResidualParams()); err != nil {
		t.Fatalf("EncodeResidualBlock: %v", err)
	}

	w.ByteAlign()

	var r BitReader
	r.Reset(w.Bytes())

	got := DecodeResidualBlock(&r, len(residuals), 16, testResidualParams())

	if len(got) != len(residuals) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(residuals))
	}

	for i := range residuals {
		if got[i] != residuals[i] {
			t.Fatalf("residual[%d] = %d, want %d", i, got[i], residuals[i])
		}
	}
}

func TestEncodeResidualBlockOverflow(t *testing.T) {
	t.Parallel()

	// A folded magnitude of 2^sampleSize or more must be rejected.
	residuals := []int32{1 << 15}

	var w BitWriter

	err := EncodeResidualBlock(&w, residuals, 16, testResidualParams())
	if err == nil {
		t.Fatal("expected overflow error for a residual at the sampleSize boundary")
	}
}

func TestEncodeResidualBlockAllZero(t *testing.T) {
	t.Parallel()

	residuals := make([]int32, 256)

	var w BitWriter

	if err := EncodeResidualBlock(&w, residuals, 16, testResidualParams()); err != nil {
		t.Fatalf("EncodeResidualBlock: %v", err)
	}

	w.ByteAlign()

	var r BitReader
	r.Reset(w.Bytes())

	got := DecodeResidualBlock(&r, len(residuals), 16, testResidualParams())

	for i, v := range got {
		if v != 0 {
			t.Fatalf("residual[%d] = %d, want 0", i, v)
		}
	}
}

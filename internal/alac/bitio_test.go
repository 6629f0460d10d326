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

func TestBitWriterReaderRoundTrip(t *testing.T) {
	t.Parallel()

	var w BitWriter

	type field struct {
		v    uint32
		bits uint8
	}

	fields := []field{
		{0x1, 1}, {0x0, 1}, {0xAB, 8}, {0x3FFF, 14}, {0x1, 3}, {0xFFFFFFFF, 32}, {0, 32},
	}

	for _, f := range fields {
		w.Write(f.v, f.bits)
	}

	w.ByteAlign()

	var r BitReader
	r.Reset(w.Bytes())

	for _, f := range fields {
		got := r.Read(f.bits)
		want := f.v & (uint32(1)<<f.bits - 1)

		if f.bits == 32 {
			want = f.v
		}

		if got != want {
			t.Errorf("Read(%d) = %#x, want %#x", f.bits, got, want)
		}
	}
}

func TestBitWriterUnary(t *testing.T) {
	t.Parallel()

	var w BitWriter

	w.WriteUnary(0)
	w.WriteUnary(3)
	w.WriteUnary(1)
	w.ByteAlign()

	var r BitReader
	r.Reset(w.Bytes())

	// unary(0) -> "0", unary(3) -> "1110", unary(1) -> "10"
	if got := r.ReadOne(); got != 0 {
		t.Fatalf("unary(0) first bit = %d, want 0", got)
	}

	ones := 0
	for r.ReadOne() == 1 {
		ones++
	}

	if ones != 3 {
		t.Fatalf("unary(3) leading ones = %d, want 3", ones)
	}

	if got := r.ReadOne(); got != 1 {
		t.Fatalf("unary(1) first bit = %d, want 1", got)
	}

	if got := r.ReadOne(); got != 0 {
		t.Fatalf("unary(1) terminator = %d, want 0", got)
	}
}

func TestBitWriterCopyIntoUnaligned(t *testing.T) {
	t.Parallel()

	var rec Recorder
	rec.Write(0x3, 2)
	rec.Write(0x15, 5)

	var dst BitWriter
	dst.Write(0x1, 1)
	rec.CopyInto(&dst)
	dst.ByteAlign()

	var r BitReader
	r.Reset(dst.Bytes())

	if got := r.Read(1); got != 0x1 {
		t.Errorf("prefix bit = %#x, want 0x1", got)
	}

	if got := r.Read(2); got != 0x3 {
		t.Errorf("recorder field 1 = %#x, want 0x3", got)
	}

	if got := r.Read(5); got != 0x15 {
		t.Errorf("recorder field 2 = %#x, want 0x15", got)
	}
}

func TestSwapRecorders(t *testing.T) {
	t.Parallel()

	var a, b Recorder
	a.Write(0xAA, 8)
	b.Write(0xBB, 8)

	SwapRecorders(&a, &b)

	if a.Bytes()[0] != 0xBB || b.Bytes()[0] != 0xAA {
		t.Fatalf("swap did not exchange contents: a=%v b=%v", a.Bytes(), b.Bytes())
	}
}

func TestBitReaderHuffmanMSBEscape(t *testing.T) {
	t.Parallel()

	var w BitWriter
	w.Write(0x1FF, 9) // nine ones: the escape marker
	w.ByteAlign()

	var r BitReader
	r.Reset(w.Bytes())

	if got := r.ReadHuffmanMSB(); got != -1 {
		t.Fatalf("ReadHuffmanMSB() = %d, want -1 (escape)", got)
	}
}

func TestBitReaderHuffmanMSBRuns(t *testing.T) {
	t.Parallel()

	for run := range 9 {
		var w BitWriter
		w.WriteUnary(uint32(run))
		w.Write(0, 8) // padding so peek9 never reads past the buffer
		w.ByteAlign()

		var r BitReader
		r.Reset(w.Bytes())

		if got := r.ReadHuffmanMSB(); got != int32(run) {
			t.Errorf("run %d: ReadHuffmanMSB() = %d, want %d", run, got, run)
		}
	}
}

func TestBitReaderPastEnd(t *testing.T) {
	t.Parallel()

	var w BitWriter
	w.Write(0xFF, 8)

	var r BitReader
	r.Reset(w.Bytes())

	if r.PastEnd() {
		t.Fatal("PastEnd() true before any read")
	}

	r.Read(8)

	if !r.PastEnd() {
		t.Fatal("PastEnd() false after consuming the entire buffer")
	}
}

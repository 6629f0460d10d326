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

// BitWriter accumulates a big-endian, MSB-first bit stream into an
// in-memory byte buffer. It has no notion of an outer sink; callers flush
// Bytes() into one once the writer is byte-aligned, or use Recorder's
// CopyInto for the non-byte-aligned case (§4.A).
type BitWriter struct {
	buf   []byte
	acc   uint64
	nbits uint8 // valid low bits in acc not yet flushed to buf, 0-7
}

// Reset empties the writer for reuse without releasing its backing array.
func (w *BitWriter) Reset() {
	w.buf = w.buf[:0]
	w.acc = 0
	w.nbits = 0
}

// Write emits the low numBits bits of v, MSB first. numBits must be 0-32.
func (w *BitWriter) Write(v uint32, numBits uint8) {
	if numBits == 0 {
		return
	}

	mask := uint64(1)<<numBits - 1
	w.acc = (w.acc << numBits) | (uint64(v) & mask)
	w.nbits += numBits

	for w.nbits >= 8 {
		w.nbits -= 8
		w.buf = append(w.buf, byte(w.acc>>w.nbits))
	}
}

// WriteSigned emits the low numBits bits of the two's-complement
// representation of v.
func (w *BitWriter) WriteSigned(v int32, numBits uint8) {
	w.Write(uint32(v), numBits)
}

// WriteUnary emits count one-bits followed by a terminating zero bit.
// count must be small enough that count+1 <= 32 (the residual coder never
// calls this with count above 8, per the 9-ones escape threshold).
func (w *BitWriter) WriteUnary(count uint32) {
	ones := (uint32(1)<<count - 1) << 1
	w.Write(ones, uint8(count+1))
}

// ByteAlign pads with zero bits up to the next byte boundary.
func (w *BitWriter) ByteAlign() {
	if w.nbits > 0 {
		w.Write(0, 8-w.nbits)
	}
}

// BitsWritten returns the total number of bits written so far.
func (w *BitWriter) BitsWritten() int64 {
	return int64(len(w.buf))*8 + int64(w.nbits)
}

// Bytes returns the writer's buffer. Valid only when byte-aligned
// (nbits == 0); callers that need the partial trailing byte should use
// CopyInto instead.
func (w *BitWriter) Bytes() []byte {
	return w.buf
}

// CopyInto appends the exact bit sequence written so far — including any
// partial trailing byte — onto dst, without requiring either writer to be
// byte-aligned. This is how a Recorder's contents get spliced into an
// outer stream (§9: "reusable bit recorders").
func (w *BitWriter) CopyInto(dst *BitWriter) {
	for _, b := range w.buf {
		dst.Write(uint32(b), 8)
	}

	if w.nbits > 0 {
		dst.Write(uint32(w.acc)&(1<<w.nbits-1), w.nbits)
	}
}

// Recorder is a BitWriter used as a length-comparison scratch buffer: the
// frame writer records a candidate encoding, inspects BitsWritten, and
// either discards it or splices it into the real output stream. Recorders
// are plain value types so that swapping two of them (the "best
// interlaced frame" search) is an O(1) field exchange, not a copy.
type Recorder = BitWriter

// SwapRecorders exchanges the contents of two recorders in O(1).
func SwapRecorders(a, b *Recorder) {
	*a, *b = *b, *a
}

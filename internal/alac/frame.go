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

// FrameOptions bundles the per-stream tunables a frame encode/decode needs
// from the codec's configuration (§3): the adaptive residual coder's
// history parameters and the stereo decorrelator's leftweight search
// bounds. The root package's Options is translated into this shape once
// per stream so this package never imports it.
type FrameOptions struct {
	InitialHistory    uint32
	HistoryMultiplier uint32
	MaximumK          uint32
	MinLeftweight     int32
	MaxLeftweight     int32

	// Window is the Tukey window precomputed once over block_size samples
	// (§4.B). planSubframe slices its first len(samples) entries rather
	// than recomputing a window shaped to a short final block.
	Window []float64
}

func (o FrameOptions) residualParams() ResidualCoderParams {
	return ResidualCoderParams{
		InitialHistory:    o.InitialHistory,
		HistoryMultiplier: o.HistoryMultiplier,
		MaximumK:          o.MaximumK,
	}
}

// subframePlan is one channel's chosen LPC order, its (pre-adaptation)
// header coefficients, and the residuals CalculateResiduals produced for
// them.
type subframePlan struct {
	coeffs    []int16
	residuals []int32
}

// planSubframe runs the LPC order-4/order-8 competition for one channel's
// samples (§4.C, §4.G "Frame") and returns the winning plan plus its total
// encoded bit length (subframe header + residual block). It fails only when
// every competing order's residual block overflows the escape threshold.
func planSubframe(samples []int32, sampleSize uint, opts FrameOptions) (subframePlan, int64, error) {
	window := opts.Window[:len(samples)]
	windowed := make([]float64, len(samples))
	WindowSignal(windowed, window, samples)

	r := Autocorrelate(windowed, MaxLPCOrder)

	if r[0] == 0 {
		cand := subframePlan{coeffs: make([]int16, 4)}
		cand.residuals = CalculateResiduals(append([]int16(nil), cand.coeffs...), samples, sampleSize, QuantShift)

		headerBits, residualBits, err := measureSubframe(cand, sampleSize, opts)
		if err != nil {
			return subframePlan{}, 0, errResidualOverflow
		}

		return cand, headerBits + residualBits, nil
	}

	byOrder := LevinsonDurbin(r, MaxLPCOrder)

	cand4 := buildSubframeCandidate(byOrder[3], samples, sampleSize)
	cand8 := buildSubframeCandidate(byOrder[7], samples, sampleSize)

	header4, residual4, err4 := measureSubframe(cand4, sampleSize, opts)
	header8, residual8, err8 := measureSubframe(cand8, sampleSize, opts)

	switch {
	case err4 != nil && err8 != nil:
		return subframePlan{}, 0, errResidualOverflow
	case err4 != nil:
		return cand8, header8 + residual8, nil
	case err8 != nil:
		return cand4, header4 + residual4, nil
	case residual4 < residual8+64:
		return cand4, header4 + residual4, nil
	default:
		return cand8, header8 + residual8, nil
	}
}

func buildSubframeCandidate(lp []float64, samples []int32, sampleSize uint) subframePlan {
	qlp := QuantizeCoefficients(lp)
	working := append([]int16(nil), qlp...)
	residuals := CalculateResiduals(working, samples, sampleSize, QuantShift)

	return subframePlan{coeffs: qlp, residuals: residuals}
}

// measureSubframe encodes plan into a scratch recorder to learn its exact
// bit length without committing it to the real output stream.
func measureSubframe(plan subframePlan, sampleSize uint, opts FrameOptions) (headerBits, residualBits int64, err error) {
	var rec Recorder

	writeSubframeHeader(&rec, plan.coeffs)
	headerBits = rec.BitsWritten()

	if err := EncodeResidualBlock(&rec, plan.residuals, sampleSize, opts.residualParams()); err != nil {
		return 0, 0, err
	}

	return headerBits, rec.BitsWritten() - headerBits, nil
}

func writeSubframeHeader(w *BitWriter, coeffs []int16) {
	w.Write(0, 4) // prediction_type: always 0, the only type this codec emits
	w.Write(QuantShift, 4)
	w.Write(4, 3) // rice_modifier: fixed, unused by this codec's residual coder
	w.Write(uint32(len(coeffs)), 5)

	for _, c := range coeffs {
		w.WriteSigned(int32(c), 16)
	}
}

// readSubframeHeader reads a subframe header, returning its coefficients
// and the shift_needed field (honoured verbatim, unlike rice_modifier).
func readSubframeHeader(r *BitReader) (coeffs []int16, shift uint, err error) {
	predType := r.ReadSmall(4)
	if predType != 0 {
		return nil, 0, ErrInvalidPredictionType
	}

	shift = uint(r.ReadSmall(4))
	r.ReadSmall(3) // rice_modifier, not used by this codec's decoder

	count := r.ReadSmall(5)
	coeffs = make([]int16, count)

	for i := range coeffs {
		coeffs[i] = int16(r.ReadSigned(16))
	}

	return coeffs, shift, nil
}

func writeFrameHeader(w *BitWriter, hasSampleCount bool, uncompressedLSBs uint8, isUncompressed bool, n uint32) {
	w.Write(0, 16)

	if hasSampleCount {
		w.Write(1, 1)
	} else {
		w.Write(0, 1)
	}

	w.Write(uint32(uncompressedLSBs), 2)

	if isUncompressed {
		w.Write(1, 1)
	} else {
		w.Write(0, 1)
	}

	if hasSampleCount {
		w.Write(n, 32)
	}
}

func writeUncompressedFrame(w *BitWriter, channels [][]int32, bitsPerSample uint, hasSampleCount bool, n uint32) {
	writeFrameHeader(w, hasSampleCount, 0, true, n)

	for i := uint32(0); i < n; i++ {
		for c := range channels {
			w.WriteSigned(channels[c][i], uint8(bitsPerSample))
		}
	}
}

// EncodeFrame encodes one frame group's worth of samples (one or two
// channels) into sink, choosing between a compressed subframe encoding and
// the uncompressed fallback (§4.G "Frame"). blockSize is the stream's
// configured block size; a channels[*] length below it marks the final,
// short frame of the stream.
func EncodeFrame(sink *BitWriter, channels [][]int32, bitsPerSample uint, blockSize uint32, opts FrameOptions) {
	n := uint32(len(channels[0]))
	hasSampleCount := n != blockSize

	if n < 10 {
		writeUncompressedFrame(sink, channels, bitsPerSample, hasSampleCount, n)
		return
	}

	var rec Recorder
	if err := tryCompressedFrame(&rec, channels, bitsPerSample, hasSampleCount, n, opts); err != nil {
		writeUncompressedFrame(sink, channels, bitsPerSample, hasSampleCount, n)
		return
	}

	rec.CopyInto(sink)
}

func tryCompressedFrame(w *BitWriter, channels [][]int32, bitsPerSample uint, hasSampleCount bool, n uint32, opts FrameOptions) error {
	numCh := len(channels)
	shiftBits := uint((bitsPerSample - 16) / 8 * 8)
	predBits := bitsPerSample - shiftBits

	msb := make([][]int32, numCh)
	lsb := make([][]uint32, numCh)

	for c := range channels {
		msb[c] = make([]int32, n)
		if shiftBits > 0 {
			lsb[c] = make([]uint32, n)
		}

		mask := int32(1)<<shiftBits - 1

		for i, s := range channels[c] {
			if shiftBits > 0 {
				lsb[c][i] = uint32(s) & uint32(mask)
				msb[c][i] = s >> shiftBits
			} else {
				msb[c][i] = s
			}
		}
	}

	sampleSize := predBits
	if numCh == 2 {
		sampleSize++
	}

	var shift, leftweight int32

	if numCh == 2 {
		c0 := make([]int32, n)
		c1 := make([]int32, n)

		var best, work Recorder

		haveBest := false

		for lw := opts.MinLeftweight; lw <= opts.MaxLeftweight; lw++ {
			CorrelateChannels(c0, c1, msb[0], msb[1], InterlacingShift, lw)

			p0, _, err0 := planSubframe(c0, sampleSize, opts)
			if err0 != nil {
				continue
			}

			p1, _, err1 := planSubframe(c1, sampleSize, opts)
			if err1 != nil {
				continue
			}

			work.Reset()
			writeSubframeHeader(&work, p0.coeffs)
			writeSubframeHeader(&work, p1.coeffs)
			writeLSBs(&work, lsb, shiftBits, n, numCh)

			if err := EncodeResidualBlock(&work, p0.residuals, sampleSize, opts.residualParams()); err != nil {
				continue
			}

			if err := EncodeResidualBlock(&work, p1.residuals, sampleSize, opts.residualParams()); err != nil {
				continue
			}

			if !haveBest || work.BitsWritten() < best.BitsWritten() {
				haveBest = true
				shift = InterlacingShift
				leftweight = lw
				SwapRecorders(&best, &work)
			}
		}

		if !haveBest {
			return errResidualOverflow
		}

		writeFrameHeader(w, hasSampleCount, uint8(shiftBits/8), false, n)
		w.Write(uint32(shift), 8)
		w.Write(uint32(leftweight), 8)
		best.CopyInto(w)

		return nil
	}

	planL, _, err := planSubframe(msb[0], sampleSize, opts)
	if err != nil {
		return err
	}

	writeFrameHeader(w, hasSampleCount, uint8(shiftBits/8), false, n)
	w.Write(uint32(shift), 8)
	w.Write(uint32(leftweight), 8)
	writeSubframeHeader(w, planL.coeffs)
	writeLSBs(w, lsb, shiftBits, n, numCh)

	// The residual block was already validated overflow-free by
	// planSubframe/measureSubframe above; this call cannot fail.
	_ = EncodeResidualBlock(w, planL.residuals, sampleSize, opts.residualParams())

	return nil
}

// writeLSBs writes the interleaved low-order bits shiftBits stripped from
// each sample, if any, in channel-minor order for each of the n samples.
func writeLSBs(w *BitWriter, lsb [][]uint32, shiftBits uint, n uint32, numCh int) {
	if shiftBits == 0 {
		return
	}

	for i := uint32(0); i < n; i++ {
		for c := 0; c < numCh; c++ {
			w.Write(lsb[c][i], uint8(shiftBits))
		}
	}
}

// DecodeFrame reads one frame group's worth of samples for numCh channels.
func DecodeFrame(r *BitReader, numCh int, bitsPerSample uint, blockSize uint32, opts FrameOptions) ([][]int32, uint32, error) {
	r.Read(16) // reserved

	hasSampleCount := r.ReadOne() != 0
	uLSB := r.ReadSmall(2)
	isUncompressed := r.ReadOne() != 0

	n := blockSize
	if hasSampleCount {
		n = r.Read(32)
	}

	if isUncompressed {
		channels := make([][]int32, numCh)
		for c := range channels {
			channels[c] = make([]int32, n)
		}

		for i := uint32(0); i < n; i++ {
			for c := 0; c < numCh; c++ {
				channels[c][i] = r.ReadSigned(uint8(bitsPerSample))
			}
		}

		return channels, n, nil
	}

	shift := int32(r.Read(8))
	leftweight := int32(r.Read(8))

	coeffs0, shiftNeeded0, err := readSubframeHeader(r)
	if err != nil {
		return nil, 0, err
	}

	var coeffs1 []int16
	var shiftNeeded1 uint

	if numCh == 2 {
		coeffs1, shiftNeeded1, err = readSubframeHeader(r)
		if err != nil {
			return nil, 0, err
		}
	}

	shiftBits := uint(uLSB) * 8
	predBits := bitsPerSample - shiftBits

	sampleSize := predBits
	if numCh == 2 {
		sampleSize++
	}

	var lsb [][]uint32
	if shiftBits > 0 {
		lsb = make([][]uint32, numCh)
		for c := range lsb {
			lsb[c] = make([]uint32, n)
		}

		for i := uint32(0); i < n; i++ {
			for c := 0; c < numCh; c++ {
				lsb[c][i] = r.Read(uint8(shiftBits))
			}
		}
	}

	residuals0 := DecodeResidualBlock(r, int(n), sampleSize, opts.residualParams())
	c0 := ReconstructSamples(append([]int16(nil), coeffs0...), residuals0, shiftNeeded0)

	msb := make([][]int32, numCh)

	if numCh == 2 {
		residuals1 := DecodeResidualBlock(r, int(n), sampleSize, opts.residualParams())
		c1 := ReconstructSamples(append([]int16(nil), coeffs1...), residuals1, shiftNeeded1)

		msb[0] = make([]int32, n)
		msb[1] = make([]int32, n)
		DecorrelateChannels(msb[0], msb[1], c0, c1, shift, leftweight)
	} else {
		msb[0] = c0
	}

	channels := make([][]int32, numCh)
	for c := range channels {
		channels[c] = make([]int32, n)

		for i := uint32(0); i < n; i++ {
			v := msb[c][i]
			if shiftBits > 0 {
				v = (v << shiftBits) | int32(lsb[c][i])
			}

			channels[c][i] = v
		}
	}

	return channels, n, nil
}

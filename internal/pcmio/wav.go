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

// Package pcmio implements the minimal RIFF/WAVE reader and writer needed
// to feed cmd/alaccore's encode/decode paths real files, satisfying the
// root package's PCMSource/PCMSink interfaces without the core codec ever
// depending on a file format.
package pcmio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotWAV indicates the input is not a RIFF/WAVE stream.
	ErrNotWAV = errors.New("pcmio: not a RIFF/WAVE file")
	// ErrUnsupportedFormat indicates a WAVE format this reader can't handle
	// (compressed audio, float samples, unsupported bit depth).
	ErrUnsupportedFormat = errors.New("pcmio: unsupported WAVE format")
	// ErrNoDataChunk indicates the WAVE file has no data chunk.
	ErrNoDataChunk = errors.New("pcmio: no data chunk found")
)

const (
	wavFormatPCM   = 1
	riffHeaderLen  = 12
	chunkHeaderLen = 8
)

// Format describes a WAVE stream's PCM layout.
type Format struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// Reader reads interleaved PCM frames from a RIFF/WAVE stream, implementing
// the root package's PCMSource interface.
type Reader struct {
	r              io.Reader
	format         Format
	bytesPerSample int
	remaining      int64 // bytes left in the data chunk
	scratch        []byte
}

// NewReader parses a WAVE header from r and returns a Reader positioned at
// the start of the data chunk.
func NewReader(r io.Reader) (*Reader, error) {
	var riffHdr [riffHeaderLen]byte
	if _, err := io.ReadFull(r, riffHdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWAV, err)
	}

	if string(riffHdr[0:4]) != "RIFF" || string(riffHdr[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	reader := &Reader{r: r}

	var haveFmt bool

	for {
		var hdr [chunkHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if haveFmt {
				return nil, ErrNoDataChunk
			}

			return nil, fmt.Errorf("%w: %w", ErrNotWAV, err)
		}

		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if err := reader.readFmtChunk(size); err != nil {
				return nil, err
			}

			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, ErrUnsupportedFormat
			}

			reader.remaining = size
			reader.bytesPerSample = bytesPerSample(reader.format.BitDepth)

			return reader, nil

		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, fmt.Errorf("%w: skipping chunk %q: %w", ErrNotWAV, id, err)
			}
		}
	}
}

func (r *Reader) readFmtChunk(size int64) error {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return fmt.Errorf("%w: reading fmt chunk: %w", ErrNotWAV, err)
	}

	if len(buf) < 16 { //nolint:mnd // minimum PCM fmt chunk size per RIFF spec
		return ErrUnsupportedFormat
	}

	audioFormat := binary.LittleEndian.Uint16(buf[0:2])
	if audioFormat != wavFormatPCM {
		return ErrUnsupportedFormat
	}

	r.format = Format{
		Channels:   int(binary.LittleEndian.Uint16(buf[2:4])),
		SampleRate: int(binary.LittleEndian.Uint32(buf[4:8])),
		BitDepth:   int(binary.LittleEndian.Uint16(buf[14:16])),
	}

	if size%2 != 0 {
		var pad [1]byte
		if _, err := io.ReadFull(r.r, pad[:]); err != nil {
			return fmt.Errorf("%w: %w", ErrNotWAV, err)
		}
	}

	return nil
}

// Format returns the stream's PCM format, valid once NewReader returns.
func (r *Reader) Format() Format {
	return r.format
}

// Read fills frames (one []int32 per channel, all the same length) from the
// remaining data chunk, satisfying the root package's PCMSource interface.
func (r *Reader) Read(frames [][]int32) (int, error) {
	if len(frames) != r.format.Channels {
		return 0, fmt.Errorf("%w: reader has %d channels, frames has %d", ErrUnsupportedFormat, r.format.Channels, len(frames))
	}

	want := len(frames[0])
	frameBytes := r.format.Channels * r.bytesPerSample
	need := int64(want) * int64(frameBytes)

	if need > r.remaining {
		need = r.remaining
	}

	n := int(need / int64(frameBytes))
	if n == 0 {
		return 0, io.EOF
	}

	byteLen := n * frameBytes
	if cap(r.scratch) < byteLen {
		r.scratch = make([]byte, byteLen)
	}

	buf := r.scratch[:byteLen]

	if _, err := io.ReadFull(r.r, buf); err != nil {
		return 0, fmt.Errorf("pcmio: reading pcm data: %w", err)
	}

	r.remaining -= int64(byteLen)

	unpackLE(frames, buf, r.bytesPerSample, n)

	var err error
	if r.remaining == 0 {
		err = io.EOF
	}

	return n, err
}

// Writer writes interleaved PCM frames into a RIFF/WAVE stream, satisfying
// the root package's PCMSink interface. Header sizes are patched on Close,
// so the destination must support Seek.
type Writer struct {
	w              io.WriteSeeker
	format         Format
	bytesPerSample int
	dataBytes      int64
	scratch        []byte
}

// NewWriter writes a placeholder WAVE header (patched by Close) and returns
// a Writer ready to accept PCM frames.
func NewWriter(w io.WriteSeeker, format Format) (*Writer, error) {
	writer := &Writer{
		w:              w,
		format:         format,
		bytesPerSample: bytesPerSample(format.BitDepth),
	}

	if err := writer.writeHeader(); err != nil {
		return nil, err
	}

	return writer, nil
}

func (w *Writer) writeHeader() error {
	var hdr [44]byte //nolint:mnd // fixed 44-byte canonical WAVE header

	copy(hdr[0:4], "RIFF")
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) //nolint:mnd // PCM fmt chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(w.format.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(w.format.SampleRate))

	blockAlign := w.format.Channels * w.bytesPerSample
	byteRate := w.format.SampleRate * blockAlign
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(w.format.BitDepth))
	copy(hdr[36:40], "data")

	_, err := w.w.Write(hdr[:])

	return err
}

// Write appends one block of interleaved PCM frames.
func (w *Writer) Write(frames [][]int32) error {
	n := len(frames[0])
	frameBytes := w.format.Channels * w.bytesPerSample
	byteLen := n * frameBytes

	if cap(w.scratch) < byteLen {
		w.scratch = make([]byte, byteLen)
	}

	buf := w.scratch[:byteLen]
	packLE(buf, frames, w.bytesPerSample, n)

	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("pcmio: writing pcm data: %w", err)
	}

	w.dataBytes += int64(byteLen)

	return nil
}

// WriteRaw appends already-interleaved PCM bytes verbatim, for callers (such
// as a Decoder) that produce packed little-endian PCM directly rather than
// per-channel []int32 frames.
func (w *Writer) WriteRaw(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.dataBytes += int64(n)

	if err != nil {
		return n, fmt.Errorf("pcmio: writing raw pcm data: %w", err)
	}

	return n, nil
}

// Close patches the RIFF and data chunk sizes now that the total PCM byte
// length is known.
func (w *Writer) Close() error {
	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("pcmio: seeking to riff size: %w", err)
	}

	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(riffHeaderLen+chunkHeaderLen+16+chunkHeaderLen+w.dataBytes-8)) //nolint:mnd

	if _, err := w.w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("pcmio: patching riff size: %w", err)
	}

	if _, err := w.w.Seek(40, io.SeekStart); err != nil { //nolint:mnd // offset of the data chunk's size field
		return fmt.Errorf("pcmio: seeking to data size: %w", err)
	}

	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(w.dataBytes))

	if _, err := w.w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("pcmio: patching data size: %w", err)
	}

	return nil
}

func bytesPerSample(bitDepth int) int {
	return (bitDepth + 7) / 8 //nolint:mnd
}

//nolint:gosec // Integer conversions match fixed-width PCM sample packing.
func unpackLE(frames [][]int32, buf []byte, bps, n int) {
	shift := uint(32 - bps*8)
	off := 0

	for i := 0; i < n; i++ {
		for c := range frames {
			var v int32
			for b := 0; b < bps; b++ {
				v |= int32(buf[off+b]) << (8 * b)
			}

			off += bps
			frames[c][i] = (v << shift) >> shift
		}
	}
}

//nolint:gosec // Integer conversions match fixed-width PCM sample packing.
func packLE(dst []byte, frames [][]int32, bps, n int) {
	off := 0

	for i := 0; i < n; i++ {
		for c := range frames {
			v := frames[c][i]
			for b := 0; b < bps; b++ {
				dst[off] = byte(v >> (8 * b))
				off++
			}
		}
	}
}

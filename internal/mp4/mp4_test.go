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

package mp4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// fixtureM4A builds a small, well-formed M4A container via WriteM4A, the
// same helper the round-trip tests use, so corruption tests exercise
// FindALACTrack against this package's own muxer output instead of an
// external encoder.
func fixtureM4A(t *testing.T) []byte {
	t.Helper()

	cookie := make([]byte, 24)
	for i := range cookie {
		cookie[i] = byte(i + 1)
	}

	cfg := MuxConfig{
		NumChannels: 2,
		SampleRate:  44100,
		BitDepth:    16,
		MagicCookie: cookie,
	}

	packets := []Packet{
		{Data: bytes.Repeat([]byte{0xAA}, 100), Frames: 4096},
		{Data: bytes.Repeat([]byte{0xBB}, 80), Frames: 4096},
	}

	var buf bytes.Buffer
	if err := WriteM4A(&buf, cfg, packets); err != nil {
		t.Fatalf("WriteM4A: %v", err)
	}

	return buf.Bytes()
}

// findFourCCOffset returns the offset of the first box header whose type
// field matches fourcc, searching bytes 4-7 of each candidate header.
func findFourCCOffset(data []byte, fourcc string) int {
	tag := []byte(fourcc)

	for i := 0; i+7 < len(data); i++ {
		if data[i+4] == tag[0] && data[i+5] == tag[1] && data[i+6] == tag[2] && data[i+7] == tag[3] {
			return i
		}
	}

	return -1
}

func TestFindALACTrackEmptyReader(t *testing.T) {
	t.Parallel()

	_, _, err := FindALACTrack(bytes.NewReader(nil))
	if !errors.Is(err, ErrNoALACTrack) {
		t.Fatalf("FindALACTrack(empty) = %v, want ErrNoALACTrack", err)
	}
}

func TestFindALACTrackGarbageData(t *testing.T) {
	t.Parallel()

	garbage := bytes.Repeat([]byte{0xDE, 0xAD}, 1024)

	_, _, err := FindALACTrack(bytes.NewReader(garbage))
	if !errors.Is(err, ErrNoALACTrack) {
		t.Fatalf("FindALACTrack(garbage) = %v, want ErrNoALACTrack", err)
	}
}

func TestFindALACTrackTruncatedBeforeMoov(t *testing.T) {
	t.Parallel()

	data := fixtureM4A(t)

	moovOff := findFourCCOffset(data, "moov")
	if moovOff < 0 {
		t.Fatal("moov not found in fixture")
	}

	_, _, err := FindALACTrack(bytes.NewReader(data[:moovOff]))
	if !errors.Is(err, ErrNoALACTrack) {
		t.Fatalf("FindALACTrack(truncated before moov) = %v, want ErrNoALACTrack", err)
	}
}

func TestFindALACTrackCorruptedStsd(t *testing.T) {
	t.Parallel()

	data := fixtureM4A(t)

	stsdOff := findFourCCOffset(data, "stsd")
	if stsdOff < 0 {
		t.Fatal("stsd not found in fixture")
	}

	corrupted := append([]byte(nil), data...)
	for i := stsdOff + 8; i < stsdOff+40 && i < len(corrupted); i++ {
		corrupted[i] = 0xFF
	}

	_, _, err := FindALACTrack(bytes.NewReader(corrupted))
	if !errors.Is(err, ErrNoALACTrack) {
		t.Fatalf("FindALACTrack(corrupted stsd) = %v, want ErrNoALACTrack", err)
	}
}

func TestFindALACTrackZeroedStszSampleCount(t *testing.T) {
	t.Parallel()

	data := fixtureM4A(t)

	stszOff := findFourCCOffset(data, "stsz")
	if stszOff < 0 {
		t.Fatal("stsz not found in fixture")
	}

	// stsz layout: size(4) type(4) version+flags(4) sampleSize(4) sampleCount(4) ...
	countOff := stszOff + 16

	corrupted := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(corrupted[countOff:], 0)

	_, samples, err := FindALACTrack(bytes.NewReader(corrupted))
	if err != nil {
		t.Fatalf("FindALACTrack(zeroed stsz count): %v", err)
	}

	if len(samples) != 0 {
		t.Fatalf("sample count = %d, want 0", len(samples))
	}
}

func TestFindALACTrackMissingChunkOffsetBox(t *testing.T) {
	t.Parallel()

	data := fixtureM4A(t)

	stcoOff := findFourCCOffset(data, "stco")
	if stcoOff < 0 {
		t.Fatal("stco not found in fixture")
	}

	// Rename the stco box's type so it, and the co64 fallback, both miss.
	corrupted := append([]byte(nil), data...)
	copy(corrupted[stcoOff+4:stcoOff+8], "stXX")

	_, _, err := FindALACTrack(bytes.NewReader(corrupted))
	if !errors.Is(err, ErrNoChunkOffset) {
		t.Fatalf("FindALACTrack(renamed stco) = %v, want ErrNoChunkOffset", err)
	}
}

func TestFindALACTrackTruncatedMoov(t *testing.T) {
	t.Parallel()

	data := fixtureM4A(t)

	moovOff := findFourCCOffset(data, "moov")
	if moovOff < 0 {
		t.Fatal("moov not found in fixture")
	}

	moovSize := binary.BigEndian.Uint32(data[moovOff : moovOff+4])
	cutPoint := moovOff + int(moovSize)/2

	_, _, err := FindALACTrack(bytes.NewReader(data[:cutPoint]))
	if err == nil {
		t.Fatal("FindALACTrack(truncated moov) succeeded, want an error")
	}
}

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

package alac_test

import (
	"testing"

	alac "github.com/mycophonic/saprobe-alac"
)

func TestMagicCookieRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := alac.PacketConfig{
		FrameLength:   4096,
		BitDepth:      16,
		NumChannels:   2,
		PB:            40,
		MB:            10,
		KB:            14,
		MaxRun:        255,
		MaxFrameBytes: 8192,
		AvgBitRate:    768000,
		SampleRate:    44100,
	}

	cookie := alac.WriteMagicCookie(cfg)
	if len(cookie) != 24 {
		t.Fatalf("WriteMagicCookie produced %d bytes, want 24", len(cookie))
	}

	got, err := alac.ParseMagicCookie(cookie)
	if err != nil {
		t.Fatalf("ParseMagicCookie: %v", err)
	}

	if got != cfg {
		t.Fatalf("ParseMagicCookie = %+v, want %+v", got, cfg)
	}
}

func TestParseMagicCookieRejectsShortInput(t *testing.T) {
	t.Parallel()

	if _, err := alac.ParseMagicCookie([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error parsing a truncated cookie")
	}
}

func TestParseMagicCookieRejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	cookie := alac.WriteMagicCookie(alac.PacketConfig{BitDepth: 16, NumChannels: 2})
	cookie[4] = 1 // compatible version

	if _, err := alac.ParseMagicCookie(cookie); err == nil {
		t.Fatal("expected an error parsing a cookie with an unsupported version")
	}
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := alac.DefaultOptions()

	if opts.BlockSize != alac.DefaultBlockSize {
		t.Errorf("BlockSize = %d, want %d", opts.BlockSize, alac.DefaultBlockSize)
	}

	if opts.InitialHistory != alac.DefaultInitialHistory {
		t.Errorf("InitialHistory = %d, want %d", opts.InitialHistory, alac.DefaultInitialHistory)
	}
}

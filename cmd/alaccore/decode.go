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

package main

import (
	"fmt"
	"io"
	"os"

	alac "github.com/mycophonic/saprobe-alac"
	"github.com/mycophonic/saprobe-alac/internal/pcmio"
)

func runDecode(args []string) error {
	in := decodeFlags.String("in", "", "source M4A path")
	out := decodeFlags.String("out", "", "destination WAV path")
	startPacket := decodeFlags.Int("start-packet", 0, "first ALAC packet to decode, for partial decode")

	if err := decodeFlags.Parse(args); err != nil {
		return err
	}

	if *in == "" || *out == "" {
		return fmt.Errorf("%w: -in and -out are required", errUsage)
	}

	src, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	dec, err := alac.NewStreamDecoder(src)
	if err != nil {
		return fmt.Errorf("opening alac stream: %w", err)
	}

	if *startPacket > 0 {
		if err := dec.SeekToPacket(*startPacket); err != nil {
			return fmt.Errorf("seeking to packet %d: %w", *startPacket, err)
		}
	}

	format := dec.Format()

	dst, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer dst.Close()

	wav, err := pcmio.NewWriter(dst, pcmio.Format{
		SampleRate: format.SampleRate,
		BitDepth:   format.BitDepth,
		Channels:   format.Channels,
	})
	if err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}

	buf := make([]byte, 1<<16) //nolint:mnd // streaming copy buffer size

	for {
		n, readErr := dec.Read(buf)
		if n > 0 {
			if _, writeErr := wav.WriteRaw(buf[:n]); writeErr != nil {
				return fmt.Errorf("writing pcm: %w", writeErr)
			}
		}

		if readErr != nil {
			if readErr == io.EOF { //nolint:errorlint // io.EOF is a sentinel by contract
				break
			}

			return fmt.Errorf("decoding: %w", readErr)
		}
	}

	if err := wav.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}

	return nil
}

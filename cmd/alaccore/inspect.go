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
	"strings"

	mp4box "github.com/abema/go-mp4"

	alac "github.com/mycophonic/saprobe-alac"
	"github.com/mycophonic/saprobe-alac/internal/mp4"
)

// runInspect dumps an M4A file's box tree using go-mp4's generic walker,
// then reports the ALACSpecificConfig found by this module's own demuxer —
// useful for spotting a mismatch between the two when a file misbehaves.
func runInspect(args []string) error {
	if err := inspectFlags.Parse(args); err != nil {
		return err
	}

	if inspectFlags.NArg() != 1 {
		return fmt.Errorf("%w: inspect takes exactly one path argument", errUsage)
	}

	path := inspectFlags.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := mp4box.ReadBoxStructure(f, func(h *mp4box.ReadHandle) (any, error) {
		indent := strings.Repeat("  ", len(h.Path)-1)
		fmt.Printf("%s%s (size=%d, offset=%d)\n", indent, h.BoxInfo.Type, h.BoxInfo.Size, h.BoxInfo.Offset)

		return h.Expand()
	}); err != nil {
		return fmt.Errorf("walking box structure: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding: %w", err)
	}

	cookie, samples, err := mp4.FindALACTrack(f)
	if err != nil {
		fmt.Println("\nno ALAC track found via FindALACTrack:", err)

		return nil
	}

	config, err := alac.ParseMagicCookie(cookie)
	if err != nil {
		return fmt.Errorf("parsing magic cookie: %w", err)
	}

	fmt.Printf("\nALACSpecificConfig: frameLength=%d bitDepth=%d channels=%d pb=%d mb=%d kb=%d sampleRate=%d\n",
		config.FrameLength, config.BitDepth, config.NumChannels, config.PB, config.MB, config.KB, config.SampleRate)
	fmt.Printf("packets: %d\n", len(samples))

	return nil
}

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

// Box header conventions shared by the demuxer (mp4.go, read side) and the
// muxer (mux.go, write side): both walk the same ISO 14496-12 size(4)+
// fourCC(4) box header, just in opposite directions.
package mp4

import (
	"encoding/binary"
	"io"
)

const (
	smallHeaderSize = 8
	largeHeaderSize = 16
	fullBoxSize     = 4 // version(1) + flags(3)
)

// fourCC packs a four-character box type code into the array form boxInfo
// compares against, so callers write a plain string instead of a byte
// literal at every findChild/findDescendant call site.
func fourCC(s string) [4]byte {
	return [4]byte{s[0], s[1], s[2], s[3]}
}

// putBoxHeader encodes a box header (size + fourCC) into the first 8 bytes
// of buf, the write-side counterpart of readBoxInfo's small-header path.
func putBoxHeader(buf []byte, size uint32, fcc string) {
	binary.BigEndian.PutUint32(buf[0:4], size)
	copy(buf[4:8], fcc)
}

// readFullBoxCount reads a FullBox header (version+flags) followed by a
// 4-byte entry count from b's payload, the shape common to stco, co64, and
// stsc. Callers needing more fields after the count (stsz) read the header
// directly instead.
func readFullBoxCount(reader io.ReadSeeker, b *boxInfo) (uint32, error) {
	if err := b.seekToPayload(reader); err != nil {
		return 0, err
	}

	var header [fullBoxSize + 4]byte
	if _, err := io.ReadFull(reader, header[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(header[fullBoxSize:]), nil
}

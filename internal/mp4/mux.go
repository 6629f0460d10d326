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

//nolint:gosec // Integer conversions are bounded by MP4 atom sizes.
package mp4

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Packet is one encoded ALAC frameset, ready to be written into an mdat box.
type Packet struct {
	Data   []byte
	Frames uint32 // pcm frame count this packet decodes to
}

// MuxConfig carries the sample description fields WriteM4A needs to build
// the 'alac' stsd entry. MagicCookie is the bare 24-byte ALACSpecificConfig
// (no wrapper atoms — box builds those).
type MuxConfig struct {
	NumChannels int
	SampleRate  uint32
	BitDepth    int
	MagicCookie []byte
}

// WriteM4A writes a minimal ftyp/moov/mdat MP4 container around packets,
// the write-side counterpart to FindALACTrack (§6, "the collaborator can
// populate stsz and stco").
func WriteM4A(w io.Writer, cfg MuxConfig, packets []Packet) error {
	ftyp := boxFtyp()

	moov, stcoPatchOffset := boxMoov(cfg, packets)

	mdatHeaderSize := int64(smallHeaderSize)
	base := int64(len(ftyp)) + int64(len(moov)) + mdatHeaderSize

	patchChunkOffsets(moov, stcoPatchOffset, packets, base)

	if _, err := w.Write(ftyp); err != nil {
		return err
	}

	if _, err := w.Write(moov); err != nil {
		return err
	}

	var mdatLen int64
	for _, p := range packets {
		mdatLen += int64(len(p.Data))
	}

	if err := writeBoxHeader(w, mdatLen+mdatHeaderSize, "mdat"); err != nil {
		return err
	}

	for _, p := range packets {
		if _, err := w.Write(p.Data); err != nil {
			return err
		}
	}

	return nil
}

func writeBoxHeader(w io.Writer, size int64, fcc string) error {
	var hdr [smallHeaderSize]byte
	putBoxHeader(hdr[:], uint32(size), fcc)

	_, err := w.Write(hdr[:])

	return err
}

func box(fcc string, payload []byte) []byte {
	buf := make([]byte, smallHeaderSize+len(payload))
	putBoxHeader(buf, uint32(len(buf)), fcc)
	copy(buf[smallHeaderSize:], payload)

	return buf
}

func boxFtyp() []byte {
	var buf bytes.Buffer

	buf.WriteString("M4A ")
	writeU32(&buf, 0) // minor_version

	for _, brand := range []string{"M4A ", "mp42", "isom"} {
		buf.WriteString(brand)
	}

	return box("ftyp", buf.Bytes())
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// boxMoov builds the moov box. It returns the moov bytes plus the byte
// offset, within those bytes, where the stco box (its size field) begins.
// The stco entries are zero placeholders until patchChunkOffsets fills in
// absolute file offsets once the caller knows moov's final length.
func boxMoov(cfg MuxConfig, packets []Packet) ([]byte, int) {
	var totalFrames uint32
	for _, p := range packets {
		totalFrames += p.Frames
	}

	mvhd := box("mvhd", buildMvhd(cfg.SampleRate, totalFrames))
	trak, stcoOffsetInTrak := buildTrak(cfg, packets, totalFrames)

	var moovBody bytes.Buffer
	moovBody.Write(mvhd)
	moovBody.Write(trak)

	moov := box("moov", moovBody.Bytes())

	// trak sits right after mvhd inside moov's payload, which itself sits
	// 8 bytes into moov (the moov box header).
	stcoOffsetInMoov := 8 + len(mvhd) + stcoOffsetInTrak

	return moov, stcoOffsetInMoov
}

func buildMvhd(sampleRate, totalFrames uint32) []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU32(&buf, 0) // creation_time
	writeU32(&buf, 0) // modification_time
	writeU32(&buf, sampleRate)
	writeU32(&buf, totalFrames)
	writeU32(&buf, 0x00010000) // rate, 1.0
	writeU16(&buf, 0x0100)     // volume, 1.0
	writeU16(&buf, 0)          // reserved

	for range 2 {
		writeU32(&buf, 0)
	}

	buf.Write(identityMatrix())

	for range 6 {
		writeU32(&buf, 0) // pre_defined
	}

	writeU32(&buf, 2) // next_track_id

	return buf.Bytes()
}

func identityMatrix() []byte {
	values := []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

	var buf bytes.Buffer
	for _, v := range values {
		writeU32(&buf, v)
	}

	return buf.Bytes()
}

// buildTrak returns the trak box and the offset (within it) where the stco
// box begins.
func buildTrak(cfg MuxConfig, packets []Packet, totalFrames uint32) ([]byte, int) {
	tkhd := box("tkhd", buildTkhd(totalFrames))
	mdia, stcoOffsetInMdia := buildMdia(cfg, packets, totalFrames)

	var body bytes.Buffer
	body.Write(tkhd)
	body.Write(mdia)

	trak := box("trak", body.Bytes())
	stcoOffsetInTrak := 8 + len(tkhd) + stcoOffsetInMdia

	return trak, stcoOffsetInTrak
}

func buildTkhd(totalFrames uint32) []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0x00000007) // version 0, flags: enabled|in movie|in preview
	writeU32(&buf, 0)          // creation_time
	writeU32(&buf, 0)          // modification_time
	writeU32(&buf, 1)          // track_id
	writeU32(&buf, 0)          // reserved
	writeU32(&buf, totalFrames)

	for range 2 {
		writeU32(&buf, 0) // reserved
	}

	writeU16(&buf, 0)      // layer
	writeU16(&buf, 0)      // alternate_group
	writeU16(&buf, 0x0100) // volume, 1.0 (audio track)
	writeU16(&buf, 0)      // reserved
	buf.Write(identityMatrix())
	writeU32(&buf, 0) // width
	writeU32(&buf, 0) // height

	return buf.Bytes()
}

func buildMdia(cfg MuxConfig, packets []Packet, totalFrames uint32) ([]byte, int) {
	mdhd := box("mdhd", buildMdhd(cfg.SampleRate, totalFrames))
	hdlr := box("hdlr", buildHdlr())
	minf, stcoOffsetInMinf := buildMinf(cfg, packets)

	var body bytes.Buffer
	body.Write(mdhd)
	body.Write(hdlr)
	body.Write(minf)

	mdia := box("mdia", body.Bytes())
	stcoOffsetInMdia := 8 + len(mdhd) + len(hdlr) + stcoOffsetInMinf

	return mdia, stcoOffsetInMdia
}

func buildMdhd(sampleRate, totalFrames uint32) []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU32(&buf, 0) // creation_time
	writeU32(&buf, 0) // modification_time
	writeU32(&buf, sampleRate)
	writeU32(&buf, totalFrames)
	writeU16(&buf, 0x55C4) // language: undetermined
	writeU16(&buf, 0)      // pre_defined

	return buf.Bytes()
}

func buildHdlr() []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU32(&buf, 0) // pre_defined
	buf.WriteString("soun")

	for range 3 {
		writeU32(&buf, 0) // reserved
	}

	buf.WriteString("SoundHandler\x00")

	return buf.Bytes()
}

func buildMinf(cfg MuxConfig, packets []Packet) ([]byte, int) {
	smhd := box("smhd", buildSmhd())
	dinf := box("dinf", buildDinf())
	stbl, stcoOffsetInStbl := buildStbl(cfg, packets)

	var body bytes.Buffer
	body.Write(smhd)
	body.Write(dinf)
	body.Write(stbl)

	minf := box("minf", body.Bytes())
	stcoOffsetInMinf := 8 + len(smhd) + len(dinf) + stcoOffsetInStbl

	return minf, stcoOffsetInMinf
}

func buildSmhd() []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU16(&buf, 0) // balance
	writeU16(&buf, 0) // reserved

	return buf.Bytes()
}

func buildDinf() []byte {
	var url bytes.Buffer

	writeU32(&url, 1) // version 0, flags: self-contained

	urlBox := box("url ", url.Bytes())

	var dref bytes.Buffer

	writeU32(&dref, 0) // version + flags
	writeU32(&dref, 1) // entry_count
	dref.Write(urlBox)

	return box("dref", dref.Bytes())
}

func buildStbl(cfg MuxConfig, packets []Packet) ([]byte, int) {
	stsd := box("stsd", buildStsd(cfg))
	stts := box("stts", buildStts(packets))
	stsc := box("stsc", buildStsc())
	stsz := box("stsz", buildStsz(packets))
	stco := box("stco", buildStco(len(packets)))

	var body bytes.Buffer
	body.Write(stsd)
	body.Write(stts)
	body.Write(stsc)
	body.Write(stsz)
	body.Write(stco)

	stbl := box("stbl", body.Bytes())
	// Offset of the stco box's own 4-byte size field within stbl.
	stcoOffsetInStbl := 8 + len(stsd) + len(stts) + len(stsc) + len(stsz)

	return stbl, stcoOffsetInStbl
}

func buildStsd(cfg MuxConfig) []byte {
	var alacEntry bytes.Buffer

	for range 6 {
		alacEntry.WriteByte(0) // reserved
	}

	writeU16(&alacEntry, 1) // data_reference_index

	writeU16(&alacEntry, 0)                   // version
	writeU16(&alacEntry, 0)                   // revision_level
	writeU32(&alacEntry, 0)                   // vendor
	writeU16(&alacEntry, uint16(cfg.NumChannels))
	writeU16(&alacEntry, uint16(cfg.BitDepth))
	writeU16(&alacEntry, 0) // compression_id
	writeU16(&alacEntry, 0) // packet_size
	writeU32(&alacEntry, cfg.SampleRate<<16)

	var cookieBox bytes.Buffer

	writeU32(&cookieBox, 0) // version + flags
	cookieBox.Write(cfg.MagicCookie)
	alacEntry.Write(box("alac", cookieBox.Bytes()))

	entry := box("alac", alacEntry.Bytes())

	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU32(&buf, 1) // entry_count
	buf.Write(entry)

	return buf.Bytes()
}

func buildStts(packets []Packet) []byte {
	type run struct {
		count uint32
		delta uint32
	}

	var runs []run

	for _, p := range packets {
		if len(runs) > 0 && runs[len(runs)-1].delta == p.Frames {
			runs[len(runs)-1].count++
			continue
		}

		runs = append(runs, run{count: 1, delta: p.Frames})
	}

	var buf bytes.Buffer

	writeU32(&buf, 0)                  // version + flags
	writeU32(&buf, uint32(len(runs)))

	for _, r := range runs {
		writeU32(&buf, r.count)
		writeU32(&buf, r.delta)
	}

	return buf.Bytes()
}

func buildStsc() []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU32(&buf, 1) // entry_count
	writeU32(&buf, 1) // first_chunk
	writeU32(&buf, 1) // samples_per_chunk: one packet per chunk
	writeU32(&buf, 1) // sample_description_index

	return buf.Bytes()
}

func buildStsz(packets []Packet) []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU32(&buf, 0) // sample_size: 0 means variable, use the table below
	writeU32(&buf, uint32(len(packets)))

	for _, p := range packets {
		writeU32(&buf, uint32(len(p.Data)))
	}

	return buf.Bytes()
}

func buildStco(numPackets int) []byte {
	var buf bytes.Buffer

	writeU32(&buf, 0) // version + flags
	writeU32(&buf, uint32(numPackets))

	for range numPackets {
		writeU32(&buf, 0) // placeholder, patched by patchChunkOffsets
	}

	return buf.Bytes()
}

// patchChunkOffsets overwrites stco's zero placeholders with absolute file
// offsets now that moov's total length (and hence mdat's start) is known.
// stcoOffset is the offset of the stco box itself within moov. Packet sizes come straight from packets rather than
// being re-read out of the stsz box moov already carries.
func patchChunkOffsets(moov []byte, stcoOffset int, packets []Packet, base int64) {
	tableStart := stcoOffset + 8 + fullBoxSize + 4 // box header + version/flags + entry_count

	off := base

	for i, p := range packets {
		pos := tableStart + i*4
		binary.BigEndian.PutUint32(moov[pos:pos+4], uint32(off))
		off += int64(len(p.Data))
	}
}

package snapshot

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"
)

func appendSZXChunk(buf *bytes.Buffer, tag string, body []byte) {
	buf.WriteString(tag)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(body)))
	buf.Write(size[:])
	buf.Write(body)
}

func TestParseSZXRejectsBadSignature(t *testing.T) {
	_, err := ParseSZX([]byte("not an szx file"))
	if err == nil {
		t.Fatal("expected an error for a missing ZXST signature")
	}
}

func TestParseSZXZ80RAndSPCR(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(szxMagic)
	buf.Write([]byte{1, 4, 3, 0}) // version 1.4, machineID=3 (+2A/+3-ish), flags

	z80r := make([]byte, 37)
	z80r[1] = 0x7A // A
	binary.LittleEndian.PutUint16(z80r[22:24], 0x9000) // PC
	appendSZXChunk(&buf, chunkZ80R, z80r)

	spcr := []byte{5, 0x10} // border 5, paging reg 0x10
	appendSZXChunk(&buf, chunkSPCR, spcr)

	s, err := ParseSZX(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseSZX: %v", err)
	}
	if s.CPU.A != 0x7A || s.CPU.PC != 0x9000 {
		t.Fatalf("A=%#x PC=%#x, want 0x7A/0x9000", s.CPU.A, s.CPU.PC)
	}
	if s.Border != 5 || s.PagingReg != 0x10 {
		t.Fatalf("Border=%d PagingReg=%#x, want 5/0x10", s.Border, s.PagingReg)
	}
}

func TestParseSZXRAMPCompressed(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(szxMagic)
	buf.Write([]byte{1, 4, 0, 0})

	page := make([]byte, 16384)
	page[100] = 0x55
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(page)
	zw.Close()

	body := make([]byte, 3+compressed.Len())
	binary.LittleEndian.PutUint16(body[0:2], 1) // flags: compressed
	body[2] = 4                                 // page number
	copy(body[3:], compressed.Bytes())
	appendSZXChunk(&buf, chunkRAMP, body)

	s, err := ParseSZX(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseSZX: %v", err)
	}
	if s.Pages[4][100] != 0x55 {
		t.Fatalf("page 4 byte 100 = %#x, want 0x55", s.Pages[4][100])
	}
}

func TestParseSZXSkipsUnknownChunk(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(szxMagic)
	buf.Write([]byte{1, 4, 0, 0})
	appendSZXChunk(&buf, "ZXAT", []byte{1, 2, 3, 4}) // unrecognized, must be skipped
	spcr := []byte{2, 0}
	appendSZXChunk(&buf, chunkSPCR, spcr)

	s, err := ParseSZX(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseSZX: %v", err)
	}
	if s.Border != 2 {
		t.Fatalf("Border = %d, want 2 (chunk after the unknown one should still parse)", s.Border)
	}
}

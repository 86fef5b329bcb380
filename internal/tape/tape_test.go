package tape

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/retrocore/cpcec-go/internal/z80"
)

// silentBus is a z80.Bus that does nothing; enough to host a CPU for
// feeder tests, which only ever touch registers/flags directly.
type silentBus struct{}

func (silentBus) Read(addr uint16) byte                      { return 0 }
func (silentBus) Write(addr uint16, value byte)               {}
func (silentBus) In(port uint16) byte                         { return 0 }
func (silentBus) Out(port uint16, value byte)                 {}
func (silentBus) Contend(addr uint16, kind z80.AccessKind) int { return 0 }
func (silentBus) Tick(cycles int)                             {}

func TestPlayerAdvancesThroughEdgesAndStopsAtEnd(t *testing.T) {
	p := NewPlayer([]Edge{{DurationT: 10, Level: true}, {DurationT: 20, Level: false}})
	p.Play()
	if !p.Level() {
		t.Fatal("initial level should be true")
	}
	p.SyncT(10)
	if p.Level() {
		t.Fatal("level should flip to false after the first edge elapses")
	}
	p.SyncT(20)
	if !p.AtEnd() {
		t.Fatal("player should be at end after consuming both edges")
	}
	if p.Playing() {
		t.Fatal("playing should stop once the pulse train is exhausted")
	}
}

func TestDecodeTAPProducesPilotSyncAndDataEdges(t *testing.T) {
	var buf bytes.Buffer
	block := []byte{0xFF, 0x01, 0x02} // flag byte 0xFF -> data block pilot length
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(block)))
	buf.Write(lenBuf[:])
	buf.Write(block)

	edges, err := DecodeTAP(&buf)
	if err != nil {
		t.Fatalf("DecodeTAP: %v", err)
	}
	if len(edges) < pilotLenData {
		t.Fatalf("expected at least %d pilot pulses, got %d total edges", pilotLenData, len(edges))
	}
	if edges[0].DurationT != pilotPulseT {
		t.Fatalf("first edge duration = %d, want pilot pulse %d", edges[0].DurationT, pilotPulseT)
	}
}

func TestDecodeTZXRejectsBadSignature(t *testing.T) {
	_, err := DecodeTZX(bytes.NewReader([]byte("not a tzx file at all!!")))
	if err == nil {
		t.Fatal("expected an error for a missing ZXTape! signature")
	}
}

func TestDecodeTZXPureToneBlock(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ZXTape!")
	buf.Write([]byte{0x1A, 1, 0}) // terminator + major/minor version
	buf.WriteByte(0x12)           // pure tone block ID
	pulseLen := uint16(1000)
	count := uint16(4)
	var body [4]byte
	binary.LittleEndian.PutUint16(body[0:2], pulseLen)
	binary.LittleEndian.PutUint16(body[2:4], count)
	buf.Write(body[:])

	edges, err := DecodeTZX(&buf)
	if err != nil {
		t.Fatalf("DecodeTZX: %v", err)
	}
	if len(edges) != 4 {
		t.Fatalf("expected 4 edges from the pure tone block, got %d", len(edges))
	}
	for _, e := range edges {
		if e.DurationT != 1000 {
			t.Fatalf("edge duration = %d, want 1000", e.DurationT)
		}
	}
}

func TestDecodePZXRejectsBadSignature(t *testing.T) {
	_, err := DecodePZX(bytes.NewReader([]byte("nope")))
	if err == nil {
		t.Fatal("expected an error for a missing PZXT signature")
	}
}

func TestDecodeCSWv1Uncompressed(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(cswSignature)
	buf.WriteByte(0x1A)
	buf.Write([]byte{1, 0}) // version 1.0
	var rest [5]byte
	binary.LittleEndian.PutUint16(rest[0:2], 3500) // sample rate
	rest[2] = 1                                    // uncompressed RLE
	rest[3] = 1                                     // initial level high
	buf.Write(rest[:])
	buf.Write([]byte{10, 20}) // two pulses, 10 and 20 samples

	edges, err := DecodeCSW(&buf, 3500)
	if err != nil {
		t.Fatalf("DecodeCSW: %v", err)
	}
	if len(edges) != 2 || edges[0].DurationT != 10 || edges[1].DurationT != 20 {
		t.Fatalf("unexpected edges: %+v", edges)
	}
}

func TestDecodeCSWv2Compressed(t *testing.T) {
	var pulseBuf bytes.Buffer
	pulseBuf.Write([]byte{5, 15})
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(pulseBuf.Bytes())
	zw.Close()

	var buf bytes.Buffer
	buf.WriteString(cswSignature)
	buf.WriteByte(0x1A)
	buf.Write([]byte{2, 0}) // version 2.0
	var rest [14]byte
	binary.LittleEndian.PutUint32(rest[0:4], 44100)
	rest[8] = 2 // zlib compressed
	buf.Write(rest[:])
	buf.Write(compressed.Bytes())

	edges, err := DecodeCSW(&buf, 44100)
	if err != nil {
		t.Fatalf("DecodeCSW: %v", err)
	}
	if len(edges) != 2 || edges[0].DurationT != 5 {
		t.Fatalf("unexpected edges: %+v", edges)
	}
}

func TestIdentifyFingerprint(t *testing.T) {
	data := []byte{0x00, 0x0F, 0xAB}
	if got := Identify(data); got != "Speedlock" {
		t.Fatalf("Identify = %q, want Speedlock", got)
	}
	if got := Identify([]byte{0x11, 0x22}); got != "" {
		t.Fatalf("Identify = %q, want empty for unrecognized data", got)
	}
}

func TestSpeedlockFeederInjectsByteAndMirrorsCarry(t *testing.T) {
	f := FeederFor("Speedlock")
	if f == nil {
		t.Fatal("Speedlock feeder should be registered")
	}
	if f.TriggerPC != 0x056B {
		t.Fatalf("TriggerPC = %#x, want 0x056B", f.TriggerPC)
	}

	cpu := z80.New(silentBus{})
	f.Feed(cpu, 0x80) // bit 7 set -> carry should end up set
	if cpu.A != 0x80 {
		t.Fatalf("A = %#x, want 0x80", cpu.A)
	}
	if cpu.F&z80.FlagC == 0 {
		t.Fatal("carry should be set when the fed byte's bit 7 is set")
	}

	f.Feed(cpu, 0x01) // bit 7 clear -> carry should end up clear
	if cpu.A != 0x01 {
		t.Fatalf("A = %#x, want 0x01", cpu.A)
	}
	if cpu.F&z80.FlagC != 0 {
		t.Fatal("carry should be clear when the fed byte's bit 7 is clear")
	}
}

func TestFeederForUnknownLoaderReturnsNil(t *testing.T) {
	if f := FeederFor("NotARealLoader"); f != nil {
		t.Fatalf("FeederFor(unknown) = %+v, want nil", f)
	}
}

func TestPlayerArmFastLoadWiresUpFeederAndFeedsBytes(t *testing.T) {
	p := NewPlayer(nil)
	if _, armed := p.FeederTriggerPC(); armed {
		t.Fatal("a fresh player should have no feeder armed")
	}

	p.ArmFastLoad([]byte{0x00, 0x0F, 0x11, 0x22})
	pc, armed := p.FeederTriggerPC()
	if !armed || pc != 0x056B {
		t.Fatalf("FeederTriggerPC = (%#x, %v), want (0x056B, true)", pc, armed)
	}

	cpu := z80.New(silentBus{})
	if !p.FeedByte(cpu) {
		t.Fatal("FeedByte should succeed while raw data remains")
	}
	if cpu.A != 0x00 {
		t.Fatalf("A = %#x, want 0x00 (first raw byte)", cpu.A)
	}
	// drain the rest
	for i := 0; i < 3; i++ {
		if !p.FeedByte(cpu) {
			t.Fatalf("FeedByte should still succeed at index %d", i)
		}
	}
	if p.FeedByte(cpu) {
		t.Fatal("FeedByte should fail once raw data is exhausted")
	}
}

func TestPlayerArmFastLoadUnrecognizedDataLeavesNoFeeder(t *testing.T) {
	p := NewPlayer(nil)
	p.ArmFastLoad([]byte{0x11, 0x22, 0x33})
	if _, armed := p.FeederTriggerPC(); armed {
		t.Fatal("unrecognized loader data should not arm a feeder")
	}
}

package psg

import "testing"

func TestWriteRegisterDerivesTonePeriod(t *testing.T) {
	c := New(ClockCPC, 44100)
	c.WriteRegister(RegTonePeriodALo, 0x34)
	c.WriteRegister(RegTonePeriodAHi, 0x01)
	if c.tone[0].period != 0x134 {
		t.Fatalf("tone period = %#x, want 0x134", c.tone[0].period)
	}
}

func TestEnvelopeAttackRampsUp(t *testing.T) {
	c := New(ClockCPC, 44100)
	c.WriteRegister(RegEnvPeriodLo, 1)
	c.WriteRegister(RegEnvPeriodHi, 0)
	c.WriteRegister(RegEnvShape, shapeAttack|shapeContinue)
	if c.env.level != 0 {
		t.Fatalf("attack envelope should start at level 0, got %d", c.env.level)
	}
	for i := 0; i < 20; i++ {
		c.tickEnvelope()
	}
	if c.env.level == 0 {
		t.Fatal("attack envelope should have ramped up after 20 ticks")
	}
}

func TestMixerMutesChannel(t *testing.T) {
	c := New(ClockCPC, 44100)
	c.WriteRegister(RegAmplitudeA, 15)
	c.WriteRegister(RegMixer, MixerToneA|MixerNoiseA) // both disabled -> tone forced silent unless output bit set
	l, r := c.sampleMono()
	if l != 0 || r != 0 {
		t.Fatalf("channel A should be silent with both tone+noise disabled and no forced output, got %v %v", l, r)
	}
}

func TestSelectRegisterLatchesReadBack(t *testing.T) {
	c := New(ClockCPC, 44100)
	c.SelectRegister(RegAmplitudeB)
	c.Write(7)
	if c.Read() != 7 {
		t.Fatalf("Read() = %d, want 7", c.Read())
	}
}

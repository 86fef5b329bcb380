package z80

// initEDOps builds the ED-prefixed table. Any slot left at its default
// (edNOP) executes as a timed 8-cycle NOP, matching the real part for
// the many undefined ED opcodes (spec §4.1: "fails with BadOpcode only
// for truly invalid ED prefixes... instead execute as *NOP").
func (c *CPU) initEDOps() {
	for i := range c.edOps {
		c.edOps[i] = edNOP
	}

	for p := byte(0); p <= 3; p++ {
		pp := p
		c.edOps[0x42+pp*0x10] = func(cpu *CPU) { cpu.edSbcHL(pp) }
		c.edOps[0x4A+pp*0x10] = func(cpu *CPU) { cpu.edAdcHL(pp) }
		c.edOps[0x43+pp*0x10] = func(cpu *CPU) { cpu.edLDMemPair(pp) }
		c.edOps[0x4B+pp*0x10] = func(cpu *CPU) { cpu.edLDPairMem(pp) }
	}

	c.edOps[0x44] = edNEG
	c.edOps[0x4C] = edNEG
	c.edOps[0x54] = edNEG
	c.edOps[0x5C] = edNEG
	c.edOps[0x64] = edNEG
	c.edOps[0x6C] = edNEG
	c.edOps[0x74] = edNEG
	c.edOps[0x7C] = edNEG

	c.edOps[0x45] = edRETN
	c.edOps[0x55] = edRETN
	c.edOps[0x65] = edRETN
	c.edOps[0x75] = edRETN
	c.edOps[0x4D] = edRETI
	c.edOps[0x5D] = edRETN
	c.edOps[0x6D] = edRETN
	c.edOps[0x7D] = edRETN

	c.edOps[0x46] = func(cpu *CPU) { cpu.IM = IM0 }
	c.edOps[0x4E] = func(cpu *CPU) { cpu.IM = IM0 }
	c.edOps[0x56] = func(cpu *CPU) { cpu.IM = IM1 }
	c.edOps[0x66] = func(cpu *CPU) { cpu.IM = IM1 }
	c.edOps[0x5E] = func(cpu *CPU) { cpu.IM = IM2 }
	c.edOps[0x7E] = func(cpu *CPU) { cpu.IM = IM2 }

	c.edOps[0x47] = func(cpu *CPU) { cpu.I = cpu.A; cpu.tick(1) }
	c.edOps[0x4F] = func(cpu *CPU) { cpu.R = cpu.A; cpu.tick(1) }
	c.edOps[0x57] = edLDAI
	c.edOps[0x5F] = edLDAR

	c.edOps[0x67] = edRRD
	c.edOps[0x6F] = edRLD

	c.edOps[0xA0] = func(cpu *CPU) { cpu.edLDBlock(1, false) }
	c.edOps[0xA8] = func(cpu *CPU) { cpu.edLDBlock(-1, false) }
	c.edOps[0xB0] = func(cpu *CPU) { cpu.edLDBlock(1, true) }
	c.edOps[0xB8] = func(cpu *CPU) { cpu.edLDBlock(-1, true) }

	c.edOps[0xA1] = func(cpu *CPU) { cpu.edCPBlock(1, false) }
	c.edOps[0xA9] = func(cpu *CPU) { cpu.edCPBlock(-1, false) }
	c.edOps[0xB1] = func(cpu *CPU) { cpu.edCPBlock(1, true) }
	c.edOps[0xB9] = func(cpu *CPU) { cpu.edCPBlock(-1, true) }

	c.edOps[0xA2] = func(cpu *CPU) { cpu.edInBlock(1, false) }
	c.edOps[0xAA] = func(cpu *CPU) { cpu.edInBlock(-1, false) }
	c.edOps[0xB2] = func(cpu *CPU) { cpu.edInBlock(1, true) }
	c.edOps[0xBA] = func(cpu *CPU) { cpu.edInBlock(-1, true) }

	c.edOps[0xA3] = func(cpu *CPU) { cpu.edOutBlock(1, false) }
	c.edOps[0xAB] = func(cpu *CPU) { cpu.edOutBlock(-1, false) }
	c.edOps[0xB3] = func(cpu *CPU) { cpu.edOutBlock(1, true) }
	c.edOps[0xBB] = func(cpu *CPU) { cpu.edOutBlock(-1, true) }

	for reg := byte(0); reg <= 7; reg++ {
		if reg == 6 {
			continue // ED 70/71 = IN F,(C)/OUT (C),0, both undocumented "flags only" forms
		}
		r := reg
		c.edOps[0x40+r*8] = func(cpu *CPU) { cpu.edInReg(r) }
		c.edOps[0x41+r*8] = func(cpu *CPU) { cpu.edOutReg(r) }
	}
	c.edOps[0x70] = func(cpu *CPU) { cpu.edInFlagsOnly() }
	c.edOps[0x71] = func(cpu *CPU) { cpu.outPort(cpu.BC(), 0) }
}

func edNOP(c *CPU) {}

func (c *CPU) edSbcHL(p byte) {
	c.SetHL(c.sbc16(c.HL(), c.pairValue(p)))
	c.tick(7)
}

func (c *CPU) edAdcHL(p byte) {
	c.SetHL(c.adc16(c.HL(), c.pairValue(p)))
	c.tick(7)
}

func (c *CPU) edLDMemPair(p byte) {
	addr := c.fetchWord()
	c.WZ = addr + 1
	c.writeWord(addr, c.pairValue(p))
}

func (c *CPU) edLDPairMem(p byte) {
	addr := c.fetchWord()
	c.WZ = addr + 1
	c.setPairValue(p, c.readWord(addr))
}

func edNEG(c *CPU) {
	a := c.A
	c.A = c.sub8(0, a, false)
}

func edRETN(c *CPU) {
	c.IFF1 = c.IFF2
	c.PC = c.popWord()
	c.WZ = c.PC
}

func edRETI(c *CPU) {
	c.IFF1 = c.IFF2
	c.PC = c.popWord()
	c.WZ = c.PC
}

func edLDAI(c *CPU) {
	c.A = c.I
	c.szFlags(c.A)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagPV, c.IFF2)
	c.tick(1)
	c.setQ()
}

func edLDAR(c *CPU) {
	c.A = c.R
	c.szFlags(c.A)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagPV, c.IFF2)
	c.tick(1)
	c.setQ()
}

func edRRD(c *CPU) {
	addr := c.HL()
	mem := c.readByte(addr)
	c.tick(4)
	newMem := (c.A&0x0F)<<4 | (mem >> 4)
	c.writeByte(addr, newMem)
	c.A = (c.A & 0xF0) | (mem & 0x0F)
	c.szFlags(c.A)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagPV, parityTable[c.A])
	c.WZ = addr + 1
	c.setQ()
}

func edRLD(c *CPU) {
	addr := c.HL()
	mem := c.readByte(addr)
	c.tick(4)
	newMem := (mem << 4) | (c.A & 0x0F)
	c.writeByte(addr, newMem)
	c.A = (c.A & 0xF0) | (mem >> 4)
	c.szFlags(c.A)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagPV, parityTable[c.A])
	c.WZ = addr + 1
	c.setQ()
}

// edLDBlock implements LDI/LDD/LDIR/LDDR: copy (HL)->(DE), adjust
// BC/HL/DE by dir, and repeat while BC!=0 when repeat is set.
func (c *CPU) edLDBlock(dir int, repeat bool) {
	hl, de := c.HL(), c.DE()
	v := c.readByte(hl)
	c.writeByte(de, v)
	c.tick(2)
	c.SetHL(uint16(int32(hl) + int32(dir)))
	c.SetDE(uint16(int32(de) + int32(dir)))
	bc := c.BC() - 1
	c.SetBC(bc)

	n := v + c.A
	c.SetFlag(FlagY, n&0x02 != 0)
	c.SetFlag(FlagX, n&0x08 != 0)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagPV, bc != 0)
	c.setQ()

	if repeat && bc != 0 {
		c.tick(5)
		c.PC -= 2
		c.WZ = c.PC + 1
	}
}

func (c *CPU) edCPBlock(dir int, repeat bool) {
	hl := c.HL()
	v := c.readByte(hl)
	c.tick(5)
	res := c.A - v
	half := int(c.A&0xF)-int(v&0xF) < 0
	c.SetHL(uint16(int32(hl) + int32(dir)))
	bc := c.BC() - 1
	c.SetBC(bc)

	c.SetFlag(FlagS, res&0x80 != 0)
	c.SetFlag(FlagZ, res == 0)
	c.SetFlag(FlagH, half)
	n := res
	if half {
		n--
	}
	c.SetFlag(FlagY, n&0x02 != 0)
	c.SetFlag(FlagX, n&0x08 != 0)
	c.SetFlag(FlagPV, bc != 0)
	c.SetFlag(FlagN, true)
	c.setQ()

	if repeat && bc != 0 && res != 0 {
		c.tick(5)
		c.PC -= 2
		c.WZ = c.PC + 1
	} else {
		c.WZ += uint16(dir)
	}
}

func (c *CPU) edInBlock(dir int, repeat bool) {
	c.tick(1)
	v := c.inPort(c.BC())
	hl := c.HL()
	c.writeByte(hl, v)
	c.SetHL(uint16(int32(hl) + int32(dir)))
	c.B = c.dec8(c.B)

	if repeat && c.B != 0 {
		c.tick(5)
		c.PC -= 2
	}
}

func (c *CPU) edOutBlock(dir int, repeat bool) {
	c.tick(1)
	hl := c.HL()
	v := c.readByte(hl)
	c.B = c.dec8(c.B)
	c.outPort(c.BC(), v)
	c.SetHL(uint16(int32(hl) + int32(dir)))

	if repeat && c.B != 0 {
		c.tick(5)
		c.PC -= 2
	}
}

func (c *CPU) edInReg(reg byte) {
	v := c.inPort(c.BC())
	c.szFlags(v)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagPV, parityTable[v])
	c.setQ()
	c.writeReg8Plain(reg, v)
}

func (c *CPU) edInFlagsOnly() {
	v := c.inPort(c.BC())
	c.szFlags(v)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagPV, parityTable[v])
	c.setQ()
}

func (c *CPU) edOutReg(reg byte) {
	c.outPort(c.BC(), c.readReg8Plain(reg))
}

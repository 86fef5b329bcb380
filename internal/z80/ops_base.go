package z80

// initBaseOps builds the unprefixed (and DD/FD, since those reuse this
// same table with c.prefix set) opcode dispatch table. Ranges that
// follow a regular encoding (LD r,r', ALU A,r, INC/DEC r, PUSH/POP rr,
// conditional JP/CALL/RET, RST) are filled by loops exactly the way the
// teacher's initBaseOps does it; irregular opcodes are assigned
// individually below.
func (c *CPU) initBaseOps() {
	for i := range c.baseOps {
		c.baseOps[i] = opUnimplemented
	}

	// LD r,r' block, 0x40-0x7F, except 0x76 = HALT.
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			continue
		}
		dest := byte((op >> 3) & 7)
		src := byte(op & 7)
		c.baseOps[op] = makeLDRegReg(dest, src)
	}
	c.baseOps[0x76] = opHALT

	// LD r,n block.
	ldImm := map[byte]byte{0x06: 0, 0x0E: 1, 0x16: 2, 0x1E: 3, 0x26: 4, 0x2E: 5, 0x36: 6, 0x3E: 7}
	for op, dest := range ldImm {
		d := dest
		c.baseOps[op] = func(cpu *CPU) { cpu.opLDRegImm(d) }
	}

	// ALU A,r block 0x80-0xBF.
	aluOps := []func(*CPU, byte){
		opADD, opADC, opSUB, opSBC, opAND, opXOR, opOR, opCP,
	}
	for op := 0x80; op <= 0xBF; op++ {
		fn := aluOps[(op>>3)&7]
		src := byte(op & 7)
		c.baseOps[op] = func(cpu *CPU) { fn(cpu, cpu.operand8(src)) }
	}

	// ALU A,n block.
	aluImm := map[byte]func(*CPU, byte){
		0xC6: opADD, 0xCE: opADC, 0xD6: opSUB, 0xDE: opSBC,
		0xE6: opAND, 0xEE: opXOR, 0xF6: opOR, 0xFE: opCP,
	}
	for op, fn := range aluImm {
		f := fn
		c.baseOps[op] = func(cpu *CPU) { f(cpu, cpu.fetchByte()) }
	}

	// INC r / DEC r, 0x04+8k / 0x05+8k.
	for reg := byte(0); reg <= 7; reg++ {
		op := 0x04 + reg*8
		r := reg
		c.baseOps[op] = func(cpu *CPU) { cpu.opIncReg(r) }
		op = 0x05 + reg*8
		c.baseOps[op] = func(cpu *CPU) { cpu.opDecReg(r) }
	}

	// 16-bit register pair ops: INC/DEC rp, ADD HL,rp, LD rp,nn, LD (rp),A / A,(rp).
	pairs := []byte{0, 1, 2, 3} // BC, DE, HL, SP
	for _, p := range pairs {
		pp := p
		c.baseOps[0x03+pp*0x10] = func(cpu *CPU) { cpu.opIncPair(pp) }
		c.baseOps[0x0B+pp*0x10] = func(cpu *CPU) { cpu.opDecPair(pp) }
		c.baseOps[0x09+pp*0x10] = func(cpu *CPU) { cpu.opAddHLPair(pp) }
		c.baseOps[0x01+pp*0x10] = func(cpu *CPU) { cpu.opLDPairImm(pp) }
	}

	c.baseOps[0x02] = func(cpu *CPU) { cpu.writeByte(cpu.BC(), cpu.A) }
	c.baseOps[0x12] = func(cpu *CPU) { cpu.writeByte(cpu.DE(), cpu.A) }
	c.baseOps[0x0A] = func(cpu *CPU) { cpu.A = cpu.readByte(cpu.BC()) }
	c.baseOps[0x1A] = func(cpu *CPU) { cpu.A = cpu.readByte(cpu.DE()) }

	c.baseOps[0x22] = opLDMemHL
	c.baseOps[0x2A] = opLDHLMem
	c.baseOps[0x32] = opLDMemA
	c.baseOps[0x3A] = opLDAMem

	// PUSH/POP rp2 (BC,DE,HL,AF).
	pushPop := []byte{0, 1, 2, 3}
	for _, p := range pushPop {
		pp := p
		c.baseOps[0xC1+pp*0x10] = func(cpu *CPU) { cpu.opPop(pp) }
		c.baseOps[0xC5+pp*0x10] = func(cpu *CPU) { cpu.opPush(pp) }
	}

	// Relative/absolute jumps.
	c.baseOps[0x18] = opJR
	c.baseOps[0x10] = opDJNZ
	condJR := map[byte]byte{0x20: 0, 0x28: 1, 0x30: 2, 0x38: 3}
	for op, cond := range condJR {
		cc := cond
		c.baseOps[op] = func(cpu *CPU) { cpu.opJRCond(cc) }
	}
	c.baseOps[0xC3] = opJP
	c.baseOps[0xE9] = opJPHL
	for cc := byte(0); cc <= 7; cc++ {
		cond := cc
		c.baseOps[0xC2+cond*8] = func(cpu *CPU) { cpu.opJPCond(cond) }
		c.baseOps[0xC4+cond*8] = func(cpu *CPU) { cpu.opCallCond(cond) }
		c.baseOps[0xC0+cond*8] = func(cpu *CPU) { cpu.opRetCond(cond) }
	}
	c.baseOps[0xCD] = opCall
	c.baseOps[0xC9] = opRet

	for n := byte(0); n <= 7; n++ {
		addr := n * 8
		c.baseOps[0xC7+n*8] = func(cpu *CPU) { cpu.opRst(addr) }
	}

	c.baseOps[0x00] = opNOP
	c.baseOps[0x07] = func(cpu *CPU) { cpu.A = cpu.rlcA() }
	c.baseOps[0x0F] = func(cpu *CPU) { cpu.A = cpu.rrcA() }
	c.baseOps[0x17] = func(cpu *CPU) { cpu.A = cpu.rlA() }
	c.baseOps[0x1F] = func(cpu *CPU) { cpu.A = cpu.rrA() }
	c.baseOps[0x27] = func(cpu *CPU) { cpu.daa() }
	c.baseOps[0x2F] = func(cpu *CPU) { cpu.cpl() }
	c.baseOps[0x37] = func(cpu *CPU) { cpu.scf() }
	c.baseOps[0x3F] = func(cpu *CPU) { cpu.ccf() }

	c.baseOps[0x08] = func(cpu *CPU) { cpu.ExAF() }
	c.baseOps[0xD9] = func(cpu *CPU) { cpu.Exx() }
	c.baseOps[0xEB] = opEXDEHL
	c.baseOps[0xE3] = opEXSPHL

	c.baseOps[0xF9] = func(cpu *CPU) { cpu.SP = cpu.hlOrIndex(); cpu.tick(2) }

	c.baseOps[0xF3] = func(cpu *CPU) { cpu.IFF1, cpu.IFF2 = false, false }
	c.baseOps[0xFB] = func(cpu *CPU) { cpu.eiDelay = 2 }

	c.baseOps[0xD3] = opOUTAn
	c.baseOps[0xDB] = opINAAn

	c.baseOps[0x34] = opIncAtHL
	c.baseOps[0x35] = opDecAtHL

	// CB and ED prefixes: fetch the second opcode byte and dispatch it
	// through its own table.
	c.baseOps[0xCB] = func(cpu *CPU) { op := cpu.fetchOpcode(); cpu.cbOps[op](cpu) }
	c.baseOps[0xED] = func(cpu *CPU) { op := cpu.fetchOpcode(); cpu.edOps[op](cpu) }
}

func opUnimplemented(c *CPU) {
	// Genuinely undefined base opcodes don't exist in the 0-255 space;
	// reaching here means a dispatch slot wasn't filled. Execute as a
	// timed NOP rather than panicking - no Z80 instruction raises a
	// runtime error (spec §4.1).
	c.tick(0)
}

func opNOP(c *CPU) {}

func opHALT(c *CPU) { c.Halted = true }

func makeLDRegReg(dest, src byte) opFunc {
	switch {
	case dest == 6:
		return func(cpu *CPU) {
			v := cpu.readReg8Plain(src)
			cpu.writeByte(cpu.hlAddr(), v)
		}
	case src == 6:
		return func(cpu *CPU) {
			v := cpu.readByte(cpu.hlAddr())
			cpu.writeReg8Plain(dest, v)
		}
	default:
		return func(cpu *CPU) {
			v := cpu.readReg8Sub(src)
			cpu.writeReg8Sub(dest, v)
		}
	}
}

func (c *CPU) opLDRegImm(dest byte) {
	if dest == 6 {
		addr := c.hlAddr()
		v := c.fetchByte()
		c.writeByte(addr, v)
		return
	}
	v := c.fetchByte()
	c.writeReg8Sub(dest, v)
}

// operand8 reads the ALU/CP/INC-DEC operand named by a 3-bit register
// code, taking (HL)/(IX+d) for code 6.
func (c *CPU) operand8(code byte) byte {
	if code == 6 {
		return c.readByte(c.hlAddr())
	}
	return c.readReg8Sub(code)
}

func opADD(c *CPU, v byte) { c.A = c.add8(c.A, v, false) }
func opADC(c *CPU, v byte) { c.A = c.add8(c.A, v, c.Flag(FlagC)) }
func opSUB(c *CPU, v byte) { c.A = c.sub8(c.A, v, false) }
func opSBC(c *CPU, v byte) { c.A = c.sub8(c.A, v, c.Flag(FlagC)) }
func opAND(c *CPU, v byte) { c.A = c.and8(c.A, v) }
func opXOR(c *CPU, v byte) { c.A = c.xor8(c.A, v) }
func opOR(c *CPU, v byte)  { c.A = c.or8(c.A, v) }
func opCP(c *CPU, v byte)  { c.cp8(c.A, v) }

func (c *CPU) opIncReg(code byte) {
	if code == 6 {
		opIncAtHL(c)
		return
	}
	v := c.readReg8Sub(code)
	c.writeReg8Sub(code, c.inc8(v))
}

func (c *CPU) opDecReg(code byte) {
	if code == 6 {
		opDecAtHL(c)
		return
	}
	v := c.readReg8Sub(code)
	c.writeReg8Sub(code, c.dec8(v))
}

func opIncAtHL(c *CPU) {
	addr := c.hlAddr()
	v := c.readByte(addr)
	c.tick(1)
	c.writeByte(addr, c.inc8(v))
}

func opDecAtHL(c *CPU) {
	addr := c.hlAddr()
	v := c.readByte(addr)
	c.tick(1)
	c.writeByte(addr, c.dec8(v))
}

// pairValue/setPairValue implement the rp encoding 0=BC,1=DE,2=HL(or IX/IY
// under prefix),3=SP, used by INC/DEC rp, ADD HL,rp and LD rp,nn.
func (c *CPU) pairValue(p byte) uint16 {
	switch p {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.hlOrIndex()
	default:
		return c.SP
	}
}

func (c *CPU) setPairValue(p byte, v uint16) {
	switch p {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		if c.prefix != prefixNone {
			c.setIndexReg(v)
		} else {
			c.SetHL(v)
		}
	default:
		c.SP = v
	}
}

func (c *CPU) hlOrIndex() uint16 {
	if c.prefix != prefixNone {
		return c.indexReg()
	}
	return c.HL()
}

func (c *CPU) opIncPair(p byte) {
	c.setPairValue(p, c.pairValue(p)+1)
	c.tick(2)
}

func (c *CPU) opDecPair(p byte) {
	c.setPairValue(p, c.pairValue(p)-1)
	c.tick(2)
}

func (c *CPU) opAddHLPair(p byte) {
	result := c.add16(c.hlOrIndex(), c.pairValue(p))
	c.setPairValue(2, result)
	c.tick(7)
}

func (c *CPU) opLDPairImm(p byte) {
	v := c.fetchWord()
	c.setPairValue(p, v)
}

func opLDMemHL(c *CPU) {
	addr := c.fetchWord()
	c.WZ = addr + 1
	c.writeWord(addr, c.hlOrIndex())
}

func opLDHLMem(c *CPU) {
	addr := c.fetchWord()
	c.WZ = addr + 1
	c.setPairValue(2, c.readWord(addr))
}

func opLDMemA(c *CPU) {
	addr := c.fetchWord()
	c.writeByte(addr, c.A)
	c.WZ = (uint16(c.A) << 8) | ((addr + 1) & 0xFF)
}

func opLDAMem(c *CPU) {
	addr := c.fetchWord()
	c.A = c.readByte(addr)
	c.WZ = addr + 1
}

func (c *CPU) opPush(p byte) {
	var v uint16
	switch p {
	case 0:
		v = c.BC()
	case 1:
		v = c.DE()
	case 2:
		v = c.hlOrIndex()
	default:
		v = c.AF()
	}
	c.tick(1)
	c.pushWord(v)
}

func (c *CPU) opPop(p byte) {
	v := c.popWord()
	switch p {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.setPairValue(2, v)
	default:
		c.SetAF(v)
	}
}

func opJR(c *CPU) {
	d := int8(c.fetchByte())
	c.tick(5)
	c.PC = uint16(int32(c.PC) + int32(d))
	c.WZ = c.PC
}

func opDJNZ(c *CPU) {
	d := int8(c.fetchByte())
	c.B--
	c.tick(1)
	if c.B != 0 {
		c.tick(5)
		c.PC = uint16(int32(c.PC) + int32(d))
		c.WZ = c.PC
	}
}

func (c *CPU) condTrue(cc byte) bool {
	switch cc {
	case 0:
		return !c.Flag(FlagZ)
	case 1:
		return c.Flag(FlagZ)
	case 2:
		return !c.Flag(FlagC)
	case 3:
		return c.Flag(FlagC)
	case 4:
		return !c.Flag(FlagPV)
	case 5:
		return c.Flag(FlagPV)
	case 6:
		return !c.Flag(FlagS)
	default:
		return c.Flag(FlagS)
	}
}

func (c *CPU) opJRCond(cc byte) {
	d := int8(c.fetchByte())
	if c.condTrue(cc) {
		c.tick(5)
		c.PC = uint16(int32(c.PC) + int32(d))
		c.WZ = c.PC
	}
}

func opJP(c *CPU) {
	addr := c.fetchWord()
	c.PC = addr
	c.WZ = addr
}

func opJPHL(c *CPU) { c.PC = c.hlOrIndex() }

func (c *CPU) opJPCond(cc byte) {
	addr := c.fetchWord()
	c.WZ = addr
	if c.condTrue(cc) {
		c.PC = addr
	}
}

func opCall(c *CPU) {
	addr := c.fetchWord()
	c.WZ = addr
	c.tick(1)
	c.pushWord(c.PC)
	c.PC = addr
}

func (c *CPU) opCallCond(cc byte) {
	addr := c.fetchWord()
	c.WZ = addr
	if c.condTrue(cc) {
		c.tick(1)
		c.pushWord(c.PC)
		c.PC = addr
	}
}

func opRet(c *CPU) {
	c.PC = c.popWord()
	c.WZ = c.PC
}

func (c *CPU) opRetCond(cc byte) {
	c.tick(1)
	if c.condTrue(cc) {
		c.PC = c.popWord()
		c.WZ = c.PC
	}
}

func (c *CPU) opRst(addr byte) {
	c.tick(1)
	c.pushWord(c.PC)
	c.PC = uint16(addr)
	c.WZ = c.PC
}

func opEXDEHL(c *CPU) {
	c.D, c.H = c.H, c.D
	c.E, c.L = c.L, c.E
}

func opEXSPHL(c *CPU) {
	addr := c.SP
	v := c.readWord(addr)
	c.tick(1)
	c.writeWord(addr, c.hlOrIndex())
	c.tick(2)
	c.setPairValue(2, v)
	c.WZ = v
}

func opOUTAn(c *CPU) {
	n := c.fetchByte()
	port := uint16(c.A)<<8 | uint16(n)
	c.outPort(port, c.A)
	c.WZ = (uint16(c.A) << 8) | ((port + 1) & 0xFF)
}

func opINAAn(c *CPU) {
	n := c.fetchByte()
	port := uint16(c.A)<<8 | uint16(n)
	c.A = c.inPort(port)
	c.WZ = port + 1
}

func (c *CPU) rlcA() byte {
	carry := c.A&0x80 != 0
	res := c.A << 1
	if carry {
		res |= 1
	}
	c.SetFlag(FlagC, carry)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagY, res&FlagY != 0)
	c.SetFlag(FlagX, res&FlagX != 0)
	c.setQ()
	return res
}

func (c *CPU) rrcA() byte {
	carry := c.A&0x01 != 0
	res := c.A >> 1
	if carry {
		res |= 0x80
	}
	c.SetFlag(FlagC, carry)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagY, res&FlagY != 0)
	c.SetFlag(FlagX, res&FlagX != 0)
	c.setQ()
	return res
}

func (c *CPU) rlA() byte {
	var cin byte
	if c.Flag(FlagC) {
		cin = 1
	}
	carry := c.A&0x80 != 0
	res := (c.A << 1) | cin
	c.SetFlag(FlagC, carry)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagY, res&FlagY != 0)
	c.SetFlag(FlagX, res&FlagX != 0)
	c.setQ()
	return res
}

func (c *CPU) rrA() byte {
	var cin byte
	if c.Flag(FlagC) {
		cin = 0x80
	}
	carry := c.A&0x01 != 0
	res := (c.A >> 1) | cin
	c.SetFlag(FlagC, carry)
	c.SetFlag(FlagH, false)
	c.SetFlag(FlagN, false)
	c.SetFlag(FlagY, res&FlagY != 0)
	c.SetFlag(FlagX, res&FlagX != 0)
	c.setQ()
	return res
}

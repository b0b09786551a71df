// Package vm implements the Chifir interpreter: a fetch-decode-execute
// loop over a lazily-grown word-addressed memory, mirroring the shape of
// the teacher's cpu.CPU (github.com/Urethramancer/m68k/cpu) — a struct
// holding registers and memory and a Step method — generalized from
// m68k's 16-bit variable-width encoding to Chifir's fixed 4-word
// instructions, dispatched through a single switch in Step.
package vm

import "io"

// Default display geometry, per spec: base address, width, height.
const (
	DefaultDisplayBase   = 1_048_576
	DefaultDisplayWidth  = 512
	DefaultDisplayHeight = 684
)

// Reader is a non-blocking byte source: Read returns whatever bytes are
// currently available (possibly zero) without blocking for more.
type Reader interface {
	Read(p []byte) (n int, err error)
}

// Interpreter holds the full runtime state of a Chifir machine: memory,
// program counter, last observed key, and display geometry. One
// instance is exclusively owned by one caller; nothing here is
// safe for concurrent use from multiple goroutines.
type Interpreter struct {
	mem []uint32
	pc  uint32

	hasKey  bool
	lastKey byte

	displayBase   uint32
	displayWidth  uint32
	displayHeight uint32

	input  Reader
	output io.Writer

	frame    []byte
	framePos int
}

// New creates an Interpreter with empty memory, PC at zero, default
// display geometry, no bound input or output, and no last key.
func New() *Interpreter {
	return &Interpreter{
		displayBase:   DefaultDisplayBase,
		displayWidth:  DefaultDisplayWidth,
		displayHeight: DefaultDisplayHeight,
	}
}

// BindInput attaches a non-blocking byte source for the key opcode.
func (vm *Interpreter) BindInput(r Reader) { vm.input = r }

// BindOutput attaches a byte sink for display frames emitted by drw.
func (vm *Interpreter) BindOutput(w io.Writer) { vm.output = w }

// Load replaces memory with the given words and resets PC to zero.
func (vm *Interpreter) Load(words []uint32) {
	vm.mem = make([]uint32, len(words))
	copy(vm.mem, words)
	vm.pc = 0
}

// Dump exposes the current memory contents. Callers must not retain
// the returned slice across further Step/Load calls without copying it.
func (vm *Interpreter) Dump() []uint32 {
	return vm.mem
}

// PC returns the current program counter.
func (vm *Interpreter) PC() uint32 { return vm.pc }

// SetPC overrides the program counter, for hosts that want execution to
// start somewhere other than address 0 after Load.
func (vm *Interpreter) SetPC(pc uint32) { vm.pc = pc }

// ConfigureDisplay overrides the display geometry the cfv opcode would
// otherwise set at runtime, letting a host pre-configure the window
// before the first drw.
func (vm *Interpreter) ConfigureDisplay(base, width, height uint32) {
	vm.displayBase = base
	vm.displayWidth = width
	vm.displayHeight = height
}

// grow extends memory with zero words so that index i is addressable.
func (vm *Interpreter) grow(i uint32) {
	if uint64(i) < uint64(len(vm.mem)) {
		return
	}
	next := make([]uint32, uint64(i)+1)
	copy(next, vm.mem)
	vm.mem = next
}

// read returns M[i], growing memory first if necessary.
func (vm *Interpreter) read(i uint32) uint32 {
	vm.grow(i)
	return vm.mem[i]
}

// write sets M[i] = v, growing memory first if necessary.
func (vm *Interpreter) write(i uint32, v uint32) {
	vm.grow(i)
	vm.mem[i] = v
}

// NextOpcode returns read(PC) without other observable side effects.
func (vm *Interpreter) NextOpcode() uint32 {
	return vm.read(vm.pc)
}

// WriteKey sets last-key to the last byte of b, or clears it when b is
// empty. This is the in-memory keyboard sink described in the external
// interfaces: a way to feed keys without a bound reader.
func (vm *Interpreter) WriteKey(b []byte) {
	if len(b) == 0 {
		vm.hasKey = false
		return
	}
	vm.hasKey = true
	vm.lastKey = b[len(b)-1]
}

// ReadFrame copies pending display-frame bytes into dst, advancing the
// internal read cursor, and returns the number of bytes copied. It is
// the in-memory keyboard/display counterpart for hosts that have not
// bound an output writer.
func (vm *Interpreter) ReadFrame(dst []byte) int {
	n := copy(dst, vm.frame[vm.framePos:])
	vm.framePos += n
	return n
}

// Step fetches the instruction at PC, dispatches on its opcode, and
// mutates memory, PC, and the display/key state accordingly. Step never
// fails: every opcode, including unrecognized ones, is a total operation.
func (vm *Interpreter) Step() {
	op := vm.read(vm.pc)
	a := vm.read(vm.pc + 1)
	b := vm.read(vm.pc + 2)
	c := vm.read(vm.pc + 3)

	switch op {
	case opBRK:
		// Halt sentinel: PC does not advance.
	case opLPC:
		vm.pc = vm.read(a)
	case opBEQ:
		if vm.read(b) == 0 {
			vm.pc = vm.read(a)
		} else {
			vm.pc += 4
		}
	case opSPC:
		vm.write(a, vm.pc)
		vm.pc += 4
	case opLEA:
		vm.write(a, vm.read(b))
		vm.pc += 4
	case opLRA:
		vm.write(a, vm.read(vm.read(b)))
		vm.pc += 4
	case opSRA:
		vm.write(vm.read(b), vm.read(a))
		vm.pc += 4
	case opADD:
		vm.write(a, vm.read(b)+vm.read(c))
		vm.pc += 4
	case opSUB:
		vm.write(a, vm.read(b)-vm.read(c))
		vm.pc += 4
	case opMUL:
		vm.write(a, vm.read(b)*vm.read(c))
		vm.pc += 4
	case opDIV:
		divisor := vm.read(c)
		if divisor > 0 {
			vm.write(a, vm.read(b)/divisor)
		} else {
			vm.write(a, 0)
		}
		vm.pc += 4
	case opMOD:
		divisor := vm.read(c)
		if divisor > 0 {
			vm.write(a, vm.read(b)%divisor)
		} else {
			vm.write(a, 0)
		}
		vm.pc += 4
	case opCMP:
		if vm.read(b) < vm.read(c) {
			vm.write(a, 1)
		} else {
			vm.write(a, 0)
		}
		vm.pc += 4
	case opNAD:
		vm.write(a, ^(vm.read(b) & vm.read(c)))
		vm.pc += 4
	case opDRW:
		vm.draw()
		vm.pc += 4
	case opKEY:
		vm.stepKey(a)
	case opNOP:
		vm.pc += 4
	case opCFV:
		// Operands are literal, not dereferenced: a deliberate
		// asymmetry from every other opcode.
		vm.displayBase = a
		vm.displayWidth = b
		vm.displayHeight = c
		vm.pc += 4
	default:
		// Unknown opcode: ignored, PC unchanged.
	}
}

// stepKey implements the key opcode's conditional PC advance: drain the
// bound reader once, then write last-key into M[A] only if a key is
// known, advancing PC only in that case.
func (vm *Interpreter) stepKey(a uint32) {
	if vm.input != nil {
		var buf [64]byte
		for {
			n, _ := vm.input.Read(buf[:])
			if n == 0 {
				break
			}
			vm.hasKey = true
			vm.lastKey = buf[n-1]
		}
	}

	if !vm.hasKey {
		return
	}

	vm.write(a, uint32(vm.lastKey))
	vm.pc += 4
}

package vm_test

import (
	"bytes"
	"testing"

	"github.com/go-chifir/chifir/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsZeroed(t *testing.T) {
	m := vm.New()
	assert.Equal(t, uint32(0), m.PC())
	assert.Empty(t, m.Dump())
}

func TestLpcLoadsPCFromOperandCell(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{1, 4, 0, 0, 2})
	m.Step()
	assert.Equal(t, uint32(2), m.PC())
}

func TestSubWraps(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{8, 4, 5, 6, 1, 2, 11})
	m.Step()
	dump := m.Dump()
	assert.Equal(t, uint32(4294967287), dump[4])
	assert.Equal(t, uint32(4), m.PC())
}

func TestAddWraps(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{7, 4, 5, 6, 0, 0xFFFFFFFF, 2})
	m.Step()
	assert.Equal(t, uint32(1), m.Dump()[4])
}

func TestMulWraps(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{9, 4, 5, 6, 0, 0x10000, 0x10000})
	m.Step()
	assert.Equal(t, uint32(0), m.Dump()[4])
}

func TestDivByZeroIsZero(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{10, 4, 5, 6, 1, 11, 0})
	m.Step()
	assert.Equal(t, uint32(0), m.Dump()[4])
	assert.Equal(t, uint32(4), m.PC())
}

func TestModByZeroIsZero(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{11, 4, 5, 6, 1, 11, 0})
	m.Step()
	assert.Equal(t, uint32(0), m.Dump()[4])
}

func TestDivAndModNormal(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{10, 4, 5, 6, 1, 17, 5})
	m.Step()
	assert.Equal(t, uint32(3), m.Dump()[4])

	m.Load([]uint32{11, 4, 5, 6, 1, 17, 5})
	m.Step()
	assert.Equal(t, uint32(2), m.Dump()[4])
}

func TestCmp(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{12, 4, 5, 6, 1, 3, 9})
	m.Step()
	assert.Equal(t, uint32(1), m.Dump()[4])

	m.Load([]uint32{12, 4, 5, 6, 1, 9, 3})
	m.Step()
	assert.Equal(t, uint32(0), m.Dump()[4])
}

func TestNad(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{13, 4, 5, 6, 1, 0xFFFFFFFF, 0xFFFFFFFF})
	m.Step()
	assert.Equal(t, uint32(0), m.Dump()[4])
}

func TestHaltOpcodeLeavesPCUnchanged(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{0, 0, 0, 0})
	m.Step()
	assert.Equal(t, uint32(0), m.PC())
}

func TestUnknownOpcodeDoesNotAdvancePC(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{99, 0, 0, 0})
	m.Step()
	assert.Equal(t, uint32(0), m.PC())
}

func TestLpcJumps(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{1, 4, 0, 0, 42})
	m.Step()
	assert.Equal(t, uint32(42), m.PC())
}

func TestBeqTakenAndNotTaken(t *testing.T) {
	m := vm.New()
	// A=4, B=5: M[5]=0 so the branch is taken; PC <- M[4] = 10.
	m.Load([]uint32{2, 4, 5, 0, 10, 0})
	m.Step()
	assert.Equal(t, uint32(10), m.PC())

	m = vm.New()
	// A=4, B=6: M[6]=1 so the branch is not taken; PC += 4.
	m.Load([]uint32{2, 4, 6, 0, 0, 0, 1})
	m.Step()
	assert.Equal(t, uint32(4), m.PC())
}

func TestSpcStoresReturnAddress(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{16, 0, 0, 0, 3, 4, 0, 0})
	m.Step()
	m.Step()
	assert.Equal(t, uint32(4), m.Dump()[4])
	assert.Equal(t, uint32(8), m.PC())
}

func TestLeaAndLraAndSra(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{4, 4, 5, 0, 0, 77})
	m.Step()
	assert.Equal(t, uint32(77), m.Dump()[4])

	m = vm.New()
	m.Load([]uint32{5, 4, 5, 0, 0, 6, 55})
	m.Step()
	assert.Equal(t, uint32(55), m.Dump()[4])

	m = vm.New()
	m.Load([]uint32{6, 4, 5, 0, 99, 8, 0, 0, 0})
	m.Step()
	assert.Equal(t, uint32(99), m.Dump()[8])
}

func TestNopAdvancesPCWithoutMutation(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{16, 1, 2, 3})
	before := append([]uint32(nil), m.Dump()...)
	m.Step()
	assert.Equal(t, uint32(4), m.PC())
	assert.Equal(t, before, m.Dump()[:len(before)])
}

func TestCfvAdvancesPC(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{17, 0x18, 0x1b, 0x3})
	m.Step()
	assert.Equal(t, uint32(4), m.PC())
}

type fixedReader struct {
	data []byte
	done bool
}

func (r *fixedReader) Read(p []byte) (int, error) {
	if r.done || len(r.data) == 0 {
		return 0, nil
	}
	n := copy(p, r.data)
	r.done = true
	return n, nil
}

func TestKeyWithBoundReader(t *testing.T) {
	m := vm.New()
	m.BindInput(&fixedReader{data: []byte{8, 10, 13, 32}})
	m.Load([]uint32{15, 1, 0, 0})
	m.Step()
	assert.Equal(t, uint32(32), m.Dump()[1])
	assert.Equal(t, uint32(4), m.PC())
}

func TestKeyWithNoBindingAndNoPriorKeyStalls(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{15, 1, 0, 0})
	m.Step()
	assert.Equal(t, uint32(0), m.PC())
}

func TestKeyUsesWriteKeyWhenNoReaderBound(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{15, 1, 0, 0})
	m.WriteKey([]byte{7, 9})
	m.Step()
	assert.Equal(t, uint32(9), m.Dump()[1])
	assert.Equal(t, uint32(4), m.PC())
}

func TestDrwEmitsFramingMarkers(t *testing.T) {
	m := vm.New()
	var out bytes.Buffer
	m.BindOutput(&out)
	// cfv shrinks the display window first, and points it away from
	// the program itself, so the window reads back as all-zero.
	m.Load([]uint32{17, 100, 4, 6, 14, 0, 0, 0})
	m.Step()
	m.Step()

	got := out.Bytes()
	require.True(t, len(got) >= 11)
	assert.Equal(t, []byte{0x1B, 0x5B, 0x31, 0x3B, 0x31, 0x48, 0x1B, 0x50, 0x71}, got[:9])
	assert.Equal(t, []byte{0x1B, 0x5C}, got[len(got)-2:])
	// drw always renders with a border, per the grounding source's
	// render() call (original_source/src/computer.rs, src/machine.rs).
	assert.Equal(t, "______$-~????~$-@@@@@@$-", string(got[9:len(got)-2]))
	assert.Equal(t, uint32(8), m.PC())
}

func TestReadFrameWithoutBoundWriter(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{17, 1, 4, 6, 14, 0, 0, 0})
	m.Step()
	m.Step()

	buf := make([]byte, 4096)
	n := m.ReadFrame(buf)
	require.Greater(t, n, 0)
	assert.Equal(t, byte(0x1B), buf[0])
}

func TestSetPCOverridesStartingAddress(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{16, 0, 0, 0, 16, 0, 0, 0})
	m.SetPC(4)
	assert.Equal(t, uint32(4), m.PC())
	m.Step()
	assert.Equal(t, uint32(8), m.PC())
}

func TestConfigureDisplayOverridesGeometryBeforeDrw(t *testing.T) {
	m := vm.New()
	var out bytes.Buffer
	m.BindOutput(&out)
	m.ConfigureDisplay(100, 4, 6)
	m.Load([]uint32{14, 0, 0, 0})
	m.Step()

	got := out.Bytes()
	assert.Equal(t, "______$-~????~$-@@@@@@$-", string(got[9:len(got)-2]))
}

func TestLoadResetsPC(t *testing.T) {
	m := vm.New()
	m.Load([]uint32{1, 4, 0, 0, 5})
	m.Step()
	assert.Equal(t, uint32(5), m.PC())

	m.Load([]uint32{0, 0, 0, 0})
	assert.Equal(t, uint32(0), m.PC())
}

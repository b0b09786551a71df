package vm

import "github.com/go-chifir/chifir/pixel"

// draw renders the configured display window through the pixel encoder
// and retains it for ReadFrame, also flushing it to the output writer
// when one is bound: the last frame is always kept, regardless of
// whether a writer is bound.
func (vm *Interpreter) draw() {
	start := vm.displayBase
	end := start + vm.displayWidth*vm.displayHeight

	// Touch both ends to guarantee the window is materialized before
	// slicing it, per the read/read/slice sequence in the opcode table.
	vm.read(start)
	vm.read(end)

	window := vm.mem[start:end]

	var buf []byte
	buf = append(buf, pixel.CursorHome()...)
	buf = append(buf, pixel.Begin()...)
	buf = append(buf, pixel.Encode(window, int(vm.displayWidth), int(vm.displayHeight), true)...)
	buf = append(buf, pixel.End()...)

	vm.frame = buf
	vm.framePos = 0

	if vm.output != nil {
		// Errors from the bound writer are deliberately ignored: a
		// failed display write must not change PC behavior.
		_, _ = vm.output.Write(buf)
	}
}

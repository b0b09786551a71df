// Package input adapts a blocking byte stream (typically a raw-mode
// terminal's stdin) into the non-blocking reader the vm package's key
// opcode requires. It follows the same shape as the teacher's CPU
// holding a small buffered channel of pending work, but here the
// channel carries keystrokes instead of instructions.
package input

import "io"

// Reader drains a blocking source on a background goroutine and
// exposes a non-blocking Read: available bytes are returned
// immediately, and Read returns (0, nil) when nothing is pending yet.
type Reader struct {
	bytes chan byte
	done  chan struct{}
}

// New starts a goroutine that continuously reads single bytes from src
// and buffers them on an internal channel. The goroutine exits when src
// returns an error (typically because the process is shutting down).
func New(src io.Reader) *Reader {
	r := &Reader{
		bytes: make(chan byte, 256),
		done:  make(chan struct{}),
	}
	go r.pump(src)
	return r
}

func (r *Reader) pump(src io.Reader) {
	defer close(r.done)
	buf := make([]byte, 1)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			select {
			case r.bytes <- buf[0]:
			default:
				// Buffer full: drop the oldest pending byte rather
				// than block the pump and stall future input.
				select {
				case <-r.bytes:
				default:
				}
				r.bytes <- buf[0]
			}
		}
		if err != nil {
			return
		}
	}
}

// Read drains every byte currently buffered into p without blocking,
// satisfying the vm.Reader contract ("read all currently available
// bytes, return 0 when none").
func (r *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		select {
		case b := <-r.bytes:
			p[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

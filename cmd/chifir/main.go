// Command chifir is the host driver: it assembles or loads a program,
// switches the terminal to raw mode, binds stdin/stdout, and runs the
// machine until it halts. It plays the role of the teacher's cmd/run68,
// rebuilt around Chifir's interpreter and a real terminal instead of a
// synthetic CPU harness.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/go-chifir/chifir/asm"
	"github.com/go-chifir/chifir/input"
	"github.com/go-chifir/chifir/vm"
)

var (
	maxCycles = flag.Int("cycles", 0, "Maximum instructions to execute (0 = unbounded).")
	pcStart   = flag.Uint64("pc", 0, "Override the initial program counter (0 = start at address 0).")

	displayBase   = flag.Uint64("display-base", vm.DefaultDisplayBase, "Initial display window base address.")
	displayWidth  = flag.Uint64("display-width", vm.DefaultDisplayWidth, "Initial display window width.")
	displayHeight = flag.Uint64("display-height", vm.DefaultDisplayHeight, "Initial display window height.")

	keySource = flag.String("key-source", "stdin", "Keyboard source: stdin or none.")
)

func main() {
	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <file.asm|file.bin>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	words, err := load(flag.Arg(0))
	if err != nil {
		log.Fatalf("couldn't load program: %v", err)
	}

	m := vm.New()
	m.Load(words)
	m.ConfigureDisplay(uint32(*displayBase), uint32(*displayWidth), uint32(*displayHeight))
	if *pcStart != 0 {
		m.SetPC(uint32(*pcStart))
	}

	restore, err := enterRawMode()
	if err != nil {
		log.Printf("warning: raw mode unavailable: %v", err)
	} else {
		defer restore()
	}

	switch *keySource {
	case "stdin":
		m.BindInput(input.New(os.Stdin))
	case "none":
		// No reader bound: key only advances PC once a key has been
		// pushed via WriteKey, or never.
	default:
		log.Fatalf("unknown -key-source %q (want stdin or none)", *keySource)
	}
	m.BindOutput(os.Stdout)

	run(m)
}

// load reads a file, assembling it first when its extension says it
// holds Chifir source rather than already-assembled words.
func load(filename string) ([]uint32, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".asm":
		a := asm.New()
		words, err := a.Assemble(string(raw))
		if err != nil {
			return nil, fmt.Errorf("assembling %s: %w", filename, err)
		}
		return words, nil
	default:
		return bytesToWords(raw), nil
	}
}

func bytesToWords(code []byte) []uint32 {
	n := len(code) / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		words[i] = uint32(code[i*4]) | uint32(code[i*4+1])<<8 | uint32(code[i*4+2])<<16 | uint32(code[i*4+3])<<24
	}
	return words
}

// enterRawMode switches stdin to raw mode if it is a terminal, and
// returns a restore function. It is a no-op (with a nil restore error)
// when stdin is not a terminal, e.g. under test harnesses or pipes.
func enterRawMode() (func(), error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() {
		_ = term.Restore(fd, state)
	}, nil
}

// run drives the fetch-step loop until the machine halts on opcode 0
// or the optional cycle ceiling is reached.
func run(m *vm.Interpreter) {
	cycles := 0
	for m.NextOpcode() != 0 {
		m.Step()
		cycles++
		if *maxCycles > 0 && cycles >= *maxCycles {
			log.Printf("stopped after reaching cycle limit (%d)", *maxCycles)
			return
		}
	}
}

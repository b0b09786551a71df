// Command chidis disassembles a Chifir binary into readable text, the
// way the teacher's cmd/dis68 disassembles an m68k binary.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-chifir/chifir/disasm"
)

func main() {
	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o outfile] <binfile>\n", os.Args[0])
		flag.PrintDefaults()
	}
	outputFile := flag.String("o", "", "Write disassembly here instead of stdout.")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	code, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("couldn't read input file: %v", err)
	}

	words := bytesToWords(code)
	text := disasm.Render(words)

	if *outputFile == "" {
		fmt.Print(text)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(text), 0o644); err != nil {
		log.Fatalf("couldn't write output file: %v", err)
	}
	log.Printf("disassembly written to %s", *outputFile)
}

func bytesToWords(code []byte) []uint32 {
	n := len(code) / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

// Command chasm assembles Chifir source into a little-endian word
// binary or a hex dump, the way the teacher's cmd/asm68 turns m68k
// source into a big-endian M68K binary.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-chifir/chifir/asm"
)

func main() {
	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o outfile] <sourcefile>\n", os.Args[0])
		flag.PrintDefaults()
	}
	outputFile := flag.String("o", "", "Write assembled binary here instead of printing a hex dump.")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("couldn't read source file: %v", err)
	}

	a := asm.New()
	words, err := a.Assemble(string(src))
	if err != nil {
		log.Fatalf("assembly failed: %v", err)
	}

	code := wordsToBytes(words)

	if *outputFile == "" {
		for i, b := range code {
			fmt.Printf("%02X ", b)
			if (i+1)%16 == 0 {
				fmt.Println()
			}
		}
		fmt.Println()
		return
	}

	if err := os.WriteFile(*outputFile, code, 0o644); err != nil {
		log.Fatalf("couldn't write output file: %v", err)
	}
	log.Printf("assembled %d words (%d bytes) to %s", len(words), len(code), *outputFile)
}

func wordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

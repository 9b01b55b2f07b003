// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/bpfsnoop/btfparse/btf"
	"github.com/bpfsnoop/btfparse/btfgen"
	"github.com/bpfsnoop/btfparse/internal/assert"
)

func usage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "\tinclude-gen /sys/kernel/btf/vmlinux")
	fmt.Fprintln(os.Stderr, "\tinclude-gen /sys/kernel/btf/vmlinux [/sys/kernel/btf/btusb]")
	if fs != nil {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, fs.FlagUsages())
	}
}

func main() {
	var outputFile string
	var verbose bool

	fs := flag.NewFlagSet("include-gen", flag.ExitOnError)
	fs.StringVarP(&outputFile, "output", "o", "", "output file for the header, default is stdout")
	fs.BoolVarP(&verbose, "verbose", "v", false, "output verbose log")
	fs.Usage = func() { usage(fs) }

	_ = fs.Parse(os.Args[1:])

	paths := fs.Args()
	if len(paths) == 0 {
		usage(nil)
		return
	}

	if outputFile != "" {
		color.NoColor = true
	}

	tm, err := btf.OpenMany(paths)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Failed to open the BTF file: %v\n", err)
		os.Exit(1)
	}

	if verbose {
		log.Printf("Generating header from %d types ..", tm.Count())
	}

	header, err := btfgen.Generate(tm)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Failed to generate the header: %v\n", err)
		os.Exit(1)
	}

	var w io.Writer = os.Stdout
	if outputFile != "" {
		out, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		assert.NoErr(err, "Failed to create output file: %v")
		defer out.Close()
		w = out
	}

	_, err = io.WriteString(w, header)
	assert.NoErr(err, "Failed to write header: %v")
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/gobwas/glob"
	flag "github.com/spf13/pflag"

	"github.com/bpfsnoop/btfparse/btf"
	"github.com/bpfsnoop/btfparse/internal/assert"
	"github.com/bpfsnoop/btfparse/internal/dump"
)

type flags struct {
	filter     string
	jsonOutput bool
	outputFile string
	verbose    bool
}

func (f *flags) verboseLog(format string, args ...any) {
	if f.verbose {
		log.Printf(format, args...)
	}
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "\tdump-btf /sys/kernel/btf/vmlinux")
	fmt.Fprintln(os.Stderr, "\tdump-btf /sys/kernel/btf/vmlinux [/sys/kernel/btf/btusb]")
	if fs != nil {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, fs.FlagUsages())
	}
}

func parseFlags() (*flags, []string) {
	var f flags

	fs := flag.NewFlagSet("dump-btf", flag.ExitOnError)
	fs.StringVarP(&f.filter, "filter", "f", "", "only dump types whose name matches the glob, e.g. 'task_*'")
	fs.BoolVarP(&f.jsonOutput, "json", "j", false, "dump types as JSON, one object per line")
	fs.StringVarP(&f.outputFile, "output", "o", "", "output file for the result, default is stdout")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "output verbose log")
	fs.Usage = func() { usage(fs) }

	_ = fs.Parse(os.Args[1:])

	return &f, fs.Args()
}

func main() {
	f, paths := parseFlags()
	if len(paths) == 0 {
		usage(nil)
		return
	}

	var match glob.Glob
	if f.filter != "" {
		g, err := glob.Compile(f.filter)
		assert.NoErr(err, "Failed to compile glob from %s: %v", f.filter)
		match = g
	}

	f.verboseLog("Decoding BTF from %d blob(s) ..", len(paths))
	tm, err := btf.OpenMany(paths)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Failed to open the BTF file: %v\n", err)
		os.Exit(1)
	}
	f.verboseLog("Decoded %d types", tm.Count())

	w := os.Stdout
	if f.outputFile != "" {
		out, err := os.OpenFile(f.outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		assert.NoErr(err, "Failed to create output file: %v")
		defer out.Close()
		w = out

		color.NoColor = true
	}

	if tm.Count() == 0 {
		fmt.Fprintln(w, "No types were found!")
		os.Exit(1)
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for id, typ := range tm.All() {
		if match != nil {
			name := typ.TypeName()
			if name == "" {
				name = "(anon)"
			}
			if !match.Match(name) {
				continue
			}
		}

		if f.jsonOutput {
			err = dump.PrintTypeJSON(bw, id, typ)
		} else {
			err = dump.PrintType(bw, id, typ)
		}
		assert.NoErr(err, "Failed to dump type: %v")
	}
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

// Package assert bails out of a CLI with a formatted fatal message when
// a precondition does not hold.
package assert

import "log"

func NoErr(err error, format string, args ...any) {
	if err != nil {
		args = append(args, err)
		log.Fatalf(format, args...)
	}
}

func True(cond bool, format string, args ...any) {
	if !cond {
		log.Fatalf(format, args...)
	}
}

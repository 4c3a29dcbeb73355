// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package executor

import logpkg "github.com/echa/log"

var log logpkg.Logger = logpkg.Log

func init() {
	DisableLog()
}

// DisableLog disables all library log output.
func DisableLog() {
	log = logpkg.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger logpkg.Logger) {
	log = logger
}

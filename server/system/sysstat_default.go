// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

//go:build !linux

package system

import (
	"context"
)

// readProcStat has no process source outside linux.
func readProcStat(_ context.Context, _ *SysStat, _ string) error {
	return nil
}

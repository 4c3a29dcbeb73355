// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package etl

// ListRequest is a pagination window. Callers clamp both values before
// passing them in.
type ListRequest struct {
	Offset uint
	Limit  uint
}

// window returns the [start, end) slice bounds of r over n items.
func (r ListRequest) window(n int) (int, int) {
	start := int(r.Offset)
	if start > n {
		start = n
	}
	end := start + int(r.Limit)
	if end > n || end < start {
		end = n
	}
	return start, end
}

package gcode

import (
	"errors"
	"strings"
)

// ErrNoBlock is returned when the start/end markers do not delimit a block:
// the start marker is absent, or no end marker follows it.
var ErrNoBlock = errors.New("start/end markers not found")

// Block is a contiguous sub-range of instruction stream lines delimited by
// two marker lines. Neither marker line is part of the block.
type Block struct {
	// Start is the index of the first line inside the block, i.e. the line
	// immediately after the start marker.
	Start int

	// End is the index of the end marker line. The block covers the
	// half-open range [Start, End) of the original stream.
	End int

	// Lines holds the block contents, in stream order.
	Lines []string
}

// ExtractBlock scans lines in order and returns the first block delimited
// by a line containing startMarker and a later line containing endMarker.
// Marker matching is substring containment, not exact-line equality.
//
// Only the first start marker opens the block; further start-marker lines
// inside it are ordinary content. The first end marker seen while inside
// closes the block and ends the scan. A start marker with no subsequent
// end marker yields ErrNoBlock.
func ExtractBlock(lines []string, startMarker, endMarker string) (Block, error) {
	inside := false
	start, end := -1, -1
	var blockLines []string

	for i, line := range lines {
		if !inside && strings.Contains(line, startMarker) {
			inside = true
			start = i + 1
			continue
		}
		if inside && strings.Contains(line, endMarker) {
			end = i
			break
		}
		if inside {
			blockLines = append(blockLines, line)
		}
	}

	if start < 0 || end < 0 {
		return Block{}, ErrNoBlock
	}
	return Block{Start: start, End: end, Lines: blockLines}, nil
}

// Splice reassembles a full line sequence from the original stream and the
// rewritten block contents: everything before the block (including the
// start marker line), then rewritten, then the end marker line and
// everything after it. The input slice is not modified.
func (b Block) Splice(lines, rewritten []string) []string {
	out := make([]string, 0, b.Start+len(rewritten)+len(lines)-b.End)
	out = append(out, lines[:b.Start]...)
	out = append(out, rewritten...)
	out = append(out, lines[b.End:]...)
	return out
}

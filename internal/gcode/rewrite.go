package gcode

import (
	"regexp"
	"strings"
)

// Candidate lines combine a G command with planar motion and extrusion.
// The reference pattern is a single multiline regex with two lookaheads:
//
//	^G\d*\b(?=.*\b[XY]-?\d*\.?\d+)(?=.*\bE-?\d*\.?\d+).*
//
// RE2 has no lookahead, so the pattern is split into a line-anchored head
// check plus two independent token searches. The tokens can only appear
// after the head (the head is anchored at column zero), so searching the
// whole line is equivalent.
var (
	commandHead  = regexp.MustCompile(`^G[0-9]*\b`)
	planarParam  = regexp.MustCompile(`\b[XY]-?[0-9]*\.?[0-9]+`)
	extrudeParam = regexp.MustCompile(`\bE-?[0-9]*\.?[0-9]+`)
)

// IsCandidate reports whether line is a rewrite candidate: a G command
// carrying at least one X or Y parameter and an E parameter.
func IsCandidate(line string) bool {
	return commandHead.MatchString(line) &&
		planarParam.MatchString(line) &&
		extrudeParam.MatchString(line)
}

// Rewrite records one line replacement within a block.
type Rewrite struct {
	// Index is the block-relative position of the rewritten line.
	Index int

	// Text is the full replacement line.
	Text string
}

// RewriteBlock zeroes the extrusion field on every candidate line.
//
// Each candidate keeps everything up to (but excluding) its first "E" and
// gets "E0" appended in place of the rest. The second-to-last candidate
// gets "E.01" instead, leaving a minimal prime for the first real
// extrusion move. With fewer than two candidates no line qualifies for the
// ".01" treatment.
//
// Candidates are matched per occurrence: two block lines with identical
// text are rewritten independently, each at its own position. The returned
// slice is a copy; blockLines is not modified. An empty rewrite list means
// nothing matched and the caller should treat the operation as a no-op.
func RewriteBlock(blockLines []string) ([]string, []Rewrite) {
	var candidates []int
	for i, line := range blockLines {
		if IsCandidate(line) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	out := make([]string, len(blockLines))
	copy(out, blockLines)

	rewrites := make([]Rewrite, 0, len(candidates))
	for k, idx := range candidates {
		left, _, _ := strings.Cut(out[idx], "E")
		text := left + "E0"
		if k == len(candidates)-2 {
			text = left + "E.01"
		}
		out[idx] = text
		rewrites = append(rewrites, Rewrite{Index: idx, Text: text})
	}
	return out, rewrites
}

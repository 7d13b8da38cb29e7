// Package gcode implements the block extraction and line rewriting core.
//
// The package operates on an instruction stream as an ordered slice of
// lines. It never interprets machine semantics: lines are matched purely
// syntactically (a G command token plus X/Y and E parameter tokens) and
// rewritten textually. Everything else in the stream passes through
// untouched.
//
// Two operations make up the core:
//
//   - ExtractBlock locates the sub-range delimited by two marker lines.
//   - RewriteBlock zeroes the extrusion field on every candidate line in
//     that range, with the second-to-last candidate receiving E.01 instead
//     of E0 (a priming convention for the target printer workflow).
//
// Both operations are pure: callers own reading the stream out of the
// archive and splicing the rewritten block back in.
package gcode

// Package archive implements the read-modify-replace transaction on a
// 3MF project archive.
//
// A 3MF file is an ordinary ZIP container. The transactor reads one text
// resource out of it, runs the gcode block rewrite, and writes a new
// archive in which every other member is copied unchanged (raw compressed
// bytes and metadata preserved) and only the target resource is replaced.
// The new archive is staged as a temp file in the same directory and
// renamed onto the destination in a single call, so the original is never
// deleted before its replacement exists.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"deprime/internal/gcode"
)

// Target describes where the instruction stream lives and how to find the
// editable block inside it.
type Target struct {
	// Resource is the member path of the instruction stream inside the
	// archive, e.g. "Metadata/plate_1.gcode".
	Resource string

	// StartMarker and EndMarker delimit the editable block. Matching is
	// substring containment per line.
	StartMarker string
	EndMarker   string

	// Extension is the required archive file extension, e.g. ".3mf".
	// Compared case-insensitively.
	Extension string
}

// LineChange is one rewritten line, addressed by its 1-based line number
// within the full instruction stream.
type LineChange struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Plan is the computed rewrite for one archive, before anything is
// written. BlockStart/BlockEnd are 1-based line numbers: BlockStart is the
// first line inside the block, BlockEnd the end marker line.
type Plan struct {
	Path       string       `json:"path"`
	Resource   string       `json:"resource"`
	BlockStart int          `json:"block_start"`
	BlockEnd   int          `json:"block_end"`
	BlockLines int          `json:"block_lines"`
	Changes    []LineChange `json:"changes"`

	lines     []string
	block     gcode.Block
	rewritten []string
}

// Result reports a completed processing run.
type Result struct {
	Path     string       `json:"path"`
	Resource string       `json:"resource"`
	Matches  int          `json:"matches"`
	Changes  []LineChange `json:"changes"`
	Modified bool         `json:"modified"`
}

// BuildPlan reads the target resource and computes the rewrite without
// touching the archive. A block with zero candidate lines yields a Plan
// with empty Changes, not an error; Process turns that into NO_MATCHES.
func BuildPlan(path string, t Target) (*Plan, error) {
	if err := validate(path, t); err != nil {
		return nil, err
	}

	text, err := readResource(path, t.Resource)
	if err != nil {
		return nil, err
	}

	lines := splitLines(text)
	blk, err := gcode.ExtractBlock(lines, t.StartMarker, t.EndMarker)
	if err != nil {
		return nil, wrapError(CodeBlockNotFound, path,
			fmt.Sprintf("could not find start/end markers in %s", t.Resource), err)
	}

	rewritten, rewrites := gcode.RewriteBlock(blk.Lines)
	changes := make([]LineChange, len(rewrites))
	for i, rw := range rewrites {
		changes[i] = LineChange{Line: blk.Start + rw.Index + 1, Text: rw.Text}
	}

	return &Plan{
		Path:       path,
		Resource:   t.Resource,
		BlockStart: blk.Start + 1,
		BlockEnd:   blk.End + 1,
		BlockLines: len(blk.Lines),
		Changes:    changes,
		lines:      lines,
		block:      blk,
		rewritten:  rewritten,
	}, nil
}

// Process runs the full transaction: plan the rewrite, then replace the
// archive in place. On NO_MATCHES (or any other failure) the archive is
// left untouched.
func Process(path string, t Target) (*Result, error) {
	plan, err := BuildPlan(path, t)
	if err != nil {
		return nil, err
	}
	if len(plan.Changes) == 0 {
		return nil, newError(CodeNoMatches, path,
			"no matching G-code lines found to modify")
	}

	merged := plan.block.Splice(plan.lines, plan.rewritten)
	if err := writeBack(path, t.Resource, joinLines(merged)); err != nil {
		return nil, wrapError(CodeWriteError, path, "could not save archive", err)
	}

	return &Result{
		Path:     path,
		Resource: t.Resource,
		Matches:  len(plan.Changes),
		Changes:  plan.Changes,
		Modified: true,
	}, nil
}

func validate(path string, t Target) error {
	if !strings.EqualFold(filepath.Ext(path), t.Extension) {
		return newError(CodeInvalidInput, path,
			fmt.Sprintf("not a %s file", t.Extension))
	}
	if _, err := os.Stat(path); err != nil {
		return wrapError(CodeInvalidInput, path, "file not found", err)
	}
	return nil
}

// readResource returns the decoded text of the named archive member.
func readResource(path, resource string) (string, error) {
	zr, err := openReader(path)
	if err != nil {
		return "", wrapError(CodeReadError, path, "could not open archive", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != resource {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", wrapError(CodeReadError, path,
				fmt.Sprintf("could not open %s", resource), err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", wrapError(CodeReadError, path,
				fmt.Sprintf("could not read %s", resource), err)
		}
		return decodeStream(raw), nil
	}

	return "", newError(CodeReadError, path,
		fmt.Sprintf("archive has no %s resource", resource))
}

// writeBack stages a replacement archive next to path and renames it onto
// the destination in one call. Every member except resource is copied in
// raw form at its original position; resource is rewritten with text in
// place under its original header. On failure the temp file is removed and
// the original archive is untouched.
func writeBack(path, resource, text string) error {
	zr, err := openReader(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".deprime-*")
	if err != nil {
		zr.Close()
		return err
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		zr.Close()
		return err
	}

	zw := newWriter(tmp)
	found := false
	for _, f := range zr.File {
		if f.Name != resource {
			if err := zw.Copy(f); err != nil {
				return fail(fmt.Errorf("copy %s: %w", f.Name, err))
			}
			continue
		}
		found = true
		if err := writeReplacement(zw, f, text); err != nil {
			return fail(err)
		}
	}
	if !found {
		return fail(fmt.Errorf("resource %s disappeared from archive", resource))
	}
	if err := zw.Close(); err != nil {
		return fail(fmt.Errorf("finalize archive: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		zr.Close()
		return err
	}
	zr.Close()

	// Single rename onto the destination: the original is never removed
	// first, so a failure here leaves it intact.
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// writeReplacement emits the rewritten resource at the current position in
// the output archive, keeping the original member's header fields. Sizes
// and CRC are cleared so the writer recomputes them for the new text.
func writeReplacement(zw *zip.Writer, orig *zip.File, text string) error {
	hdr := orig.FileHeader
	hdr.CRC32 = 0
	hdr.CompressedSize = 0
	hdr.UncompressedSize = 0
	hdr.CompressedSize64 = 0
	hdr.UncompressedSize64 = 0

	w, err := zw.CreateHeader(&hdr)
	if err != nil {
		return fmt.Errorf("create %s: %w", orig.Name, err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return fmt.Errorf("write %s: %w", orig.Name, err)
	}
	return nil
}

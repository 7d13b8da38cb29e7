package archive

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding/unicode"
)

// openReader opens a ZIP archive with the klauspost flate decompressor
// registered for Deflate members.
func openReader(path string) (*zip.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	return zr, nil
}

// newWriter wraps w in a zip.Writer using the klauspost flate compressor
// for Deflate members.
func newWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	return zw
}

// decodeStream converts raw resource bytes to text. Invalid UTF-8
// sequences become U+FFFD instead of failing the read.
func decodeStream(raw []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		// The UTF-8 decoder substitutes rather than erroring; fall back to
		// the raw bytes if that ever changes.
		return string(raw)
	}
	return string(out)
}

// splitLines splits text on "\n", tolerating CRLF input by stripping a
// trailing "\r" per line. joinLines is its inverse under the single
// newline convention.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

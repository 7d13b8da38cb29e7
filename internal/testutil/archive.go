// Package testutil provides shared test fixtures for building and
// inspecting ZIP archives.
package testutil

import (
	"archive/zip"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Member is one named entry of a fixture archive.
type Member struct {
	Name    string
	Data    []byte
	Store   bool // store uncompressed instead of deflating
	Extra   []byte
	Comment string
}

// WriteArchive creates a ZIP file at path containing members in order.
func WriteArchive(t *testing.T, path string, members []Member) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		method := uint16(zip.Deflate)
		if m.Store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:    m.Name,
			Method:  method,
			Extra:   m.Extra,
			Comment: m.Comment,
		})
		require.NoError(t, err)
		_, err = w.Write(m.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// ReadMember returns the decompressed content of the named member.
func ReadMember(t *testing.T, path, name string) []byte {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return data
	}

	t.Fatalf("member %q not found in %s", name, path)
	return nil
}

// MemberNames returns the member names of the archive, in stored order.
func MemberNames(t *testing.T, path string) []string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// MemberMethod returns the compression method of the named member.
func MemberMethod(t *testing.T, path, name string) uint16 {
	t.Helper()
	return MemberHeader(t, path, name).Method
}

// MemberHeader returns the central directory header of the named member.
func MemberHeader(t *testing.T, path, name string) zip.FileHeader {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == name {
			return f.FileHeader
		}
	}

	t.Fatalf("member %q not found in %s", name, path)
	return zip.FileHeader{}
}

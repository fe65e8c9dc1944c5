// Package archive iterates zip-packed statement exports and yields one
// decoded text stream per contained member. The platform exports in the
// GB18030 legacy encoding; readers handed to the walk callback are already
// decoded to UTF-8.
package archive

import (
	"archive/zip"
	"fmt"
	"io"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Member describes one text member of a statement archive and tracks how
// much of it has been consumed, for progress reporting.
type Member struct {
	Name string
	Size uint64 // uncompressed size in bytes

	read int64
}

// BytesRead reports how many encoded bytes of the member have been
// consumed so far.
func (m *Member) BytesRead() int64 {
	return m.read
}

// WalkFunc receives each member and its decoded line stream. Returning an
// error stops the walk and propagates.
type WalkFunc func(m *Member, r io.Reader) error

// Walk opens the zip archive at path and calls fn once per file member
// with a GB18030-decoded reader.
func Walk(path string, fn WalkFunc) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := walkMember(f, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkMember(f *zip.File, fn WalkFunc) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening member %s: %w", f.Name, err)
	}
	defer rc.Close()

	m := &Member{Name: f.Name, Size: f.UncompressedSize64}
	counted := &countingReader{r: rc, n: &m.read}
	decoded := transform.NewReader(counted, simplifiedchinese.GB18030.NewDecoder())
	return fn(m, decoded)
}

// countingReader counts encoded bytes as they pass through, before
// decoding, so progress lines up with the member's stored size.
type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += int64(n)
	return n, err
}

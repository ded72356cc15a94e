// Package archive reads location records out of a tar archive.
//
// The archive may be plain, gzip, bzip2 or zstd compressed; the format is
// detected from the leading magic bytes rather than the file extension.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/recsync/internal/parse"
	"github.com/roach88/recsync/internal/record"
)

// Compression identifies how a tar stream is wrapped.
type Compression string

const (
	None  Compression = "none"
	Gzip  Compression = "gzip"
	Bzip2 Compression = "bzip2"
	Zstd  Compression = "zstd"
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// ErrUnsupportedCompression is returned for recognised but unsupported wrappers.
var ErrUnsupportedCompression = errors.New("unsupported archive compression")

// ErrEmpty is returned for a zero-length archive file.
var ErrEmpty = errors.New("empty archive")

// Member describes one regular file read from the archive.
type Member struct {
	Name   string
	Counts parse.Counts
}

// Result is everything read from one archive.
type Result struct {
	Path        string
	Compression Compression
	Members     []Member
	Records     []record.Record
}

// Read opens the archive at path and parses every regular-file member with c.
// Members are parsed without a line preprocessor, labelled by member name.
// Any failure to open or read the container is returned as-is: there is no
// partial result.
func Read(path string, c *parse.Collector) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	res, err := ReadFrom(f, c)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	res.Path = path
	return res, nil
}

// ReadFrom parses an archive stream. See Read.
func ReadFrom(r io.Reader, c *parse.Collector) (*Result, error) {
	stream, comp, closeFn, err := decompress(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	res := &Result{Compression: comp}
	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if err != nil {
			if err == io.EOF {
				return res, nil
			}
			return nil, fmt.Errorf("fetch next member: %w", err)
		}
		if hdr == nil || !hdr.FileInfo().Mode().IsRegular() {
			continue
		}

		recs, counts, err := c.Collect(parse.Lines(tr, hdr.Name, nil))
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", hdr.Name, err)
		}
		res.Members = append(res.Members, Member{Name: hdr.Name, Counts: counts})
		res.Records = append(res.Records, recs...)
	}
}

// decompress sniffs the wrapper and returns a reader over the raw tar bytes.
func decompress(r io.Reader) (io.Reader, Compression, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(magicXz))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", nil, fmt.Errorf("sniff compression: %w", err)
	}
	if len(head) == 0 {
		return nil, "", nil, ErrEmpty
	}

	noop := func() {}
	switch {
	case bytes.HasPrefix(head, magicGzip):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, "", nil, fmt.Errorf("gzip.NewReader: %w", err)
		}
		return gz, Gzip, func() { gz.Close() }, nil
	case bytes.HasPrefix(head, magicBzip2):
		return bzip2.NewReader(br), Bzip2, noop, nil
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, "", nil, fmt.Errorf("zstd.NewReader: %w", err)
		}
		return zr, Zstd, zr.Close, nil
	case bytes.HasPrefix(head, magicXz):
		return nil, "", nil, fmt.Errorf("%w: xz", ErrUnsupportedCompression)
	default:
		return br, None, noop, nil
	}
}

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// Member is one entry of a test tar archive.
type Member struct {
	Name string
	Body string
	Dir  bool
}

// File is a shorthand for a regular-file Member whose body is lines joined
// by newlines, with a trailing newline.
func File(name string, lines ...string) Member {
	body := strings.Join(lines, "\n")
	if len(lines) > 0 {
		body += "\n"
	}
	return Member{Name: name, Body: body}
}

// Location renders one record line. lat and lon are omitted when nil.
func Location(createdAt int64, lat, lon any) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"_type":"location","created_at":%d`, createdAt)
	if lat != nil {
		fmt.Fprintf(&b, `,"lat":%v`, lat)
	}
	if lon != nil {
		fmt.Fprintf(&b, `,"lon":%v`, lon)
	}
	b.WriteString("}")
	return b.String()
}

// TarBytes builds a tar archive with the given compression
// ("none", "gzip" or "zstd").
func TarBytes(t testing.TB, compression string, members ...Member) []byte {
	t.Helper()

	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	for _, m := range members {
		hdr := &tar.Header{Name: m.Name, Mode: 0o644, Size: int64(len(m.Body)), Typeflag: tar.TypeReg}
		if m.Dir {
			hdr = &tar.Header{Name: m.Name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", m.Name, err)
		}
		if !m.Dir {
			if _, err := tw.Write([]byte(m.Body)); err != nil {
				t.Fatalf("write tar body %s: %v", m.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	switch compression {
	case "", "none":
		return raw.Bytes()
	case "gzip":
		var out bytes.Buffer
		gz := gzip.NewWriter(&out)
		if _, err := gz.Write(raw.Bytes()); err != nil {
			t.Fatalf("gzip: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("gzip close: %v", err)
		}
		return out.Bytes()
	case "zstd":
		var out bytes.Buffer
		zw, err := zstd.NewWriter(&out)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		if _, err := zw.Write(raw.Bytes()); err != nil {
			t.Fatalf("zstd: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zstd close: %v", err)
		}
		return out.Bytes()
	default:
		t.Fatalf("unknown compression %q", compression)
		return nil
	}
}

// WriteArchive writes a gzip tar archive into dir and returns its path.
func WriteArchive(t testing.TB, dir string, members ...Member) string {
	t.Helper()
	path := filepath.Join(dir, "archive.tar.gz")
	if err := os.WriteFile(path, TarBytes(t, "gzip", members...), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

// WriteFile writes lines (newline-terminated) to root/rel, creating parents.
func WriteFile(t testing.TB, root, rel string, lines ...string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := strings.Join(lines, "\n")
	if len(lines) > 0 {
		body += "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

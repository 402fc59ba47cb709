// Package vectorstore packages, retrieves, and verifies the prebuilt vector
// store used by the OPTEEE bot API. The store is built elsewhere; this layer
// only moves it around as a tar.gz archive.
package vectorstore

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// archiveRoot is the directory name entries are stored under, so extracting
// at a deployment root recreates the expected layout.
const archiveRoot = "vector_store"

// RequiredFiles must exist inside a store directory for it to be usable.
var RequiredFiles = []string{
	"transcript_index.faiss",
	"transcript_metadata.pkl",
}

// Check verifies that dir contains a complete vector store.
func Check(dir string) error {
	for _, name := range RequiredFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("vector store file %q missing: %w", name, err)
		}
		if info.IsDir() {
			return fmt.Errorf("vector store file %q is a directory", name)
		}
	}
	return nil
}

// Pack writes a gzip-compressed tarball of the store directory to outPath.
// Entries are stored under the archive root so the tarball can be extracted
// at any deployment root. Only regular files are archived.
func Pack(dir, outPath string) error {
	if err := Check(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".pack-*")
	if err != nil {
		return fmt.Errorf("create archive temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(tw, path, filepath.ToSlash(filepath.Join(archiveRoot, rel)))
	})
	if walkErr != nil {
		tmp.Close()
		return fmt.Errorf("archive vector store: %w", walkErr)
	}

	if err := tw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finish tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finish gzip stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}
	return nil
}

func addFile(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// Fetch downloads a tar.gz archive from url and extracts it under destDir.
func Fetch(ctx context.Context, client *http.Client, url, destDir string) error {
	if url == "" {
		return fmt.Errorf("vector store url is required")
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download vector store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vector store download returned %s", resp.Status)
	}

	if err := extract(resp.Body, destDir); err != nil {
		return fmt.Errorf("extract vector store: %w", err)
	}
	return nil
}

// extract streams a tar.gz archive into destDir, refusing entries that would
// escape it.
func extract(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := safePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %q: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %q: %w", hdr.Name, err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("create file %q: %w", hdr.Name, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("write file %q: %w", hdr.Name, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close file %q: %w", hdr.Name, err)
			}
		default:
			// Symlinks and specials are not part of a packed store.
			continue
		}
	}
}

func safePath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return filepath.Join(destDir, cleaned), nil
}

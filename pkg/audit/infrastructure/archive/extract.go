// Package archive unpacks downloaded artifact bundles and answers file
// presence questions about the unpacked tree.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

// Bundles are produced by the deployment tool, but the cap still guards
// against a corrupt or hostile archive expanding without bound.
const maxEntrySize = 1 << 30

var (
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
	gzipMagic = []byte{0x1f, 0x8b}
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Unpack extracts the bundle at archivePath into destDir. The format is
// detected from the file header, not the file name.
func (e *Extractor) Unpack(archivePath, destDir string) error {
	magic, err := readMagic(archivePath)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(destDir, 0o750); err != nil {
		return errors.Wrap(err, "failed to create destination directory")
	}

	switch {
	case bytes.HasPrefix(magic, zipMagic):
		return extractZip(archivePath, destDir)
	case bytes.HasPrefix(magic, gzipMagic):
		return extractTarGz(archivePath, destDir)
	default:
		return errors.Errorf("unsupported archive format in %v", filepath.Base(archivePath))
	}
}

// Presence reports, for each of the given names, whether a regular file with
// that name exists at the top level of dir.
func (e *Extractor) Presence(dir string, names []string) (model.ManifestFileCheck, error) {
	presence := make(model.ManifestFileCheck, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		switch {
		case err == nil:
			presence[name] = info.Mode().IsRegular()
		case os.IsNotExist(err):
			presence[name] = false
		default:
			return nil, errors.Wrapf(err, "failed to stat %v", name)
		}
	}
	return presence, nil
}

func readMagic(archivePath string) ([]byte, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open archive")
	}
	defer file.Close()

	magic := make([]byte, 4)
	if _, err = io.ReadFull(file, magic); err != nil {
		return nil, errors.Wrap(err, "failed to read archive header")
	}
	return magic, nil
}

func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open zip archive")
	}
	defer reader.Close()

	for _, entry := range reader.File {
		target, err := entryTarget(destDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o750); err != nil {
				return errors.Wrap(err, "failed to create directory")
			}
			continue
		}
		if !entry.FileInfo().Mode().IsRegular() {
			continue
		}

		if err = os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return errors.Wrap(err, "failed to create parent directory")
		}
		content, err := entry.Open()
		if err != nil {
			return errors.Wrapf(err, "failed to open zip entry %v", entry.Name)
		}
		err = writeEntry(target, content, entry.FileInfo().Mode())
		_ = content.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to extract %v", entry.Name)
		}
	}
	return nil
}

func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return errors.Wrap(err, "failed to create gzip reader")
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	// Symlinks are created after all files exist so links to later entries
	// resolve.
	type symlink struct {
		target   string
		linkname string
	}
	var symlinks []symlink

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read tar entry")
		}

		target, err := entryTarget(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o750); err != nil {
				return errors.Wrap(err, "failed to create directory")
			}
		case tar.TypeReg:
			if err = os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return errors.Wrap(err, "failed to create parent directory")
			}
			if err = writeEntry(target, tarReader, os.FileMode(header.Mode)); err != nil {
				return errors.Wrapf(err, "failed to extract %v", header.Name)
			}
		case tar.TypeSymlink:
			symlinks = append(symlinks, symlink{target: target, linkname: header.Linkname})
		default:
			// Extended headers and other special entries carry no payload we
			// care about.
		}
	}

	for _, link := range symlinks {
		resolved := link.linkname
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(filepath.Dir(link.target), resolved)
		}
		if !withinDir(destDir, resolved) {
			return errors.Errorf("invalid symlink target in archive: %v", link.linkname)
		}
		if err = os.MkdirAll(filepath.Dir(link.target), 0o750); err != nil {
			return errors.Wrap(err, "failed to create directory for symlink")
		}
		if err = os.Symlink(link.linkname, link.target); err != nil {
			return errors.Wrap(err, "failed to create symlink")
		}
	}
	return nil
}

func entryTarget(destDir, name string) (string, error) {
	//nolint:gosec // G305: traversal is rejected by the withinDir check below
	target := filepath.Join(destDir, name)
	if !withinDir(destDir, target) {
		return "", errors.Errorf("invalid file path in archive: %v", name)
	}
	return target, nil
}

func withinDir(dir, path string) bool {
	cleanDir := filepath.Clean(dir)
	cleanPath := filepath.Clean(path)
	return cleanPath == cleanDir || strings.HasPrefix(cleanPath, cleanDir+string(filepath.Separator))
}

func writeEntry(target string, content io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	written, err := io.Copy(out, io.LimitReader(content, maxEntrySize+1))
	if err != nil {
		_ = out.Close()
		return errors.Wrap(err, "failed to write file")
	}
	if written > maxEntrySize {
		_ = out.Close()
		return errors.New("archive entry exceeds size limit")
	}
	return errors.Wrap(out.Close(), "failed to close file")
}

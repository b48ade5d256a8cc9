package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

func writeZipBundle(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	bundlePath := filepath.Join(dir, "bundle.zip")
	out, err := os.Create(bundlePath)
	require.NoError(t, err)
	writer := zip.NewWriter(out)
	for name, content := range files {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, out.Close())
	return bundlePath
}

func writeTarGzBundle(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	bundlePath := filepath.Join(dir, "bundle.tar.gz")
	out, err := os.Create(bundlePath)
	require.NoError(t, err)
	gzipWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzipWriter)
	for name, content := range files {
		require.NoError(t, tarWriter.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err = tarWriter.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tarWriter.Close())
	require.NoError(t, gzipWriter.Close())
	require.NoError(t, out.Close())
	return bundlePath
}

func TestUnpackZip(t *testing.T) {
	bundlePath := writeZipBundle(t, t.TempDir(), map[string]string{
		"manifest-es1.yml":    "es1: true",
		"nested/settings.yml": "nested: true",
	})
	destDir := t.TempDir()

	require.NoError(t, NewExtractor().Unpack(bundlePath, destDir))

	content, err := os.ReadFile(filepath.Join(destDir, "manifest-es1.yml"))
	require.NoError(t, err)
	assert.Equal(t, "es1: true", string(content))
	content, err = os.ReadFile(filepath.Join(destDir, "nested", "settings.yml"))
	require.NoError(t, err)
	assert.Equal(t, "nested: true", string(content))
}

func TestUnpackTarGz(t *testing.T) {
	bundlePath := writeTarGzBundle(t, t.TempDir(), map[string]string{
		"manifest-ws2.yml": "ws2: true",
	})
	destDir := t.TempDir()

	require.NoError(t, NewExtractor().Unpack(bundlePath, destDir))

	content, err := os.ReadFile(filepath.Join(destDir, "manifest-ws2.yml"))
	require.NoError(t, err)
	assert.Equal(t, "ws2: true", string(content))
}

func TestUnpackDetectsFormatFromHeader(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeTarGzBundle(t, dir, map[string]string{"manifest-es2.yml": "es2: true"})
	misnamed := filepath.Join(dir, "bundle.zip")
	require.NoError(t, os.Rename(bundlePath, misnamed))
	destDir := t.TempDir()

	require.NoError(t, NewExtractor().Unpack(misnamed, destDir))
	assert.FileExists(t, filepath.Join(destDir, "manifest-es2.yml"))
}

func TestUnpackRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.bin")
	require.NoError(t, os.WriteFile(bundlePath, []byte("not an archive"), 0o600))

	err := NewExtractor().Unpack(bundlePath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported archive format")
}

func TestUnpackRejectsPathTraversal(t *testing.T) {
	t.Run("zip", func(t *testing.T) {
		bundlePath := writeZipBundle(t, t.TempDir(), map[string]string{"../evil.txt": "evil"})
		err := NewExtractor().Unpack(bundlePath, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid file path in archive")
	})
	t.Run("tar.gz", func(t *testing.T) {
		bundlePath := writeTarGzBundle(t, t.TempDir(), map[string]string{"../evil.txt": "evil"})
		err := NewExtractor().Unpack(bundlePath, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid file path in archive")
	})
}

func TestUnpackRejectsEscapingSymlink(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.tar.gz")
	out, err := os.Create(bundlePath)
	require.NoError(t, err)
	gzipWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzipWriter)
	require.NoError(t, tarWriter.WriteHeader(&tar.Header{
		Name:     "escape",
		Typeflag: tar.TypeSymlink,
		Linkname: "../../etc/passwd",
	}))
	require.NoError(t, tarWriter.Close())
	require.NoError(t, gzipWriter.Close())
	require.NoError(t, out.Close())

	err = NewExtractor().Unpack(bundlePath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid symlink target")
}

func TestPresence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.ManifestEs1), []byte("es1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.ManifestWs2), []byte("ws2"), 0o600))
	// A directory with a manifest name does not count as the manifest.
	require.NoError(t, os.Mkdir(filepath.Join(dir, model.ManifestEs2), 0o750))

	presence, err := NewExtractor().Presence(dir, model.ManifestNames())
	require.NoError(t, err)
	assert.Equal(t, model.ManifestFileCheck{
		model.ManifestEs1: true,
		model.ManifestEs2: false,
		model.ManifestWs2: true,
	}, presence)
}

package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// writeFingerprint writes the sha256 sidecar next to the report, in the usual
// "hash  filename" checksum format.
func writeFingerprint(path string, content []byte) error {
	sum := sha256.Sum256(content)
	line := fmt.Sprintf("%s  %s\n", hex.EncodeToString(sum[:]), filepath.Base(path))
	return errors.Wrap(os.WriteFile(path+".sha256", []byte(line), 0o644), "failed to write report checksum")
}

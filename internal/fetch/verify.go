package fetch

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

// ErrChecksumMismatch indicates the tarball's digest did not appear on
// any line of the checksum manifest.
var ErrChecksumMismatch = errors.New("fetch: checksum not found in manifest")

// sha256File computes the hex-encoded SHA256 digest of a file.
func sha256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// verifyManifest checks that the digest of tarballPath appears on some
// line of the manifest at manifestPath. Every line is scanned; only when
// none contains the digest does verification fail. The published
// manifest is often a clearsigned document; the armor is stripped to get
// at the digest lines, but the signature itself is not verified.
func verifyManifest(tarballPath, manifestPath string) error {
	digest, err := sha256File(tarballPath)
	if err != nil {
		return fmt.Errorf("hash tarball: %w", err)
	}

	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(manifestBody(manifest)))
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), digest) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan manifest: %w", err)
	}

	return fmt.Errorf("%w: %s", ErrChecksumMismatch, digest)
}

// manifestBody returns the digest lines of a manifest, unwrapping a
// clearsign armor when present.
func manifestBody(data []byte) []byte {
	block, _ := clearsign.Decode(data)
	if block != nil {
		return block.Plaintext
	}
	return data
}

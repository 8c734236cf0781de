// Package fingerprint hashes document content for the dedup key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

// fastChunk is how much of the head and tail feeds a fast fingerprint.
const fastChunk = 1024

// Hasher computes fingerprints. The zero value hashes the whole file with SHA-256.
type Hasher struct {
	Algorithm constants.HashAlgorithm
	Mode      constants.HashMode
}

// New returns a Hasher for the given algorithm and mode names.
func New(algorithm, mode string) (*Hasher, error) {
	h := &Hasher{Algorithm: constants.HashAlgorithm(algorithm), Mode: constants.HashMode(mode)}
	if _, err := h.newHash(); err != nil {
		return nil, err
	}
	switch h.Mode {
	case "", constants.HashModeFull, constants.HashModeFast:
	default:
		return nil, fmt.Errorf("unknown hash mode %q", mode)
	}
	return h, nil
}

func (h *Hasher) newHash() (hash.Hash, error) {
	switch h.Algorithm {
	case "", constants.HashSHA256:
		return sha256.New(), nil
	case constants.HashBLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", h.Algorithm)
	}
}

// File fingerprints the file at path. Open and read failures are IO errors.
func (h *Hasher) File(path string) (entity.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.Fingerprint{}, common.NewIOError("open document", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return entity.Fingerprint{}, common.NewIOError("stat document", err)
	}
	if info.IsDir() {
		return entity.Fingerprint{}, common.NewIOError("fingerprint", fmt.Errorf("%s is a directory", path))
	}

	hh, err := h.newHash()
	if err != nil {
		return entity.Fingerprint{}, err
	}

	if h.Mode == constants.HashModeFast {
		err = hashEnds(hh, f, info.Size())
	} else {
		_, err = io.Copy(hh, f)
	}
	if err != nil {
		return entity.Fingerprint{}, common.NewIOError("read document", err)
	}
	return entity.Fingerprint{Hash: hex.EncodeToString(hh.Sum(nil)), Size: info.Size()}, nil
}

// hashEnds feeds the size plus the first and last KiB into hh.
func hashEnds(hh hash.Hash, r io.ReaderAt, size int64) error {
	fmt.Fprintf(hh, "%d:", size)
	head := min(size, fastChunk)
	if _, err := io.Copy(hh, io.NewSectionReader(r, 0, head)); err != nil {
		return err
	}
	if size > fastChunk {
		off := max(size-fastChunk, fastChunk)
		if _, err := io.Copy(hh, io.NewSectionReader(r, off, size-off)); err != nil {
			return err
		}
	}
	return nil
}

package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("media not found")
	ErrInvalidHash = errors.New("invalid media hash")
)

// Object is stored content addressed by the sha256 of Data.
type Object struct {
	Hash        string
	ContentType string
	Data        []byte
}

// Store persists immutable content addressed by its sha256 hex digest.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, hash string) (Object, error)
}

func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func ValidHash(h string) bool {
	if len(h) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil && strings.ToLower(h) == h
}

func objectKey(hash string) string {
	return "sha256/" + hash
}

func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The node domain tracks IRVersion so a change to the canonical encoding
// never collides with fingerprints recorded under the old one.
const (
	DomainNode = "querypipe/node/v" + IRVersion
	DomainRun  = "querypipe/run/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a tree.
// Structurally equal trees have equal fingerprints.
func Fingerprint(n Node) (string, error) {
	canonical, err := MarshalNode(n)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNode, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(n Node) string {
	fp, err := Fingerprint(n)
	if err != nil {
		panic(err)
	}
	return fp
}

// RunKey identifies one fuzz execution: a test, a seed and the fingerprint
// of the query that was mutated. Replays of the same run share a key.
func RunKey(testID string, seed int64, queryFingerprint string) (string, error) {
	obj := IRObject{
		"test_id": IRString(testID),
		"seed":    IRInt(seed),
		"query":   IRString(queryFingerprint),
	}
	canonical, err := marshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RunKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRun, canonical), nil
}

// Package attestation produces quorum-signed reports over encoded
// registration records.
package attestation

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"watch-registration/internal/models"
)

// Attestor obtains a multi-party attestation of an encoded record.
type Attestor interface {
	Attest(ctx context.Context, record models.EncodedRecord, opts models.ReportOptions) (*models.AttestedRecord, error)
}

// AttestorFunc adapts a function to Attestor.
type AttestorFunc func(ctx context.Context, record models.EncodedRecord, opts models.ReportOptions) (*models.AttestedRecord, error)

func (f AttestorFunc) Attest(ctx context.Context, record models.EncodedRecord, opts models.ReportOptions) (*models.AttestedRecord, error) {
	return f(ctx, record, opts)
}

var (
	ErrUnsupportedEncoder = errors.New("unsupported report encoder")
	ErrUnsupportedSigning = errors.New("unsupported signing algorithm")
	ErrUnsupportedHashing = errors.New("unsupported hashing algorithm")
	ErrEmptyRecord        = errors.New("encoded record is empty")
)

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "keccak256":
		h := sha3.NewLegacyKeccak256()
		h.Write(message)
		return h.Sum(nil), nil
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHashing, hashAlg)
	}
}

// ReportDigest is hash(hash(payload) || reportContext), the value each
// signer signs.
func ReportDigest(hashAlg string, payload, reportContext []byte) ([]byte, error) {
	inner, err := digestFor(hashAlg, payload)
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(inner)+len(reportContext))
	msg = append(msg, inner...)
	msg = append(msg, reportContext...)
	return digestFor(hashAlg, msg)
}

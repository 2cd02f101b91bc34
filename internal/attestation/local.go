package attestation

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"watch-registration/internal/common/config"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/models"
)

// contextLength is configDigest (32) followed by a 32 byte sequence word.
const contextLength = 64

// LocalQuorumSigner signs reports with a fixed set of secp256k1 keys held by
// this process. The first Quorum keys sign every report.
type LocalQuorumSigner struct {
	keys         []*ecdsa.PrivateKey
	signers      []common.Address
	quorum       int
	configDigest common.Hash
	sequence     atomic.Uint64
	logger       logger.Logger
}

// NewLocalQuorumSigner parses the hex keys in cfg. With no keys configured,
// Quorum ephemeral keys are generated so local runs work out of the box.
func NewLocalQuorumSigner(cfg config.AttestationConfig, log logger.Logger) (*LocalQuorumSigner, error) {
	if cfg.Quorum < 1 {
		return nil, fmt.Errorf("attestation quorum must be positive, got %d", cfg.Quorum)
	}

	var keys []*ecdsa.PrivateKey
	for i, raw := range cfg.SignerKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
		if err != nil {
			return nil, fmt.Errorf("signer key %d: %w", i, err)
		}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		for i := 0; i < cfg.Quorum; i++ {
			key, err := crypto.GenerateKey()
			if err != nil {
				return nil, fmt.Errorf("failed to generate ephemeral signer key: %w", err)
			}
			keys = append(keys, key)
		}
		log.Warn("No attestation signer keys configured, using ephemeral keys", map[string]interface{}{
			"quorum": cfg.Quorum,
		})
	}

	if cfg.Quorum > len(keys) {
		return nil, fmt.Errorf("attestation quorum %d exceeds %d signer keys", cfg.Quorum, len(keys))
	}

	var digest common.Hash
	if cfg.ConfigDigest != "" {
		b, err := hexutil.Decode(cfg.ConfigDigest)
		if err != nil || len(b) != common.HashLength {
			return nil, fmt.Errorf("config_digest must be a 32 byte hex string")
		}
		digest = common.BytesToHash(b)
	}

	s := &LocalQuorumSigner{
		keys:         keys,
		quorum:       cfg.Quorum,
		configDigest: digest,
		logger:       log.WithFields(map[string]interface{}{"component": "attestation"}),
	}
	for _, key := range keys {
		s.signers = append(s.signers, crypto.PubkeyToAddress(key.PublicKey))
	}
	return s, nil
}

// Signers returns the addresses of all configured keys.
func (s *LocalQuorumSigner) Signers() []common.Address {
	out := make([]common.Address, len(s.signers))
	copy(out, s.signers)
	return out
}

func (s *LocalQuorumSigner) Attest(ctx context.Context, record models.EncodedRecord, opts models.ReportOptions) (*models.AttestedRecord, error) {
	if err := checkOptions(opts); err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, ErrEmptyRecord
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reportContext := make([]byte, contextLength)
	copy(reportContext, s.configDigest[:])
	binary.BigEndian.PutUint64(reportContext[contextLength-8:], s.sequence.Add(1))

	digest, err := ReportDigest(opts.HashingAlgo, record, reportContext)
	if err != nil {
		return nil, err
	}

	attested := &models.AttestedRecord{
		Payload: append(models.EncodedRecord(nil), record...),
		Context: reportContext,
		Digest:  common.BytesToHash(digest),
		Options: opts,
	}
	for i := 0; i < s.quorum; i++ {
		sig, err := crypto.Sign(digest, s.keys[i])
		if err != nil {
			return nil, fmt.Errorf("signer %s: %w", s.signers[i].Hex(), err)
		}
		attested.Signatures = append(attested.Signatures, sig)
		attested.Signers = append(attested.Signers, s.signers[i])
	}

	s.logger.Debug("Report attested", map[string]interface{}{
		"digest":     attested.Digest.Hex(),
		"signatures": len(attested.Signatures),
	})

	return attested, nil
}

func checkOptions(opts models.ReportOptions) error {
	if opts.EncoderName != "evm" {
		return fmt.Errorf("%w: %q", ErrUnsupportedEncoder, opts.EncoderName)
	}
	if opts.SigningAlgo != "ecdsa" {
		return fmt.Errorf("%w: %q", ErrUnsupportedSigning, opts.SigningAlgo)
	}
	_, err := digestFor(opts.HashingAlgo, nil)
	return err
}

// RecoverSigners returns the address behind each signature of rec.
func RecoverSigners(rec *models.AttestedRecord) ([]common.Address, error) {
	digest, err := ReportDigest(rec.Options.HashingAlgo, rec.Payload, rec.Context)
	if err != nil {
		return nil, err
	}
	if common.BytesToHash(digest) != rec.Digest {
		return nil, fmt.Errorf("digest mismatch: record carries %s", rec.Digest.Hex())
	}

	addrs := make([]common.Address, 0, len(rec.Signatures))
	for i, sig := range rec.Signatures {
		pub, err := crypto.SigToPub(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		addrs = append(addrs, crypto.PubkeyToAddress(*pub))
	}
	return addrs, nil
}

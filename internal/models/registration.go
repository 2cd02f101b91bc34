package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// RegistrationRequest is one watch to be fractionalized. It is created from
// the inbound payload and not modified afterwards.
type RegistrationRequest struct {
	Brand            string
	Model            string
	Serial           string
	TotalFractions   *big.Int
	PricePerFraction *big.Int // wei
	AppraisalSource  string
}

// Validate checks the request invariants that the record codec relies on.
func (r *RegistrationRequest) Validate() error {
	var problems []string
	if r.Brand == "" {
		problems = append(problems, "watchBrand is required")
	}
	if r.Model == "" {
		problems = append(problems, "watchModel is required")
	}
	if r.Serial == "" {
		problems = append(problems, "watchSerial is required")
	}
	if r.TotalFractions == nil || r.TotalFractions.Sign() <= 0 {
		problems = append(problems, "totalFractions must be at least 1")
	}
	if r.PricePerFraction == nil || r.PricePerFraction.Sign() < 0 {
		problems = append(problems, "pricePerFractionWei must be a non-negative integer")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// AuthenticityVerdict is the outcome of an authenticity check for a serial.
type AuthenticityVerdict struct {
	Authenticated       bool    `json:"authenticated"`
	EstimatedValueUSD   float64 `json:"estimatedValue"`
	CertifyingAuthority string  `json:"certifyingAuthority,omitempty"`
}

// HasAuthority reports whether a certifying authority was named.
func (v AuthenticityVerdict) HasAuthority() bool {
	return v.CertifyingAuthority != ""
}

// EncodedRecord is the ABI encoding of a registration as consumed on chain.
type EncodedRecord []byte

// ReportOptions names the encoding and cryptographic suite of an attestation.
type ReportOptions struct {
	EncoderName string
	SigningAlgo string
	HashingAlgo string
}

// DefaultReportOptions is the suite used for EVM consumers.
var DefaultReportOptions = ReportOptions{
	EncoderName: "evm",
	SigningAlgo: "ecdsa",
	HashingAlgo: "keccak256",
}

// AttestedRecord is an encoded record plus the quorum signatures over it.
type AttestedRecord struct {
	Payload    EncodedRecord
	Context    []byte
	Digest     common.Hash
	Signatures [][]byte
	Signers    []common.Address
	Options    ReportOptions
}

// Destination addresses the receiver contract of a report.
type Destination struct {
	Receiver common.Address
}

// GasConfig carries the resource limit of a submission.
type GasConfig struct {
	GasLimit uint64
}

// TxStatus is the terminal status reported by the ledger.
type TxStatus string

const (
	TxStatusSuccess  TxStatus = "SUCCESS"
	TxStatusReverted TxStatus = "REVERTED"
	TxStatusFatal    TxStatus = "FATAL"
)

// LedgerReply is what a submission collaborator returns. TxHash may be empty.
type LedgerReply struct {
	Status       TxStatus
	TxHash       []byte
	ErrorMessage string
}

// SubmissionResult is the terminal result of a successful invocation.
type SubmissionResult struct {
	Status        TxStatus
	TransactionID common.Hash
	ErrorDetail   string
}

// Package codec builds the on-chain registration record consumed by the
// luxury watch receiver contract.
package codec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"watch-registration/internal/models"
)

// ErrValueOutOfRange is returned for integers outside [0, 2^256).
var ErrValueOutOfRange = errors.New("value out of uint256 range")

// registrationArgs is the receiver's decoding layout:
// (uint256 totalFractions, string brand, string model, string serial, uint256 pricePerFraction).
// The order is a wire contract with the deployed consumer.
var registrationArgs = abi.Arguments{
	{Name: "totalFractions", Type: mustType("uint256")},
	{Name: "brand", Type: mustType("string")},
	{Name: "model", Type: mustType("string")},
	{Name: "serial", Type: mustType("string")},
	{Name: "pricePerFraction", Type: mustType("uint256")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("codec: invalid abi type %q: %v", t, err))
	}
	return typ
}

// EncodeRegistration ABI-encodes req. Equal requests always produce equal bytes.
func EncodeRegistration(req *models.RegistrationRequest) (models.EncodedRecord, error) {
	if req == nil {
		return nil, errors.New("nil registration request")
	}
	if err := checkUint256("totalFractions", req.TotalFractions); err != nil {
		return nil, err
	}
	if err := checkUint256("pricePerFraction", req.PricePerFraction); err != nil {
		return nil, err
	}

	packed, err := registrationArgs.Pack(
		new(big.Int).Set(req.TotalFractions),
		req.Brand,
		req.Model,
		req.Serial,
		new(big.Int).Set(req.PricePerFraction),
	)
	if err != nil {
		return nil, fmt.Errorf("abi pack: %w", err)
	}
	return packed, nil
}

// DecodeRegistration reverses EncodeRegistration. AppraisalSource is not part
// of the record and is left empty.
func DecodeRegistration(data models.EncodedRecord) (*models.RegistrationRequest, error) {
	values, err := registrationArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("abi unpack: %w", err)
	}
	if len(values) != len(registrationArgs) {
		return nil, fmt.Errorf("abi unpack: got %d values, want %d", len(values), len(registrationArgs))
	}

	fractions, ok1 := values[0].(*big.Int)
	brand, ok2 := values[1].(string)
	model, ok3 := values[2].(string)
	serial, ok4 := values[3].(string)
	price, ok5 := values[4].(*big.Int)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return nil, errors.New("abi unpack: unexpected value types")
	}

	return &models.RegistrationRequest{
		Brand:            brand,
		Model:            model,
		Serial:           serial,
		TotalFractions:   fractions,
		PricePerFraction: price,
	}, nil
}

// abi.Pack wraps negative and oversized integers silently, so range is
// checked here.
func checkUint256(field string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%s: %w: missing", field, ErrValueOutOfRange)
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return fmt.Errorf("%s: %w: %s", field, ErrValueOutOfRange, v.String())
	}
	return nil
}

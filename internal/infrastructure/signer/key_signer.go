package signer

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"vest_orchestrator/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// KeySigner signs transactions with an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ port.Signer = (*KeySigner)(nil)

// NewKeySigner parses a hex private key, with or without the 0x prefix.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *KeySigner) Address() common.Address { return s.address }

// SignTx signs tx for chainID with the latest signer rules.
func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if chainID == nil {
		return nil, errors.New("chain id is required to sign")
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return signed, nil
}

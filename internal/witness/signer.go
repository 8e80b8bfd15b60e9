package witness

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer answers the login challenge
type Signer interface {
	PublicKey() string
	Sign(message []byte) (string, error)
}

// EthereumSigner signs challenges as personal messages with the wallet's
// secp256k1 key. PublicKey is the checksummed wallet address.
type EthereumSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

var _ Signer = (*EthereumSigner)(nil)

// NewEthereumSigner parses a hex private key, with or without 0x. When
// address is set it must belong to the key.
func NewEthereumSigner(privateKey, address string) (*EthereumSigner, error) {
	privateKey = strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	if privateKey == "" {
		return nil, errors.New("private key is required")
	}

	key, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	derived := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if address = strings.TrimSpace(address); address != "" && !strings.EqualFold(address, derived) {
		return nil, fmt.Errorf("public key %s does not match private key address %s", address, derived)
	}

	return &EthereumSigner{key: key, address: derived}, nil
}

func (s *EthereumSigner) PublicKey() string {
	return s.address
}

// Sign returns the 65-byte r||s||v signature with v in {27, 28}
func (s *EthereumSigner) Sign(message []byte) (string, error) {
	sig, err := crypto.Sign(textHash(message), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// textHash is the EIP-191 personal message digest
func textHash(message []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message))
	return crypto.Keccak256([]byte(prefix), message)
}

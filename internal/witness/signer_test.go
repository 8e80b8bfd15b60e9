package witness

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress    = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

func TestNewEthereumSigner(t *testing.T) {
	tests := []struct {
		name       string
		privateKey string
		address    string
		wantErr    bool
	}{
		{name: "prefixed key", privateKey: testPrivateKey},
		{name: "bare key", privateKey: testPrivateKey[2:]},
		{name: "matching address", privateKey: testPrivateKey, address: testAddress},
		{name: "lowercase address", privateKey: testPrivateKey, address: "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"},
		{name: "mismatched address", privateKey: testPrivateKey, address: "0x0000000000000000000000000000000000000001", wantErr: true},
		{name: "empty key", privateKey: "  ", wantErr: true},
		{name: "not hex", privateKey: "0xnothex", wantErr: true},
		{name: "short key", privateKey: "0xdeadbeef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewEthereumSigner(tt.privateKey, tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testAddress, signer.PublicKey())
		})
	}
}

func TestEthereumSigner_Sign(t *testing.T) {
	signer, err := NewEthereumSigner(testPrivateKey, "")
	require.NoError(t, err)

	message := []byte("sign me")
	signature, err := signer.Sign(message)
	require.NoError(t, err)

	assert.Regexp(t, `^0x[0-9a-f]{130}$`, signature)

	raw, err := hexutil.Decode(signature)
	require.NoError(t, err)
	require.Len(t, raw, crypto.SignatureLength)
	assert.Contains(t, []byte{27, 28}, raw[crypto.RecoveryIDOffset])

	raw[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(textHash(message), raw)
	require.NoError(t, err)
	assert.Equal(t, testAddress, crypto.PubkeyToAddress(*pub).Hex())

	again, err := signer.Sign(message)
	require.NoError(t, err)
	assert.Equal(t, signature, again)

	other, err := signer.Sign([]byte("another"))
	require.NoError(t, err)
	assert.NotEqual(t, signature, other)
}

func TestTextHash(t *testing.T) {
	assert.Equal(t,
		"0xa1de988600a42c4b4ab089b619297c17d53cffae5d5120d82d8a92d0bb3b78f2",
		hexutil.Encode(textHash([]byte("Hello World"))),
	)
}

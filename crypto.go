package cadastre

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// GetHash returns the keccak-256 digest of data.
func GetHash(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// SignBytes signs the keccak digest of data with a hex-encoded secp256k1
// private key. The returned signature is in [R || S || V] form.
func SignBytes(data []byte, privatekey string) ([]byte, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privatekey, "0x"))
	if err != nil {
		return nil, err
	}
	return crypto.Sign(GetHash(data), key)
}

// RecoverAddress recovers the signer address from a [R || S || V] signature
// over data. Addresses are normalized to lowercase hex.
func RecoverAddress(data []byte, signature []byte) (string, error) {
	pub, err := crypto.SigToPub(GetHash(data), signature)
	if err != nil {
		return "", err
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// VerifySignature checks that signature over data was produced by address.
func VerifySignature(data []byte, signature []byte, address string) error {
	recovered, err := RecoverAddress(data, signature)
	if err != nil {
		return err
	}
	if recovered != strings.ToLower(address) {
		return fmt.Errorf("signer mismatch: expected %s, got %s", address, recovered)
	}
	return nil
}

// PrivKeyToAddr derives the lowercase hex address for a hex-encoded
// secp256k1 private key.
func PrivKeyToAddr(privatekey string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privatekey, "0x"))
	if err != nil {
		return "", err
	}
	return strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()), nil
}

// IsAddress reports whether s looks like a registry identity.
func IsAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

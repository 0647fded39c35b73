// Package jd implements the signed-and-encrypted RPC protocol used to
// reach a remote download manager through its cloud relay, and a typed
// client for the device operations the relay tunnels.
//
// The relay keys every channel with a 32-byte token split as
// IV = first 16 bytes, AES key = last 16 bytes. The order is a protocol
// quirk: swapping the halves decrypts to garbage.
package jd

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// secret purposes mixed into credential digests.
const (
	purposeServer = "server"
	purposeDevice = "device"
)

// deriveSecret returns SHA256(lower(email) + password + purpose).
func deriveSecret(email, password, purpose string) []byte {
	sum := sha256.Sum256([]byte(strings.ToLower(email) + password + purpose))
	return sum[:]
}

// LoginSecret derives the secret that seeds the control-plane channel.
func LoginSecret(email, password string) []byte {
	return deriveSecret(email, password, purposeServer)
}

// DeviceSecret derives the secret that seeds the device channel.
func DeviceSecret(email, password string) []byte {
	return deriveSecret(email, password, purposeDevice)
}

// UpdateToken folds the hex session token returned by the relay into a
// secret, producing the 32-byte encryption token used for all further
// traffic on that channel: SHA256(secret || rawBytes(sessionTokenHex)).
func UpdateToken(secret []byte, sessionTokenHex string) ([]byte, error) {
	raw, err := hex.DecodeString(sessionTokenHex)
	if err != nil {
		return nil, &CryptoError{Op: "decode session token", Err: err}
	}
	h := sha256.New()
	h.Write(secret)
	h.Write(raw)
	return h.Sum(nil), nil
}

// splitToken returns the IV and AES key halves of a channel token.
func splitToken(token []byte) (iv, key []byte, err error) {
	if len(token) != 2*aes.BlockSize {
		return nil, nil, &CryptoError{Op: "split token", Err: fmt.Errorf("token must be %d bytes, got %d", 2*aes.BlockSize, len(token))}
	}
	return token[:aes.BlockSize], token[aes.BlockSize:], nil
}

// Encrypt encrypts plaintext with AES-128-CBC and PKCS#7 padding under
// the given channel token and returns the base64-encoded ciphertext.
func Encrypt(plaintext string, token []byte) (string, error) {
	iv, key, err := splitToken(token)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &CryptoError{Op: "create cipher", Err: err}
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It fails with a CryptoError when the input
// is not valid base64, not block-aligned, or carries invalid padding.
func Decrypt(ciphertextB64 string, token []byte) (string, error) {
	iv, key, err := splitToken(token)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", &CryptoError{Op: "decode ciphertext", Err: err}
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(raw))}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &CryptoError{Op: "create cipher", Err: err}
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}
	return string(unpadded), nil
}

// Sign returns the hex-encoded HMAC-SHA256 of message keyed by token.
func Sign(message string, token []byte) string {
	mac := hmac.New(sha256.New, token)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}

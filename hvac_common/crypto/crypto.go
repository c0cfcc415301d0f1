// Package crypto implements the per-session key derivation and frame
// authentication used to talk to the appliance over the LAN: HMAC-SHA256
// key derivation chained over the shared secret, AES-CBC encryption with
// non-standard zero padding, and HMAC-SHA256 signing over the plaintext.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"strconv"

	"github.com/pkg/errors"
)

// KeyMaterial is the random/time pair exchanged during key exchange, in
// the ordering appropriate for one direction (app or dev).
type KeyMaterial struct {
	Random1 string
	Time1   int64
	Random2 string
	Time2   int64
}

// appMessage builds the app-direction derivation input:
// random_1 || random_2 || time_1 || time_2.
func (k KeyMaterial) appMessage() []byte {
	return []byte(k.Random1 + k.Random2 + strconv.FormatInt(k.Time1, 10) + strconv.FormatInt(k.Time2, 10))
}

// devMessage builds the dev-direction derivation input (reversed pair
// ordering): random_2 || random_1 || time_2 || time_1.
func (k KeyMaterial) devMessage() []byte {
	return []byte(k.Random2 + k.Random1 + strconv.FormatInt(k.Time2, 10) + strconv.FormatInt(k.Time1, 10))
}

// Encryption holds the three derived session keys for one direction
// (app->dev or dev->app) plus the AES-CBC block used to (de)cipher
// frames under those keys.
type Encryption struct {
	SignKey   []byte
	CryptoKey []byte
	IVSeed    []byte
	block     cipher.Block
}

// hmacDigest computes HMAC-SHA256(key, msg).
func hmacDigest(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// buildKey implements HMAC(secret, HMAC(secret, msg) || msg).
func buildKey(secret, msg []byte) []byte {
	inner := hmacDigest(secret, msg)
	return hmacDigest(secret, append(inner, msg...))
}

// NewEncryption derives sign/crypto/iv keys from the shared secret and a
// direction-specific message, suffixing '0'/'1'/'2' to select sign vs
// crypto vs IV.
func NewEncryption(secret []byte, msg []byte) (*Encryption, error) {
	signKey := buildKey(secret, append(append([]byte{}, msg...), '0'))
	cryptoKey := buildKey(secret, append(append([]byte{}, msg...), '1'))
	ivSeed := buildKey(secret, append(append([]byte{}, msg...), '2'))[:aes.BlockSize]

	block, err := aes.NewCipher(cryptoKey)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: building AES cipher")
	}
	return &Encryption{
		SignKey:   signKey,
		CryptoKey: cryptoKey,
		IVSeed:    ivSeed,
		block:     block,
	}, nil
}

// NewAppEncryption derives the app->dev direction's session keys.
func NewAppEncryption(secret []byte, km KeyMaterial) (*Encryption, error) {
	return NewEncryption(secret, km.appMessage())
}

// NewDevEncryption derives the dev->app direction's session keys.
func NewDevEncryption(secret []byte, km KeyMaterial) (*Encryption, error) {
	return NewEncryption(secret, km.devMessage())
}

// zeroPad pads data to the next multiple of the AES block size with zero
// bytes. Non-standard: correct only because payloads are JSON text, which
// never legitimately ends in a NUL byte. Never substitute PKCS#7 here.
func zeroPad(data []byte) []byte {
	rem := len(data) % aes.BlockSize
	if rem == 0 {
		return data
	}
	padded := make([]byte, len(data)+aes.BlockSize-rem)
	copy(padded, data)
	return padded
}

// zeroUnpad strips trailing zero bytes added by zeroPad.
func zeroUnpad(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// Encrypt zero-pads and AES-CBC-encrypts plaintext under e's crypto key
// and IV seed.
func (e *Encryption) Encrypt(plaintext []byte) []byte {
	padded := zeroPad(plaintext)
	out := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(e.block, e.IVSeed)
	cbc.CryptBlocks(out, padded)
	return out
}

// Decrypt AES-CBC-decrypts ciphertext under e's crypto key and IV seed,
// then strips the zero padding.
func (e *Encryption) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("crypto: ciphertext is not a multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(e.block, e.IVSeed)
	cbc.CryptBlocks(out, ciphertext)
	return zeroUnpad(out), nil
}

// Sign computes HMAC-SHA256(e.SignKey, plaintext). Signing is always over
// the plaintext, never the ciphertext.
func (e *Encryption) Sign(plaintext []byte) []byte {
	return hmacDigest(e.SignKey, plaintext)
}

// VerifySign recomputes the HMAC over plaintext and compares it to sign in
// constant time.
func (e *Encryption) VerifySign(plaintext, sign []byte) bool {
	expected := e.Sign(plaintext)
	return hmac.Equal(expected, sign)
}

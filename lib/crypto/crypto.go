// Package crypto implements the challenge cryptography: random truth
// generation, authenticated encryption of the truth under a single-use
// session key, and asymmetric wrapping of that session key for a principal's
// public key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"strings"

	"golang.org/x/crypto/ssh"
)

const (
	// SessionKeySize selects AES-128 for the single-use session key.
	SessionKeySize = 16

	// TagSize is the length of the GCM authentication tag, carried as a
	// separate payload field.
	TagSize = 16
)

var (
	ErrKeyFormat  = errors.New("crypto: unrecognized public key material")
	ErrBadSealLen = errors.New("crypto: sealed data too short")
)

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateTruth returns the hex encoding of nbytes fresh random bytes. The
// hex string, not the raw bytes, is the secret a client must echo back.
func GenerateTruth(nbytes int) (string, error) {
	b, err := RandomBytes(nbytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SealedTruth is the output of authenticated encryption: the ciphertext with
// the authentication tag split off, and the nonce used.
type SealedTruth struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
}

// Seal encrypts plaintext with AES-GCM under key, using a fresh random
// nonce.
func Seal(plaintext, key []byte) (*SealedTruth, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	if len(sealed) < TagSize {
		return nil, ErrBadSealLen
	}
	split := len(sealed) - TagSize
	return &SealedTruth{
		Ciphertext: sealed[:split],
		Nonce:      nonce,
		Tag:        sealed[split:],
	}, nil
}

// Open reverses Seal, authenticating the tag in the process.
func Open(st *SealedTruth, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(st.Ciphertext)+len(st.Tag))
	sealed = append(sealed, st.Ciphertext...)
	sealed = append(sealed, st.Tag...)
	return aead.Open(nil, st.Nonce, sealed, nil)
}

// WrapKey encrypts a session key under pub with RSA-OAEP (SHA-256).
func WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
}

// UnwrapKey reverses WrapKey with the matching private key.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
}

// ParsePublicKey accepts PEM-encoded PKIX ("PUBLIC KEY") or PKCS#1
// ("RSA PUBLIC KEY") material, or a single OpenSSH authorized_keys line.
func ParsePublicKey(material string) (*rsa.PublicKey, error) {
	material = strings.TrimSpace(material)

	if block, _ := pem.Decode([]byte(material)); block != nil {
		switch block.Type {
		case "PUBLIC KEY":
			pub, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			rpub, ok := pub.(*rsa.PublicKey)
			if !ok {
				return nil, ErrKeyFormat
			}
			return rpub, nil
		case "RSA PUBLIC KEY":
			return x509.ParsePKCS1PublicKey(block.Bytes)
		}
		return nil, ErrKeyFormat
	}

	if strings.HasPrefix(material, "ssh-rsa ") {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(material))
		if err != nil {
			return nil, err
		}
		cpub, ok := pub.(ssh.CryptoPublicKey)
		if !ok {
			return nil, ErrKeyFormat
		}
		rpub, ok := cpub.CryptoPublicKey().(*rsa.PublicKey)
		if !ok {
			return nil, ErrKeyFormat
		}
		return rpub, nil
	}

	return nil, ErrKeyFormat
}

// Equal compares two strings in constant time regardless of their lengths,
// by comparing fixed-length digests of both sides.
func Equal(a, b string) bool {
	da := sha256.Sum256([]byte(a))
	db := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}

package security

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/go-think/openssl"
	"lukechampine.com/blake3"
)

const ivSize = 16

var ErrCipherTooShort = errors.New("security: ciphertext too short")

func AesCBCEncrypt(src, key, iv []byte, padding string) ([]byte, error) {
	return openssl.AesCBCEncrypt(src, key, iv, padding)
}

func AesCBCDecrypt(src, key, iv []byte, padding string) ([]byte, error) {
	return openssl.AesCBCDecrypt(src, key, iv, padding)
}

// DeriveKey 把任意长度的口令折成 AES-256 密钥。
func DeriveKey(secret string) []byte {
	sum := blake3.Sum256([]byte(secret))
	return sum[:]
}

// Seal 随机 IV 加密，输出为 iv || ciphertext。
func Seal(plain, key []byte) ([]byte, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("security: read iv: %w", err)
	}
	ct, err := AesCBCEncrypt(plain, key, iv, openssl.PKCS7_PADDING)
	if err != nil {
		return nil, err
	}
	return append(iv, ct...), nil
}

// Open 是 Seal 的逆操作。
func Open(sealed, key []byte) ([]byte, error) {
	if len(sealed) <= ivSize {
		return nil, ErrCipherTooShort
	}
	return AesCBCDecrypt(sealed[ivSize:], key, sealed[:ivSize], openssl.PKCS7_PADDING)
}

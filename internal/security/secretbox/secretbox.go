// Package secretbox sella tokens en reposo con NaCl secretbox
// (XSalsa20-Poly1305). Formato: base64(nonce)|base64(ciphertext).
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	sep       = "|"
)

var (
	// ErrInvalidKey: la clave no decodifica a 32 bytes.
	ErrInvalidKey = errors.New("secretbox: key must decode to 32 bytes")
	// ErrOpen: formato inválido, clave incorrecta o ciphertext alterado.
	ErrOpen = errors.New("secretbox: cannot open sealed value")
)

// Box sella y abre valores con una clave fija.
type Box struct {
	key [keySize]byte
}

// New crea un Box desde una clave base64 (std o url encoding).
// Generar con: openssl rand -base64 32
func New(b64Key string) (*Box, error) {
	raw := strings.TrimSpace(b64Key)
	k, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		k, err = base64.URLEncoding.DecodeString(raw)
	}
	if err != nil || len(k) != keySize {
		return nil, ErrInvalidKey
	}
	b := &Box{}
	copy(b.key[:], k)
	return b, nil
}

// Seal cifra plain. Un string vacío se devuelve tal cual, así las columnas
// nullable siguen vacías.
func (b *Box) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	ct := secretbox.Seal(nil, []byte(plain), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open revierte Seal.
func (b *Box) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	parts := strings.SplitN(sealed, sep, 2)
	if len(parts) != 2 {
		return "", ErrOpen
	}
	n, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(n) != nonceSize {
		return "", ErrOpen
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], n)
	plain, ok := secretbox.Open(nil, ct, &nonce, &b.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}

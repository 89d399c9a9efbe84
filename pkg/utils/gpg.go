package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// ErrBadPassphrase is returned when a symmetrically encrypted message can't be opened
// with the passphrase given
var ErrBadPassphrase = errors.New("incorrect passphrase")

const messageBlockType = "PGP MESSAGE"

// EncryptSymmetric encrypts plaintext with a passphrase-derived AES-256 key and
// returns the ASCII armored OpenPGP message
func EncryptSymmetric(plaintext, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("refusing to encrypt with an empty passphrase")
	}
	var out bytes.Buffer
	armored, err := armor.Encode(&out, messageBlockType, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create armor encoder: %w", err)
	}
	config := &packet.Config{
		DefaultCipher: packet.CipherAES256,
	}
	writer, err := openpgp.SymmetricallyEncrypt(armored, passphrase, nil, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	_, err = writer.Write(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to finish encryption: %w", err)
	}
	err = armored.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to finish armor encoding: %w", err)
	}
	return out.Bytes(), nil
}

// DecryptSymmetric reverses EncryptSymmetric. A wrong passphrase yields ErrBadPassphrase
func DecryptSymmetric(ciphertext, passphrase []byte) ([]byte, error) {
	block, err := armor.Decode(bytes.NewReader(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("failed to decode armored message: %w", err)
	}
	if block.Type != messageBlockType {
		return nil, fmt.Errorf("unexpected armor block type '%s'", block.Type)
	}

	// ReadMessage keeps asking while the passphrase is rejected; only offer it once
	prompted := false
	prompt := func(_ []openpgp.Key, symmetric bool) ([]byte, error) {
		if prompted || !symmetric {
			return nil, ErrBadPassphrase
		}
		prompted = true
		return passphrase, nil
	}

	md, err := openpgp.ReadMessage(block.Body, openpgp.EntityList{}, prompt, nil)
	if err != nil {
		if errors.Is(err, ErrBadPassphrase) {
			return nil, ErrBadPassphrase
		}
		return nil, fmt.Errorf("failed to read encrypted message: %w", err)
	}
	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message: %w", err)
	}
	return plaintext, nil
}

// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/backend"
)

// LoadStateData loads and optionally decrypts a state document from the
// backend the configuration document at rootDir designates.
func LoadStateData(ctx context.Context, cmd *cli.Command, rootDir string) (map[string]interface{}, error) {
	be, err := backend.NewBackend(ctx, *cmd)
	if err != nil {
		log.Errorf("err: %v", err)
		return nil, err
	}

	doc, err := be.State()
	if err != nil {
		log.Errorf("err: %v", err)
		return nil, err
	}

	doc, err = MaybeDecrypt(cmd, doc)
	if err != nil {
		return nil, err
	}

	var stateData map[string]interface{}
	if err := json.Unmarshal(doc, &stateData); err != nil {
		return nil, fmt.Errorf("failed to parse state JSON: %w", err)
	}

	return stateData, nil
}

// MaybeDecrypt decrypts an OpenTofu encrypted state body if it is one,
// resolving the passphrase from the --passphrase flag, then the
// TF_VAR_passphrase environment variable, then an interactive prompt.
// Unencrypted bodies pass through untouched.
func MaybeDecrypt(cmd *cli.Command, doc []byte) ([]byte, error) {
	var jsonData map[string]interface{}
	if err := json.Unmarshal(doc, &jsonData); err != nil {
		return doc, nil
	}
	if _, exists := jsonData["encrypted_data"]; !exists {
		return doc, nil
	}

	passphrase := cmd.String("passphrase")
	if passphrase == "" {
		passphrase = os.Getenv("TF_VAR_passphrase")
	}
	if passphrase == "" {
		passphrase, _ = GetPassphrase()
	}

	decrypted, err := DecryptOpenTofuState(doc, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return decrypted, nil
}

// DecryptOpenTofuState decrypts an encrypted OpenTofu state file using the
// provided passphrase.
func DecryptOpenTofuState(stateData []byte, passphrase string) ([]byte, error) {
	var state struct {
		Meta struct {
			Key string `json:"key_provider.pbkdf2.mykey"`
		} `json:"meta"`
		EncryptedData string `json:"encrypted_data"`
	}

	if err := json.Unmarshal(stateData, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if state.EncryptedData == "" {
		return nil, fmt.Errorf("state carries no encrypted_data")
	}

	keyProviderConfig, err := base64.StdEncoding.DecodeString(state.Meta.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key provider config: %w", err)
	}

	var kpConfig struct {
		Salt       string `json:"salt"`
		Iterations int    `json:"iterations"`
		HashFunc   string `json:"hash_function"`
		KeyLength  int    `json:"key_length"`
	}

	if err = json.Unmarshal(keyProviderConfig, &kpConfig); err != nil {
		return nil, fmt.Errorf("failed to parse key provider config: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(kpConfig.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	key := pbkdf2.Key(
		[]byte(passphrase),
		salt,
		kpConfig.Iterations,
		kpConfig.KeyLength,
		sha512.New,
	)

	return decryptState(state.EncryptedData, key)
}

// GetPassphrase prompts interactively for a passphrase without echoing input.
func GetPassphrase() (string, error) {
	var password []byte
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt)

	oldState, err := term.MakeRaw(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	defer term.Restore(int(syscall.Stdin), oldState) //nolint:errcheck

	fmt.Print("Enter passphrase: ")
	defer fmt.Print("\r")

loop:
	for {
		select {
		case <-signalChannel:
			fmt.Println("\nInterrupt received, exiting...")
			return "", fmt.Errorf("interrupted")
		default:
			var buf [1]byte
			n, readErr := syscall.Read(syscall.Stdin, buf[:])
			if readErr != nil || n == 0 {
				break loop
			}
			if buf[0] == '\n' || buf[0] == '\r' {
				break loop
			}
			if buf[0] == 127 || buf[0] == 8 { // Handle backspace
				if len(password) > 0 {
					password = password[:len(password)-1]
					fmt.Print("\b \b")
				}
			} else {
				password = append(password, buf[0])
				fmt.Print("*")
			}
		}
	}
	fmt.Println()
	return string(password), nil
}

// decryptState decodes and decrypts an AES-GCM encrypted payload with the
// already-derived key. The nonce is the leading bytes of the ciphertext.
func decryptState(encryptedData string, derivedKey []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf(
			"ciphertext too short: expected at least %d bytes, got %d",
			nonceSize,
			len(ciphertext),
		)
	}

	nonce := ciphertext[:nonceSize]
	encrypted := ciphertext[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

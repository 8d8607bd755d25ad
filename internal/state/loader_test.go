// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package state

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/pbkdf2"
)

const (
	testSalt       = "test-salt-12345"
	testIterations = 200000
	testKeyLength  = 32
)

// encryptStateFile builds a properly encrypted OpenTofu state document.
func encryptStateFile(t *testing.T, plaintext []byte, passphrase string) []byte {
	t.Helper()

	key := pbkdf2.Key([]byte(passphrase), []byte(testSalt), testIterations, testKeyLength, sha512.New)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	aesGCM, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, aesGCM.NonceSize())
	ciphertext := aesGCM.Seal(nonce, nonce, plaintext, nil)

	kpConfig, err := json.Marshal(map[string]interface{}{
		"salt":          base64.StdEncoding.EncodeToString([]byte(testSalt)),
		"iterations":    testIterations,
		"hash_function": "sha512",
		"key_length":    testKeyLength,
	})
	require.NoError(t, err)

	state, err := json.Marshal(map[string]interface{}{
		"meta": map[string]interface{}{
			"key_provider.pbkdf2.mykey": base64.StdEncoding.EncodeToString(kpConfig),
		},
		"encrypted_data": base64.StdEncoding.EncodeToString(ciphertext),
	})
	require.NoError(t, err)

	return state
}

func TestDecryptOpenTofuState(t *testing.T) {
	t.Parallel()
	passphrase := "test-passphrase"
	plaintext := []byte(`{"version":4,"terraform_version":"1.5.0"}`)

	result, err := DecryptOpenTofuState(encryptStateFile(t, plaintext, passphrase), passphrase)
	require.NoError(t, err)
	assert.Equal(t, plaintext, result)
}

func TestDecryptOpenTofuStateErrors(t *testing.T) {
	t.Parallel()

	mustJSON := func(v interface{}) []byte {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name       string
		stateData  []byte
		passphrase string
		wantErr    string
	}{
		{
			name:       "wrong_passphrase",
			stateData:  encryptStateFile(t, []byte(`{"version":4}`), "correct"),
			passphrase: "wrong",
			wantErr:    "decrypt",
		},
		{
			name:      "not_json",
			stateData: []byte("not valid json"),
			wantErr:   "failed to parse state",
		},
		{
			name: "missing_encrypted_data",
			stateData: mustJSON(map[string]interface{}{
				"meta": map[string]interface{}{"key_provider.pbkdf2.mykey": "dGVzdA=="},
			}),
			wantErr: "no encrypted_data",
		},
		{
			name: "key_provider_not_base64",
			stateData: mustJSON(map[string]interface{}{
				"meta":           map[string]interface{}{"key_provider.pbkdf2.mykey": "not-base64!@#$"},
				"encrypted_data": "dGVzdA==",
			}),
			wantErr: "failed to decode key provider config",
		},
		{
			name: "key_provider_not_json",
			stateData: mustJSON(map[string]interface{}{
				"meta": map[string]interface{}{
					"key_provider.pbkdf2.mykey": base64.StdEncoding.EncodeToString([]byte("invalid json")),
				},
				"encrypted_data": "dGVzdA==",
			}),
			wantErr: "failed to parse key provider config",
		},
		{
			name: "salt_not_base64",
			stateData: mustJSON(map[string]interface{}{
				"meta": map[string]interface{}{
					"key_provider.pbkdf2.mykey": base64.StdEncoding.EncodeToString(mustJSON(map[string]interface{}{
						"salt":          "not-base64!@#$",
						"iterations":    testIterations,
						"hash_function": "sha512",
						"key_length":    testKeyLength,
					})),
				},
				"encrypted_data": "dGVzdA==",
			}),
			wantErr: "failed to decode salt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DecryptOpenTofuState(tt.stateData, tt.passphrase)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecryptState(t *testing.T) {
	t.Parallel()

	key := pbkdf2.Key([]byte("pass"), []byte(testSalt), testIterations, testKeyLength, sha512.New)
	plaintext := []byte(`{"resources":[]}`)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	aesGCM, err := cipher.NewGCM(block)
	require.NoError(t, err)
	nonce := make([]byte, aesGCM.NonceSize())
	ciphertext := aesGCM.Seal(nonce, nonce, plaintext, nil)

	t.Run("round_trip", func(t *testing.T) {
		result, err := decryptState(base64.StdEncoding.EncodeToString(ciphertext), key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, result)
	})

	t.Run("invalid_base64", func(t *testing.T) {
		_, err := decryptState("not-base64!@#$", key)
		assert.ErrorContains(t, err, "decode")
	})

	t.Run("bad_key_size", func(t *testing.T) {
		_, err := decryptState(base64.StdEncoding.EncodeToString([]byte("test")), make([]byte, 15))
		assert.Error(t, err)
	})

	t.Run("ciphertext_shorter_than_nonce", func(t *testing.T) {
		_, err := decryptState(base64.StdEncoding.EncodeToString([]byte("x")), make([]byte, 32))
		assert.ErrorContains(t, err, "ciphertext too short")
	})
}

func TestMaybeDecrypt(t *testing.T) {
	cmd := &cli.Command{
		Flags: []cli.Flag{&cli.StringFlag{Name: "passphrase"}},
	}

	t.Run("plain_state_passes_through", func(t *testing.T) {
		doc := []byte(`{"version":4,"serial":7}`)
		result, err := MaybeDecrypt(cmd, doc)
		require.NoError(t, err)
		assert.Equal(t, doc, result)
	})

	t.Run("non_json_passes_through", func(t *testing.T) {
		doc := []byte("garbage")
		result, err := MaybeDecrypt(cmd, doc)
		require.NoError(t, err)
		assert.Equal(t, doc, result)
	})

	t.Run("encrypted_with_env_passphrase", func(t *testing.T) {
		t.Setenv("TF_VAR_passphrase", "hunter2")
		plaintext := []byte(`{"version":4}`)
		result, err := MaybeDecrypt(cmd, encryptStateFile(t, plaintext, "hunter2"))
		require.NoError(t, err)
		assert.Equal(t, plaintext, result)
	})

	t.Run("encrypted_with_wrong_env_passphrase", func(t *testing.T) {
		t.Setenv("TF_VAR_passphrase", "wrong")
		_, err := MaybeDecrypt(cmd, encryptStateFile(t, []byte(`{}`), "hunter2"))
		assert.ErrorContains(t, err, "failed to decrypt")
	})
}

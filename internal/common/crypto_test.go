package common

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretBoxRoundTrip(t *testing.T) {
	box, err := NewSecretBox("test-passphrase")
	require.NoError(t, err)

	sealed, err := box.Seal("broker-password-123")
	require.NoError(t, err)
	assert.NotEqual(t, "broker-password-123", sealed)

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "broker-password-123", opened)
}

func TestSecretBoxHexKey(t *testing.T) {
	hexKey := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	box, err := NewSecretBox(hexKey)
	require.NoError(t, err)

	sealed, err := box.Seal("17111992")
	require.NoError(t, err)

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "17111992", opened)
}

func TestSecretBoxEmptyKey(t *testing.T) {
	_, err := NewSecretBox("")
	assert.Error(t, err)
}

func TestSecretBoxTamperedCiphertext(t *testing.T) {
	box, err := NewSecretBox("test-passphrase")
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = box.Open(tampered)
	assert.Error(t, err)
}

func TestSecretBoxNonceVaries(t *testing.T) {
	box, err := NewSecretBox("test-passphrase")
	require.NoError(t, err)

	a, err := box.Seal("same-value")
	require.NoError(t, err)
	b, err := box.Seal("same-value")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSecretBoxRejectsGarbage(t *testing.T) {
	box, err := NewSecretBox("test-passphrase")
	require.NoError(t, err)

	_, err = box.Open("not base64 at all!!!")
	assert.Error(t, err)

	_, err = box.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aditus/internal/models"
)

const testTOTPSeed = "JBSWY3DPEHPK3PXP"

func TestCodeGeneratorDOBRepeats(t *testing.T) {
	gen, err := NewCodeGenerator(models.SecretKindDOB, "17111992")
	require.NoError(t, err)

	first, err := gen.Current()
	require.NoError(t, err)
	second, err := gen.Current()
	require.NoError(t, err)

	assert.Equal(t, "17111992", first)
	assert.Equal(t, first, second, "date-of-birth value must be identical on every call")
}

func TestCodeGeneratorDOBValidation(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"too short", "1711199"},
		{"too long", "171119921"},
		{"non-digit", "17a11992"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodeGenerator(models.SecretKindDOB, tt.secret)
			require.Error(t, err)
			assert.IsType(t, &InvalidSecretError{}, err)
		})
	}
}

func TestCodeGeneratorTOTPRegenerates(t *testing.T) {
	gen, err := NewCodeGenerator(models.SecretKindTOTP, testTOTPSeed)
	require.NoError(t, err)

	// Pin the clock so the two calls land in different 30-second windows.
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return base }
	first, err := gen.Current()
	require.NoError(t, err)
	require.Len(t, first, 6)

	gen.now = func() time.Time { return base.Add(90 * time.Second) }
	second, err := gen.Current()
	require.NoError(t, err)
	require.Len(t, second, 6)

	assert.NotEqual(t, first, second, "codes from different windows must differ")
}

func TestCodeGeneratorTOTPSameWindowIsStable(t *testing.T) {
	gen, err := NewCodeGenerator(models.SecretKindTOTP, testTOTPSeed)
	require.NoError(t, err)

	base := time.Date(2026, 3, 15, 10, 0, 1, 0, time.UTC)
	gen.now = func() time.Time { return base }
	first, err := gen.Current()
	require.NoError(t, err)

	gen.now = func() time.Time { return base.Add(5 * time.Second) }
	second, err := gen.Current()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCodeGeneratorTOTPSeedNormalization(t *testing.T) {
	// Lowercase seeds with spaces are accepted
	gen, err := NewCodeGenerator(models.SecretKindTOTP, "jbsw y3dp ehpk 3pxp")
	require.NoError(t, err)

	code, err := gen.Current()
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestCodeGeneratorTOTPInvalidSeed(t *testing.T) {
	_, err := NewCodeGenerator(models.SecretKindTOTP, "not!base32@")
	require.Error(t, err)
	assert.IsType(t, &InvalidSecretError{}, err)

	_, err = NewCodeGenerator(models.SecretKindTOTP, "")
	require.Error(t, err)
}

func TestCodeGeneratorUnknownKind(t *testing.T) {
	_, err := NewCodeGenerator(models.SecretKind("sms"), "whatever")
	require.Error(t, err)
	assert.IsType(t, &InvalidSecretError{}, err)
}

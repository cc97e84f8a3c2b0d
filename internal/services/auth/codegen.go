// -----------------------------------------------------------------------
// Code Generator - TOTP / date-of-birth one-time values
// -----------------------------------------------------------------------

package auth

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/ternarybob/aditus/internal/models"
)

// CodeGenerator produces the current one-time code for an account's second
// factor. It may be called more than once within a session: the login form
// can request the code both before and after an intermediate submit. TOTP
// regenerates on every call (a fresh window may apply); a date-of-birth
// value is static and repeats.
type CodeGenerator struct {
	kind   models.SecretKind
	secret string
	now    func() time.Time
}

// NewCodeGenerator validates the decrypted secret for its kind and returns
// a generator. Validation failures surface as InvalidSecretError so they
// are caught before any browser work starts.
func NewCodeGenerator(kind models.SecretKind, secret string) (*CodeGenerator, error) {
	switch kind {
	case models.SecretKindDOB:
		if len(secret) != 8 {
			return nil, &InvalidSecretError{Reason: fmt.Sprintf("date-of-birth value must be exactly 8 digits, got %d characters", len(secret))}
		}
		for _, r := range secret {
			if r < '0' || r > '9' {
				return nil, &InvalidSecretError{Reason: "date-of-birth value contains non-digit characters"}
			}
		}
	case models.SecretKindTOTP:
		normalized := normalizeTOTPSecret(secret)
		if normalized == "" {
			return nil, &InvalidSecretError{Reason: "totp seed is empty"}
		}
		if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized); err != nil {
			return nil, &InvalidSecretError{Reason: "totp seed is not valid base32"}
		}
		secret = normalized
	default:
		return nil, &InvalidSecretError{Reason: fmt.Sprintf("unknown secret kind %q", kind)}
	}

	return &CodeGenerator{kind: kind, secret: secret, now: time.Now}, nil
}

// Current returns the code to type into the form right now.
func (g *CodeGenerator) Current() (string, error) {
	if g.kind == models.SecretKindDOB {
		return g.secret, nil
	}
	code, err := totp.GenerateCode(g.secret, g.now())
	if err != nil {
		return "", &InvalidSecretError{Reason: fmt.Sprintf("totp generation failed: %v", err)}
	}
	return code, nil
}

// Kind reports which second-factor variant this generator produces.
func (g *CodeGenerator) Kind() models.SecretKind {
	return g.kind
}

func normalizeTOTPSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}

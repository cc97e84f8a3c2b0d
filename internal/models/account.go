package models

import "time"

// SecretKind identifies what the account's second-factor secret holds.
type SecretKind string

const (
	// SecretKindTOTP means the second factor is a shared TOTP seed.
	SecretKindTOTP SecretKind = "totp"
	// SecretKindDOB means the second factor is a static DDMMYYYY date of birth.
	SecretKindDOB SecretKind = "dob"
)

// Account is a broker login identity. The core treats accounts as read-only;
// they are created and edited by the administrative layer.
type Account struct {
	ID       string `json:"id" badgerhold:"key"`
	Name     string `json:"name"`
	LoginURL string `json:"login_url"`
	Username string `json:"username"`

	// Sealed secrets (AES-GCM, base64). Never exposed over the API.
	PasswordSealed     string `json:"-"`
	SecondFactorSealed string `json:"-"`

	SecondFactorKind SecretKind `json:"second_factor_kind"`

	// SelectorOverrides maps a form role (username, password, code, submit)
	// to a replacement strategy chain. When a role is present the override
	// replaces the built-in chain for that role entirely.
	SelectorOverrides map[string][]string `json:"selector_overrides,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDOB reports whether the second factor is a date-of-birth value.
func (a *Account) IsDOB() bool {
	return a.SecondFactorKind == SecretKindDOB
}

// Redacted returns an API-safe copy with secrets stripped.
func (a *Account) Redacted() *Account {
	clone := *a
	clone.PasswordSealed = ""
	clone.SecondFactorSealed = ""
	return &clone
}

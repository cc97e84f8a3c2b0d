// -----------------------------------------------------------------------
// Authentication Session - Error Taxonomy
// -----------------------------------------------------------------------

package auth

import "fmt"

// FieldNotFoundError is returned when every location strategy for a
// mandatory form field has been exhausted without a visible match.
type FieldNotFoundError struct {
	Role Role
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("no visible %s field matched any location strategy", e.Role)
}

// SubmitNotFoundError is returned when no submit control could be located.
type SubmitNotFoundError struct{}

func (e *SubmitNotFoundError) Error() string {
	return "no clickable submit control matched any location strategy"
}

// InvalidSecretError is returned when the stored secondary secret cannot
// produce a one-time code.
type InvalidSecretError struct {
	Reason string
}

func (e *InvalidSecretError) Error() string {
	return fmt.Sprintf("invalid secondary secret: %s", e.Reason)
}

// VerificationFailedError marks a login flow that completed the form but
// produced neither a product-domain redirect nor a success keyword.
type VerificationFailedError struct {
	FinalURL string
}

func (e *VerificationFailedError) Error() string {
	if e.FinalURL != "" {
		return fmt.Sprintf("login outcome could not be verified (final url: %s)", e.FinalURL)
	}
	return "login outcome could not be verified"
}

// NavigationTimeoutError wraps a navigation that exceeded its bound.
type NavigationTimeoutError struct {
	URL string
	Err error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s timed out: %v", e.URL, e.Err)
}

func (e *NavigationTimeoutError) Unwrap() error {
	return e.Err
}

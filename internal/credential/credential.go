// Package credential models the 4-digit secret that gates door access.
package credential

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/doorlock/internal/common"
)

// Length is the fixed number of digits in a credential.
const Length = common.CredentialLength

// Credential is an ordered sequence of exactly Length digits, each 0–9.
// The zero value is the credential 0000; use the constructors to build
// one from untrusted input.
type Credential struct {
	digits [Length]byte
}

// FromDigits builds a credential from digit values (0–9).
func FromDigits(digits ...byte) (Credential, error) {
	if len(digits) != Length {
		return Credential{}, fmt.Errorf("%w: need %d digits, got %d", common.ErrInvalidCredential, Length, len(digits))
	}
	var c Credential
	for i, d := range digits {
		if !IsDigit(d) {
			return Credential{}, fmt.Errorf("%w: position %d holds %#04x", common.ErrInvalidCredential, i, d)
		}
		c.digits[i] = d
	}
	return c, nil
}

// FromBytes is FromDigits for a slice read from a link or from storage.
func FromBytes(b []byte) (Credential, error) {
	return FromDigits(b...)
}

// Parse builds a credential from its decimal text form, e.g. "1234".
func Parse(s string) (Credential, error) {
	if len(s) != Length {
		return Credential{}, fmt.Errorf("%w: %q is not %d digits", common.ErrInvalidCredential, s, Length)
	}
	digits := make([]byte, Length)
	for i := 0; i < Length; i++ {
		if s[i] < '0' || s[i] > '9' {
			return Credential{}, fmt.Errorf("%w: %q contains a non-digit", common.ErrInvalidCredential, s)
		}
		digits[i] = s[i] - '0'
	}
	return FromDigits(digits...)
}

// MustParse is Parse for literals in tests and examples.
func MustParse(s string) Credential {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// IsDigit reports whether b is a valid credential digit value.
func IsDigit(b byte) bool {
	return b <= 9
}

// Digits returns a copy of the digit values in entry order.
func (c Credential) Digits() []byte {
	out := make([]byte, Length)
	copy(out, c.digits[:])
	return out
}

// Digit returns the digit at position i.
func (c Credential) Digit(i int) byte {
	return c.digits[i]
}

// Matches compares two credentials digit by digit. Every position must
// agree; there is no partial credit.
func (c Credential) Matches(other Credential) bool {
	matched := 0
	for i := 0; i < Length; i++ {
		if c.digits[i] == other.digits[i] {
			matched++
		}
	}
	return matched == Length
}

// String masks the digits so a credential never ends up in a log line.
func (c Credential) String() string {
	return strings.Repeat("*", Length)
}

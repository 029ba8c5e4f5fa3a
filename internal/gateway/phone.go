package gateway

import (
	"fmt"
	"strings"

	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// PhoneSpec describes the MSISDN format one mobile-money operator
// accepts: a country calling code, the operator's own leading digits
// and the local number length.
type PhoneSpec struct {
	CountryCode string   // e.g. "+223"
	Prefixes    []string // operator-owned leading digits of the local number
	LocalDigits int      // length of the local number, prefix included
}

// Normalize validates number against the spec and returns it in full
// international form (+<country><local>). Accepted inputs are the bare
// local number or the internationally prefixed one.
func (s PhoneSpec) Normalize(number string) (string, error) {
	n := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, number)

	cc := strings.TrimPrefix(s.CountryCode, "+")
	switch {
	case strings.HasPrefix(n, "+"+cc):
		n = n[len(cc)+1:]
	case strings.HasPrefix(n, "00"+cc):
		n = n[len(cc)+2:]
	}

	if len(n) != s.LocalDigits {
		return "", fmt.Errorf("%w: expected %d digits, got %q", xerrors.ErrInvalidPhoneNumber, s.LocalDigits, number)
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q contains non-digit characters", xerrors.ErrInvalidPhoneNumber, number)
		}
	}

	ok := false
	for _, p := range s.Prefixes {
		if strings.HasPrefix(n, p) {
			ok = true
			break
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: %q is not on this operator's number range", xerrors.ErrInvalidPhoneNumber, number)
	}

	return "+" + cc + n, nil
}

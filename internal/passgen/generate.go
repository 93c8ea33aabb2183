// Package passgen implements the password policy of the vault: secure
// random password generation and heuristic strength scoring.
package passgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/common"
)

// Length limits accepted by Generate.
const (
	MinLength = 4
	MaxLength = 128
)

// Options selects the character classes and length for Generate.
// At least one class must be enabled.
type Options struct {
	Length           int
	Upper            bool
	Lower            bool
	Digits           bool
	Symbols          bool
	ExcludeAmbiguous bool
}

// DefaultOptions returns the generator settings used when the caller does
// not specify any: 16 characters, all classes enabled.
func DefaultOptions() Options {
	return Options{Length: 16, Upper: true, Lower: true, Digits: true, Symbols: true}
}

type charClass struct {
	full string
	// unambiguous strips the look-alike characters (O/0, I/l/1, ...).
	unambiguous string
}

var (
	upperClass  = charClass{"ABCDEFGHIJKLMNOPQRSTUVWXYZ", "ABCDEFGHJKLMNPQRSTUVWXYZ"}
	lowerClass  = charClass{"abcdefghijklmnopqrstuvwxyz", "abcdefghijkmnpqrstuvwxyz"}
	digitClass  = charClass{"0123456789", "23456789"}
	symbolClass = charClass{"!@#$%^&*()-_=+[]{};:,.<>?", "!@#$%^&*()-_=+;:,.?"}
)

func (c charClass) alphabet(excludeAmbiguous bool) string {
	if excludeAmbiguous {
		return c.unambiguous
	}
	return c.full
}

// Generate produces a random password according to opts. Every enabled
// character class is represented by at least one character; the remaining
// positions are drawn uniformly from the union of the enabled classes and
// the result is shuffled so the class-seeding step leaves no positional
// pattern. All randomness comes from crypto/rand.
func Generate(opts Options) (string, error) {
	if opts.Length < MinLength || opts.Length > MaxLength {
		return "", fmt.Errorf("%w: length must be between %d and %d", common.ErrInvalidOptions, MinLength, MaxLength)
	}

	var enabled []string
	for _, c := range []struct {
		on    bool
		class charClass
	}{
		{opts.Upper, upperClass},
		{opts.Lower, lowerClass},
		{opts.Digits, digitClass},
		{opts.Symbols, symbolClass},
	} {
		if c.on {
			enabled = append(enabled, c.class.alphabet(opts.ExcludeAmbiguous))
		}
	}
	if len(enabled) == 0 {
		return "", fmt.Errorf("%w: at least one character class must be enabled", common.ErrInvalidOptions)
	}

	full := strings.Join(enabled, "")
	out := make([]byte, 0, opts.Length)

	// One guaranteed character per enabled class.
	for _, alphabet := range enabled {
		ch, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	for len(out) < opts.Length {
		ch, err := randomChar(full)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func randomChar(alphabet string) (byte, error) {
	i, err := randInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

// shuffle applies a Fisher–Yates permutation. A sort-based shuffle would
// bias the distribution, so each position is swapped with a uniformly
// chosen earlier one.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

// randInt returns a uniform random int in [0, n) from crypto/rand.
func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

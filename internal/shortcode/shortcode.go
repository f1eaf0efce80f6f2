// Package shortcode validates target URLs and short codes, and generates
// random codes for links created without a custom one.
package shortcode

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of characters a short code may consist of.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// GeneratedLength is the length of codes produced by Generate.
	GeneratedLength = 6

	MinLength = 6
	MaxLength = 8
)

var codeRegexp = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Schemes that only make sense with an authority component.
var hostRequired = map[string]struct{}{
	"http":  {},
	"https": {},
	"ws":    {},
	"wss":   {},
	"ftp":   {},
}

// IsValidURL reports whether s is a well-formed absolute URL.
// No scheme allow-list is enforced. Web schemes need a host and accept the
// "http:host" shorthand that browsers read as "http://host".
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}

	if _, ok := hostRequired[u.Scheme]; ok && u.Host == "" {
		rest := strings.TrimLeft(s[len(u.Scheme)+1:], "/\\")
		if rest == "" {
			return false
		}

		if u, err = url.Parse(u.Scheme + "://" + rest); err != nil || u.Host == "" {
			return false
		}
	}

	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n > 65535 {
			return false
		}
	}

	return true
}

// IsValidCode reports whether s consists of 6 to 8 alphanumeric characters.
func IsValidCode(s string) bool {
	return codeRegexp.MatchString(s)
}

// Generate returns a random code of GeneratedLength characters drawn from
// Alphabet. The result is not guaranteed to be unique.
func Generate() (string, error) {
	return gonanoid.Generate(Alphabet, GeneratedLength)
}

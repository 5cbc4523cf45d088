package sri

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// cleanText normaliza a NFC, elimina caracteres de control y recorta espacios.
func cleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

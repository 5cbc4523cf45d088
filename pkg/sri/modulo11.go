package sri

import (
	"errors"
	"fmt"
)

// ErrNonDigit la entrada contiene caracteres distintos de 0-9.
var ErrNonDigit = errors.New("sri: la cadena contiene caracteres no numéricos")

// CheckDigit calcula el dígito verificador módulo 11 de la clave de acceso.
// Los pesos se aplican de izquierda a derecha empezando en 7 y bajando hasta 2;
// al pasar de 2 vuelven a 7. Resultado 11 -> 0 y 10 -> 1.
func CheckDigit(digits string) (int, error) {
	if digits == "" {
		return 0, fmt.Errorf("%w: cadena vacía", ErrNonDigit)
	}
	sum := 0
	weight := 7
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q en posición %d", ErrNonDigit, c, i)
		}
		sum += int(c-'0') * weight
		weight--
		if weight < 2 {
			weight = 7
		}
	}
	dv := 11 - sum%11
	switch dv {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	}
	return dv, nil
}

// IsDigits indica si s contiene solo dígitos ASCII (y no es vacía).
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

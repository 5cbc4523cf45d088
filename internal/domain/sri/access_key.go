// Package sri: generación y validación de la clave de acceso (49 dígitos) de
// comprobantes electrónicos del SRI.
package sri

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

// AccessKeyLength longitud de la clave de acceso.
const AccessKeyLength = 49

const (
	minNumericCode = 10000000
	maxNumericCode = 99999999
	maxSequence    = 999999999
)

// AccessKeyParams datos de la clave de acceso en el orden de la ficha técnica.
type AccessKeyParams struct {
	Date          time.Time // fecha de emisión (DDMMAAAA)
	DocType       string    // "01" factura
	RUC           string    // 13 dígitos
	Environment   string    // "1" pruebas, "2" producción
	Establishment string    // 3 dígitos
	EmissionPoint string    // 3 dígitos
	Sequence      int64     // 1..999999999
	EmissionType  string    // "1" normal
}

// AccessKeyParts clave de acceso descompuesta.
type AccessKeyParts struct {
	Date          time.Time
	DocType       string
	RUC           string
	Environment   string
	Establishment string
	EmissionPoint string
	Sequence      int64
	NumericCode   string
	EmissionType  string
	CheckDigit    int
}

// AccessKeyGenerator genera claves de acceso. El código numérico de 8 dígitos
// no tiene significado criptográfico y su origen es inyectable.
type AccessKeyGenerator struct {
	numericCode func() int
}

// NewAccessKeyGenerator usa un código aleatorio entre 10000000 y 99999999.
func NewAccessKeyGenerator() *AccessKeyGenerator {
	return &AccessKeyGenerator{numericCode: func() int {
		return minNumericCode + rand.IntN(maxNumericCode-minNumericCode+1)
	}}
}

// NewAccessKeyGeneratorWithSource permite fijar el código numérico (pruebas, reprocesos).
func NewAccessKeyGeneratorWithSource(src func() int) *AccessKeyGenerator {
	return &AccessKeyGenerator{numericCode: src}
}

// Generate arma los 48 dígitos y agrega el dígito verificador módulo 11.
func (g *AccessKeyGenerator) Generate(p *AccessKeyParams) (string, error) {
	if p == nil {
		return "", domain.NewValidationError("claveAcceso", "parámetros obligatorios")
	}
	if err := validateParams(p); err != nil {
		return "", err
	}
	code := g.numericCode()
	if code < minNumericCode || code > maxNumericCode {
		return "", domain.NewValidationError("codigoNumerico", "debe tener 8 dígitos, se obtuvo %d", code)
	}

	base := p.Date.Format("02012006") +
		p.DocType +
		p.RUC +
		p.Environment +
		p.Establishment + p.EmissionPoint +
		FormatSequence(p.Sequence) +
		strconv.Itoa(code) +
		p.EmissionType
	if len(base) != AccessKeyLength-1 {
		return "", domain.NewValidationError("claveAcceso", "longitud base %d, se esperaban 48", len(base))
	}
	dv, err := sri.CheckDigit(base)
	if err != nil {
		return "", &domain.ValidationError{Field: "claveAcceso", Reason: err.Error()}
	}
	return base + strconv.Itoa(dv), nil
}

func validateParams(p *AccessKeyParams) error {
	if p.Date.IsZero() {
		return domain.NewValidationError("fechaEmision", "obligatoria")
	}
	checks := []struct {
		field, value string
		length       int
	}{
		{"codDoc", p.DocType, 2},
		{"ruc", p.RUC, 13},
		{"ambiente", p.Environment, 1},
		{"estab", p.Establishment, 3},
		{"ptoEmi", p.EmissionPoint, 3},
		{"tipoEmision", p.EmissionType, 1},
	}
	for _, c := range checks {
		if len(c.value) != c.length || !sri.IsDigits(c.value) {
			return domain.NewValidationError(c.field, "debe tener %d dígitos numéricos, se recibió %q", c.length, c.value)
		}
	}
	if !sri.ValidEnvironments[p.Environment] {
		return domain.NewValidationError("ambiente", "valor %q no soportado", p.Environment)
	}
	if p.Sequence < 1 || p.Sequence > maxSequence {
		return domain.NewValidationError("secuencial", "fuera de rango: %d", p.Sequence)
	}
	return nil
}

// ValidateAccessKey comprueba longitud, dígitos y dígito verificador.
func ValidateAccessKey(key string) error {
	if len(key) != AccessKeyLength {
		return domain.NewValidationError("claveAcceso", "debe tener %d dígitos, tiene %d", AccessKeyLength, len(key))
	}
	if !sri.IsDigits(key) {
		return domain.NewValidationError("claveAcceso", "contiene caracteres no numéricos")
	}
	dv, err := sri.CheckDigit(key[:AccessKeyLength-1])
	if err != nil {
		return &domain.ValidationError{Field: "claveAcceso", Reason: err.Error()}
	}
	if int(key[AccessKeyLength-1]-'0') != dv {
		return domain.NewValidationError("claveAcceso", "dígito verificador inválido: esperado %d, recibido %c", dv, key[AccessKeyLength-1])
	}
	return nil
}

// ParseAccessKey valida y descompone la clave de acceso.
func ParseAccessKey(key string) (*AccessKeyParts, error) {
	if err := ValidateAccessKey(key); err != nil {
		return nil, err
	}
	date, err := time.Parse("02012006", key[0:8])
	if err != nil {
		return nil, domain.NewValidationError("claveAcceso", "fecha inválida %q", key[0:8])
	}
	seq, _ := strconv.ParseInt(key[30:39], 10, 64)
	return &AccessKeyParts{
		Date:          date,
		DocType:       key[8:10],
		RUC:           key[10:23],
		Environment:   key[23:24],
		Establishment: key[24:27],
		EmissionPoint: key[27:30],
		Sequence:      seq,
		NumericCode:   key[39:47],
		EmissionType:  key[47:48],
		CheckDigit:    int(key[48] - '0'),
	}, nil
}

// FormatSequence secuencial con 9 dígitos.
func FormatSequence(seq int64) string {
	return fmt.Sprintf("%09d", seq)
}

// FormatInvoiceNumber número visible de la factura: estab-ptoEmi-secuencial.
func FormatInvoiceNumber(establishment, emissionPoint string, seq int64) string {
	return establishment + "-" + emissionPoint + "-" + FormatSequence(seq)
}

// Carga del certificado de firma desde .p12 (PKCS#12).

package signer

import (
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"golang.org/x/crypto/pkcs12"
)

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// Los certificados de las entidades emisoras en Ecuador suelen traer la cadena
// completa; si Decode falla se busca el certificado que corresponde a la llave.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	if path == "" {
		return tls.Certificate{}, &domain.ConfigurationError{Reason: "ruta del certificado .p12 vacía"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, &domain.ConfigurationError{Reason: "leer p12", Err: err}
	}
	return DecodeP12(data, password)
}

// DecodeP12 decodifica el contenido de un .p12 ya leído.
func DecodeP12(data []byte, password string) (tls.Certificate, error) {
	priv, cert, err := pkcs12.Decode(data, password)
	if err == nil {
		return buildCertificate(priv, cert, nil)
	}
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return tls.Certificate{}, &domain.ConfigurationError{Reason: "contraseña del p12 incorrecta", Err: err}
	}

	blocks, pemErr := pkcs12.ToPEM(data, password)
	if pemErr != nil {
		return tls.Certificate{}, &domain.ConfigurationError{Reason: "decodificar p12", Err: pemErr}
	}
	var key any
	var certs []*x509.Certificate
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			if k, err := parsePrivateKey(b); err == nil && key == nil {
				key = k
			}
		case "CERTIFICATE":
			if c, err := x509.ParseCertificate(b.Bytes); err == nil {
				certs = append(certs, c)
			}
		}
	}
	if key == nil {
		return tls.Certificate{}, &domain.ConfigurationError{Reason: "el p12 no contiene llave privada"}
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return tls.Certificate{}, &domain.ConfigurationError{Reason: "la llave privada debe ser RSA"}
	}
	for _, c := range certs {
		if pub, ok := c.PublicKey.(*rsa.PublicKey); ok && pub.Equal(&rsaKey.PublicKey) {
			return buildCertificate(rsaKey, c, certs)
		}
	}
	return tls.Certificate{}, &domain.ConfigurationError{Reason: "ningún certificado del p12 corresponde a la llave privada"}
}

func parsePrivateKey(b *pem.Block) (any, error) {
	if k, err := x509.ParsePKCS1PrivateKey(b.Bytes); err == nil {
		return k, nil
	}
	return x509.ParsePKCS8PrivateKey(b.Bytes)
}

func buildCertificate(priv any, leaf *x509.Certificate, chain []*x509.Certificate) (tls.Certificate, error) {
	if _, ok := priv.(*rsa.PrivateKey); !ok {
		return tls.Certificate{}, &domain.ConfigurationError{Reason: "la llave privada debe ser RSA"}
	}
	out := tls.Certificate{Certificate: [][]byte{leaf.Raw}, PrivateKey: priv, Leaf: leaf}
	for _, c := range chain {
		if c != leaf {
			out.Certificate = append(out.Certificate, c.Raw)
		}
	}
	return out, nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-1 del certificado (Base64),
// el nombre del emisor y el serial en decimal para SigningCertificate.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha1.Sum(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}

// describe resumen legible del certificado para logs y CLI.
func describe(cert *x509.Certificate) string {
	return fmt.Sprintf("%s (serial %s, vence %s)", cert.Subject.CommonName, cert.SerialNumber, cert.NotAfter.Format("2006-01-02"))
}

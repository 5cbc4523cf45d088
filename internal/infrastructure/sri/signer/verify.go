package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

// Verify comprueba la firma XAdES-BES de un comprobante: digests de las tres
// referencias y SignatureValue con el certificado embebido. Es diagnóstica:
// no valida la cadena de confianza del certificado.
func (s *DigitalSignatureService) Verify(signed []byte) (bool, error) {
	return VerifySignature(signed)
}

// VerifySignature igual que Verify pero sin requerir un certificado de firma cargado.
func VerifySignature(signed []byte) (bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		return false, fmt.Errorf("parsear XML firmado: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return false, errors.New("documento sin raíz")
	}
	sig := root.SelectElement("Signature")
	if sig == nil {
		return false, errors.New("el comprobante no tiene ds:Signature")
	}
	signedInfo := sig.SelectElement("SignedInfo")
	if signedInfo == nil {
		return false, errors.New("ds:SignedInfo ausente")
	}

	for _, ref := range signedInfo.SelectElements("Reference") {
		uri := strings.TrimPrefix(ref.SelectAttrValue("URI", ""), "#")
		target, inherited := resolveReference(root, sig, uri)
		if target == nil {
			return false, fmt.Errorf("referencia #%s no encontrada", uri)
		}
		canon, err := canonicalElement(target, inherited)
		if err != nil {
			return false, err
		}
		want := ""
		if dv := ref.SelectElement("DigestValue"); dv != nil {
			want = strings.TrimSpace(dv.Text())
		}
		if digestB64(canon) != want {
			return false, nil
		}
	}

	cert, err := embeddedCertificate(sig)
	if err != nil {
		return false, err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false, errors.New("el certificado embebido no es RSA")
	}
	sigValueEl := sig.SelectElement("SignatureValue")
	if sigValueEl == nil {
		return false, errors.New("ds:SignatureValue ausente")
	}
	sigValue, err := base64.StdEncoding.DecodeString(compact(sigValueEl.Text()))
	if err != nil {
		return false, fmt.Errorf("SignatureValue no es Base64: %w", err)
	}
	canonicalSignedInfo, err := canonicalElement(signedInfo, signatureNamespaces)
	if err != nil {
		return false, err
	}
	hash := sha1.Sum(canonicalSignedInfo)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, hash[:], sigValue); err != nil {
		return false, nil
	}
	return true, nil
}

// resolveReference ubica el elemento referenciado por Id/id. El comprobante se
// canoniza sin la firma (enveloped-signature); los nodos de la firma heredan
// sus namespaces.
func resolveReference(root, sig *etree.Element, id string) (*etree.Element, []etree.Attr) {
	if id == root.SelectAttrValue("id", "") {
		return removeSignature(root), nil
	}
	if el := findByID(sig, id); el != nil {
		return el, signatureNamespaces
	}
	return nil, nil
}

func findByID(el *etree.Element, id string) *etree.Element {
	if el.SelectAttrValue("Id", "") == id {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func embeddedCertificate(sig *etree.Element) (*x509.Certificate, error) {
	el := sig.FindElement("KeyInfo/X509Data/X509Certificate")
	if el == nil {
		return nil, errors.New("ds:X509Certificate ausente")
	}
	der, err := base64.StdEncoding.DecodeString(compact(el.Text()))
	if err != nil {
		return nil, fmt.Errorf("X509Certificate no es Base64: %w", err)
	}
	return x509.ParseCertificate(der)
}

func compact(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ sri.Verifier = (*DigitalSignatureService)(nil)

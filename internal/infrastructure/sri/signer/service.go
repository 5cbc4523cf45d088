// Servicio de firma digital XAdES-BES para comprobantes electrónicos del SRI.
// Inserta <ds:Signature> como último hijo del elemento raíz (firma enveloped).

package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

// DigitalSignatureService implementa la firma XAdES-BES con el certificado cargado al iniciar.
type DigitalSignatureService struct {
	priv *rsa.PrivateKey
	cert *x509.Certificate
	now  func() time.Time
	ids  func() string
}

// NewDigitalSignatureService valida el certificado una sola vez; un
// certificado inválido es un error de configuración.
func NewDigitalSignatureService(cert tls.Certificate) (*DigitalSignatureService, error) {
	if len(cert.Certificate) == 0 {
		return nil, &domain.ConfigurationError{Reason: "certificado vacío"}
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, &domain.ConfigurationError{Reason: "el certificado debe incluir llave privada RSA"}
	}
	leaf := cert.Leaf
	if leaf == nil {
		var err error
		leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, &domain.ConfigurationError{Reason: "parsear certificado", Err: err}
		}
	}
	return &DigitalSignatureService{
		priv: priv,
		cert: leaf,
		now:  time.Now,
		ids:  func() string { return strconv.Itoa(100000 + mrand.IntN(900000)) },
	}, nil
}

// Certificate certificado usado para firmar.
func (s *DigitalSignatureService) Certificate() *x509.Certificate { return s.cert }

// Describe resumen del certificado (titular, serial, vencimiento).
func (s *DigitalSignatureService) Describe() string { return describe(s.cert) }

// Sign implementa pkg/sri.Signer.
func (s *DigitalSignatureService) Sign(xmlBytes []byte) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, &domain.SigningError{Step: "entrada", Err: errors.New("XML vacío")}
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, &domain.SigningError{Step: "parsear XML", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &domain.SigningError{Step: "parsear XML", Err: errors.New("documento sin raíz")}
	}
	if root.SelectAttrValue("id", "") != ComprobanteElementID {
		return nil, &domain.SigningError{Step: "parsear XML", Err: fmt.Errorf("la raíz debe tener id=%q", ComprobanteElementID)}
	}
	if root.SelectElement("Signature") != nil {
		return nil, &domain.SigningError{Step: "parsear XML", Err: errors.New("el comprobante ya está firmado")}
	}

	ids := newSignatureIDs(s.ids())

	// 1) Digest del comprobante (C14N inclusivo, Reference #comprobante)
	canonicalDoc, err := canonicalElement(root, nil)
	if err != nil {
		return nil, &domain.SigningError{Step: "canonizar comprobante", Err: err}
	}
	docDigest := digestB64(canonicalDoc)

	// 2) KeyInfo (certificado y llave pública)
	keyInfoInner := s.buildKeyInfo()
	canonicalKeyInfo, err := canonicalFragment("ds:KeyInfo", `Id="`+ids.certificate+`"`, keyInfoInner)
	if err != nil {
		return nil, &domain.SigningError{Step: "canonizar KeyInfo", Err: err}
	}

	// 3) SignedProperties (SigningTime, SigningCertificate, DataObjectFormat)
	signedPropsInner := s.buildSignedProperties(ids)
	canonicalProps, err := canonicalFragment("etsi:SignedProperties", `Id="`+ids.signedProps+`"`, signedPropsInner)
	if err != nil {
		return nil, &domain.SigningError{Step: "canonizar SignedProperties", Err: err}
	}

	// 4) SignedInfo con las tres referencias; se firma su forma canónica
	signedInfoInner := buildSignedInfo(ids, digestB64(canonicalProps), digestB64(canonicalKeyInfo), docDigest)
	canonicalSignedInfo, err := canonicalFragment("ds:SignedInfo", `Id="`+ids.signedInfo+`"`, signedInfoInner)
	if err != nil {
		return nil, &domain.SigningError{Step: "canonizar SignedInfo", Err: err}
	}
	hash := sha1.Sum(canonicalSignedInfo)
	sigValue, err := rsa.SignPKCS1v15(rand.Reader, s.priv, crypto.SHA1, hash[:])
	if err != nil {
		return nil, &domain.SigningError{Step: "firmar SignedInfo", Err: err}
	}

	// 5) Ensamblar ds:Signature e insertarla al final de la raíz
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" xmlns:etsi="` + NamespaceETSI + `" Id="` + ids.signature + `">`)
	sb.WriteString(`<ds:SignedInfo Id="` + ids.signedInfo + `">` + signedInfoInner + `</ds:SignedInfo>`)
	sb.WriteString(`<ds:SignatureValue Id="` + ids.signatureValue + `">` + base64.StdEncoding.EncodeToString(sigValue) + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo Id="` + ids.certificate + `">` + keyInfoInner + `</ds:KeyInfo>`)
	sb.WriteString(`<ds:Object Id="` + ids.object + `">`)
	sb.WriteString(`<etsi:QualifyingProperties Target="#` + ids.signature + `">`)
	sb.WriteString(`<etsi:SignedProperties Id="` + ids.signedProps + `">` + signedPropsInner + `</etsi:SignedProperties>`)
	sb.WriteString(`</etsi:QualifyingProperties></ds:Object>`)
	sb.WriteString(`</ds:Signature>`)

	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(sb.String()); err != nil {
		return nil, &domain.SigningError{Step: "parsear Signature", Err: err}
	}
	root.AddChild(sigDoc.Root())

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, &domain.SigningError{Step: "serializar", Err: err}
	}
	return out, nil
}

type signatureIDs struct {
	signature, signedInfo, signatureValue, certificate, object string
	signedProps, signedPropsRef, documentRef                   string
}

func newSignatureIDs(n string) signatureIDs {
	return signatureIDs{
		signature:      "Signature" + n,
		signedInfo:     "Signature" + n + "-SignedInfo",
		signatureValue: "SignatureValue" + n,
		certificate:    "Certificate" + n,
		object:         "Signature" + n + "-Object",
		signedProps:    "Signature" + n + "-SignedProperties",
		signedPropsRef: "SignedPropertiesID" + n,
		documentRef:    "Reference-ID-" + n,
	}
}

func buildSignedInfo(ids signatureIDs, propsDigest, keyInfoDigest, docDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA1 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference Id="` + ids.signedPropsRef + `" Type="` + TypeSignedProps + `" URI="#` + ids.signedProps + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + propsDigest + `</ds:DigestValue></ds:Reference>`)
	sb.WriteString(`<ds:Reference URI="#` + ids.certificate + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + keyInfoDigest + `</ds:DigestValue></ds:Reference>`)
	sb.WriteString(`<ds:Reference Id="` + ids.documentRef + `" URI="#` + ComprobanteElementID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + docDigest + `</ds:DigestValue></ds:Reference>`)
	return sb.String()
}

func (s *DigitalSignatureService) buildKeyInfo() string {
	pub := &s.priv.PublicKey
	var sb strings.Builder
	sb.WriteString(`<ds:X509Data><ds:X509Certificate>` + base64.StdEncoding.EncodeToString(s.cert.Raw) + `</ds:X509Certificate></ds:X509Data>`)
	sb.WriteString(`<ds:KeyValue><ds:RSAKeyValue>`)
	sb.WriteString(`<ds:Modulus>` + base64.StdEncoding.EncodeToString(pub.N.Bytes()) + `</ds:Modulus>`)
	sb.WriteString(`<ds:Exponent>` + base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()) + `</ds:Exponent>`)
	sb.WriteString(`</ds:RSAKeyValue></ds:KeyValue>`)
	return sb.String()
}

func (s *DigitalSignatureService) buildSignedProperties(ids signatureIDs) string {
	certDigest, issuerName, serial := CertDigestAndIssuerSerial(s.cert)
	var sb strings.Builder
	sb.WriteString(`<etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SigningTime>` + s.now().Format(time.RFC3339) + `</etsi:SigningTime>`)
	sb.WriteString(`<etsi:SigningCertificate><etsi:Cert><etsi:CertDigest>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + certDigest + `</ds:DigestValue></etsi:CertDigest>`)
	sb.WriteString(`<etsi:IssuerSerial><ds:X509IssuerName>` + escapeXML(issuerName) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber></etsi:IssuerSerial>`)
	sb.WriteString(`</etsi:Cert></etsi:SigningCertificate>`)
	sb.WriteString(`</etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SignedDataObjectProperties>`)
	sb.WriteString(`<etsi:DataObjectFormat ObjectReference="#` + ids.documentRef + `">`)
	sb.WriteString(`<etsi:Description>contenido comprobante</etsi:Description><etsi:MimeType>text/xml</etsi:MimeType>`)
	sb.WriteString(`</etsi:DataObjectFormat></etsi:SignedDataObjectProperties>`)
	return sb.String()
}

func digestB64(data []byte) string {
	h := sha1.Sum(data)
	return base64.StdEncoding.EncodeToString(h[:])
}

var _ sri.Signer = (*DigitalSignatureService)(nil)

package sri

// Signer firma un comprobante XML y devuelve el XML con ds:Signature como
// último hijo del elemento raíz. El certificado se carga al construir la implementación.
type Signer interface {
	Sign(xmlBytes []byte) ([]byte, error)
}

// Verifier comprueba la firma embebida de un comprobante firmado.
type Verifier interface {
	Verify(signed []byte) (bool, error)
}

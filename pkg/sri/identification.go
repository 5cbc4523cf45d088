package sri

// ClassifyIdentification determina el tipo de identificación del comprador por
// la longitud: 13 -> RUC, 10 -> cédula, cualquier otra -> pasaporte.
// No valida dígitos verificadores.
func ClassifyIdentification(id string) string {
	switch len(id) {
	case 13:
		return IDTypeRUC
	case 10:
		return IDTypeCedula
	default:
		return IDTypePassport
	}
}

package entity

// Issuer datos tributarios del emisor (infoTributaria e infoFactura).
type Issuer struct {
	RUC                    string
	LegalName              string // razonSocial
	CommercialName         string // nombreComercial
	HeadOfficeAddress      string // dirMatriz
	EstablishmentAddress   string // dirEstablecimiento
	Establishment          string // estab, 3 dígitos
	EmissionPoint          string // ptoEmi, 3 dígitos
	SpecialTaxpayer        string // contribuyenteEspecial, opcional
	RequiredToKeepAccounts bool   // obligadoContabilidad
	Environment            string // 1 pruebas, 2 producción
}

package entity

// Customer comprador de la factura.
type Customer struct {
	ID             string
	Identification string // RUC (13), cédula (10) o pasaporte
	Name           string
	Address        string
	Email          string
	Phone          string
}

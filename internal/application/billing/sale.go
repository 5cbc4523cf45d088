package billing

import (
	"fmt"
	"strings"

	"github.com/jhoicas/facturador-sri/internal/application/dto"
	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

// defaultSeller valor de infoAdicional Vendedor cuando el POS no lo envía.
const defaultSeller = "Sistema"

// PrepareSale convierte el carrito del POS en una solicitud de emisión:
// IVA 15 % por defecto, forma de pago 01 e infoAdicional Vendedor/Email.
func PrepareSale(in *dto.EmitInvoiceRequest) (*EmissionRequest, error) {
	if in == nil {
		return nil, domain.NewValidationError("venta", "solicitud vacía")
	}
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("items", "el carrito está vacío")
	}
	customer := &entity.Customer{
		Identification: strings.TrimSpace(in.Customer.Identification),
		Name:           strings.TrimSpace(in.Customer.Name),
		Address:        strings.TrimSpace(in.Customer.Address),
		Email:          strings.TrimSpace(in.Customer.Email),
		Phone:          strings.TrimSpace(in.Customer.Phone),
	}
	if customer.Identification == "" {
		return nil, domain.NewValidationError("customer.identification", "obligatoria")
	}
	if customer.Name == "" {
		return nil, domain.NewValidationError("customer.name", "obligatorio")
	}

	items := make([]*entity.InvoiceDetail, 0, len(in.Items))
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, domain.NewValidationError(field+".name", "obligatorio")
		}
		if !it.Quantity.IsPositive() {
			return nil, domain.NewValidationError(field+".quantity", "debe ser mayor que cero")
		}
		if it.Price.IsNegative() {
			return nil, domain.NewValidationError(field+".price", "no puede ser negativo")
		}
		rate := sri.IVARate(strings.TrimSpace(it.TaxRate))
		if rate == "" {
			rate = sri.IVA15
		}
		if _, ok := rate.Tariff(); !ok {
			return nil, domain.NewValidationError(field+".tax_rate", "código %q no soportado", it.TaxRate)
		}
		code := strings.TrimSpace(it.Code)
		if code == "" {
			code = fmt.Sprintf("%03d", i+1)
		}
		items = append(items, &entity.InvoiceDetail{
			Code:        code,
			Description: name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			Discount:    it.Discount,
			TaxRateCode: string(rate),
		})
	}

	seller := strings.TrimSpace(in.Seller)
	if seller == "" {
		seller = defaultSeller
	}
	info := []infrasri.AdditionalField{{Name: "Vendedor", Value: seller}}
	if customer.Email != "" {
		info = append(info, infrasri.AdditionalField{Name: "Email", Value: customer.Email})
	}

	payment := strings.TrimSpace(in.PaymentCode)
	if payment == "" {
		payment = sri.PaymentWithoutFinancialSystem
	}

	return &EmissionRequest{
		Customer:         customer,
		Items:            items,
		DocumentDiscount: in.Discount,
		PaymentCode:      payment,
		AdditionalInfo:   info,
	}, nil
}

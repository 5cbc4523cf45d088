package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerRequest comprador de la venta.
type CustomerRequest struct {
	Identification string `json:"identification"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// CartItemRequest ítem del carrito del POS.
// TaxRate: código de porcentaje IVA; vacío = 4 (15 %).
type CartItemRequest struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount,omitempty"`
	TaxRate  string          `json:"tax_rate,omitempty"`
}

// EmitInvoiceRequest body para POST /api/invoices.
type EmitInvoiceRequest struct {
	Customer    CustomerRequest   `json:"customer"`
	Items       []CartItemRequest `json:"items"`
	Discount    decimal.Decimal   `json:"discount,omitempty"`
	PaymentCode string            `json:"payment_code,omitempty"`
	Seller      string            `json:"seller,omitempty"`
}

// SRIMessageResponse mensaje del SRI.
type SRIMessageResponse struct {
	Identifier     string `json:"identifier,omitempty"`
	Message        string `json:"message"`
	Type           string `json:"type,omitempty"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// EmissionResponse resultado de una emisión o reconsulta.
type EmissionResponse struct {
	Status              string               `json:"status"`
	Stage               string               `json:"stage,omitempty"`
	AccessKey           string               `json:"access_key,omitempty"`
	Number              string               `json:"number,omitempty"`
	AuthorizationNumber string               `json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time           `json:"authorized_at,omitempty"`
	Environment         string               `json:"environment,omitempty"`
	Total               *decimal.Decimal     `json:"total,omitempty"`
	Messages            []SRIMessageResponse `json:"messages,omitempty"`
	Error               string               `json:"error,omitempty"`
	Critical            bool                 `json:"critical,omitempty"`
}

// InvoiceResponse registro de emisión para GET /api/invoices/:accessKey.
type InvoiceResponse struct {
	ID                  string               `json:"id"`
	AccessKey           string               `json:"access_key"`
	Number              string               `json:"number"`
	Date                string               `json:"date"`
	Environment         string               `json:"environment"`
	CustomerID          string               `json:"customer_id"`
	CustomerName        string               `json:"customer_name"`
	NetTotal            decimal.Decimal      `json:"net_total"`
	DiscountTotal       decimal.Decimal      `json:"discount_total"`
	TaxTotal            decimal.Decimal      `json:"tax_total"`
	GrandTotal          decimal.Decimal      `json:"grand_total"`
	Status              string               `json:"status"`
	AuthorizationNumber string               `json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time           `json:"authorized_at,omitempty"`
	Messages            []SRIMessageResponse `json:"messages,omitempty"`
}

// VerifyResponse resultado de POST /api/invoices/verify.
type VerifyResponse struct {
	Valid     bool   `json:"valid"`
	AccessKey string `json:"access_key,omitempty"`
	Error     string `json:"error,omitempty"`
}

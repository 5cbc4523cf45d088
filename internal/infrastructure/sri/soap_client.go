package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jhoicas/facturador-sri/internal/domain"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	"github.com/jhoicas/facturador-sri/pkg/sri"
	"golang.org/x/time/rate"
)

// ── Endpoints ─────────────────────────────────────────────────────────────────

const (
	hostTest = "https://celcer.sri.gob.ec"
	hostProd = "https://cel.sri.gob.ec"

	receptionPath     = "/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	authorizationPath = "/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsReception     = "http://ec.gob.sri.ws.recepcion"
	nsAuthorization = "http://ec.gob.sri.ws.autorizacion"
)

// Endpoints URLs de los servicios de recepción y autorización.
type Endpoints struct {
	Reception     string
	Authorization string
}

// EndpointsFor devuelve las URLs del ambiente (1 pruebas, 2 producción).
func EndpointsFor(environment string) Endpoints {
	host := hostTest
	if environment == sri.EnvironmentProduction {
		host = hostProd
	}
	return Endpoints{Reception: host + receptionPath, Authorization: host + authorizationPath}
}

// ── Puerto (interfaz) ─────────────────────────────────────────────────────────

// Gateway operaciones remotas del SRI. SOAPClient es la implementación real;
// los tests inyectan stubs.
type Gateway interface {
	ValidateDocument(ctx context.Context, signed []byte) (*ReceptionResponse, error)
	QueryAuthorization(ctx context.Context, accessKey string) (*AuthorizationResponse, error)
}

// ReceptionResponse respuesta de validarComprobante.
type ReceptionResponse struct {
	State    string // RECIBIDA o DEVUELTA
	Messages []entity.SRIMessage
}

// AuthorizationKind variante de la respuesta de autorizacionComprobante.
type AuthorizationKind int

const (
	AuthorizationNotFound   AuthorizationKind = iota // sin autorizaciones todavía
	AuthorizationPending                             // estado no terminal (EN PROCESO)
	AuthorizationAuthorized                          // AUTORIZADO
	AuthorizationRejected                            // NO AUTORIZADO / RECHAZADO
	AuthorizationMalformed                           // respuesta ilegible
)

func (k AuthorizationKind) String() string {
	switch k {
	case AuthorizationNotFound:
		return "no-encontrado"
	case AuthorizationPending:
		return "en-proceso"
	case AuthorizationAuthorized:
		return "autorizado"
	case AuthorizationRejected:
		return "rechazado"
	case AuthorizationMalformed:
		return "mal-formado"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AuthorizationResponse respuesta decodificada; los campos usados dependen de Kind.
type AuthorizationResponse struct {
	Kind                AuthorizationKind
	State               string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	Environment         string
	Document            string
	Messages            []entity.SRIMessage
	Raw                 string // solo para Malformed
}

// ── Implementación SOAP ───────────────────────────────────────────────────────

// SOAPClient implementa Gateway sobre los WS offline del SRI. Comparte un
// limitador de tasa entre todas las emisiones concurrentes.
type SOAPClient struct {
	httpClient *http.Client
	endpoints  Endpoints
	limiter    *rate.Limiter
}

// SOAPClientOption configura el cliente.
type SOAPClientOption func(*SOAPClient)

// WithHTTPClient reemplaza el cliente HTTP (tests con httptest).
func WithHTTPClient(c *http.Client) SOAPClientOption {
	return func(s *SOAPClient) { s.httpClient = c }
}

// WithRateLimit limita las llamadas por segundo al SRI. perSecond <= 0 desactiva el límite.
func WithRateLimit(perSecond float64, burst int) SOAPClientOption {
	return func(s *SOAPClient) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewSOAPClient construye el cliente con timeout de red de 60 s.
func NewSOAPClient(endpoints Endpoints, opts ...SOAPClientOption) *SOAPClient {
	c := &SOAPClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoints:  endpoints,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ Gateway = (*SOAPClient)(nil)

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	XmlnsS  string   `xml:"xmlns:soapenv,attr"`
	XmlnsEc string   `xml:"xmlns:ec,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    soapBody `xml:"soapenv:Body"`
}

type soapBody struct {
	Content any
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"` // comprobante firmado en Base64
}

type autorizacionComprobanteBody struct {
	XMLName   xml.Name `xml:"ec:autorizacionComprobante"`
	AccessKey string   `xml:"claveAccesoComprobante"`
}

// ── Estructuras de respuesta ──────────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Reception     *receptionResponse     `xml:"validarComprobanteResponse>RespuestaRecepcionComprobante"`
	Authorization *authorizationResponse `xml:"autorizacionComprobanteResponse>RespuestaAutorizacionComprobante"`
	Fault         *soapFault             `xml:"Fault"`
}

type receptionResponse struct {
	State        string            `xml:"estado"`
	Comprobantes []receptionDocXML `xml:"comprobantes>comprobante"`
}

type receptionDocXML struct {
	AccessKey string       `xml:"claveAcceso"`
	Messages  []messageXML `xml:"mensajes>mensaje"`
}

type authorizationResponse struct {
	AccessKey      string             `xml:"claveAccesoConsultada"`
	Count          string             `xml:"numeroComprobantes"`
	Authorizations []authorizationXML `xml:"autorizaciones>autorizacion"`
}

type authorizationXML struct {
	State               string       `xml:"estado"`
	AuthorizationNumber string       `xml:"numeroAutorizacion"`
	AuthorizedAt        string       `xml:"fechaAutorizacion"`
	Environment         string       `xml:"ambiente"`
	Document            string       `xml:"comprobante"`
	Messages            []messageXML `xml:"mensajes>mensaje"`
}

type messageXML struct {
	Identifier     string `xml:"identificador"`
	Message        string `xml:"mensaje"`
	AdditionalInfo string `xml:"informacionAdicional"`
	Type           string `xml:"tipo"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// ValidateDocument envía el XML firmado a recepción (validarComprobante).
func (c *SOAPClient) ValidateDocument(ctx context.Context, signed []byte) (*ReceptionResponse, error) {
	body := &validarComprobanteBody{XML: base64.StdEncoding.EncodeToString(signed)}
	raw, err := c.call(ctx, "validarComprobante", c.endpoints.Reception, nsReception, body)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, &domain.TransportError{Op: "validarComprobante", Err: err}
	}
	if env.Body.Fault != nil {
		return nil, faultError("validarComprobante", env.Body.Fault)
	}
	r := env.Body.Reception
	if r == nil || r.State == "" {
		return nil, &domain.TransportError{Op: "validarComprobante", Err: errors.New("respuesta sin estado: " + truncate(string(raw), 300))}
	}
	out := &ReceptionResponse{State: strings.TrimSpace(r.State)}
	for _, doc := range r.Comprobantes {
		out.Messages = append(out.Messages, toMessages(doc.Messages)...)
	}
	return out, nil
}

// QueryAuthorization consulta autorizacionComprobante y clasifica la respuesta.
func (c *SOAPClient) QueryAuthorization(ctx context.Context, accessKey string) (*AuthorizationResponse, error) {
	body := &autorizacionComprobanteBody{AccessKey: accessKey}
	raw, err := c.call(ctx, "autorizacionComprobante", c.endpoints.Authorization, nsAuthorization, body)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return &AuthorizationResponse{Kind: AuthorizationMalformed, Raw: truncate(string(raw), 500)}, nil
	}
	if env.Body.Fault != nil {
		return nil, faultError("autorizacionComprobante", env.Body.Fault)
	}
	return classifyAuthorization(env.Body.Authorization, raw), nil
}

func classifyAuthorization(r *authorizationResponse, raw []byte) *AuthorizationResponse {
	if r == nil {
		return &AuthorizationResponse{Kind: AuthorizationMalformed, Raw: truncate(string(raw), 500)}
	}
	if len(r.Authorizations) == 0 {
		return &AuthorizationResponse{Kind: AuthorizationNotFound}
	}
	a := r.Authorizations[0]
	out := &AuthorizationResponse{
		State:       strings.TrimSpace(a.State),
		Environment: strings.TrimSpace(a.Environment),
		Messages:    toMessages(a.Messages),
	}
	switch out.State {
	case entity.SRIStateAuthorized:
		out.Kind = AuthorizationAuthorized
		out.AuthorizationNumber = strings.TrimSpace(a.AuthorizationNumber)
		out.AuthorizedAt = parseAuthorizationDate(a.AuthorizedAt)
		out.Document = a.Document
	case entity.SRIStateNotAuthorized, entity.SRIStateRejected:
		out.Kind = AuthorizationRejected
	case "":
		out.Kind = AuthorizationMalformed
		out.Raw = truncate(string(raw), 500)
	default:
		out.Kind = AuthorizationPending
	}
	return out
}

func (c *SOAPClient) call(ctx context.Context, op, url, ns string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}

	envelope := soapEnvelope{XmlnsS: soapNS, XmlnsEc: ns, Body: soapBody{Content: body}}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("serializar envelope: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("crear request: %w", err)}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.TransportError{Op: op, Err: ctx.Err()}
		}
		return nil, &domain.TransportError{Op: op, Retryable: isNetworkError(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &domain.TransportError{Op: op, Retryable: true, Err: fmt.Errorf("leer respuesta: %w", err)}
	}
	// Los SOAP Fault llegan con HTTP 500 y se decodifican arriba.
	if resp.StatusCode >= 300 && !bytes.Contains(raw, []byte("Fault")) {
		return nil, &domain.TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        errors.New(truncate(string(raw), 300)),
		}
	}
	return raw, nil
}

func decodeEnvelope(raw []byte) (*soapResponseEnvelope, error) {
	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("no se pudo parsear respuesta SOAP: %w", err)
	}
	return &env, nil
}

// faultError: faultcode Client es definitivo; Server se reintenta.
func faultError(op string, f *soapFault) error {
	code := f.FaultCode
	if i := strings.LastIndex(code, ":"); i >= 0 {
		code = code[i+1:]
	}
	return &domain.TransportError{
		Op:        op,
		Retryable: strings.EqualFold(code, "Server"),
		Err:       fmt.Errorf("SOAP Fault [%s]: %s", f.FaultCode, f.FaultString),
	}
}

func isNetworkError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func toMessages(in []messageXML) []entity.SRIMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.SRIMessage, 0, len(in))
	for _, m := range in {
		out = append(out, entity.SRIMessage{
			Identifier:     strings.TrimSpace(m.Identifier),
			Message:        m.Message,
			Type:           strings.TrimSpace(m.Type),
			AdditionalInfo: m.AdditionalInfo,
		})
	}
	return out
}

var authorizationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

func parseAuthorizationDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range authorizationDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// truncate corta s a lo sumo en n bytes sin partir una runa UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

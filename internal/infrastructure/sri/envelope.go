package sri

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
)

// AuthorizedDocument contenido del XML guardado en xml_autorizados.
type AuthorizedDocument struct {
	State               string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	Environment         string
	Comprobante         []byte
}

// AuthorizedEnvelope arma el XML <autorizacion> con el comprobante en CDATA,
// con la misma forma que devuelve el servicio de autorización. Si el SRI no
// devolvió el comprobante se usa el XML firmado local.
func AuthorizedEnvelope(res *entity.AuthorizationResult, signed []byte) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("sri: resultado de autorización nulo")
	}
	comprobante := strings.TrimSpace(res.Document)
	if comprobante == "" {
		comprobante = string(signed)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("autorizacion")
	root.CreateElement("estado").SetText(res.State)
	root.CreateElement("numeroAutorizacion").SetText(res.AuthorizationNumber)
	if res.AuthorizedAt != nil {
		root.CreateElement("fechaAutorizacion").SetText(res.AuthorizedAt.Format(time.RFC3339))
	}
	root.CreateElement("ambiente").SetText(res.Environment)
	root.CreateElement("comprobante").CreateCData(comprobante)
	if len(res.Messages) > 0 {
		msgs := root.CreateElement("mensajes")
		for _, m := range res.Messages {
			el := msgs.CreateElement("mensaje")
			el.CreateElement("identificador").SetText(m.Identifier)
			el.CreateElement("mensaje").SetText(m.Message)
			el.CreateElement("tipo").SetText(m.Type)
			if m.AdditionalInfo != "" {
				el.CreateElement("informacionAdicional").SetText(m.AdditionalInfo)
			}
		}
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}

// ParseAuthorizedEnvelope lee un XML <autorizacion> guardado.
func ParseAuthorizedEnvelope(data []byte) (*AuthorizedDocument, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("sri: autorización ilegible: %w", err)
	}
	root := doc.SelectElement("autorizacion")
	if root == nil {
		return nil, fmt.Errorf("sri: falta el elemento autorizacion")
	}
	out := &AuthorizedDocument{
		State:               childText(root, "estado"),
		AuthorizationNumber: childText(root, "numeroAutorizacion"),
		Environment:         childText(root, "ambiente"),
		AuthorizedAt:        parseAuthorizationDate(childText(root, "fechaAutorizacion")),
	}
	if c := root.SelectElement("comprobante"); c != nil {
		out.Comprobante = []byte(strings.TrimSpace(c.Text()))
	}
	if len(out.Comprobante) == 0 {
		return nil, fmt.Errorf("sri: autorización sin comprobante")
	}
	return out, nil
}

func childText(el *etree.Element, path string) string {
	c := el.FindElement(path)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

package signer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

// signatureNamespaces declaraciones del ds:Signature, visibles para todos sus
// descendientes; C14N inclusivo las incluye al canonizar cada subárbol.
var signatureNamespaces = []etree.Attr{
	{Space: "xmlns", Key: "ds", Value: NamespaceDS},
	{Space: "xmlns", Key: "etsi", Value: NamespaceETSI},
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// canonicalElement serializa el subárbol el como documento independiente,
// agrega las declaraciones de namespace heredadas y lo canoniza.
func canonicalElement(el *etree.Element, inherited []etree.Attr) ([]byte, error) {
	cp := el.Copy()
	for _, ns := range inherited {
		if cp.SelectAttr(ns.FullKey()) == nil {
			cp.CreateAttr(ns.FullKey(), ns.Value)
		}
	}
	doc := etree.NewDocument()
	doc.SetRoot(cp)
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar %s: %w", el.Tag, err)
	}
	return canonicalize(raw)
}

// canonicalFragment canoniza un fragmento construido como texto, declarando
// los namespaces del ds:Signature en su elemento raíz.
func canonicalFragment(tag, attrs, inner string) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("<" + tag + ` xmlns:ds="` + NamespaceDS + `" xmlns:etsi="` + NamespaceETSI + `"`)
	if attrs != "" {
		sb.WriteString(" " + attrs)
	}
	sb.WriteString(">" + inner + "</" + tag + ">")
	return canonicalize([]byte(sb.String()))
}

// removeSignature quita ds:Signature de la copia (transformación enveloped-signature).
func removeSignature(root *etree.Element) *etree.Element {
	cp := root.Copy()
	for _, child := range cp.ChildElements() {
		if child.Tag == "Signature" {
			cp.RemoveChild(child)
		}
	}
	return cp
}

func escapeXML(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

package saft

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Tree - разобранный файл SAF-T. Поиск элементов идет по локальному имени тега.
type Tree struct {
	doc *etree.Document
}

// Parse проверяет, что XML корректен, и строит дерево.
// etree читает без проверки парности тегов, поэтому сначала идет строгий проход encoding/xml.
func Parse(raw []byte) (*Tree, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, malformed(nil, "empty document")
	}
	if err := wellFormed(raw); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, malformed(err, "%v", err)
	}
	if doc.Root() == nil {
		return nil, malformed(nil, "no root element")
	}
	return &Tree{doc: doc}, nil
}

func wellFormed(raw []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return malformed(err, "%v", err)
		}
	}
}

func (t *Tree) Root() *etree.Element {
	return t.doc.Root()
}

// FindAll - все элементы с локальным именем tag, в порядке документа
func (t *Tree) FindAll(tag string) []*etree.Element {
	var found []*etree.Element
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if e.Tag == tag {
			found = append(found, e)
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(t.doc.Root())
	return found
}

// Namespaces - объявленные у корня пространства имен, префикс -> URI.
// Пространство по умолчанию идет под пустым префиксом.
func (t *Tree) Namespaces() map[string]string {
	ns := map[string]string{}
	for _, a := range t.doc.Root().Attr {
		switch {
		case a.Space == "" && a.Key == "xmlns":
			ns[""] = a.Value
		case a.Space == "xmlns":
			ns[a.Key] = a.Value
		}
	}
	return ns
}

// WriteTo - дерево обратно в XML
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	return t.doc.WriteTo(w)
}

// child - первый прямой потомок с локальным именем tag
func child(e *etree.Element, tag string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func children(e *etree.Element, tag string) []*etree.Element {
	var found []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			found = append(found, c)
		}
	}
	return found
}

// childText - текст потомка без пробелов по краям; ok=false, если потомка нет
func childText(e *etree.Element, tag string) (string, bool) {
	c := child(e, tag)
	if c == nil {
		return "", false
	}
	return strings.TrimSpace(c.Text()), true
}

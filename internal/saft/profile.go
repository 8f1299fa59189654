package saft

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/iurnickita/vendussync/internal/model"
)

// Profile - особенности SAF-T конкретной страны
type Profile interface {
	Country() string
	Normalize(tree *Tree)
	// AccountTypes - тип счета по трехзначному префиксу кода; nil, если таблицы нет
	AccountTypes() map[string]model.AccountType
}

func ProfileFor(country string) Profile {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "PT":
		return portugal{}
	default:
		return generic{country: strings.ToUpper(country)}
	}
}

// Алиас пространства имен по умолчанию после нормализации
const nsAlias = "saft"

type portugal struct{}

func (portugal) Country() string { return "PT" }

func (portugal) Normalize(tree *Tree) {
	collapseNamespace(tree.Root())
	for _, e := range tree.FindAll("GeneralLedgerAccounts") {
		e.Tag = "StandardAccountID"
	}
	// N/A - клиент не указан
	for _, e := range tree.FindAll("CustomerID") {
		if e.Text() == "N/A" {
			e.Parent().RemoveChild(e)
		}
	}
}

func (portugal) AccountTypes() map[string]model.AccountType {
	return map[string]model.AccountType{
		"101": model.AccountTypeFixedAsset,
		"102": model.AccountTypeCurrentAsset,
		"201": model.AccountTypeNonCurrentLiability,
		"202": model.AccountTypeCurrentLiability,
		"301": model.AccountTypeEquity,
		"401": model.AccountTypeIncome,
		"501": model.AccountTypeExpense,
	}
}

// collapseNamespace привязывает пространство по умолчанию к префиксу saft.
// Остальные префиксы не трогаются.
func collapseNamespace(root *etree.Element) {
	found := false
	for i := range root.Attr {
		if root.Attr[i].Space == "" && root.Attr[i].Key == "xmlns" {
			root.Attr[i].Space = "xmlns"
			root.Attr[i].Key = nsAlias
			found = true
			break
		}
	}
	if !found {
		return
	}

	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if e.Space == "" {
			e.Space = nsAlias
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(root)
}

type generic struct {
	country string
}

func (g generic) Country() string { return g.country }

func (generic) Normalize(*Tree) {}

func (generic) AccountTypes() map[string]model.AccountType { return nil }

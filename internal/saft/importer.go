package saft

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/saft/config"
)

// Ledger - учет, в который пишется импорт
type Ledger interface {
	EnsureAccount(ctx context.Context, account model.Account) (int64, error)
	EnsurePartner(ctx context.Context, partner model.Partner) (int64, error)
	ListJournals(ctx context.Context, companyID int64) ([]model.Journal, error)
	ListCurrencies(ctx context.Context) ([]model.Currency, error)
	CreateMove(ctx context.Context, move model.Move) (int64, error)
}

type LineMode string

const (
	// LineModeSingle - одна строка на JournalEntry: счет дебета, обе суммы
	LineModeSingle LineMode = "single"
	// LineModeSplit - строка дебета на счет дебета и строка кредита на счет кредита
	LineModeSplit LineMode = "split"
)

func ParseLineMode(s string) (LineMode, error) {
	switch LineMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LineModeSingle:
		return LineModeSingle, nil
	case LineModeSplit:
		return LineModeSplit, nil
	default:
		return "", fmt.Errorf("unknown line mode %q", s)
	}
}

// Карты импорта: идентификатор из файла -> локальный id
type (
	AccountMap  map[string]int64
	PartnerMap  map[string]int64
	JournalMap  map[string]int64
	CurrencyMap map[string]int64
)

const ActionClose = "close"

type Result struct {
	Accounts int    `json:"accounts"`
	Partners int    `json:"partners"`
	Moves    int    `json:"moves"`
	Action   string `json:"action"`
}

type Importer struct {
	ledger  Ledger
	country string
	mode    LineMode
	log     *zap.Logger
}

func NewImporter(cfg config.Config, ledger Ledger, log *zap.Logger) (*Importer, error) {
	mode, err := ParseLineMode(cfg.LineMode)
	if err != nil {
		return nil, err
	}
	country := cfg.Country
	if country == "" {
		country = config.DefaultCountry
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{ledger: ledger, country: country, mode: mode, log: log}, nil
}

// Import загружает файл SAF-T в учет компании.
// Общей транзакции нет: при ошибке уже созданные счета, контрагенты и проводки остаются.
func (imp *Importer) Import(ctx context.Context, raw []byte, company model.Company) (Result, error) {
	if len(raw) == 0 {
		return Result{}, ErrMissingFile
	}

	tree, err := Parse(raw)
	if err != nil {
		return Result{}, err
	}

	country := company.Country
	if country == "" {
		country = imp.country
	}
	profile := ProfileFor(country)
	profile.Normalize(tree)

	types := profile.AccountTypes()
	if types == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedCountry, profile.Country())
	}

	accounts, err := imp.importAccounts(ctx, tree, company, types)
	if err != nil {
		return Result{}, err
	}
	partners, err := imp.importPartners(ctx, tree, company)
	if err != nil {
		return Result{}, err
	}
	journals, err := imp.journalMap(ctx, company)
	if err != nil {
		return Result{}, err
	}
	currencies, err := imp.currencyMap(ctx)
	if err != nil {
		return Result{}, err
	}
	fallback := imp.companyCurrency(company, currencies)

	result := Result{Accounts: len(accounts), Partners: len(partners), Action: ActionClose}
	for _, journal := range tree.FindAll("Journal") {
		draft, err := imp.draft(journal, accounts, partners, journals, currencies, fallback)
		if err != nil {
			return result, err
		}
		if err := draft.Validate(); err != nil {
			return result, err
		}
		if _, err := imp.ledger.CreateMove(ctx, draft.Move(company.ID)); err != nil {
			return result, fmt.Errorf("create move %q: %w", draft.Ref, err)
		}
		result.Moves++
	}

	imp.log.Info("SAF-T imported",
		zap.Int64("company", company.ID),
		zap.String("country", profile.Country()),
		zap.Int("accounts", result.Accounts),
		zap.Int("partners", result.Partners),
		zap.Int("moves", result.Moves))
	return result, nil
}

func (imp *Importer) importAccounts(ctx context.Context, tree *Tree, company model.Company, types map[string]model.AccountType) (AccountMap, error) {
	accounts := AccountMap{}
	for _, node := range tree.FindAll("StandardAccountID") {
		text := strings.TrimSpace(node.Text())
		if text == "" {
			// контейнер (бывший GeneralLedgerAccounts)
			continue
		}
		code, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, malformed(err, "account code %q is not an integer", text)
		}
		key := strconv.FormatInt(code, 10)
		if len(key) < 3 {
			return nil, &UnmappedError{Kind: "account type", Key: key}
		}
		accountType, ok := types[key[:3]]
		if !ok {
			return nil, &UnmappedError{Kind: "account type", Key: key[:3]}
		}

		name := key
		if parent := node.Parent(); parent != nil {
			if desc, ok := childText(parent, "AccountDescription"); ok && desc != "" {
				name = desc
			}
		}

		id, err := imp.ledger.EnsureAccount(ctx, model.Account{
			CompanyID: company.ID,
			Code:      key,
			Name:      name,
			Type:      accountType,
		})
		if err != nil {
			return nil, fmt.Errorf("ensure account %s: %w", key, err)
		}
		accounts[key] = id
	}
	return accounts, nil
}

func (imp *Importer) importPartners(ctx context.Context, tree *Tree, company model.Company) (PartnerMap, error) {
	partners := PartnerMap{}
	for _, node := range tree.FindAll("Partner") {
		ref, ok := childText(node, "CustomerID")
		if !ok || ref == "" {
			continue
		}
		name := ref
		for _, tag := range []string{"CompanyName", "Name"} {
			if v, ok := childText(node, tag); ok && v != "" {
				name = v
				break
			}
		}

		id, err := imp.ledger.EnsurePartner(ctx, model.Partner{
			CompanyID: company.ID,
			Ref:       ref,
			Name:      name,
		})
		if err != nil {
			return nil, fmt.Errorf("ensure partner %s: %w", ref, err)
		}
		partners[ref] = id
	}
	return partners, nil
}

// journalMap - журналы компании по имени: имя журнала совпадает с JournalID в файле
func (imp *Importer) journalMap(ctx context.Context, company model.Company) (JournalMap, error) {
	list, err := imp.ledger.ListJournals(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	journals := JournalMap{}
	for _, j := range list {
		journals[j.Name] = j.ID
	}
	return journals, nil
}

func (imp *Importer) currencyMap(ctx context.Context) (CurrencyMap, error) {
	list, err := imp.ledger.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	currencies := CurrencyMap{}
	for _, c := range list {
		currencies[strings.ToUpper(c.Code)] = c.ID
	}
	return currencies, nil
}

// companyCurrency - id валюты компании или nil, если код не задан или не заведен
func (imp *Importer) companyCurrency(company model.Company, currencies CurrencyMap) *int64 {
	code := strings.ToUpper(strings.TrimSpace(company.CurrencyCode))
	if code == "" {
		return nil
	}
	id, ok := currencies[code]
	if !ok {
		imp.log.Warn("unknown company currency", zap.Int64("company", company.ID), zap.String("currency", code))
		return nil
	}
	return &id
}

func (imp *Importer) draft(journal *etree.Element, accounts AccountMap, partners PartnerMap, journals JournalMap, currencies CurrencyMap, fallback *int64) (Draft, error) {
	journalKey, ok := childText(journal, "JournalID")
	if !ok {
		return Draft{}, malformed(nil, "Journal without JournalID")
	}
	journalID, ok := journals[journalKey]
	if !ok {
		return Draft{}, &UnmappedError{Kind: "journal", Key: journalKey}
	}

	dateText, ok := childText(journal, "Date")
	if !ok {
		return Draft{}, malformed(nil, "journal %s without Date", journalKey)
	}
	date, err := time.Parse("2006-01-02", dateText)
	if err != nil {
		return Draft{}, malformed(err, "journal %s: bad date %q", journalKey, dateText)
	}
	ref, _ := childText(journal, "Reference")

	draft := Draft{JournalID: journalID, Date: date, Ref: ref}
	for _, entry := range children(journal, "JournalEntry") {
		lines, err := imp.lines(entry, accounts, partners, currencies, fallback)
		if err != nil {
			return Draft{}, fmt.Errorf("journal %s: %w", journalKey, err)
		}
		draft.Lines = append(draft.Lines, lines...)
	}
	return draft, nil
}

// lines: валюта строки из Currency, иначе валюта компании (fallback, может быть nil)
func (imp *Importer) lines(entry *etree.Element, accounts AccountMap, partners PartnerMap, currencies CurrencyMap, fallback *int64) ([]model.MoveLine, error) {
	debitAccount, err := lookupAccount(entry, "DebitAccount", accounts)
	if err != nil {
		return nil, err
	}
	creditAccount, err := lookupAccount(entry, "CreditAccount", accounts)
	if err != nil {
		return nil, err
	}
	debit, err := amount(entry, "DebitAmount")
	if err != nil {
		return nil, err
	}
	credit, err := amount(entry, "CreditAmount")
	if err != nil {
		return nil, err
	}

	currencyID := fallback
	if code, ok := childText(entry, "Currency"); ok && code != "" {
		if id, ok := currencies[strings.ToUpper(code)]; ok {
			currencyID = &id
		} else {
			imp.log.Warn("unknown currency, company currency is used", zap.String("currency", code))
		}
	}

	var partnerID *int64
	if ref, ok := childText(entry, "CustomerID"); ok && ref != "" {
		id, ok := partners[ref]
		if !ok {
			return nil, &UnmappedError{Kind: "partner", Key: ref}
		}
		partnerID = &id
	}

	if imp.mode == LineModeSplit {
		return []model.MoveLine{
			{AccountID: debitAccount, PartnerID: partnerID, Debit: debit, Credit: decimal.Zero, CurrencyID: currencyID},
			{AccountID: creditAccount, PartnerID: partnerID, Debit: decimal.Zero, Credit: credit, CurrencyID: currencyID},
		}, nil
	}
	return []model.MoveLine{
		{AccountID: debitAccount, PartnerID: partnerID, Debit: debit, Credit: credit, CurrencyID: currencyID},
	}, nil
}

func lookupAccount(entry *etree.Element, tag string, accounts AccountMap) (int64, error) {
	text, ok := childText(entry, tag)
	if !ok || text == "" {
		return 0, malformed(nil, "JournalEntry without %s", tag)
	}
	key := text
	if code, err := strconv.ParseInt(text, 10, 64); err == nil {
		key = strconv.FormatInt(code, 10)
	}
	id, ok := accounts[key]
	if !ok {
		return 0, &UnmappedError{Kind: "account", Key: text}
	}
	return id, nil
}

func amount(entry *etree.Element, tag string) (decimal.Decimal, error) {
	text, ok := childText(entry, tag)
	if !ok || text == "" {
		return decimal.Zero, malformed(nil, "JournalEntry without %s", tag)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, malformed(err, "%s %q is not a number", tag, text)
	}
	return d, nil
}

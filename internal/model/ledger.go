package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Учетная система (план счетов, контрагенты, журналы, проводки)

type AccountType string

const (
	AccountTypeFixedAsset          AccountType = "asset_fixed"
	AccountTypeCurrentAsset        AccountType = "asset_current"
	AccountTypeNonCurrentLiability AccountType = "liability_non_current"
	AccountTypeCurrentLiability    AccountType = "liability_current"
	AccountTypeEquity              AccountType = "equity"
	AccountTypeIncome              AccountType = "income"
	AccountTypeExpense             AccountType = "expense"
)

type Company struct {
	ID           int64
	Country      string
	CurrencyCode string
}

type Account struct {
	ID        int64
	CompanyID int64
	Code      string
	Name      string
	Type      AccountType
}

type Partner struct {
	ID        int64
	CompanyID int64
	Ref       string
	Name      string
}

type Journal struct {
	ID        int64
	CompanyID int64
	Code      string
	Name      string
}

type Currency struct {
	ID   int64
	Code string
}

type Move struct {
	ID        int64
	CompanyID int64
	JournalID int64
	Date      time.Time
	Ref       string
	Lines     []MoveLine
}

type MoveLine struct {
	AccountID  int64
	PartnerID  *int64
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	CurrencyID *int64
}

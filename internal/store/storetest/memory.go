// Package storetest - хранилище в памяти для тестов.
// Повторяет семантику ON CONFLICT основного хранилища.
package storetest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/store"
)

type Memory struct {
	mu     sync.Mutex
	nextID int64

	Products       map[int64]model.Product
	Customers      map[int64]model.Customer
	Documents      map[int64]model.Document
	Invoices       map[string]model.Invoice
	PaymentMethods map[int64]model.PaymentMethod
	Stores         map[int64]model.Store
	Suppliers      map[int64]model.Supplier
	Rooms          map[int64]model.Room
	Tables         map[int64]model.Table

	Accounts   map[string]model.Account
	Partners   map[string]model.Partner
	Journals   []model.Journal
	Currencies []model.Currency
	Moves      []model.Move

	// Err, если задан, возвращается всеми записывающими методами
	Err error
}

var _ store.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		Products:       map[int64]model.Product{},
		Customers:      map[int64]model.Customer{},
		Documents:      map[int64]model.Document{},
		Invoices:       map[string]model.Invoice{},
		PaymentMethods: map[int64]model.PaymentMethod{},
		Stores:         map[int64]model.Store{},
		Suppliers:      map[int64]model.Supplier{},
		Rooms:          map[int64]model.Room{},
		Tables:         map[int64]model.Table{},
		Accounts:       map[string]model.Account{},
		Partners:       map[string]model.Partner{},
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func upsert[K comparable, V any](m *Memory, rows map[K]V, key K, row V, getID func(V) int64, setID func(*V, int64)) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if old, ok := rows[key]; ok {
		setID(&row, getID(old))
	} else {
		setID(&row, m.id())
	}
	rows[key] = row
	return getID(row), nil
}

func (m *Memory) UpsertProduct(_ context.Context, p model.Product) (int64, error) {
	return upsert(m, m.Products, p.VendusID, p,
		func(v model.Product) int64 { return v.ID }, func(v *model.Product, id int64) { v.ID = id })
}

func (m *Memory) UpsertCustomer(_ context.Context, c model.Customer) (int64, error) {
	return upsert(m, m.Customers, c.VendusID, c,
		func(v model.Customer) int64 { return v.ID }, func(v *model.Customer, id int64) { v.ID = id })
}

func (m *Memory) UpsertDocument(_ context.Context, d model.Document) (int64, error) {
	return upsert(m, m.Documents, d.VendusID, d,
		func(v model.Document) int64 { return v.ID }, func(v *model.Document, id int64) { v.ID = id })
}

func (m *Memory) UpsertInvoice(_ context.Context, inv model.Invoice) (int64, error) {
	m.mu.Lock()
	if old, ok := m.Invoices[inv.VendusID]; ok {
		inv.CustomerID = old.CustomerID
		inv.CustomerVendusID = old.CustomerVendusID
	}
	m.mu.Unlock()
	return upsert(m, m.Invoices, inv.VendusID, inv,
		func(v model.Invoice) int64 { return v.ID }, func(v *model.Invoice, id int64) { v.ID = id })
}

func (m *Memory) UpsertPaymentMethod(_ context.Context, p model.PaymentMethod) (int64, error) {
	return upsert(m, m.PaymentMethods, p.VendusID, p,
		func(v model.PaymentMethod) int64 { return v.ID }, func(v *model.PaymentMethod, id int64) { v.ID = id })
}

func (m *Memory) UpsertStore(_ context.Context, s model.Store) (int64, error) {
	return upsert(m, m.Stores, s.VendusID, s,
		func(v model.Store) int64 { return v.ID }, func(v *model.Store, id int64) { v.ID = id })
}

func (m *Memory) UpsertSupplier(_ context.Context, s model.Supplier) (int64, error) {
	return upsert(m, m.Suppliers, s.VendusID, s,
		func(v model.Supplier) int64 { return v.ID }, func(v *model.Supplier, id int64) { v.ID = id })
}

func (m *Memory) UpsertRoom(_ context.Context, r model.Room) (int64, error) {
	return upsert(m, m.Rooms, r.VendusID, r,
		func(v model.Room) int64 { return v.ID }, func(v *model.Room, id int64) { v.ID = id })
}

func (m *Memory) UpsertTable(_ context.Context, t model.Table) (int64, error) {
	return upsert(m, m.Tables, t.VendusID, t,
		func(v model.Table) int64 { return v.ID }, func(v *model.Table, id int64) { v.ID = id })
}

func (m *Memory) LookupID(_ context.Context, entity model.EntityType, vendusID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entity == model.EntityInvoice {
		inv, ok := m.Invoices[vendusID]
		return inv.ID, ok, nil
	}
	key, err := strconv.ParseInt(strings.TrimSpace(vendusID), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	switch entity {
	case model.EntityProduct:
		return lookup(m.Products, key, func(v model.Product) int64 { return v.ID })
	case model.EntityCustomer:
		return lookup(m.Customers, key, func(v model.Customer) int64 { return v.ID })
	case model.EntityDocument:
		return lookup(m.Documents, key, func(v model.Document) int64 { return v.ID })
	case model.EntityPaymentMethod:
		return lookup(m.PaymentMethods, key, func(v model.PaymentMethod) int64 { return v.ID })
	case model.EntityStore:
		return lookup(m.Stores, key, func(v model.Store) int64 { return v.ID })
	case model.EntitySupplier:
		return lookup(m.Suppliers, key, func(v model.Supplier) int64 { return v.ID })
	case model.EntityRoom:
		return lookup(m.Rooms, key, func(v model.Room) int64 { return v.ID })
	case model.EntityTable:
		return lookup(m.Tables, key, func(v model.Table) int64 { return v.ID })
	}
	return 0, false, fmt.Errorf("%w: %s", store.ErrUnknownEntity, entity)
}

func lookup[V any](rows map[int64]V, key int64, getID func(V) int64) (int64, bool, error) {
	v, ok := rows[key]
	if !ok {
		return 0, false, nil
	}
	return getID(v), true, nil
}

func (m *Memory) BackfillCustomerLinks(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var linked int64
	for key, d := range m.Documents {
		if d.CustomerID != nil || d.CustomerVendusID == nil {
			continue
		}
		if c, ok := m.Customers[*d.CustomerVendusID]; ok {
			id := c.ID
			d.CustomerID = &id
			m.Documents[key] = d
			linked++
		}
	}
	for key, inv := range m.Invoices {
		if inv.CustomerID != nil || inv.CustomerVendusID == nil {
			continue
		}
		if c, ok := m.Customers[*inv.CustomerVendusID]; ok {
			id := c.ID
			inv.CustomerID = &id
			m.Invoices[key] = inv
			linked++
		}
	}
	return linked, nil
}

func ledgerKey(companyID int64, code string) string {
	return strconv.FormatInt(companyID, 10) + "/" + code
}

func (m *Memory) EnsureAccount(_ context.Context, account model.Account) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	key := ledgerKey(account.CompanyID, account.Code)
	if old, ok := m.Accounts[key]; ok {
		return old.ID, nil
	}
	account.ID = m.id()
	m.Accounts[key] = account
	return account.ID, nil
}

func (m *Memory) EnsurePartner(_ context.Context, partner model.Partner) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	key := ledgerKey(partner.CompanyID, partner.Ref)
	if old, ok := m.Partners[key]; ok {
		return old.ID, nil
	}
	partner.ID = m.id()
	m.Partners[key] = partner
	return partner.ID, nil
}

// AddJournal заводит журнал компании
func (m *Memory) AddJournal(companyID int64, code, name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	journal := model.Journal{ID: m.id(), CompanyID: companyID, Code: code, Name: name}
	m.Journals = append(m.Journals, journal)
	return journal.ID
}

// AddCurrency заводит валюту
func (m *Memory) AddCurrency(code string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	currency := model.Currency{ID: m.id(), Code: code}
	m.Currencies = append(m.Currencies, currency)
	return currency.ID
}

func (m *Memory) ListJournals(_ context.Context, companyID int64) ([]model.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var journals []model.Journal
	for _, j := range m.Journals {
		if j.CompanyID == companyID {
			journals = append(journals, j)
		}
	}
	return journals, nil
}

func (m *Memory) ListCurrencies(_ context.Context) ([]model.Currency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Currency(nil), m.Currencies...), nil
}

func (m *Memory) CreateMove(_ context.Context, move model.Move) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	move.ID = m.id()
	m.Moves = append(m.Moves, move)
	return move.ID, nil
}

func (m *Memory) Close() error {
	return nil
}

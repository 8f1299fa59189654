package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Синхронизируемые сущности Vendus

type EntityType string

const (
	EntityProduct       EntityType = "products"
	EntityCustomer      EntityType = "customers"
	EntityDocument      EntityType = "documents"
	EntityInvoice       EntityType = "invoices"
	EntityPaymentMethod EntityType = "payment_methods"
	EntityDocumentType  EntityType = "document_types"
	EntityStore         EntityType = "stores"
	EntitySupplier      EntityType = "suppliers"
	EntityRoom          EntityType = "rooms"
	EntityTable         EntityType = "tables"
)

const (
	ProductTypeProduct = "product"
	ProductTypeService = "service"
)

const (
	DocumentStateDraft    = "draft"
	DocumentStateFinal    = "final"
	DocumentStateCanceled = "canceled"
)

const (
	InvoiceStateDraft  = "draft"
	InvoiceStatePosted = "posted"
	InvoiceStatePaid   = "paid"
)

const (
	StatusOn  = "on"
	StatusOff = "off"
)

type Product struct {
	ID            int64
	VendusID      int64
	Name          string
	Price         decimal.Decimal
	SKU           string
	Type          string
	Unit          string
	HostProductID *int64
}

type Customer struct {
	ID            int64
	VendusID      int64
	Name          string
	Email         string
	Phone         string
	VAT           string
	Address       string
	City          string
	PostalCode    string
	HostPartnerID *int64
}

type Document struct {
	ID               int64
	VendusID         int64
	Name             string
	Date             time.Time
	CustomerID       *int64
	CustomerVendusID *int64
	TotalAmount      decimal.Decimal
	State            string
	Type             string
	HostMoveID       *int64
}

// Invoice идентифицируется строковым ID Vendus
type Invoice struct {
	ID               int64
	VendusID         string
	Name             string
	Date             time.Time
	CustomerID       *int64
	CustomerVendusID *int64
	TotalAmount      decimal.Decimal
	State            string
	HostMoveID       *int64
}

type PaymentMethod struct {
	ID           int64
	VendusID     int64
	Name         string
	AllowsChange bool
	Type         string
	Status       string
	DisplayOrder int
}

type Store struct {
	ID         int64
	VendusID   int64
	Name       string
	Type       string
	Address    string
	City       string
	PostalCode string
	Country    string
	Email      string
	Phone      string
	Status     string
}

type Supplier struct {
	ID          int64
	VendusID    int64
	Name        string
	ContactName string
	Email       string
	Phone       string
	Address     string
	City        string
	PostalCode  string
	Country     string
}

type Room struct {
	ID       int64
	VendusID int64
	Name     string
	Capacity *int
	Status   string
}

type Table struct {
	ID       int64
	VendusID int64
	Name     string
	Capacity *int
	Status   string
}

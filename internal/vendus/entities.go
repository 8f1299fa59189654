package vendus

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/iurnickita/vendussync/internal/model"
)

// Схемы записей API Vendus.
// Ключи с validate:"required" обязательны: их отсутствие - RecordError, а не паника.

const (
	entityProduct       = "product"
	entityCustomer      = "customer"
	entityDocument      = "document"
	entityInvoice       = "invoice"
	entityPaymentMethod = "payment method"
	entityStore         = "store"
	entitySupplier      = "supplier"
	entityRoom          = "room"
	entityTable         = "table"
)

type Product struct {
	ID        FlexString  `json:"id" validate:"required"`
	Title     string      `json:"title" validate:"required"`
	Price     json.Number `json:"price" validate:"required"`
	Reference *string     `json:"reference" validate:"required"`
	Type      *string     `json:"type" validate:"required"`
	Unit      *string     `json:"unit" validate:"required"`
}

func DecodeProduct(raw json.RawMessage) (model.Product, error) {
	var rec Product
	if err := Decode(entityProduct, raw, &rec); err != nil {
		return model.Product{}, err
	}
	id, err := parseID(entityProduct, "id", rec.ID)
	if err != nil {
		return model.Product{}, err
	}
	price, err := parseDecimal(entityProduct, "price", rec.Price)
	if err != nil {
		return model.Product{}, err
	}
	return model.Product{
		VendusID: id,
		Name:     rec.Title,
		Price:    price,
		SKU:      str(rec.Reference),
		Type:     RecodeProductType(str(rec.Type)),
		Unit:     str(rec.Unit),
	}, nil
}

type Customer struct {
	ID         FlexString `json:"id" validate:"required"`
	Name       string     `json:"name" validate:"required"`
	Email      string     `json:"email"`
	Phone      FlexString `json:"phone"`
	VAT        FlexString `json:"vat"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	PostalCode FlexString `json:"postal_code"`
}

func DecodeCustomer(raw json.RawMessage) (model.Customer, error) {
	var rec Customer
	if err := Decode(entityCustomer, raw, &rec); err != nil {
		return model.Customer{}, err
	}
	id, err := parseID(entityCustomer, "id", rec.ID)
	if err != nil {
		return model.Customer{}, err
	}
	return model.Customer{
		VendusID:   id,
		Name:       rec.Name,
		Email:      rec.Email,
		Phone:      rec.Phone.String(),
		VAT:        rec.VAT.String(),
		Address:    rec.Address,
		City:       rec.City,
		PostalCode: rec.PostalCode.String(),
	}, nil
}

type Document struct {
	ID         FlexString  `json:"id" validate:"required"`
	Number     string      `json:"number" validate:"required"`
	Date       string      `json:"date" validate:"required"`
	CustomerID *FlexString `json:"customer_id"`
	Total      json.Number `json:"total" validate:"required"`
	Status     *string     `json:"status" validate:"required"`
	Type       string      `json:"type" validate:"required,oneof=FT FR FS NC ND"`
}

func DecodeDocument(raw json.RawMessage) (model.Document, error) {
	var rec Document
	if err := Decode(entityDocument, raw, &rec); err != nil {
		return model.Document{}, err
	}
	id, err := parseID(entityDocument, "id", rec.ID)
	if err != nil {
		return model.Document{}, err
	}
	date, err := parseDate(entityDocument, "date", rec.Date)
	if err != nil {
		return model.Document{}, err
	}
	total, err := parseDecimal(entityDocument, "total", rec.Total)
	if err != nil {
		return model.Document{}, err
	}
	customer, err := optionalID(entityDocument, "customer_id", rec.CustomerID)
	if err != nil {
		return model.Document{}, err
	}
	return model.Document{
		VendusID:         id,
		Name:             rec.Number,
		Date:             date,
		CustomerVendusID: customer,
		TotalAmount:      total,
		State:            RecodeDocumentStatus(str(rec.Status)),
		Type:             rec.Type,
	}, nil
}

// Invoice принимает и форму счета (total_amount, state), и форму документа
// Vendus из documents?type=FT (total, status)
type Invoice struct {
	ID          FlexString  `json:"id" validate:"required"`
	Number      string      `json:"number" validate:"required"`
	Date        string      `json:"date" validate:"required"`
	CustomerID  *FlexString `json:"customer_id"`
	TotalAmount json.Number `json:"total_amount" validate:"required_without=Total"`
	Total       json.Number `json:"total"`
	State       string      `json:"state" validate:"omitempty,oneof=draft posted paid"`
	Status      *string     `json:"status" validate:"required_without=State"`
}

func DecodeInvoice(raw json.RawMessage) (model.Invoice, error) {
	var rec Invoice
	if err := Decode(entityInvoice, raw, &rec); err != nil {
		return model.Invoice{}, err
	}
	date, err := parseDate(entityInvoice, "date", rec.Date)
	if err != nil {
		return model.Invoice{}, err
	}
	field, amount := "total_amount", rec.TotalAmount
	if amount == "" {
		field, amount = "total", rec.Total
	}
	total, err := parseDecimal(entityInvoice, field, amount)
	if err != nil {
		return model.Invoice{}, err
	}
	state := rec.State
	if state == "" {
		state = RecodeInvoiceStatus(str(rec.Status))
	}
	customer, err := optionalID(entityInvoice, "customer_id", rec.CustomerID)
	if err != nil {
		return model.Invoice{}, err
	}
	return model.Invoice{
		VendusID:         strings.TrimSpace(rec.ID.String()),
		Name:             rec.Number,
		Date:             date,
		CustomerVendusID: customer,
		TotalAmount:      total,
		State:            state,
	}, nil
}

type PaymentMethod struct {
	ID     FlexString  `json:"id" validate:"required"`
	Title  string      `json:"title" validate:"required"`
	Change *FlexString `json:"change" validate:"required"`
	Type   *string     `json:"type" validate:"required"`
	Status string      `json:"status" validate:"required,oneof=on off"`
	Order  json.Number `json:"order" validate:"required"`
}

func DecodePaymentMethod(raw json.RawMessage) (model.PaymentMethod, error) {
	var rec PaymentMethod
	if err := Decode(entityPaymentMethod, raw, &rec); err != nil {
		return model.PaymentMethod{}, err
	}
	id, err := parseID(entityPaymentMethod, "id", rec.ID)
	if err != nil {
		return model.PaymentMethod{}, err
	}
	order, err := strconv.Atoi(rec.Order.String())
	if err != nil {
		return model.PaymentMethod{}, &RecordError{Entity: entityPaymentMethod, Field: "order", Reason: "not an integer", Err: err}
	}
	return model.PaymentMethod{
		VendusID:     id,
		Name:         rec.Title,
		AllowsChange: rec.Change.Bool(),
		Type:         str(rec.Type),
		Status:       rec.Status,
		DisplayOrder: order,
	}, nil
}

type Store struct {
	ID         FlexString  `json:"id" validate:"required"`
	Title      string      `json:"title" validate:"required"`
	Type       string      `json:"type" validate:"required,oneof=store warehouse"`
	Address    *string     `json:"address" validate:"required"`
	City       *string     `json:"city" validate:"required"`
	PostalCode *FlexString `json:"postalcode" validate:"required"`
	Country    *string     `json:"country" validate:"required"`
	Email      *string     `json:"email" validate:"required"`
	Phone      *FlexString `json:"phone" validate:"required"`
	Status     string      `json:"status" validate:"required,oneof=on off"`
}

func DecodeStore(raw json.RawMessage) (model.Store, error) {
	var rec Store
	if err := Decode(entityStore, raw, &rec); err != nil {
		return model.Store{}, err
	}
	id, err := parseID(entityStore, "id", rec.ID)
	if err != nil {
		return model.Store{}, err
	}
	return model.Store{
		VendusID:   id,
		Name:       rec.Title,
		Type:       rec.Type,
		Address:    str(rec.Address),
		City:       str(rec.City),
		PostalCode: rec.PostalCode.String(),
		Country:    str(rec.Country),
		Email:      str(rec.Email),
		Phone:      rec.Phone.String(),
		Status:     rec.Status,
	}, nil
}

type Supplier struct {
	ID          FlexString `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	ContactName string     `json:"contact_name"`
	Email       string     `json:"email"`
	Phone       FlexString `json:"phone"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	PostalCode  FlexString `json:"postal_code"`
	Country     string     `json:"country"`
}

func DecodeSupplier(raw json.RawMessage) (model.Supplier, error) {
	var rec Supplier
	if err := Decode(entitySupplier, raw, &rec); err != nil {
		return model.Supplier{}, err
	}
	id, err := parseID(entitySupplier, "id", rec.ID)
	if err != nil {
		return model.Supplier{}, err
	}
	return model.Supplier{
		VendusID:    id,
		Name:        rec.Name,
		ContactName: rec.ContactName,
		Email:       rec.Email,
		Phone:       rec.Phone.String(),
		Address:     rec.Address,
		City:        rec.City,
		PostalCode:  rec.PostalCode.String(),
		Country:     rec.Country,
	}, nil
}

// seating - общая схема залов и столов
type seating struct {
	ID       FlexString  `json:"id" validate:"required"`
	Title    string      `json:"title" validate:"required"`
	Capacity *FlexString `json:"capacity"`
	Status   string      `json:"status" validate:"required,oneof=on off"`
}

func decodeSeating(entity string, raw json.RawMessage) (int64, seating, *int, error) {
	var rec seating
	if err := Decode(entity, raw, &rec); err != nil {
		return 0, rec, nil, err
	}
	id, err := parseID(entity, "id", rec.ID)
	if err != nil {
		return 0, rec, nil, err
	}
	var capacity *int
	if rec.Capacity != nil && rec.Capacity.String() != "" {
		c, err := strconv.Atoi(strings.TrimSpace(rec.Capacity.String()))
		if err != nil {
			return 0, rec, nil, &RecordError{Entity: entity, Field: "capacity", Reason: "not an integer", Err: err}
		}
		capacity = &c
	}
	return id, rec, capacity, nil
}

func DecodeRoom(raw json.RawMessage) (model.Room, error) {
	id, rec, capacity, err := decodeSeating(entityRoom, raw)
	if err != nil {
		return model.Room{}, err
	}
	return model.Room{VendusID: id, Name: rec.Title, Capacity: capacity, Status: rec.Status}, nil
}

func DecodeTable(raw json.RawMessage) (model.Table, error) {
	id, rec, capacity, err := decodeSeating(entityTable, raw)
	if err != nil {
		return model.Table{}, err
	}
	return model.Table{VendusID: id, Name: rec.Title, Capacity: capacity, Status: rec.Status}, nil
}

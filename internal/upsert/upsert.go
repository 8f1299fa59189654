package upsert

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/vendus"
)

// Repository - атомарные insert-or-update по vendus_id
type Repository interface {
	Lookuper
	UpsertProduct(ctx context.Context, product model.Product) (int64, error)
	UpsertCustomer(ctx context.Context, customer model.Customer) (int64, error)
	UpsertDocument(ctx context.Context, document model.Document) (int64, error)
	UpsertInvoice(ctx context.Context, invoice model.Invoice) (int64, error)
	UpsertPaymentMethod(ctx context.Context, method model.PaymentMethod) (int64, error)
	UpsertStore(ctx context.Context, st model.Store) (int64, error)
	UpsertSupplier(ctx context.Context, supplier model.Supplier) (int64, error)
	UpsertRoom(ctx context.Context, room model.Room) (int64, error)
	UpsertTable(ctx context.Context, table model.Table) (int64, error)
}

// Func применяет одну запись Vendus
type Func func(ctx context.Context, raw json.RawMessage) error

type Upserter struct {
	store    Repository
	resolver *Resolver
	log      *zap.Logger
}

func NewUpserter(store Repository, log *zap.Logger) *Upserter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Upserter{
		store:    store,
		resolver: NewResolver(store),
		log:      log,
	}
}

// Handler возвращает обработчик записей сущности.
// Для типов документов обработчика нет: они не хранятся.
func (u *Upserter) Handler(entity model.EntityType) (Func, bool) {
	switch entity {
	case model.EntityProduct:
		return wrap(u.Product), true
	case model.EntityCustomer:
		return wrap(u.Customer), true
	case model.EntityDocument:
		return wrap(u.Document), true
	case model.EntityInvoice:
		return wrap(u.Invoice), true
	case model.EntityPaymentMethod:
		return wrap(u.PaymentMethod), true
	case model.EntityStore:
		return wrap(u.Store), true
	case model.EntitySupplier:
		return wrap(u.Supplier), true
	case model.EntityRoom:
		return wrap(u.Room), true
	case model.EntityTable:
		return wrap(u.Table), true
	default:
		return nil, false
	}
}

func wrap[T any](fn func(context.Context, json.RawMessage) (*T, error)) Func {
	return func(ctx context.Context, raw json.RawMessage) error {
		_, err := fn(ctx, raw)
		return err
	}
}

func (u *Upserter) Product(ctx context.Context, raw json.RawMessage) (*model.Product, error) {
	product, err := vendus.DecodeProduct(raw)
	if err != nil {
		return nil, err
	}
	product.ID, err = u.store.UpsertProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("upsert product %d: %w", product.VendusID, err)
	}
	return &product, nil
}

// Customer: пустая запись пропускается
func (u *Upserter) Customer(ctx context.Context, raw json.RawMessage) (*model.Customer, error) {
	if vendus.IsEmpty(raw) {
		return nil, nil
	}
	customer, err := vendus.DecodeCustomer(raw)
	if err != nil {
		return nil, err
	}
	customer.ID, err = u.store.UpsertCustomer(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("upsert customer %d: %w", customer.VendusID, err)
	}
	return &customer, nil
}

func (u *Upserter) Document(ctx context.Context, raw json.RawMessage) (*model.Document, error) {
	document, err := vendus.DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	document.CustomerID, err = u.resolver.customer(ctx, document.CustomerVendusID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer of document %d: %w", document.VendusID, err)
	}
	if document.CustomerVendusID != nil && document.CustomerID == nil {
		u.log.Debug("document customer not synced yet",
			zap.Int64("document", document.VendusID),
			zap.Int64("customer", *document.CustomerVendusID))
	}
	document.ID, err = u.store.UpsertDocument(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("upsert document %d: %w", document.VendusID, err)
	}
	return &document, nil
}

// Invoice: пустая запись пропускается. Клиент записывается только при создании счета,
// при обновлении хранилище оставляет прежнюю ссылку.
func (u *Upserter) Invoice(ctx context.Context, raw json.RawMessage) (*model.Invoice, error) {
	if vendus.IsEmpty(raw) {
		return nil, nil
	}
	invoice, err := vendus.DecodeInvoice(raw)
	if err != nil {
		return nil, err
	}
	invoice.CustomerID, err = u.resolver.customer(ctx, invoice.CustomerVendusID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer of invoice %s: %w", invoice.VendusID, err)
	}
	invoice.ID, err = u.store.UpsertInvoice(ctx, invoice)
	if err != nil {
		return nil, fmt.Errorf("upsert invoice %s: %w", invoice.VendusID, err)
	}
	return &invoice, nil
}

func (u *Upserter) PaymentMethod(ctx context.Context, raw json.RawMessage) (*model.PaymentMethod, error) {
	method, err := vendus.DecodePaymentMethod(raw)
	if err != nil {
		return nil, err
	}
	method.ID, err = u.store.UpsertPaymentMethod(ctx, method)
	if err != nil {
		return nil, fmt.Errorf("upsert payment method %d: %w", method.VendusID, err)
	}
	return &method, nil
}

func (u *Upserter) Store(ctx context.Context, raw json.RawMessage) (*model.Store, error) {
	st, err := vendus.DecodeStore(raw)
	if err != nil {
		return nil, err
	}
	st.ID, err = u.store.UpsertStore(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("upsert store %d: %w", st.VendusID, err)
	}
	return &st, nil
}

func (u *Upserter) Supplier(ctx context.Context, raw json.RawMessage) (*model.Supplier, error) {
	supplier, err := vendus.DecodeSupplier(raw)
	if err != nil {
		return nil, err
	}
	supplier.ID, err = u.store.UpsertSupplier(ctx, supplier)
	if err != nil {
		return nil, fmt.Errorf("upsert supplier %d: %w", supplier.VendusID, err)
	}
	return &supplier, nil
}

func (u *Upserter) Room(ctx context.Context, raw json.RawMessage) (*model.Room, error) {
	room, err := vendus.DecodeRoom(raw)
	if err != nil {
		return nil, err
	}
	room.ID, err = u.store.UpsertRoom(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("upsert room %d: %w", room.VendusID, err)
	}
	return &room, nil
}

func (u *Upserter) Table(ctx context.Context, raw json.RawMessage) (*model.Table, error) {
	table, err := vendus.DecodeTable(raw)
	if err != nil {
		return nil, err
	}
	table.ID, err = u.store.UpsertTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("upsert table %d: %w", table.VendusID, err)
	}
	return &table, nil
}

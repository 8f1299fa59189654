package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/store/config"
)

type Store interface {
	UpsertProduct(ctx context.Context, product model.Product) (int64, error)
	UpsertCustomer(ctx context.Context, customer model.Customer) (int64, error)
	UpsertDocument(ctx context.Context, document model.Document) (int64, error)
	UpsertInvoice(ctx context.Context, invoice model.Invoice) (int64, error)
	UpsertPaymentMethod(ctx context.Context, method model.PaymentMethod) (int64, error)
	UpsertStore(ctx context.Context, st model.Store) (int64, error)
	UpsertSupplier(ctx context.Context, supplier model.Supplier) (int64, error)
	UpsertRoom(ctx context.Context, room model.Room) (int64, error)
	UpsertTable(ctx context.Context, table model.Table) (int64, error)
	LookupID(ctx context.Context, entity model.EntityType, vendusID string) (int64, bool, error)
	BackfillCustomerLinks(ctx context.Context) (int64, error)
	Ledger
	Close() error
}

var (
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrUnknownEntity = errors.New("unknown entity")
)

type store struct {
	database *sql.DB
}

// Таблицы сущностей Vendus. Одна строка на vendus_id, строки не удаляются.
var schema = []string{
	"CREATE TABLE IF NOT EXISTS products (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" price NUMERIC(16,4) NOT NULL," +
		" sku TEXT NOT NULL DEFAULT ''," +
		" type VARCHAR (10) NOT NULL," +
		" unit TEXT NOT NULL DEFAULT ''," +
		" host_product_id BIGINT" +
		" );",
	"CREATE TABLE IF NOT EXISTS customers (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" email TEXT NOT NULL DEFAULT ''," +
		" phone TEXT NOT NULL DEFAULT ''," +
		" vat TEXT NOT NULL DEFAULT ''," +
		" address TEXT NOT NULL DEFAULT ''," +
		" city TEXT NOT NULL DEFAULT ''," +
		" postal_code TEXT NOT NULL DEFAULT ''," +
		" host_partner_id BIGINT" +
		" );",
	"CREATE TABLE IF NOT EXISTS documents (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" date DATE NOT NULL," +
		" customer_id BIGINT REFERENCES customers (id)," +
		" customer_vendus_id BIGINT," +
		" total_amount NUMERIC(16,4) NOT NULL," +
		" state VARCHAR (10) NOT NULL," +
		" type VARCHAR (2) NOT NULL," +
		" host_move_id BIGINT" +
		" );",
	"CREATE TABLE IF NOT EXISTS invoices (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id TEXT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" date DATE NOT NULL," +
		" customer_id BIGINT REFERENCES customers (id)," +
		" customer_vendus_id BIGINT," +
		" total_amount NUMERIC(16,4) NOT NULL," +
		" state VARCHAR (10) NOT NULL," +
		" host_move_id BIGINT" +
		" );",
	"CREATE TABLE IF NOT EXISTS payment_methods (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" allows_change BOOLEAN NOT NULL," +
		" type TEXT NOT NULL," +
		" status VARCHAR (3) NOT NULL," +
		" display_order INTEGER NOT NULL" +
		" );",
	"CREATE TABLE IF NOT EXISTS stores (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" type VARCHAR (10) NOT NULL," +
		" address TEXT NOT NULL," +
		" city TEXT NOT NULL," +
		" postal_code TEXT NOT NULL," +
		" country TEXT NOT NULL," +
		" email TEXT NOT NULL," +
		" phone TEXT NOT NULL," +
		" status VARCHAR (3) NOT NULL" +
		" );",
	"CREATE TABLE IF NOT EXISTS suppliers (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" contact_name TEXT NOT NULL DEFAULT ''," +
		" email TEXT NOT NULL DEFAULT ''," +
		" phone TEXT NOT NULL DEFAULT ''," +
		" address TEXT NOT NULL DEFAULT ''," +
		" city TEXT NOT NULL DEFAULT ''," +
		" postal_code TEXT NOT NULL DEFAULT ''," +
		" country TEXT NOT NULL DEFAULT ''" +
		" );",
	"CREATE TABLE IF NOT EXISTS rooms (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" capacity INTEGER," +
		" status VARCHAR (3) NOT NULL" +
		" );",
	"CREATE TABLE IF NOT EXISTS pos_tables (" +
		" id BIGSERIAL PRIMARY KEY," +
		" vendus_id BIGINT NOT NULL UNIQUE," +
		" name TEXT NOT NULL," +
		" capacity INTEGER," +
		" status VARCHAR (3) NOT NULL" +
		" );",
}

func NewStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}

	for _, ddl := range append(schema, ledgerSchema...) {
		if _, err = db.Exec(ddl); err != nil {
			db.Close()
			return nil, err
		}
	}

	return New(db), nil
}

// New - хранилище поверх готового подключения, без миграций
func New(db *sql.DB) Store {
	return &store{database: db}
}

func (store *store) Close() error {
	return store.database.Close()
}

// upsert выполняет INSERT ... ON CONFLICT ... RETURNING id
func (store *store) upsert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := store.database.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		return 0, pgError(err)
	}
	return id, nil
}

// pgError переводит нарушение уникальности в ErrDuplicateKey
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}

func (store *store) UpsertProduct(ctx context.Context, product model.Product) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO products (vendus_id, name, price, sku, type, unit)"+
			" VALUES ($1, $2, $3, $4, $5, $6)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, price = EXCLUDED.price, sku = EXCLUDED.sku,"+
			" type = EXCLUDED.type, unit = EXCLUDED.unit"+
			" RETURNING id",
		product.VendusID,
		product.Name,
		product.Price,
		product.SKU,
		product.Type,
		product.Unit)
}

func (store *store) UpsertCustomer(ctx context.Context, customer model.Customer) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO customers (vendus_id, name, email, phone, vat, address, city, postal_code)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,"+
			" vat = EXCLUDED.vat, address = EXCLUDED.address, city = EXCLUDED.city,"+
			" postal_code = EXCLUDED.postal_code"+
			" RETURNING id",
		customer.VendusID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.VAT,
		customer.Address,
		customer.City,
		customer.PostalCode)
}

func (store *store) UpsertDocument(ctx context.Context, document model.Document) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO documents (vendus_id, name, date, customer_id, customer_vendus_id, total_amount, state, type)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, date = EXCLUDED.date, customer_id = EXCLUDED.customer_id,"+
			" customer_vendus_id = EXCLUDED.customer_vendus_id, total_amount = EXCLUDED.total_amount,"+
			" state = EXCLUDED.state, type = EXCLUDED.type"+
			" RETURNING id",
		document.VendusID,
		document.Name,
		document.Date,
		document.CustomerID,
		document.CustomerVendusID,
		document.TotalAmount,
		document.State,
		document.Type)
}

// UpsertInvoice: ссылка на клиента пишется только при создании,
// обновление меняет номер, дату, сумму и состояние
func (store *store) UpsertInvoice(ctx context.Context, invoice model.Invoice) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO invoices (vendus_id, name, date, customer_id, customer_vendus_id, total_amount, state)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, date = EXCLUDED.date,"+
			" total_amount = EXCLUDED.total_amount, state = EXCLUDED.state"+
			" RETURNING id",
		invoice.VendusID,
		invoice.Name,
		invoice.Date,
		invoice.CustomerID,
		invoice.CustomerVendusID,
		invoice.TotalAmount,
		invoice.State)
}

func (store *store) UpsertPaymentMethod(ctx context.Context, method model.PaymentMethod) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO payment_methods (vendus_id, name, allows_change, type, status, display_order)"+
			" VALUES ($1, $2, $3, $4, $5, $6)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, allows_change = EXCLUDED.allows_change, type = EXCLUDED.type,"+
			" status = EXCLUDED.status, display_order = EXCLUDED.display_order"+
			" RETURNING id",
		method.VendusID,
		method.Name,
		method.AllowsChange,
		method.Type,
		method.Status,
		method.DisplayOrder)
}

func (store *store) UpsertStore(ctx context.Context, st model.Store) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO stores (vendus_id, name, type, address, city, postal_code, country, email, phone, status)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, type = EXCLUDED.type, address = EXCLUDED.address,"+
			" city = EXCLUDED.city, postal_code = EXCLUDED.postal_code, country = EXCLUDED.country,"+
			" email = EXCLUDED.email, phone = EXCLUDED.phone, status = EXCLUDED.status"+
			" RETURNING id",
		st.VendusID,
		st.Name,
		st.Type,
		st.Address,
		st.City,
		st.PostalCode,
		st.Country,
		st.Email,
		st.Phone,
		st.Status)
}

func (store *store) UpsertSupplier(ctx context.Context, supplier model.Supplier) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO suppliers (vendus_id, name, contact_name, email, phone, address, city, postal_code, country)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, contact_name = EXCLUDED.contact_name, email = EXCLUDED.email,"+
			" phone = EXCLUDED.phone, address = EXCLUDED.address, city = EXCLUDED.city,"+
			" postal_code = EXCLUDED.postal_code, country = EXCLUDED.country"+
			" RETURNING id",
		supplier.VendusID,
		supplier.Name,
		supplier.ContactName,
		supplier.Email,
		supplier.Phone,
		supplier.Address,
		supplier.City,
		supplier.PostalCode,
		supplier.Country)
}

func (store *store) UpsertRoom(ctx context.Context, room model.Room) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO rooms (vendus_id, name, capacity, status)"+
			" VALUES ($1, $2, $3, $4)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, capacity = EXCLUDED.capacity, status = EXCLUDED.status"+
			" RETURNING id",
		room.VendusID,
		room.Name,
		room.Capacity,
		room.Status)
}

func (store *store) UpsertTable(ctx context.Context, table model.Table) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO pos_tables (vendus_id, name, capacity, status)"+
			" VALUES ($1, $2, $3, $4)"+
			" ON CONFLICT (vendus_id) DO UPDATE SET"+
			" name = EXCLUDED.name, capacity = EXCLUDED.capacity, status = EXCLUDED.status"+
			" RETURNING id",
		table.VendusID,
		table.Name,
		table.Capacity,
		table.Status)
}

var entityTables = map[model.EntityType]string{
	model.EntityProduct:       "products",
	model.EntityCustomer:      "customers",
	model.EntityDocument:      "documents",
	model.EntityInvoice:       "invoices",
	model.EntityPaymentMethod: "payment_methods",
	model.EntityStore:         "stores",
	model.EntitySupplier:      "suppliers",
	model.EntityRoom:          "rooms",
	model.EntityTable:         "pos_tables",
}

// LookupID ищет локальный id по id Vendus. Не найдено - (0, false, nil).
func (store *store) LookupID(ctx context.Context, entity model.EntityType, vendusID string) (int64, bool, error) {
	table, ok := entityTables[entity]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	// у invoices vendus_id текстовый, у остальных bigint: сравнение без приведения столбца
	var arg any = vendusID
	if entity != model.EntityInvoice {
		n, err := strconv.ParseInt(strings.TrimSpace(vendusID), 10, 64)
		if err != nil {
			return 0, false, nil
		}
		arg = n
	}
	row := store.database.QueryRowContext(ctx,
		"SELECT id FROM "+table+
			" WHERE vendus_id = $1",
		arg)
	var id int64
	err := row.Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// BackfillCustomerLinks связывает документы и счета с клиентами,
// загруженными позже самих документов
func (store *store) BackfillCustomerLinks(ctx context.Context) (int64, error) {
	var linked int64
	for _, table := range []string{"documents", "invoices"} {
		res, err := store.database.ExecContext(ctx,
			"UPDATE "+table+" AS d"+
				" SET customer_id = c.id"+
				" FROM customers AS c"+
				" WHERE d.customer_id IS NULL"+
				"   AND d.customer_vendus_id = c.vendus_id")
		if err != nil {
			return linked, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return linked, err
		}
		linked += n
	}
	return linked, nil
}

package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/vendussync/internal/model"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestStoreUpsertProduct(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	product := model.Product{
		VendusID: 7,
		Name:     "Widget",
		Price:    decimal.RequireFromString("9.99"),
		SKU:      "W-1",
		Type:     model.ProductTypeProduct,
		Unit:     "ea",
	}

	// повтор с тем же vendus_id попадает в ON CONFLICT и отдает тот же id
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products (vendus_id, name, price, sku, type, unit)")).
		WithArgs(int64(7), "Widget", sqlmock.AnyArg(), "W-1", "product", "ea").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (vendus_id) DO UPDATE SET")).
		WithArgs(int64(7), "Widget v2", sqlmock.AnyArg(), "W-1", "product", "ea").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	id, err := store.UpsertProduct(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	product.Name = "Widget v2"
	id, err = store.UpsertProduct(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertInvoiceKeepsCustomerOnUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	customerID := int64(3)
	invoice := model.Invoice{
		VendusID:    "FT-1",
		Name:        "FT 1/1",
		Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		CustomerID:  &customerID,
		TotalAmount: decimal.NewFromInt(20),
		State:       model.InvoiceStatePosted,
	}

	mock.ExpectQuery(`ON CONFLICT \(vendus_id\) DO UPDATE SET name = EXCLUDED.name, date = EXCLUDED.date, total_amount = EXCLUDED.total_amount, state = EXCLUDED.state RETURNING id`).
		WithArgs("FT-1", "FT 1/1", invoice.Date, int64(3), nil, sqlmock.AnyArg(), "posted").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	id, err := store.UpsertInvoice(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDuplicateKey(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "customers_vendus_id_key"})

	_, err := store.UpsertCustomer(context.Background(), model.Customer{VendusID: 1, Name: "Ana"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Contains(t, err.Error(), "customers_vendus_id_key")
}

func TestStoreLookupID(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	// bigint-столбец сравнивается с числом, индекс по vendus_id работает
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM customers WHERE vendus_id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM customers WHERE vendus_id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM invoices WHERE vendus_id = $1")).
		WithArgs("FT-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	id, found, err := store.LookupID(ctx, model.EntityCustomer, "9")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(4), id)

	id, found, err = store.LookupID(ctx, model.EntityCustomer, "10")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, id)

	id, found, err = store.LookupID(ctx, model.EntityInvoice, "FT-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(5), id)

	// не число: такого id в bigint-таблице нет, запроса не будет
	_, found, err = store.LookupID(ctx, model.EntityCustomer, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = store.LookupID(ctx, model.EntityDocumentType, "1")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreBackfillCustomerLinks(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents AS d SET customer_id = c.id")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices AS d SET customer_id = c.id")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	linked, err := store.BackfillCustomerLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), linked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEnsureAccount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (company_id, code) DO UPDATE SET code = EXCLUDED.code RETURNING id")).
		WithArgs(int64(1), "11", "11", "asset_fixed").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	id, err := store.EnsureAccount(context.Background(), model.Account{
		CompanyID: 1,
		Code:      "11",
		Name:      "11",
		Type:      model.AccountTypeFixedAsset,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListJournals(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, company_id, code, name FROM journals")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "code", "name"}).
			AddRow(1, 1, "VND", "1").
			AddRow(2, 1, "CMP", "2"))

	journals, err := store.ListJournals(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, journals, 2)
	assert.Equal(t, model.Journal{ID: 2, CompanyID: 1, Code: "CMP", Name: "2"}, journals[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateMove(t *testing.T) {
	store, mock := newMockStore(t)

	move := model.Move{
		CompanyID: 1,
		JournalID: 2,
		Date:      time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Ref:       "R1",
		Lines: []model.MoveLine{
			{AccountID: 10, Debit: decimal.NewFromInt(100), Credit: decimal.Zero},
			{AccountID: 11, Debit: decimal.Zero, Credit: decimal.NewFromInt(100)},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO moves (company_id, journal_id, date, ref)")).
		WithArgs(int64(1), int64(2), move.Date, "R1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO move_lines")).
		WithArgs(int64(5), int64(10), nil, sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO move_lines")).
		WithArgs(int64(5), int64(11), nil, sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	id, err := store.CreateMove(context.Background(), move)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateMoveRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO moves")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO move_lines")).
		WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := store.CreateMove(context.Background(), model.Move{
		CompanyID: 1,
		JournalID: 2,
		Lines:     []model.MoveLine{{AccountID: 99}},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

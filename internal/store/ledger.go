package store

import (
	"context"
	"database/sql"

	"github.com/iurnickita/vendussync/internal/model"
)

// Ledger - учетная система, куда импортируется SAF-T
type Ledger interface {
	EnsureAccount(ctx context.Context, account model.Account) (int64, error)
	EnsurePartner(ctx context.Context, partner model.Partner) (int64, error)
	ListJournals(ctx context.Context, companyID int64) ([]model.Journal, error)
	ListCurrencies(ctx context.Context) ([]model.Currency, error)
	CreateMove(ctx context.Context, move model.Move) (int64, error)
}

var ledgerSchema = []string{
	"CREATE TABLE IF NOT EXISTS ledger_accounts (" +
		" id BIGSERIAL PRIMARY KEY," +
		" company_id BIGINT NOT NULL," +
		" code TEXT NOT NULL," +
		" name TEXT NOT NULL," +
		" type VARCHAR (30) NOT NULL," +
		" UNIQUE (company_id, code)" +
		" );",
	"CREATE TABLE IF NOT EXISTS partners (" +
		" id BIGSERIAL PRIMARY KEY," +
		" company_id BIGINT NOT NULL," +
		" ref TEXT NOT NULL," +
		" name TEXT NOT NULL," +
		" UNIQUE (company_id, ref)" +
		" );",
	"CREATE TABLE IF NOT EXISTS journals (" +
		" id BIGSERIAL PRIMARY KEY," +
		" company_id BIGINT NOT NULL," +
		" code TEXT NOT NULL," +
		" name TEXT NOT NULL," +
		" UNIQUE (company_id, code)" +
		" );",
	"CREATE TABLE IF NOT EXISTS currencies (" +
		" id BIGSERIAL PRIMARY KEY," +
		" code VARCHAR (3) NOT NULL UNIQUE" +
		" );",
	// Проводка создается целиком в одной транзакции вместе со строками
	"CREATE TABLE IF NOT EXISTS moves (" +
		" id BIGSERIAL PRIMARY KEY," +
		" company_id BIGINT NOT NULL," +
		" journal_id BIGINT NOT NULL REFERENCES journals (id)," +
		" date DATE NOT NULL," +
		" ref TEXT NOT NULL DEFAULT ''" +
		" );",
	"CREATE TABLE IF NOT EXISTS move_lines (" +
		" id BIGSERIAL PRIMARY KEY," +
		" move_id BIGINT NOT NULL REFERENCES moves (id)," +
		" account_id BIGINT NOT NULL REFERENCES ledger_accounts (id)," +
		" partner_id BIGINT REFERENCES partners (id)," +
		" debit NUMERIC(16,4) NOT NULL," +
		" credit NUMERIC(16,4) NOT NULL," +
		" currency_id BIGINT REFERENCES currencies (id)" +
		" );",
}

// EnsureAccount находит счет по компании и коду или создает его.
// Пустой DO UPDATE нужен, чтобы RETURNING отдал id существующей строки.
func (store *store) EnsureAccount(ctx context.Context, account model.Account) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO ledger_accounts (company_id, code, name, type)"+
			" VALUES ($1, $2, $3, $4)"+
			" ON CONFLICT (company_id, code) DO UPDATE SET code = EXCLUDED.code"+
			" RETURNING id",
		account.CompanyID,
		account.Code,
		account.Name,
		string(account.Type))
}

func (store *store) EnsurePartner(ctx context.Context, partner model.Partner) (int64, error) {
	return store.upsert(ctx,
		"INSERT INTO partners (company_id, ref, name)"+
			" VALUES ($1, $2, $3)"+
			" ON CONFLICT (company_id, ref) DO UPDATE SET ref = EXCLUDED.ref"+
			" RETURNING id",
		partner.CompanyID,
		partner.Ref,
		partner.Name)
}

func (store *store) ListJournals(ctx context.Context, companyID int64) ([]model.Journal, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT id, company_id, code, name"+
			" FROM journals"+
			" WHERE company_id = $1"+
			" ORDER BY id",
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var journals []model.Journal
	for rows.Next() {
		var journal model.Journal
		err := rows.Scan(&journal.ID,
			&journal.CompanyID,
			&journal.Code,
			&journal.Name)
		if err != nil {
			return nil, err
		}
		journals = append(journals, journal)
	}

	return journals, rows.Err()
}

func (store *store) ListCurrencies(ctx context.Context) ([]model.Currency, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT id, code FROM currencies ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var currencies []model.Currency
	for rows.Next() {
		var currency model.Currency
		if err := rows.Scan(&currency.ID, &currency.Code); err != nil {
			return nil, err
		}
		currencies = append(currencies, currency)
	}

	return currencies, rows.Err()
}

func (store *store) CreateMove(ctx context.Context, move model.Move) (int64, error) {
	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var moveID int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO moves (company_id, journal_id, date, ref)"+
			" VALUES ($1, $2, $3, $4)"+
			" RETURNING id",
		move.CompanyID,
		move.JournalID,
		move.Date,
		move.Ref).Scan(&moveID)
	if err != nil {
		return 0, pgError(err)
	}

	if err = insertLines(ctx, tx, moveID, move.Lines); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return moveID, nil
}

func insertLines(ctx context.Context, tx *sql.Tx, moveID int64, lines []model.MoveLine) error {
	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO move_lines (move_id, account_id, partner_id, debit, credit, currency_id)"+
				" VALUES ($1, $2, $3, $4, $5, $6)",
			moveID,
			line.AccountID,
			line.PartnerID,
			line.Debit,
			line.Credit,
			line.CurrencyID)
		if err != nil {
			return pgError(err)
		}
	}
	return nil
}

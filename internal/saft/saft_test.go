package saft

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/saft/config"
	"github.com/iurnickita/vendussync/internal/store/storetest"
)

const sampleFile = `<?xml version="1.0" encoding="UTF-8"?>
<AuditFile xmlns="urn:OECD:StandardAuditFile-Tax:PT_1.04_01" xmlns:ext="urn:example:ext">
  <MasterFiles>
    <GeneralLedgerAccounts>
      <Account>
        <AccountID>12</AccountID>
        <AccountDescription>Depositos a ordem</AccountDescription>
        <StandardAccountID>102000</StandardAccountID>
      </Account>
      <Account>
        <AccountID>71</AccountID>
        <StandardAccountID>401000</StandardAccountID>
      </Account>
    </GeneralLedgerAccounts>
    <Partner>
      <CustomerID>C1</CustomerID>
      <CompanyName>Cliente Um</CompanyName>
    </Partner>
    <Partner>
      <CustomerID>N/A</CustomerID>
    </Partner>
    <ext:Note>kept</ext:Note>
  </MasterFiles>
  <GeneralLedgerEntries>
    <Journal>
      <JournalID>VND</JournalID>
      <Date>2024-01-31</Date>
      <Reference>R1</Reference>
      <JournalEntry>
        <DebitAccount>102000</DebitAccount>
        <CreditAccount>401000</CreditAccount>
        <DebitAmount>100.00</DebitAmount>
        <CreditAmount>100.00</CreditAmount>
        <Currency>EUR</Currency>
        <CustomerID>C1</CustomerID>
      </JournalEntry>
      <JournalEntry>
        <DebitAccount>102000</DebitAccount>
        <CreditAccount>401000</CreditAccount>
        <DebitAmount>50</DebitAmount>
        <CreditAmount>50</CreditAmount>
        <Currency>USD</Currency>
        <CustomerID>N/A</CustomerID>
      </JournalEntry>
    </Journal>
  </GeneralLedgerEntries>
</AuditFile>`

func newLedger() (*storetest.Memory, int64, int64) {
	mem := storetest.NewMemory()
	journalID := mem.AddJournal(1, "J1", "VND")
	eurID := mem.AddCurrency("EUR")
	return mem, journalID, eurID
}

var company = model.Company{ID: 1, Country: "PT", CurrencyCode: "EUR"}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "<AuditFile><A></AuditFile>", "not xml at all", "<AuditFile>"} {
		_, err := Parse([]byte(raw))
		var malformedErr *MalformedFileError
		assert.ErrorAs(t, err, &malformedErr, raw)
		assert.ErrorIs(t, err, ErrMalformedFile, raw)
	}
}

func TestPortugalNormalize(t *testing.T) {
	tree, err := Parse([]byte(sampleFile))
	require.NoError(t, err)

	ProfileFor("pt").Normalize(tree)

	assert.Equal(t, map[string]string{
		"saft": "urn:OECD:StandardAuditFile-Tax:PT_1.04_01",
		"ext":  "urn:example:ext",
	}, tree.Namespaces())
	assert.Equal(t, "saft", tree.Root().Space)

	notes := tree.FindAll("Note")
	require.Len(t, notes, 1)
	assert.Equal(t, "ext", notes[0].Space)

	assert.Empty(t, tree.FindAll("GeneralLedgerAccounts"))
	// контейнер плюс два счета
	assert.Len(t, tree.FindAll("StandardAccountID"), 3)

	for _, e := range tree.FindAll("CustomerID") {
		assert.NotEqual(t, "N/A", e.Text())
	}
	assert.Len(t, tree.FindAll("CustomerID"), 2)
}

func TestGenericProfileKeepsTree(t *testing.T) {
	tree, err := Parse([]byte(sampleFile))
	require.NoError(t, err)

	profile := ProfileFor("ES")
	profile.Normalize(tree)

	assert.Nil(t, profile.AccountTypes())
	assert.Len(t, tree.FindAll("GeneralLedgerAccounts"), 1)
	assert.Len(t, tree.FindAll("CustomerID"), 4)
	assert.Equal(t, "urn:OECD:StandardAuditFile-Tax:PT_1.04_01", tree.Namespaces()[""])
}

func TestParseLatin1(t *testing.T) {
	raw := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><AuditFile><Partner><CustomerID>C1</CustomerID><Name>Jo\xe3o</Name></Partner></AuditFile>")

	tree, err := Parse(raw)
	require.NoError(t, err)
	names := tree.FindAll("Name")
	require.Len(t, names, 1)
	assert.Equal(t, "João", names[0].Text())
}

func TestImportSingleMode(t *testing.T) {
	mem, journalID, eurID := newLedger()
	imp, err := NewImporter(config.Config{}, mem, nil)
	require.NoError(t, err)

	result, err := imp.Import(context.Background(), []byte(sampleFile), company)
	require.NoError(t, err)
	assert.Equal(t, Result{Accounts: 2, Partners: 1, Moves: 1, Action: ActionClose}, result)

	require.Len(t, mem.Accounts, 2)
	current := mem.Accounts["1/102000"]
	assert.Equal(t, model.AccountTypeCurrentAsset, current.Type)
	assert.Equal(t, "Depositos a ordem", current.Name)
	income := mem.Accounts["1/401000"]
	assert.Equal(t, model.AccountTypeIncome, income.Type)
	assert.Equal(t, "401000", income.Name)

	partner := mem.Partners["1/C1"]
	assert.Equal(t, "Cliente Um", partner.Name)

	require.Len(t, mem.Moves, 1)
	move := mem.Moves[0]
	assert.Equal(t, journalID, move.JournalID)
	assert.Equal(t, "R1", move.Ref)
	assert.Equal(t, "2024-01-31", move.Date.Format("2006-01-02"))
	require.Len(t, move.Lines, 2)

	first := move.Lines[0]
	assert.Equal(t, current.ID, first.AccountID)
	assert.True(t, first.Debit.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.Credit.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, first.CurrencyID)
	assert.Equal(t, eurID, *first.CurrencyID)
	require.NotNil(t, first.PartnerID)
	assert.Equal(t, partner.ID, *first.PartnerID)

	// USD не заведена: валюта компании; N/A удален
	second := move.Lines[1]
	require.NotNil(t, second.CurrencyID)
	assert.Equal(t, eurID, *second.CurrencyID)
	assert.Nil(t, second.PartnerID)
}

func TestImportCompanyCurrencyFallback(t *testing.T) {
	const file = `<AuditFile xmlns="urn:OECD:StandardAuditFile-Tax:PT_1.04_01">
  <StandardAccountID>102000</StandardAccountID>
  <StandardAccountID>401000</StandardAccountID>
  <Journal>
    <JournalID>VND</JournalID>
    <Date>2024-01-31</Date>
    <JournalEntry>
      <DebitAccount>102000</DebitAccount>
      <CreditAccount>401000</CreditAccount>
      <DebitAmount>5</DebitAmount>
      <CreditAmount>5</CreditAmount>
    </JournalEntry>
    <JournalEntry>
      <DebitAccount>102000</DebitAccount>
      <CreditAccount>401000</CreditAccount>
      <DebitAmount>7</DebitAmount>
      <CreditAmount>7</CreditAmount>
      <Currency>GBP</Currency>
    </JournalEntry>
  </Journal>
</AuditFile>`

	tests := []struct {
		name     string
		currency string
		usd      bool
	}{
		{name: "company currency", currency: "usd", usd: true},
		{name: "unknown company currency", currency: "JPY"},
		{name: "no company currency"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mem, _, _ := newLedger()
			usdID := mem.AddCurrency("USD")
			imp, err := NewImporter(config.Config{}, mem, nil)
			require.NoError(t, err)

			_, err = imp.Import(context.Background(), []byte(file), model.Company{ID: 1, Country: "PT", CurrencyCode: test.currency})
			require.NoError(t, err)

			require.Len(t, mem.Moves, 1)
			for _, line := range mem.Moves[0].Lines {
				if test.usd {
					require.NotNil(t, line.CurrencyID)
					assert.Equal(t, usdID, *line.CurrencyID)
				} else {
					assert.Nil(t, line.CurrencyID)
				}
			}
		})
	}
}

func TestImportSplitMode(t *testing.T) {
	mem, _, _ := newLedger()
	imp, err := NewImporter(config.Config{LineMode: "split"}, mem, nil)
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), []byte(sampleFile), company)
	require.NoError(t, err)

	require.Len(t, mem.Moves, 1)
	lines := mem.Moves[0].Lines
	require.Len(t, lines, 4)
	assert.Equal(t, mem.Accounts["1/102000"].ID, lines[0].AccountID)
	assert.True(t, lines[0].Credit.IsZero())
	assert.Equal(t, mem.Accounts["1/401000"].ID, lines[1].AccountID)
	assert.True(t, lines[1].Debit.IsZero())

	draft := Draft{Lines: lines}
	debit, credit := draft.Totals()
	assert.True(t, debit.Equal(credit))
	assert.True(t, debit.Equal(decimal.NewFromInt(150)))
}

func TestImportIsIdempotentForAccounts(t *testing.T) {
	mem, _, _ := newLedger()
	imp, err := NewImporter(config.Config{}, mem, nil)
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), []byte(sampleFile), company)
	require.NoError(t, err)
	_, err = imp.Import(context.Background(), []byte(sampleFile), company)
	require.NoError(t, err)

	assert.Len(t, mem.Accounts, 2)
	assert.Len(t, mem.Partners, 1)
	assert.Len(t, mem.Moves, 2)
}

const unbalancedFile = `<AuditFile>
  <GeneralLedgerAccounts>
    <StandardAccountID>102000</StandardAccountID>
    <StandardAccountID>401000</StandardAccountID>
  </GeneralLedgerAccounts>
  <Journal>
    <JournalID>VND</JournalID>
    <Date>2024-02-01</Date>
    <Reference>R2</Reference>
    <JournalEntry>
      <DebitAccount>102000</DebitAccount>
      <CreditAccount>401000</CreditAccount>
      <DebitAmount>100</DebitAmount>
      <CreditAmount>90</CreditAmount>
    </JournalEntry>
  </Journal>
</AuditFile>`

func TestImportUnbalanced(t *testing.T) {
	for _, mode := range []string{"single", "split"} {
		mem, _, _ := newLedger()
		imp, err := NewImporter(config.Config{LineMode: mode}, mem, nil)
		require.NoError(t, err)

		result, err := imp.Import(context.Background(), []byte(unbalancedFile), company)
		assert.ErrorIs(t, err, ErrUnbalancedMove, mode)
		assert.Empty(t, mem.Moves, mode)
		// счета созданы до ошибки и остаются
		assert.Equal(t, 2, result.Accounts, mode)
		assert.Len(t, mem.Accounts, 2, mode)
	}
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		raw     string
		company model.Company
		want    error
	}{
		{
			name:    "missing file",
			raw:     "",
			company: company,
			want:    ErrMissingFile,
		},
		{
			name:    "malformed",
			raw:     "<AuditFile><Journal></AuditFile>",
			company: company,
			want:    ErrMalformedFile,
		},
		{
			name:    "unsupported country",
			raw:     sampleFile,
			company: model.Company{ID: 1, Country: "ES"},
			want:    ErrUnsupportedCountry,
		},
		{
			name:    "unmapped account prefix",
			raw:     `<AuditFile><StandardAccountID>999000</StandardAccountID></AuditFile>`,
			company: company,
			want:    ErrUnmapped,
		},
		{
			name:    "account code is not an integer",
			raw:     `<AuditFile><StandardAccountID>12a</StandardAccountID></AuditFile>`,
			company: company,
			want:    ErrMalformedFile,
		},
		{
			name: "unknown journal",
			raw: `<AuditFile><Journal><JournalID>XXX</JournalID><Date>2024-01-01</Date>` +
				`<Reference>R</Reference></Journal></AuditFile>`,
			company: company,
			want:    ErrUnmapped,
		},
		{
			name: "unknown account in entry",
			raw: `<AuditFile><StandardAccountID>102000</StandardAccountID>` +
				`<Journal><JournalID>VND</JournalID><Date>2024-01-01</Date><JournalEntry>` +
				`<DebitAccount>102000</DebitAccount><CreditAccount>401000</CreditAccount>` +
				`<DebitAmount>1</DebitAmount><CreditAmount>1</CreditAmount>` +
				`</JournalEntry></Journal></AuditFile>`,
			company: company,
			want:    ErrUnmapped,
		},
		{
			name: "unknown partner in entry",
			raw: `<AuditFile><StandardAccountID>102000</StandardAccountID>` +
				`<Journal><JournalID>VND</JournalID><Date>2024-01-01</Date><JournalEntry>` +
				`<DebitAccount>102000</DebitAccount><CreditAccount>102000</CreditAccount>` +
				`<DebitAmount>1</DebitAmount><CreditAmount>1</CreditAmount><CustomerID>C9</CustomerID>` +
				`</JournalEntry></Journal></AuditFile>`,
			company: company,
			want:    ErrUnmapped,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mem, _, _ := newLedger()
			imp, err := NewImporter(config.Config{}, mem, nil)
			require.NoError(t, err)

			_, err = imp.Import(ctx, []byte(test.raw), test.company)
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.want), err.Error())
		})
	}
}

func TestUnmappedErrorDetails(t *testing.T) {
	mem, _, _ := newLedger()
	imp, err := NewImporter(config.Config{}, mem, nil)
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), []byte(`<AuditFile><StandardAccountID>999000</StandardAccountID></AuditFile>`), company)
	var unmapped *UnmappedError
	require.ErrorAs(t, err, &unmapped)
	assert.Equal(t, "account type", unmapped.Kind)
	assert.Equal(t, "999", unmapped.Key)
}

func TestCompanyWithoutCountryUsesDefault(t *testing.T) {
	mem, _, _ := newLedger()
	imp, err := NewImporter(config.Config{}, mem, nil)
	require.NoError(t, err)

	result, err := imp.Import(context.Background(), []byte(sampleFile), model.Company{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Moves)
}

func TestParseLineMode(t *testing.T) {
	mode, err := ParseLineMode("")
	require.NoError(t, err)
	assert.Equal(t, LineModeSingle, mode)

	mode, err = ParseLineMode("Split")
	require.NoError(t, err)
	assert.Equal(t, LineModeSplit, mode)

	_, err = ParseLineMode("double")
	assert.Error(t, err)

	_, err = NewImporter(config.Config{LineMode: "double"}, storetest.NewMemory(), nil)
	assert.Error(t, err)
}

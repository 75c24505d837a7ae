// Package ingest dispatches uploaded statements into the ledger. CSV files
// are imported directly; PDFs go through text extraction and the statement
// scan. Either way a successful import fully overwrites the persisted
// table.
package ingest

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/caixaclara/statement-ledger/internal/ledger"
	"github.com/caixaclara/statement-ledger/internal/models"
	"github.com/caixaclara/statement-ledger/internal/money"
	"github.com/caixaclara/statement-ledger/internal/scan"
)

// Summary reports what one import did. Coerced counts CSV amount cells
// coerced to zero; DroppedNoDate and Malformed count scan-path losses.
type Summary struct {
	Source        string `json:"source"`
	Count         int    `json:"count"`
	Coerced       int    `json:"coerced"`
	DroppedNoDate int    `json:"droppedNoDate"`
	Malformed     int    `json:"malformed"`
}

// Importer wires the statement pipeline together. ExtractPages is
// injectable so tests can feed page text without real PDFs.
type Importer struct {
	Store        *ledger.Store
	Scanner      *scan.Scanner
	ExtractPages func(path string) ([]string, error)
	UploadDir    string
	Log          zerolog.Logger
}

// ImportFile stores the upload and imports it according to its extension.
// The whole statement is scanned and persisted before returning; there is
// no partial write.
func (im *Importer) ImportFile(filename string, r io.Reader) (*Summary, error) {
	if filename == "" || r == nil {
		return nil, ErrMissingInput
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" && ext != ".pdf" {
		return nil, ErrUnsupportedFormat
	}

	path, size, err := im.saveUpload(filename, r)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, ErrMissingInput
	}

	switch ext {
	case ".csv":
		return im.importCSV(path)
	default:
		return im.importPDF(path)
	}
}

// AddManualEntry validates and appends one expense entry. The magnitude is
// always persisted negative: the manual form records outgoing money,
// whatever sign the caller passed.
func (im *Importer) AddManualEntry(date, description string, magnitude decimal.Decimal, category string) error {
	if !models.ValidDate(date) {
		return ErrInvalidDate
	}
	if !models.ValidCategory(category) {
		return ErrInvalidCategory
	}

	amount := magnitude.Abs().Neg()
	txn := models.Transaction{
		Date:        date,
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Kind:        models.KindOutflow,
		Category:    category,
	}
	if err := im.Store.Append(txn); err != nil {
		return err
	}

	im.Log.Info().
		Str("data", date).
		Str("categoria", category).
		Str("valor", money.Format(amount)).
		Msg("lançamento manual registrado")
	return nil
}

// saveUpload writes the raw upload under UploadDir and returns its path.
func (im *Importer) saveUpload(filename string, r io.Reader) (string, int64, error) {
	dir := im.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, &StorageError{Err: err}
	}

	path := filepath.Join(dir, filepath.Base(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, &StorageError{Err: err}
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		return "", 0, &StorageError{Err: err}
	}
	return path, size, nil
}

func (im *Importer) importCSV(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	defer f.Close()

	txns, coerced, err := readStatementCSV(f)
	if err != nil {
		return nil, err
	}

	if err := im.Store.Save(txns); err != nil {
		return nil, err
	}

	sum := &Summary{Source: "csv", Count: len(txns), Coerced: coerced}
	im.logSummary(sum)
	return sum, nil
}

func (im *Importer) importPDF(path string) (*Summary, error) {
	pages, err := im.ExtractPages(path)
	if err != nil {
		return nil, err
	}

	res := im.Scanner.ScanPages(pages)
	if len(res.Transactions) == 0 {
		return nil, ErrNoTransactions
	}

	if err := im.Store.Save(res.Transactions); err != nil {
		return nil, err
	}

	sum := &Summary{
		Source:        "pdf",
		Count:         len(res.Transactions),
		DroppedNoDate: res.DroppedNoDate,
		Malformed:     res.Malformed,
	}
	im.logSummary(sum)
	return sum, nil
}

func (im *Importer) logSummary(sum *Summary) {
	evt := im.Log.Info().
		Str("source", sum.Source).
		Int("count", sum.Count)
	if sum.Coerced > 0 {
		evt = evt.Int("coerced", sum.Coerced)
	}
	if sum.DroppedNoDate > 0 {
		evt = evt.Int("droppedNoDate", sum.DroppedNoDate)
	}
	if sum.Malformed > 0 {
		evt = evt.Int("malformed", sum.Malformed)
	}
	evt.Msg("extrato importado")
}

// readStatementCSV reads a semicolon-delimited Latin-1 statement export
// through the shared table decoder. Amounts arrive locale-formatted
// ("1.234,56"), so the lenient locale policy applies: cells that fail to
// parse are coerced to zero and counted, matching the reload policy rather
// than the scan policy.
func readStatementCSV(r io.Reader) ([]models.Transaction, int, error) {
	snap, err := ledger.Decode(r, money.ParseOrZero)
	if err != nil {
		return nil, 0, err
	}
	return snap.Transactions, snap.Coerced, nil
}

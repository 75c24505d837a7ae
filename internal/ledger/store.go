// Package ledger persists the transaction table. The on-disk contract is
// fixed: semicolon-delimited, ISO-8859-1 encoded, columns exactly
// data;descricao;valor;tipo;categoria. Column names are case- and
// whitespace-normalized on every read; valor is serialized as a plain
// decimal, never locale-formatted.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/caixaclara/statement-ledger/internal/models"
	"github.com/caixaclara/statement-ledger/internal/money"
)

// Header is the canonical column order. Save always writes all five
// columns, even when the source table was missing some of them.
var Header = []string{"data", "descricao", "valor", "tipo", "categoria"}

// SchemaError reports that a mandatory column is absent from the table.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("coluna %q não encontrada", e.Column)
}

// StoreError wraps a fatal read/write failure of the underlying file.
// Unlike malformed data, which is coerced, these are surfaced to the caller
// as unrecoverable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Snapshot is the result of one Load: the ordered transactions plus the
// number of valor cells that failed to parse and were coerced to zero.
type Snapshot struct {
	Transactions []models.Transaction
	Coerced      int
}

// Store owns the persisted table at one path. The mutex serializes
// load-modify-save sequences within this process; cross-process writers can
// still lose updates to each other's full overwrites. True multi-writer
// safety would need a transactional store, which the single-operator
// deployment does not justify.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a store for the table at path. The file is not touched
// until Init, Load or Save is called.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the table's location on disk.
func (s *Store) Path() string { return s.path }

// Init creates an empty table with headers when none exists yet.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return &StoreError{Op: "stat", Err: err}
	}
	return s.write(nil)
}

// Load reads the full table. Column names are normalized before matching;
// the valor column is mandatory and its absence is a SchemaError. Cell
// values that fail the amount parse are coerced to zero and counted, never
// rejected.
func (s *Store) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the table with exactly the given transactions. The write
// is all-or-nothing per call: either the new table lands in full or an
// error is returned with the previous content intact.
func (s *Store) Save(txns []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(txns)
}

// Append loads the table, appends one entry and saves the result, all
// under the same lock hold.
func (s *Store) Append(txn models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	return s.write(append(snap.Transactions, txn))
}

func (s *Store) load() (Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return Snapshot{}, &StoreError{Op: "open", Err: err}
	}
	defer f.Close()

	snap, err := decode(f)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return Snapshot{}, err
		}
		return Snapshot{}, &StoreError{Op: "read", Err: err}
	}
	return snap, nil
}

// decode reads the store's own table, where valor cells are plain decimals.
func decode(r io.Reader) (Snapshot, error) {
	return Decode(r, money.ParseStored)
}

// Decode reads a semicolon-delimited Latin-1 transaction table from r.
// Headers are matched case- and whitespace-insensitively; the valor column
// is mandatory. Cells are run through parseAmount, which decides the
// coercion policy: the store reloads plain decimals, the CSV import path
// reads locale-formatted exports. Failed cells count as coerced, never as
// errors.
func Decode(r io.Reader, parseAmount func(string) (decimal.Decimal, bool)) (Snapshot, error) {
	cr := csv.NewReader(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return Snapshot{}, err
	}
	if len(records) == 0 {
		return Snapshot{}, &SchemaError{Column: "valor"}
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		cols[normalizeColumn(name)] = i
	}
	if _, ok := cols["valor"]; !ok {
		return Snapshot{}, &SchemaError{Column: "valor"}
	}

	var snap Snapshot
	for _, rec := range records[1:] {
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		amount, parsed := parseAmount(cell("valor"))
		if !parsed {
			snap.Coerced++
		}

		txn := models.Transaction{
			Date:        cell("data"),
			Description: cell("descricao"),
			Amount:      amount,
			Kind:        models.Kind(cell("tipo")),
			Category:    cell("categoria"),
		}
		if txn.Kind != models.KindInflow && txn.Kind != models.KindOutflow {
			txn.Kind = models.KindFor(amount)
		}
		snap.Transactions = append(snap.Transactions, txn)
	}
	return snap, nil
}

func (s *Store) write(txns []models.Transaction) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*")
	if err != nil {
		return &StoreError{Op: "create", Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, txns); err != nil {
		tmp.Close()
		return &StoreError{Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StoreError{Op: "write", Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &StoreError{Op: "rename", Err: err}
	}
	return nil
}

// encode writes the canonical table to w.
func encode(w io.Writer, txns []models.Transaction) error {
	enc := transform.NewWriter(w, charmap.ISO8859_1.NewEncoder())
	cw := csv.NewWriter(enc)
	cw.Comma = ';'

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, txn := range txns {
		row := []string{
			txn.Date,
			txn.Description,
			money.Format(txn.Amount),
			string(txn.Kind),
			txn.Category,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return enc.Close()
}

// normalizeColumn lowercases and trims a header cell so that "Valor " and
// "valor" match the same schema column.
func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}


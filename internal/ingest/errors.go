package ingest

import "errors"

// User-correctable import failures. These are recovered locally and shown
// as messages; only storage failures abort a request.
var (
	// ErrMissingInput: no file or empty content supplied.
	ErrMissingInput = errors.New("nenhum arquivo enviado")
	// ErrUnsupportedFormat: file extension is neither .csv nor .pdf.
	ErrUnsupportedFormat = errors.New("formato não suportado, envie arquivos CSV ou PDF")
	// ErrNoTransactions: the statement text was readable but the scan
	// produced zero records.
	ErrNoTransactions = errors.New("nenhuma transação encontrada no extrato")
	// ErrInvalidCategory: manual entry used a label outside the fixed set.
	ErrInvalidCategory = errors.New("categoria inválida")
	// ErrInvalidDate: manual entry date is not a DD/MM/YYYY calendar date.
	ErrInvalidDate = errors.New("data inválida, use DD/MM/AAAA")
)

// StorageError wraps a failure persisting the upload itself (disk,
// permissions). Like the ledger's StoreError it is the machine's fault,
// not the input's, and is surfaced as an unrecoverable failure.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "armazenando upload: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

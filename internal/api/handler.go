// Package api exposes the ledger over HTTP: statement upload, the
// transaction listing with totals, manual expense entry and a health
// probe.
package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/caixaclara/statement-ledger/internal/ingest"
	"github.com/caixaclara/statement-ledger/internal/ledger"
	"github.com/caixaclara/statement-ledger/internal/models"
	"github.com/caixaclara/statement-ledger/internal/money"
	"github.com/caixaclara/statement-ledger/internal/report"
)

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	Importer *ingest.Importer
	Store    *ledger.Store
	Log      zerolog.Logger
}

// errorResponse is the envelope for failed requests.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// uploadResponse reports a successful import.
type uploadResponse struct {
	Success bool            `json:"success"`
	Summary *ingest.Summary `json:"summary"`
}

// transactionsResponse is the listing payload: the full ordered ledger
// plus the three aggregate figures.
type transactionsResponse struct {
	Success      bool                 `json:"success"`
	Transactions []models.Transaction `json:"transactions"`
	Totals       report.Totals        `json:"totals"`
	Coerced      int                  `json:"coerced,omitempty"`
}

// Register wires the routes onto the fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Post("/upload", h.handleUpload)
	app.Get("/transacoes", h.handleTransactions)
	app.Post("/transacoes", h.handleManualEntry)
	app.Get("/categorias", h.handleCategories)
	app.Get("/api/health", h.handleHealth)
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) handleCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categorias": models.Categories})
}

func (h *Handler) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, ingest.ErrMissingInput)
	}

	f, err := fh.Open()
	if err != nil {
		return h.fail(c, ingest.ErrMissingInput)
	}
	defer f.Close()

	sum, err := h.Importer.ImportFile(fh.Filename, f)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(uploadResponse{Success: true, Summary: sum})
}

func (h *Handler) handleTransactions(c *fiber.Ctx) error {
	snap, err := h.Store.Load()
	if err != nil {
		return h.fail(c, err)
	}

	txns := snap.Transactions
	if txns == nil {
		// nil marshals to JSON null, not []
		txns = []models.Transaction{}
	}

	return c.JSON(transactionsResponse{
		Success:      true,
		Transactions: txns,
		Totals:       report.Summarize(snap.Transactions),
		Coerced:      snap.Coerced,
	})
}

// manualEntryRequest carries the expense form fields. Valor is a
// locale-formatted magnitude; the sign is ignored and the entry is always
// persisted as an outflow.
type manualEntryRequest struct {
	Data      string `json:"data" form:"data"`
	Descricao string `json:"descricao" form:"descricao"`
	Valor     string `json:"valor" form:"valor"`
	Categoria string `json:"categoria" form:"categoria"`
}

func (h *Handler) handleManualEntry(c *fiber.Ctx) error {
	var req manualEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return h.failWith(c, fiber.StatusBadRequest, "requisição inválida")
	}

	magnitude, err := money.Parse(req.Valor)
	if err != nil {
		return h.failWith(c, fiber.StatusBadRequest, "valor inválido")
	}

	if err := h.Importer.AddManualEntry(req.Data, req.Descricao, magnitude, req.Categoria); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// fail maps the error taxonomy onto HTTP responses. User-shaped errors
// become displayable messages; storage failures are the only 500s.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var schemaErr *ledger.SchemaError
	var storeErr *ledger.StoreError
	var uploadErr *ingest.StorageError

	switch {
	case errors.Is(err, ingest.ErrMissingInput):
		return h.failWith(c, fiber.StatusBadRequest, "Nenhum arquivo enviado.")
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return h.failWith(c, fiber.StatusBadRequest, "Formato não suportado. Envie arquivos CSV ou PDF.")
	case errors.As(err, &schemaErr):
		return h.failWith(c, fiber.StatusUnprocessableEntity, "CSV inválido: "+schemaErr.Error()+".")
	case errors.Is(err, ingest.ErrNoTransactions):
		return h.failWith(c, fiber.StatusUnprocessableEntity, "Nenhuma transação encontrada no extrato.")
	case errors.Is(err, ingest.ErrInvalidDate), errors.Is(err, ingest.ErrInvalidCategory):
		return h.failWith(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &storeErr):
		h.Log.Error().Err(err).Msg("falha de armazenamento")
		return h.failWith(c, fiber.StatusInternalServerError, "Erro ao acessar as transações.")
	case errors.As(err, &uploadErr):
		h.Log.Error().Err(err).Msg("falha ao salvar upload")
		return h.failWith(c, fiber.StatusInternalServerError, "Erro ao salvar o arquivo enviado.")
	default:
		h.Log.Error().Err(err).Msg("falha ao processar extrato")
		return h.failWith(c, fiber.StatusUnprocessableEntity, "Erro ao processar o extrato: "+err.Error())
	}
}

func (h *Handler) failWith(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(errorResponse{Success: false, Error: msg})
}

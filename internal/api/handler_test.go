package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/caixaclara/statement-ledger/internal/ingest"
	"github.com/caixaclara/statement-ledger/internal/ledger"
	"github.com/caixaclara/statement-ledger/internal/scan"
)

func setupTestApp(t *testing.T, pages []string) *fiber.App {
	t.Helper()
	dir := t.TempDir()
	store := ledger.Open(filepath.Join(dir, "transacoes.csv"))
	if err := store.Init(); err != nil {
		t.Fatalf("store init: %v", err)
	}

	h := &Handler{
		Importer: &ingest.Importer{
			Store:   store,
			Scanner: scan.New(),
			ExtractPages: func(string) ([]string, error) {
				return pages, nil
			},
			UploadDir: filepath.Join(dir, "uploads"),
			Log:       zerolog.Nop(),
		},
		Store: store,
		Log:   zerolog.Nop(),
	}

	app := fiber.New()
	h.Register(app)
	return app
}

func multipartBody(t *testing.T, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decodeJSON(t *testing.T, body io.Reader, out any) {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]string
	decodeJSON(t, resp.Body, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", result["status"])
	}
}

func TestUploadRequiresFile(t *testing.T) {
	app := setupTestApp(t, nil)

	req := httptest.NewRequest("POST", "/upload", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	var result map[string]any
	decodeJSON(t, resp.Body, &result)
	if result["error"] != "Nenhum arquivo enviado." {
		t.Errorf("unexpected error message: %v", result["error"])
	}
}

func TestUploadRejectsUnknownFormat(t *testing.T) {
	app := setupTestApp(t, nil)

	body, contentType := multipartBody(t, "extrato.xlsx", "qualquer coisa")
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadCSVMissingValorColumn(t *testing.T) {
	app := setupTestApp(t, nil)

	body, contentType := multipartBody(t, "extrato.csv", "data;descricao\n10/01/2025;Venda\n")
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}

	var result map[string]any
	decodeJSON(t, resp.Body, &result)
	msg, _ := result["error"].(string)
	if !strings.Contains(msg, "valor") {
		t.Errorf("error message must name the missing column, got %q", msg)
	}
}

func TestUploadThenListTransactions(t *testing.T) {
	app := setupTestApp(t, nil)

	csvBody := "data;descricao;valor\n" +
		"10/01/2025;Venda produto;200,00\n" +
		"15/01/2025;Aluguel;-1.200,00\n"
	body, contentType := multipartBody(t, "extrato.csv", csvBody)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/transacoes", nil))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Success      bool `json:"success"`
		Transactions []struct {
			Descricao string `json:"descricao"`
			Tipo      string `json:"tipo"`
		} `json:"transactions"`
		Totals struct {
			Receita string `json:"total_receita"`
			Despesa string `json:"total_despesa"`
			Lucro   string `json:"lucro"`
		} `json:"totals"`
	}
	decodeJSON(t, resp.Body, &result)

	if len(result.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(result.Transactions))
	}
	if result.Transactions[0].Tipo != "receita" || result.Transactions[1].Tipo != "despesa" {
		t.Errorf("unexpected kinds: %+v", result.Transactions)
	}
	if result.Totals.Receita != "200" {
		t.Errorf("total_receita: got %q, want \"200\"", result.Totals.Receita)
	}
	if result.Totals.Despesa != "1200" {
		t.Errorf("total_despesa: got %q, want \"1200\"", result.Totals.Despesa)
	}
	if result.Totals.Lucro != "-1000" {
		t.Errorf("lucro: got %q, want \"-1000\"", result.Totals.Lucro)
	}
}

func TestUploadPDFScansPages(t *testing.T) {
	pages := []string{
		"Extrato\n10/01/2025\nVenda produto R$ 200,00",
		"15/01/2025\nVenda serviço R$ 300,00",
	}
	app := setupTestApp(t, pages)

	body, contentType := multipartBody(t, "extrato.pdf", "%PDF-1.4 fake")
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}

	var result struct {
		Summary struct {
			Source string `json:"source"`
			Count  int    `json:"count"`
		} `json:"summary"`
	}
	decodeJSON(t, resp.Body, &result)
	if result.Summary.Source != "pdf" || result.Summary.Count != 2 {
		t.Errorf("unexpected summary: %+v", result.Summary)
	}
}

func TestUploadStorageFailureIs500(t *testing.T) {
	dir := t.TempDir()
	store := ledger.Open(filepath.Join(dir, "transacoes.csv"))
	if err := store.Init(); err != nil {
		t.Fatalf("store init: %v", err)
	}

	// A regular file where the upload directory should be makes saving
	// the upload fail for reasons unrelated to the input.
	blocker := filepath.Join(dir, "uploads")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	h := &Handler{
		Importer: &ingest.Importer{
			Store:     store,
			Scanner:   scan.New(),
			UploadDir: blocker,
			Log:       zerolog.Nop(),
		},
		Store: store,
		Log:   zerolog.Nop(),
	}
	app := fiber.New()
	h.Register(app)

	body, contentType := multipartBody(t, "extrato.csv", "data;valor\n10/01/2025;10,00\n")
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("disk failure must surface as 500, got %d", resp.StatusCode)
	}

	var result map[string]any
	decodeJSON(t, resp.Body, &result)
	msg, _ := result["error"].(string)
	if strings.Contains(msg, "armazenando") {
		t.Errorf("raw storage error leaked to the user: %q", msg)
	}
}

func TestManualEntry(t *testing.T) {
	app := setupTestApp(t, nil)

	form := url.Values{}
	form.Set("data", "12/01/2025")
	form.Set("descricao", "Material de escritório")
	form.Set("valor", "35,90")
	form.Set("categoria", "Outros")

	req := httptest.NewRequest("POST", "/transacoes", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/transacoes", nil))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var result struct {
		Transactions []struct {
			Valor string `json:"valor"`
			Tipo  string `json:"tipo"`
		} `json:"transactions"`
	}
	decodeJSON(t, resp.Body, &result)
	if len(result.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(result.Transactions))
	}
	if result.Transactions[0].Valor != "-35.9" {
		t.Errorf("manual entry must persist negative, got %q", result.Transactions[0].Valor)
	}
}

func TestManualEntryRejectsUnknownCategory(t *testing.T) {
	app := setupTestApp(t, nil)

	form := url.Values{}
	form.Set("data", "12/01/2025")
	form.Set("descricao", "Frete")
	form.Set("valor", "10,00")
	form.Set("categoria", "Luxo")

	req := httptest.NewRequest("POST", "/transacoes", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/categorias", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var result struct {
		Categorias []string `json:"categorias"`
	}
	decodeJSON(t, resp.Body, &result)
	if len(result.Categorias) == 0 {
		t.Error("expected a non-empty category list")
	}
}

package main

import (
	"flag"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/caixaclara/statement-ledger/internal/api"
	"github.com/caixaclara/statement-ledger/internal/extractor"
	"github.com/caixaclara/statement-ledger/internal/ingest"
	"github.com/caixaclara/statement-ledger/internal/ledger"
	"github.com/caixaclara/statement-ledger/internal/logger"
	"github.com/caixaclara/statement-ledger/internal/scan"
)

func main() {
	// .env is optional; flags beat env, env beats defaults.
	_ = godotenv.Load()

	addrFlag := flag.String("addr", envOr("ADDR", ":8080"), "listen address")
	ledgerFlag := flag.String("ledger", envOr("LEDGER_PATH", "transacoes.csv"), "path of the persisted transaction table")
	uploadsFlag := flag.String("uploads", envOr("UPLOAD_DIR", "uploads"), "directory for uploaded statements")
	looseDates := flag.Bool("loose-dates", false, "accept date markers with trailing text on lines without R$")
	flag.Parse()

	log := logger.New()

	store := ledger.Open(*ledgerFlag)
	if err := store.Init(); err != nil {
		log.Fatal().Err(err).Str("path", *ledgerFlag).Msg("não foi possível inicializar a tabela de transações")
	}

	scanner := scan.New()
	if *looseDates {
		scanner.Classifier.Mode = scan.MatchSubstring
	}

	importer := &ingest.Importer{
		Store:        store,
		Scanner:      scanner,
		ExtractPages: extractor.Pages,
		UploadDir:    *uploadsFlag,
		Log:          log,
	}

	h := &api.Handler{
		Importer: importer,
		Store:    store,
		Log:      log,
	}

	app := fiber.New(fiber.Config{
		AppName:   "statement-ledger",
		BodyLimit: 32 << 20,
	})
	h.Register(app)

	log.Info().
		Str("addr", *addrFlag).
		Str("ledger", *ledgerFlag).
		Msg("servidor iniciado")

	if err := app.Listen(*addrFlag); err != nil {
		log.Error().Err(err).Msg("servidor encerrou com erro")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

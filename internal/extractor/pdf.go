// Package extractor turns a statement PDF into plain-text pages for the
// scanner. The layout-recovery work lives in the ledongthuc/pdf library;
// this package only sequences extraction methods and rejects output that
// is clearly not statement text.
package extractor

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Pages reads a PDF and returns the text of each page in reading order.
// The structured library is tried first; when it fails or produces
// garbage, the external pdftotext command (poppler-utils) is the fallback.
// A page with no extractable text is an empty string, not an error.
func Pages(path string) ([]string, error) {
	pages, libErr := withLibrary(path)
	if libErr == nil && readable(pages) {
		return pages, nil
	}

	popplerPages, popplerErr := withPdftotext(path)
	if popplerErr == nil && readable(popplerPages) {
		return popplerPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("extração de texto do PDF falhou: %w", libErr)
	}
	return nil, fmt.Errorf("nenhum texto legível pôde ser extraído do PDF; o arquivo pode ser digitalizado (imagem) ou usar fontes não decodificáveis")
}

// withLibrary extracts with ledongthuc/pdf, preferring row-grouped text.
func withLibrary(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("biblioteca de PDF abortou: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF sem páginas")
	}

	pages = byRow(r, numPages)
	if readable(pages) {
		return pages, nil
	}

	pages = byPlainText(r, numPages)
	return pages, nil
}

func byRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func byPlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages
}

// withPdftotext shells out to poppler-utils, one page at a time so page
// boundaries survive.
func withPdftotext(path string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext indisponível: %w", err)
	}

	numPages := 1
	if out, err := exec.Command("pdfinfo", path).Output(); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.HasPrefix(line, "Pages:") {
				if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:"))); err == nil && n > 0 {
					numPages = n
				}
			}
		}
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		p := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", p, "-l", p, path, "-").Output()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(string(out)))
	}
	return pages, nil
}

// statementWords are terms that show up in virtually every Brazilian bank
// statement. Extraction output containing none of them is treated as
// garbage rather than handed to the scanner.
var statementWords = []string{
	"banco", "conta", "saldo", "data", "extrato", "valor",
	"lançamento", "lancamento", "pagamento", "transferência",
	"transferencia", "pix", "débito", "debito", "crédito", "credito",
	"agência", "agencia", "período", "periodo", "r$",
}

// readable gates extraction output: enough text, mostly readable
// characters, and at least one recognizable statement term.
func readable(pages []string) bool {
	total := 0
	ok := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"$%&@#!?+=*", r)) {
				ok++
			} else if r > 127 && unicode.IsLetter(r) {
				// accented Latin letters are expected in Portuguese text
				ok++
			}
		}
	}
	if total <= 50 {
		return false
	}
	if float64(ok)/float64(total) <= 0.6 {
		return false
	}

	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range statementWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

package pdf

import (
	"bytes"
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/abdel7517/ragdocs/internal/logger"
)

// Analyzer is the opaque bytes→pages collaborator used by both pipelines:
// the upload side needs a page count for quota enforcement, the worker side
// needs per-page text for chunking.
type Analyzer interface {
	CountPages(data []byte) (int, error)
	ExtractPageTexts(data []byte) ([]string, error)
}

type analyzer struct {
	log  *logger.Logger
	conf *model.Configuration
}

func NewAnalyzer(log *logger.Logger) Analyzer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &analyzer{
		log:  log.With("service", "PDFAnalyzer"),
		conf: conf,
	}
}

func (a *analyzer) CountPages(data []byte) (int, error) {
	if !isPDF(data) {
		return 0, fmt.Errorf("missing %%PDF header")
	}
	n, err := api.PageCount(bytes.NewReader(data), a.conf)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// ExtractPageTexts returns the plain text of each page in order. Pages whose
// text cannot be decoded yield an empty string rather than failing the whole
// document.
func (a *analyzer) ExtractPageTexts(data []byte) ([]string, error) {
	if !isPDF(data) {
		return nil, fmt.Errorf("missing %%PDF header")
	}
	r, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}

	total := r.NumPage()
	texts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			a.log.Warn("Failed to extract page text", "page", i, "error", err)
			texts = append(texts, "")
			continue
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts, nil
}

func isPDF(b []byte) bool {
	// PDF starts with "%PDF-"
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/broker-statement-converter/internal/extractor"
	"github.com/insightdelivered/broker-statement-converter/internal/ingest"
	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/insightdelivered/broker-statement-converter/internal/parser"
	"github.com/insightdelivered/broker-statement-converter/internal/writer"
)

// Version is reported by /api/health and the version command.
const Version = "2.0.0"

// pageBreak separates pages in client-extracted text.
const pageBreak = "\n---PAGE_BREAK---\n"

// ParseResponse is the JSON response from the /api/parse endpoint.
type ParseResponse struct {
	Success      bool                       `json:"success"`
	Error        string                     `json:"error,omitempty"`
	Broker       string                     `json:"broker,omitempty"`
	StatementID  string                     `json:"statementId,omitempty"`
	AccountInfo  *AccountInfo               `json:"accountInfo,omitempty"`
	Balances     *models.Balances           `json:"balances,omitempty"`
	Transactions []models.TransactionRecord `json:"transactions"`
	CSV          string                     `json:"csv,omitempty"`
	Count        int                        `json:"count"`
	Degraded     int                        `json:"degraded"`
	Suppressed   int                        `json:"suppressed"`
	Totals       map[string]string          `json:"totals,omitempty"`
	Version      string                     `json:"version,omitempty"`
	DebugLines   []models.DebugLine         `json:"debugLines,omitempty"`
}

// AccountInfo holds account metadata for the JSON response.
type AccountInfo struct {
	Holder        string `json:"holder,omitempty"`
	Number        string `json:"number,omitempty"`
	StatementDate string `json:"statementDate,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// Handler serves the parse API.
type Handler struct {
	Engine *parser.Engine
	Log    zerolog.Logger
}

// NewApp returns a fiber app with the API routes registered.
func (h *Handler) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "broker-statement-converter",
		BodyLimit: 32 << 20,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/parse", h.HandleParse)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
	})
}

// HandleParse converts one uploaded statement. Form fields: file (required),
// broker (optional, detected when absent), header ("false" drops the CSV
// metadata rows), extractedText (optional client-side PDF text).
func (h *Handler) HandleParse(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !extractor.IsStatementFile(fh.Filename) {
		return writeError(c, fiber.StatusBadRequest, "Only PDF and CSV statements are supported.")
	}

	var doc *extractor.Document
	if text := c.FormValue("extractedText"); text != "" && strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		doc = &extractor.Document{Path: fh.Filename, Pages: splitPages(text)}
	} else {
		doc, err = h.load(fh)
		if err != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("Extraction failed: %v", err))
		}
	}

	// detection and the date hint go by the uploaded name
	doc.Path = fh.Filename

	var broker models.BrokerType
	if b := c.FormValue("broker"); b != "" {
		if broker, err = models.ParseBrokerType(b); err != nil {
			return writeError(c, fiber.StatusBadRequest, err.Error())
		}
	}

	info, err := ingest.ParseDocument(h.Engine, uuid.NewString(), doc, broker)
	if err != nil {
		h.Log.Error().Err(err).Str("file", fh.Filename).Msg("statement failed")
		return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("Parsing failed: %v", err))
	}

	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
	if err := csvWriter.Write(&csvBuf, info); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}

	report := ingest.NewReport()
	report.Add(fh.Filename, info, nil)
	totals := make(map[string]string, len(report.Totals))
	for cur, amount := range report.Totals {
		totals[cur] = ingest.FormatAmount(amount, cur)
	}

	// nil marshals to null, not []
	txns := info.Transactions
	if txns == nil {
		txns = []models.TransactionRecord{}
	}

	resp := ParseResponse{
		Success:      true,
		Broker:       string(info.Broker),
		StatementID:  info.StatementID,
		Balances:     info.Balances,
		Transactions: txns,
		CSV:          csvBuf.String(),
		Count:        len(txns),
		Degraded:     info.Count(models.OutcomeDegraded),
		Suppressed:   info.Count(models.OutcomeSuppressed),
		Totals:       totals,
		Version:      Version,
		DebugLines:   info.DebugLines,
	}
	if info.AccountHolder != "" || info.AccountID != "" || !info.StatementDate.IsZero() {
		resp.AccountInfo = &AccountInfo{
			Holder:   info.AccountHolder,
			Number:   info.AccountID,
			Currency: info.Currency,
		}
		if !info.StatementDate.IsZero() {
			resp.AccountInfo.StatementDate = info.StatementDate.Format("2006-01-02")
		}
	}

	h.Log.Info().Str("broker", string(info.Broker)).Int("records", resp.Count).Msg("statement parsed")
	return c.JSON(resp)
}

// load saves the upload to a temporary file so the extractor can read it.
func (h *Handler) load(fh *multipart.FileHeader) (*extractor.Document, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "statement-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return extractor.Load(tmp.Name())
}

func splitPages(text string) []string {
	var pages []string
	for _, page := range strings.Split(text, pageBreak) {
		if page = strings.TrimSpace(page); page != "" {
			pages = append(pages, page)
		}
	}
	return pages
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ParseResponse{
		Success: false,
		Error:   msg,
	})
}

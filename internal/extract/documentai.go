package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// maxDocumentSizeBytes is the Document AI limit for synchronous processing.
const maxDocumentSizeBytes = 20 * 1024 * 1024

// DocumentAIConfig configures the Document AI extraction backend.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // "us", "eu", ...
	ProcessorID string
	Timeout     time.Duration
}

// DocumentAIExtractor is an alternative scan backend using a Google Document
// AI invoice processor instead of OCR plus OpenAI. It understands the
// standard invoice entity schema; SIFEN-specific fields like the CDC are not
// in that schema and stay empty, so records from this path merge with lower
// precedence.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates the extractor with credentials and
// configuration from the environment. Requires GOOGLE_PROJECT_ID and
// GOOGLE_PROCESSOR_ID; GOOGLE_LOCATION defaults to "us".
func NewDocumentAIExtractor(ctx context.Context) (*DocumentAIExtractor, error) {
	return NewDocumentAIExtractorWithConfig(ctx, DocumentAIConfig{
		ProjectID:   firstEnv("GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		Location:    firstEnv("GOOGLE_LOCATION", "GOOGLE_CLOUD_LOCATION"),
		ProcessorID: firstEnv("GOOGLE_PROCESSOR_ID", "DOCUMENT_AI_PROCESSOR_ID"),
	})
}

// NewDocumentAIExtractorWithConfig creates the extractor from an explicit
// configuration. A zero Timeout defaults to 60 seconds per document.
func NewDocumentAIExtractorWithConfig(ctx context.Context, config DocumentAIConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.ProjectID == "" {
		return nil, NewExtractError(op, fmt.Errorf("project ID is required"), "")
	}
	if config.ProcessorID == "" {
		return nil, NewExtractError(op, fmt.Errorf("processor ID is required"), "")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var opts []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, NewExtractError(op, err, fmt.Sprintf("creating client for location %s", config.Location))
	}

	return NewDocumentAIExtractorWithClient(config, client), nil
}

// NewDocumentAIExtractorWithClient creates the extractor with an explicit
// client (for testing).
func NewDocumentAIExtractorWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIExtractor {
	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("extract-documentai"),
	}
}

func (e *DocumentAIExtractor) Source() string { return models.SourceVision }

// Extract runs the document through the invoice processor and maps the
// entities onto an invoice record.
func (e *DocumentAIExtractor) Extract(ctx context.Context, doc io.Reader) (*models.Invoice, error) {
	const op = "Extract"

	data, err := io.ReadAll(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: reading document: %w", op, err)
	}
	if len(data) == 0 {
		return nil, NewExtractError(op, ErrEmptyDocument, "")
	}
	if len(data) > maxDocumentSizeBytes {
		return nil, NewExtractError(op, fmt.Errorf("document too large"), fmt.Sprintf("%d bytes", len(data)))
	}

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	resp, err := e.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			e.config.ProjectID, e.config.Location, e.config.ProcessorID),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return nil, NewExtractError(op, ErrExtractionFailed, err.Error())
	}

	inv := e.buildInvoice(resp.GetDocument())
	if inv.IssuerRUC == "" || inv.InvoiceNumber == "" {
		return nil, NewExtractError(op, ErrMissingBusinessKey, "")
	}

	e.log.Info().
		Str("key", inv.Key().String()).
		Str("total", inv.Total.String()).
		Msg("extracted factura via Document AI")
	return inv, nil
}

func (e *DocumentAIExtractor) buildInvoice(doc *documentaipb.Document) *models.Invoice {
	inv := &models.Invoice{
		Source:        models.SourceVision,
		SaleCondition: "CONTADO",
		ProcessedAt:   time.Now(),
	}

	for _, entity := range doc.GetEntities() {
		value := strings.TrimSpace(entity.GetMentionText())
		if value == "" {
			continue
		}

		switch entity.GetType() {
		case "invoice_id", "invoice_number":
			inv.InvoiceNumber = value
		case "supplier_name", "vendor_name":
			inv.IssuerName = value
		case "supplier_tax_id":
			inv.IssuerRUC = value
		case "receiver_name", "customer_name":
			inv.CustomerName = value
		case "receiver_tax_id":
			inv.CustomerRUC = value
		case "invoice_date":
			inv.IssueDate = e.entityDate(entity, value)
		case "net_amount", "subtotal_amount":
			// The generic schema has one net amount; context decides the
			// bucket later, so park it as the 10% base.
			inv.TaxedBase10 = e.entityAmount(entity, value)
		case "total_tax_amount", "vat_amount":
			inv.Tax10 = e.entityAmount(entity, value)
		case "total_amount", "gross_amount":
			inv.Total = e.entityAmount(entity, value)
		case "currency":
			inv.Currency = value
		case "payment_terms":
			inv.SaleCondition = models.NormalizeSaleCondition(value)
		}
	}
	return inv
}

// entityDate prefers the normalized date value, falling back to parsing the
// mention text.
func (e *DocumentAIExtractor) entityDate(entity *documentaipb.Document_Entity, raw string) time.Time {
	if dv := entity.GetNormalizedValue().GetDateValue(); dv != nil {
		return time.Date(int(dv.GetYear()), time.Month(dv.GetMonth()), int(dv.GetDay()), 0, 0, 0, 0, time.UTC)
	}
	return parseIssueDate(raw)
}

// entityAmount prefers the normalized money value, falling back to lenient
// text parsing.
func (e *DocumentAIExtractor) entityAmount(entity *documentaipb.Document_Entity, raw string) decimal.Decimal {
	if mv := entity.GetNormalizedValue().GetMoneyValue(); mv != nil {
		return decimal.NewFromInt(mv.GetUnits()).Add(decimal.New(int64(mv.GetNanos()), -9))
	}
	d, outcome := reconcile.ParseAmount(raw)
	if outcome == reconcile.AmountMalformed {
		e.log.Warn().
			Str("type", entity.GetType()).
			Str("value", raw).
			Msg("malformed amount from Document AI, using zero")
	}
	return d
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Close closes the underlying Document AI client.
func (e *DocumentAIExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

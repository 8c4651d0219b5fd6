package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/ocr"
	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// VisionConfig configures the AI extraction path.
type VisionConfig struct {
	Model       string  // OpenAI model name
	Temperature float32 // sampling temperature, keep low for extraction
	MaxRetries  int     // attempts per document
}

// DefaultVisionConfig returns the extraction defaults.
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{
		Model:       openai.GPT4oMini,
		Temperature: 0.1,
		MaxRetries:  3,
	}
}

// VisionExtractor handles scanned facturas: OCR first, then an OpenAI chat
// completion that maps the raw text to structured fields. Monetary fields
// come back as strings and are parsed leniently; a malformed amount becomes
// zero, never a failed record.
type VisionExtractor struct {
	ocrService ocr.Service
	client     *openai.Client
	config     VisionConfig
	log        zerolog.Logger
}

// NewVisionExtractor creates the AI extraction path with dependencies from
// the environment.
func NewVisionExtractor(ctx context.Context) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"

	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: creating OCR service: %w", op, err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, NewExtractError(op, ErrMissingAPIKey, "")
	}

	config := DefaultVisionConfig()
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.Model = model
	}
	if retries := os.Getenv("EXTRACT_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil && n > 0 {
			config.MaxRetries = n
		}
	}

	return NewVisionExtractorWithDeps(ocrService, openai.NewClient(apiKey), config), nil
}

// NewVisionExtractorWithDeps creates the extractor with explicit dependencies.
func NewVisionExtractorWithDeps(ocrService ocr.Service, client *openai.Client, config VisionConfig) *VisionExtractor {
	return &VisionExtractor{
		ocrService: ocrService,
		client:     client,
		config:     config,
		log:        logger.WithComponent("extract-vision"),
	}
}

func (e *VisionExtractor) Source() string { return models.SourceVision }

// visionResponse is the JSON shape the model is asked to produce. All
// amounts are strings so number formatting quirks stay on our side.
type visionResponse struct {
	IssuerRUC     string `json:"ruc_emisor"`
	IssuerName    string `json:"nombre_emisor"`
	InvoiceNumber string `json:"nro_factura"`
	IssueDate     string `json:"fecha"`
	Timbrado      string `json:"timbrado"`
	CDC           string `json:"cdc"`
	CustomerRUC   string `json:"ruc_cliente"`
	CustomerName  string `json:"nombre_cliente"`
	SaleCondition string `json:"condicion_venta"`
	Currency      string `json:"moneda"`
	ExchangeRate  string `json:"tipo_cambio"`
	TaxedBase5    string `json:"gravada_5"`
	Tax5          string `json:"iva_5"`
	TaxedBase10   string `json:"gravada_10"`
	Tax10         string `json:"iva_10"`
	Exempt        string `json:"exentas"`
	Total         string `json:"total"`

	Items []visionItem `json:"items"`
}

type visionItem struct {
	Article   string `json:"articulo"`
	Quantity  string `json:"cantidad"`
	UnitPrice string `json:"precio_unitario"`
	Total     string `json:"total"`
	IVARate   string `json:"tasa_iva"`
}

// Extract OCRs the document and asks the model for structured fields.
func (e *VisionExtractor) Extract(ctx context.Context, doc io.Reader) (*models.Invoice, error) {
	const op = "Extract"

	ocrResult, err := e.ocrService.ReadDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: OCR failed: %w", op, err)
	}

	e.log.Debug().
		Int("text_length", len(ocrResult.Text)).
		Float32("confidence", ocrResult.Confidence).
		Msg("OCR completed, extracting fields")

	resp, err := e.extractFields(ctx, ocrResult.Text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inv := e.buildInvoice(resp)
	if inv.IssuerRUC == "" || inv.InvoiceNumber == "" {
		return nil, NewExtractError(op, ErrMissingBusinessKey, fmt.Sprintf("ruc=%q nro=%q", inv.IssuerRUC, inv.InvoiceNumber))
	}

	e.log.Info().
		Str("key", inv.Key().String()).
		Str("total", inv.Total.String()).
		Int("items", len(inv.Items)).
		Msg("extracted factura from scan")
	return inv, nil
}

func (e *VisionExtractor) extractFields(ctx context.Context, text string) (*visionResponse, error) {
	const op = "extractFields"

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       e.config.Model,
			Temperature: e.config.Temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text)},
			},
			MaxTokens: 1500,
		})
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", e.config.MaxRetries).
				Msg("OpenAI request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := resp.Choices[0].Message.Content
		var parsed visionResponse
		if err := json.Unmarshal([]byte(stripFences(content)), &parsed); err != nil {
			lastErr = fmt.Errorf("parsing model response: %w", err)
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("response", content).
				Msg("unparseable model response, retrying")
			continue
		}
		return &parsed, nil
	}

	return nil, NewExtractError(op, ErrExtractionFailed,
		fmt.Sprintf("all %d attempts failed, last error: %v", e.config.MaxRetries, lastErr))
}

func (e *VisionExtractor) buildInvoice(resp *visionResponse) *models.Invoice {
	inv := &models.Invoice{
		IssuerRUC:     strings.TrimSpace(resp.IssuerRUC),
		IssuerName:    strings.TrimSpace(resp.IssuerName),
		InvoiceNumber: strings.TrimSpace(resp.InvoiceNumber),
		CustomerRUC:   strings.TrimSpace(resp.CustomerRUC),
		CustomerName:  strings.TrimSpace(resp.CustomerName),
		IssueDate:     parseIssueDate(resp.IssueDate),
		Currency:      strings.TrimSpace(resp.Currency),
		SaleCondition: models.NormalizeSaleCondition(resp.SaleCondition),
		CDC:           models.NormalizeCDC(resp.CDC),
		Timbrado:      strings.TrimSpace(resp.Timbrado),
		Source:        models.SourceVision,
		ProcessedAt:   time.Now(),
	}

	inv.TaxedBase5 = e.amount(inv, "gravada_5", resp.TaxedBase5)
	inv.Tax5 = e.amount(inv, "iva_5", resp.Tax5)
	inv.TaxedBase10 = e.amount(inv, "gravada_10", resp.TaxedBase10)
	inv.Tax10 = e.amount(inv, "iva_10", resp.Tax10)
	inv.Exempt = e.amount(inv, "exentas", resp.Exempt)
	inv.Total = e.amount(inv, "total", resp.Total)
	inv.ExchangeRate = e.amount(inv, "tipo_cambio", resp.ExchangeRate)

	for _, it := range resp.Items {
		name := strings.TrimSpace(it.Article)
		if name == "" {
			continue
		}
		rate, _ := strconv.Atoi(strings.TrimSpace(it.IVARate))
		if rate != 5 && rate != 10 {
			rate = 0
		}
		inv.Items = append(inv.Items, models.Item{
			ArticleName: name,
			Qty:         e.amount(inv, "cantidad", it.Quantity),
			Price:       e.amount(inv, "precio_unitario", it.UnitPrice),
			Total:       e.amount(inv, "item total", it.Total),
			IVARate:     rate,
		})
	}
	return inv
}

func (e *VisionExtractor) amount(inv *models.Invoice, field, raw string) decimal.Decimal {
	d, outcome := reconcile.ParseAmount(raw)
	if outcome == reconcile.AmountMalformed {
		e.log.Warn().
			Str("key", inv.Key().String()).
			Str("field", field).
			Str("value", raw).
			Msg("malformed amount from model, using zero")
	}
	return d
}

const systemPrompt = `Sos un asistente que extrae datos de facturas paraguayas a partir de texto OCR.

Respondé SOLO con un objeto JSON, sin texto adicional, con estas claves:
ruc_emisor, nombre_emisor, nro_factura (formato 001-001-0000000), fecha (YYYY-MM-DD),
timbrado, cdc (44 dígitos si está presente), ruc_cliente, nombre_cliente,
condicion_venta (CONTADO o CREDITO), moneda (GS, USD, ...), tipo_cambio,
gravada_5, iva_5, gravada_10, iva_10, exentas, total,
items (lista de {articulo, cantidad, precio_unitario, total, tasa_iva}).

Reglas:
- Los montos como string, sin símbolo de moneda.
- Si un dato no aparece en el texto, usá string vacío. NUNCA inventes valores.
- tasa_iva es "0", "5" o "10".
- El CDC suele aparecer como "CDC:" o como código bajo el QR, en grupos de 4 dígitos.`

func buildPrompt(ocrText string) string {
	return "Texto OCR de la factura:\n\n" + ocrText
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

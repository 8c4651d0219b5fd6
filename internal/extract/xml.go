package extract

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// NativeXMLExtractor parses SIFEN electronic documents (rDE). The XML carries
// the CDC and the full monetary breakdown, so records from this path rarely
// need reconciliation beyond a residual check.
type NativeXMLExtractor struct {
	log zerolog.Logger
}

func NewNativeXMLExtractor() *NativeXMLExtractor {
	return &NativeXMLExtractor{log: logger.WithComponent("extract-xml")}
}

func (e *NativeXMLExtractor) Source() string { return models.SourceNative }

// sifen element layout, limited to the fields the pipeline consumes.
type sifenRDE struct {
	XMLName xml.Name `xml:"rDE"`
	DE      sifenDE  `xml:"DE"`
}

type sifenDE struct {
	ID string `xml:"Id,attr"` // the CDC

	Timbrado string `xml:"gTimb>dNumTim"`
	Est      string `xml:"gTimb>dEst"`
	PunExp   string `xml:"gTimb>dPunExp"`
	NumDoc   string `xml:"gTimb>dNumDoc"`

	IssuedAt string `xml:"gDatGralOpe>dFeEmiDE"`

	IssuerRUC  string `xml:"gDatGralOpe>gEmis>dRucEm"`
	IssuerDV   string `xml:"gDatGralOpe>gEmis>dDVEmi"`
	IssuerName string `xml:"gDatGralOpe>gEmis>dNomEmi"`

	CustomerRUC  string `xml:"gDatGralOpe>gDatRec>dRucRec"`
	CustomerName string `xml:"gDatGralOpe>gDatRec>dNomRec"`

	Currency     string `xml:"gDatGralOpe>gOpeCom>cMoneOpe"`
	ExchangeRate string `xml:"gDatGralOpe>gOpeCom>dTiCam"`

	CondOpe string `xml:"gDtipDE>gCamCond>iCondOpe"` // 1 contado, 2 credito

	Items []sifenItem `xml:"gDtipDE>gCamItem"`

	Sub5     string `xml:"gTotSub>dSub5"`
	Sub10    string `xml:"gTotSub>dSub10"`
	SubExe   string `xml:"gTotSub>dSubExe"`
	IVA5     string `xml:"gTotSub>dIVA5"`
	IVA10    string `xml:"gTotSub>dIVA10"`
	TotalOpe string `xml:"gTotSub>dTotGralOpe"`
}

type sifenItem struct {
	Description string `xml:"dDesProSer"`
	Quantity    string `xml:"dCantProSer"`
	UnitPrice   string `xml:"gValorItem>dPUniProSer"`
	LineTotal   string `xml:"gValorItem>dTotBruOpeItem"`
	IVARate     string `xml:"gCamIVA>dTasaIVA"`
}

// Extract parses one rDE document into an invoice record.
func (e *NativeXMLExtractor) Extract(ctx context.Context, doc io.Reader) (*models.Invoice, error) {
	const op = "Extract"

	data, err := io.ReadAll(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: reading document: %w", op, err)
	}
	if len(data) == 0 {
		return nil, NewExtractError(op, ErrEmptyDocument, "")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rde sifenRDE
	if err := xml.Unmarshal(data, &rde); err != nil {
		return nil, NewExtractError(op, ErrInvalidXML, err.Error())
	}
	de := rde.DE

	inv := &models.Invoice{
		IssuerRUC:     joinRUC(de.IssuerRUC, de.IssuerDV),
		IssuerName:    strings.TrimSpace(de.IssuerName),
		InvoiceNumber: joinInvoiceNumber(de.Est, de.PunExp, de.NumDoc),
		CustomerRUC:   strings.TrimSpace(de.CustomerRUC),
		CustomerName:  strings.TrimSpace(de.CustomerName),
		IssueDate:     parseIssueDate(de.IssuedAt),
		Currency:      strings.TrimSpace(de.Currency),
		SaleCondition: saleConditionFromCode(de.CondOpe),
		CDC:           models.NormalizeCDC(de.ID),
		Timbrado:      strings.TrimSpace(de.Timbrado),
		Source:        models.SourceNative,
		ProcessedAt:   time.Now(),
	}

	if inv.IssuerRUC == "" || inv.InvoiceNumber == "" {
		return nil, NewExtractError(op, ErrMissingBusinessKey, "")
	}

	inv.TaxedBase5 = e.amount(inv, "dSub5", de.Sub5)
	inv.TaxedBase10 = e.amount(inv, "dSub10", de.Sub10)
	inv.Exempt = e.amount(inv, "dSubExe", de.SubExe)
	inv.Tax5 = e.amount(inv, "dIVA5", de.IVA5)
	inv.Tax10 = e.amount(inv, "dIVA10", de.IVA10)
	inv.Total = e.amount(inv, "dTotGralOpe", de.TotalOpe)
	inv.ExchangeRate = e.amount(inv, "dTiCam", de.ExchangeRate)

	for _, it := range de.Items {
		name := strings.TrimSpace(it.Description)
		if name == "" {
			continue
		}
		inv.Items = append(inv.Items, models.Item{
			ArticleName: name,
			Qty:         e.amount(inv, "dCantProSer", it.Quantity),
			Price:       e.amount(inv, "dPUniProSer", it.UnitPrice),
			Total:       e.amount(inv, "dTotBruOpeItem", it.LineTotal),
			IVARate:     parseIVARate(it.IVARate),
		})
	}

	e.log.Debug().
		Str("key", inv.Key().String()).
		Str("cdc", inv.CDC).
		Int("items", len(inv.Items)).
		Msg("parsed native XML document")
	return inv, nil
}

// amount parses one monetary field, logging malformed values instead of
// failing the record.
func (e *NativeXMLExtractor) amount(inv *models.Invoice, field, raw string) decimal.Decimal {
	d, outcome := reconcile.ParseAmount(raw)
	if outcome == reconcile.AmountMalformed {
		e.log.Warn().
			Str("key", inv.Key().String()).
			Str("field", field).
			Str("value", raw).
			Msg("malformed amount in XML, using zero")
	}
	return d
}

func joinRUC(ruc, dv string) string {
	ruc = strings.TrimSpace(ruc)
	dv = strings.TrimSpace(dv)
	if ruc == "" {
		return ""
	}
	if dv == "" || strings.Contains(ruc, "-") {
		return ruc
	}
	return ruc + "-" + dv
}

func joinInvoiceNumber(est, punExp, numDoc string) string {
	est = strings.TrimSpace(est)
	punExp = strings.TrimSpace(punExp)
	numDoc = strings.TrimSpace(numDoc)
	if est == "" && punExp == "" && numDoc == "" {
		return ""
	}
	return est + "-" + punExp + "-" + numDoc
}

func parseIssueDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func saleConditionFromCode(code string) string {
	if strings.TrimSpace(code) == "2" {
		return "CREDITO"
	}
	return "CONTADO"
}

func parseIVARate(s string) int {
	switch strings.TrimSpace(s) {
	case "5":
		return 5
	case "10":
		return 10
	}
	return 0
}

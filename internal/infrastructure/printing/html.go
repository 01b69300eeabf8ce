package printing

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/shopspring/decimal"
)

var htmlFuncs = template.FuncMap{
	"brl":      FormatBRL,
	"qty":      FormatQuantity,
	"money":    func(d decimal.Decimal) string { return FormatDecimal(d, 2) },
	"document": FormatDocument,
	"group":    GroupDigits,
	"method":   func(m sale.PaymentMethod) string { return MethodLabel(m) },
	"positive": func(d decimal.Decimal) bool { return d.IsPositive() },
	"number":   func(n int64) string { return fmt.Sprintf("%06d", n) },
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(htmlFuncs).Parse(`<!DOCTYPE html>
<html lang="pt-BR"><head><meta charset="UTF-8"><title>{{.Title}}</title>
<style>
body{font-family:"DejaVu Sans Mono",monospace;font-size:11px;width:72mm;margin:0 auto}
h1{font-size:13px;text-align:center;margin:4px 0}
.c{text-align:center}.r{text-align:right}
table{width:100%;border-collapse:collapse}
hr{border:0;border-top:1px dashed #000}
.key{word-spacing:2px;font-size:10px}
</style></head><body>
<h1>{{.CompanyName}}</h1>
<div class="c">CNPJ {{document .Company.CNPJ}}{{if .Company.StateRegistration}} IE {{.Company.StateRegistration}}{{end}}</div>
{{with .Company.Address}}{{if .Street}}<div class="c">{{.Street}}, {{.Number}} - {{.District}}, {{.City}}/{{.State}}</div>{{end}}{{end}}
<hr>
{{if .NFCe}}<div class="c"><b>DANFE NFC-e</b><br>Documento Auxiliar da Nota Fiscal de Consumidor Eletrônica</div>
{{else}}<div class="c"><b>CUPOM Nº {{number .Sale.Number}}</b><br>NÃO É DOCUMENTO FISCAL</div>{{end}}
<hr>
<table>
<tr><th>#</th><th>Descrição</th><th class="r">Qtd</th><th class="r">Unit.</th><th class="r">Total</th></tr>
{{range .Sale.Items}}<tr><td>{{.LineNumber}}</td><td>{{.ProductName}}</td><td class="r">{{qty .Quantity}} {{.Unit}}</td><td class="r">{{money .UnitPrice}}</td><td class="r">{{money .Total}}</td></tr>
{{end}}</table>
<hr>
<table>
<tr><td>Subtotal</td><td class="r">{{brl .Sale.Subtotal}}</td></tr>
{{if positive .Sale.Discount}}<tr><td>Desconto</td><td class="r">-{{brl .Sale.Discount}}</td></tr>{{end}}
<tr><td><b>Valor total</b></td><td class="r"><b>{{brl .Sale.Total}}</b></td></tr>
{{range .Sale.Payments}}<tr><td>{{method .Method}}{{if gt .Installments 1}} {{.Installments}}x{{end}}</td><td class="r">{{brl .Amount}}</td></tr>
{{end}}{{if positive .Sale.Change}}<tr><td>Troco</td><td class="r">{{brl .Sale.Change}}</td></tr>{{end}}
</table>
<hr>
{{if .Sale.ConsumerDocument}}<div>Consumidor {{document .Sale.ConsumerDocument}} {{.Sale.ConsumerName}}</div>
{{else if .CustomerName}}<div>Cliente {{.CustomerName}}</div>{{else}}<div>Consumidor não identificado</div>{{end}}
{{if .SellerName}}<div>Vendedor: {{.SellerName}}</div>{{end}}
{{with .Fiscal}}{{if $.NFCe}}<hr>
<div class="c">NFC-e nº {{.Number}} Série {{.Series}}</div>
<div class="c">Consulte pela Chave de Acesso</div>
<div class="c key">{{group .AccessKey}}</div>
{{if .Protocol}}<div class="c">Protocolo {{.Protocol}}</div>{{end}}
{{if .QRCodeURL}}<div class="c"><a href="{{.QRCodeURL}}">Consulta via QR Code</a></div>{{end}}
{{end}}{{end}}
</body></html>`))

// RenderReceiptHTML renders the sale receipt as an HTML document for PDF
// conversion and email bodies.
func RenderReceiptHTML(d ReceiptData) (string, error) {
	name := d.Company.TradeName
	if name == "" {
		name = d.Company.Name
	}
	view := struct {
		ReceiptData
		Title       string
		CompanyName string
		NFCe        bool
	}{
		ReceiptData: d,
		Title:       fmt.Sprintf("Cupom %06d", d.Sale.Number),
		CompanyName: name,
		NFCe:        d.Fiscal != nil && d.Fiscal.Status == fiscal.StatusAuthorized,
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.String(), nil
}

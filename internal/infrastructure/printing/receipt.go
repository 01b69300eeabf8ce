package printing

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
)

// ReceiptData is everything printed on a sale receipt
type ReceiptData struct {
	Company      *company.Company
	Sale         *sale.Sale
	OperatorName string
	SellerName   string
	CustomerName string
	// Fiscal is the NFCe of the sale, nil when none was authorized
	Fiscal *fiscal.Document
}

// ClosureData is everything printed on a cash closure report
type ClosureData struct {
	Company      *company.Company
	Session      *cash.Session
	OperatorName string
}

var methodLabels = map[sale.PaymentMethod]string{
	sale.MethodCash:        "Dinheiro",
	sale.MethodCreditCard:  "Cartão de Crédito",
	sale.MethodDebitCard:   "Cartão de Débito",
	sale.MethodPix:         "PIX",
	sale.MethodVoucher:     "Vale",
	sale.MethodStoreCredit: "Crediário",
}

// MethodLabel returns the printed name of a payment method
func MethodLabel(m sale.PaymentMethod) string {
	if l, ok := methodLabels[m]; ok {
		return l
	}
	return string(m)
}

func writeCompanyHeader(b *Builder, c *company.Company) {
	b.Align(AlignCenter).Bold(true)
	name := c.TradeName
	if name == "" {
		name = c.Name
	}
	b.Line(name).Bold(false)
	if c.TradeName != "" && c.TradeName != c.Name {
		b.Line(c.Name)
	}
	b.Line("CNPJ " + FormatDocument(c.CNPJ))
	if c.StateRegistration != "" {
		b.Line("IE " + c.StateRegistration)
	}
	addr := c.Address
	if addr.Street != "" {
		b.Line(strings.TrimSpace(fmt.Sprintf("%s, %s - %s", addr.Street, addr.Number, addr.District)))
		b.Line(fmt.Sprintf("%s/%s", addr.City, addr.State))
	}
	if c.Phone != "" {
		b.Line("Tel " + c.Phone)
	}
	b.Align(AlignLeft).Separator()
}

// RenderSaleReceipt builds the ESC/POS stream of a sale receipt. With an
// authorized NFCe it prints the DANFE NFC-e layout with access key and QR code.
func RenderSaleReceipt(d ReceiptData, cols int) []byte {
	b := NewBuilder(cols)
	s := d.Sale
	writeCompanyHeader(b, d.Company)

	nfce := d.Fiscal != nil && d.Fiscal.Status == fiscal.StatusAuthorized
	b.Align(AlignCenter).Bold(true)
	if nfce {
		b.Line("DANFE NFC-e")
		b.Bold(false).Line("Documento Auxiliar da Nota Fiscal de Consumidor Eletrônica")
	} else {
		b.Line(fmt.Sprintf("CUPOM Nº %06d", s.Number))
		b.Bold(false).Line("NÃO É DOCUMENTO FISCAL")
	}
	b.Align(AlignLeft).Separator()

	b.Line("# COD DESCRICAO")
	b.Pair("  QTD UN x VL UNIT", "VL TOTAL")
	b.Separator()
	for _, it := range s.Items {
		b.Line(fmt.Sprintf("%03d %s %s", it.LineNumber, it.ProductCode, it.ProductName))
		b.Pair(fmt.Sprintf("  %s %s x %s", FormatQuantity(it.Quantity), it.Unit, FormatDecimal(it.UnitPrice, 2)), FormatDecimal(it.Total, 2))
		if it.Discount.IsPositive() {
			b.Pair("  desconto", "-"+FormatDecimal(it.Discount, 2))
		}
	}
	b.Separator()

	b.Pair("Qtd. total de itens", fmt.Sprintf("%d", len(s.Items)))
	b.Pair("Subtotal", FormatBRL(s.Subtotal))
	if s.Discount.IsPositive() {
		b.Pair("Desconto", "-"+FormatBRL(s.Discount))
	}
	b.Bold(true).Pair("VALOR TOTAL", FormatBRL(s.Total)).Bold(false)
	b.Separator()

	b.Pair("FORMA DE PAGAMENTO", "VALOR PAGO")
	for _, p := range s.Payments {
		label := MethodLabel(p.Method)
		if p.Installments > 1 {
			label = fmt.Sprintf("%s %dx", label, p.Installments)
		}
		b.Pair(label, FormatDecimal(p.Amount, 2))
	}
	if s.Change.IsPositive() {
		b.Pair("Troco", FormatDecimal(s.Change, 2))
	}
	b.Separator()

	switch {
	case s.ConsumerDocument != "":
		b.Line("CONSUMIDOR " + FormatDocument(s.ConsumerDocument))
		if s.ConsumerName != "" {
			b.Line(s.ConsumerName)
		}
	case d.CustomerName != "":
		b.Line("CLIENTE " + d.CustomerName)
	default:
		b.Line("CONSUMIDOR NÃO IDENTIFICADO")
	}
	if d.SellerName != "" {
		b.Line("Vendedor: " + d.SellerName)
	}
	if d.OperatorName != "" {
		b.Line("Operador: " + d.OperatorName)
	}

	issued := s.CreatedAt
	if s.CompletedAt != nil {
		issued = *s.CompletedAt
	}

	if nfce {
		doc := d.Fiscal
		b.Separator().Align(AlignCenter)
		b.Line(fmt.Sprintf("NFC-e nº %09d Série %03d", doc.Number, doc.Series))
		b.Line(issued.Format("02/01/2006 15:04:05"))
		if doc.Environment != string(company.EnvironmentProduction) {
			b.Bold(true).Line("EMITIDA EM AMBIENTE DE HOMOLOGAÇÃO - SEM VALOR FISCAL").Bold(false)
		}
		b.Line("Consulte pela Chave de Acesso")
		b.Line(GroupDigits(doc.AccessKey))
		if doc.Protocol != "" {
			b.Line("Protocolo de autorização: " + doc.Protocol)
		}
		if doc.QRCodeURL != "" {
			b.Feed(1).QRCode(doc.QRCodeURL, 5)
		}
		b.Align(AlignLeft)
	} else {
		b.Line(issued.Format("02/01/2006 15:04:05"))
	}

	if s.Notes != "" {
		b.Separator().Line(s.Notes)
	}
	return b.Feed(4).Cut().Bytes()
}

// RenderCashClosure builds the ESC/POS stream of a closed (or partial) cash session
func RenderCashClosure(d ClosureData, cols int) []byte {
	b := NewBuilder(cols)
	s := d.Session
	writeCompanyHeader(b, d.Company)

	b.Align(AlignCenter).Bold(true).Line("FECHAMENTO DE CAIXA").Bold(false).Align(AlignLeft)
	if d.OperatorName != "" {
		b.Line("Operador: " + d.OperatorName)
	}
	b.Line("Abertura: " + s.OpenedAt.Format("02/01/2006 15:04"))
	if s.ClosedAt != nil {
		b.Line("Fechamento: " + s.ClosedAt.Format("02/01/2006 15:04"))
	}
	b.Separator()

	b.Pair("Saldo inicial", FormatBRL(s.OpeningBalance))
	b.Pair(fmt.Sprintf("Vendas (%d)", s.SalesCount), FormatBRL(s.SalesTotal))
	b.Pair("Vendas em dinheiro", FormatBRL(s.CashSales))
	b.Pair("Troco", "-"+FormatBRL(s.ChangeGiven))
	b.Pair("Suprimentos", FormatBRL(s.MovementTotal(cash.MovementSupply)))
	b.Pair("Sangrias", "-"+FormatBRL(s.MovementTotal(cash.MovementWithdrawal)))
	b.Separator()

	if len(s.Totals) > 0 {
		b.Bold(true).Line("Por forma de pagamento").Bold(false)
		for _, t := range s.Totals {
			b.Pair(MethodLabel(sale.PaymentMethod(t.Method)), FormatBRL(t.Amount))
		}
		b.Separator()
	}

	b.Pair("Esperado em caixa", FormatBRL(s.ExpectedBalance))
	b.Pair("Contado", FormatBRL(s.CountedBalance))
	b.Bold(true).Pair("Diferença", FormatBRL(s.Difference)).Bold(false)

	if len(s.Movements) > 0 {
		b.Separator().Bold(true).Line("Movimentações").Bold(false)
		for _, m := range s.Movements {
			label := "Suprimento"
			if m.Type == cash.MovementWithdrawal {
				label = "Sangria"
			}
			b.Pair(m.CreatedAt.Format("15:04")+" "+label, FormatBRL(m.Amount))
			b.Line("  " + m.Reason)
		}
	}
	if s.Notes != "" {
		b.Separator().Line(s.Notes)
	}
	b.Feed(2).Align(AlignCenter).Line("_______________________________").Line("Assinatura do operador")
	return b.Feed(4).Cut().Bytes()
}

// RenderTestPage builds a short page that checks alignment, accents and the cutter
func RenderTestPage(printerName string, cols int, now time.Time) []byte {
	b := NewBuilder(cols)
	b.Align(AlignCenter).Large(true).Line("TESTE").Large(false)
	b.Line(printerName)
	b.Line(now.Format("02/01/2006 15:04:05"))
	b.Align(AlignLeft).Separator()
	b.Line(strings.Repeat("0123456789", cols/10+1)[:cols])
	b.Pair("Esquerda", "Direita")
	b.Line("Acentuação: ação, café, maçã, pão")
	b.Feed(1).Align(AlignCenter).QRCode("https://www.nfce.fazenda.gov.br", 4)
	return b.Feed(4).Cut().Bytes()
}

package fiscal

import (
	"time"

	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// Gateway payloads use the field names of the provider API.

// ProductPayload is the body of an NFCe or NFe
type ProductPayload struct {
	NaturezaOperacao  string           `json:"natureza_operacao"`
	DataEmissao       string           `json:"data_emissao"`
	TipoDocumento     int              `json:"tipo_documento"`
	FinalidadeEmissao int              `json:"finalidade_emissao"`
	ConsumidorFinal   int              `json:"consumidor_final"`
	PresencaComprador int              `json:"presenca_comprador"`
	Serie             int              `json:"serie"`
	Numero            int64            `json:"numero"`
	CNPJEmitente      string           `json:"cnpj_emitente"`
	InscricaoEstadual string           `json:"inscricao_estadual_emitente,omitempty"`
	NomeDestinatario  string           `json:"nome_destinatario,omitempty"`
	CPFDestinatario   string           `json:"cpf_destinatario,omitempty"`
	CNPJDestinatario  string           `json:"cnpj_destinatario,omitempty"`
	IndicadorIEDest   int              `json:"indicador_inscricao_estadual_destinatario,omitempty"`
	ModalidadeFrete   int              `json:"modalidade_frete"`
	ValorProdutos     string           `json:"valor_produtos"`
	ValorDesconto     string           `json:"valor_desconto"`
	ValorTotal        string           `json:"valor_total"`
	Items             []ItemPayload    `json:"items"`
	FormasPagamento   []PaymentPayload `json:"formas_pagamento"`
	InformacoesFisco  string           `json:"informacoes_adicionais_contribuinte,omitempty"`
}

// ItemPayload is a product line
type ItemPayload struct {
	NumeroItem               int    `json:"numero_item"`
	CodigoProduto            string `json:"codigo_produto"`
	CodigoBarras             string `json:"codigo_barras_comercial,omitempty"`
	Descricao                string `json:"descricao"`
	CFOP                     string `json:"cfop"`
	CodigoNCM                string `json:"codigo_ncm"`
	UnidadeComercial         string `json:"unidade_comercial"`
	QuantidadeComercial      string `json:"quantidade_comercial"`
	ValorUnitarioComercial   string `json:"valor_unitario_comercial"`
	ValorBruto               string `json:"valor_bruto"`
	ValorDesconto            string `json:"valor_desconto,omitempty"`
	IncluiNoTotal            int    `json:"inclui_no_total"`
	ICMSOrigem               int    `json:"icms_origem"`
	ICMSSituacaoTributaria   string `json:"icms_situacao_tributaria"`
	PISSituacaoTributaria    string `json:"pis_situacao_tributaria"`
	COFINSSituacaoTributaria string `json:"cofins_situacao_tributaria"`
}

// PaymentPayload is a payment of the document
type PaymentPayload struct {
	FormaPagamento string `json:"forma_pagamento"`
	ValorPagamento string `json:"valor_pagamento"`
	ValorTroco     string `json:"troco,omitempty"`
}

// ServicePayload is the body of an NFSe
type ServicePayload struct {
	DataEmissao string          `json:"data_emissao"`
	Prestador   ProviderPayload `json:"prestador"`
	Tomador     TakerPayload    `json:"tomador"`
	Servico     ServiceDetail   `json:"servico"`
}

// ProviderPayload identifies the company providing the service
type ProviderPayload struct {
	CNPJ               string `json:"cnpj"`
	InscricaoMunicipal string `json:"inscricao_municipal,omitempty"`
	CodigoMunicipio    string `json:"codigo_municipio"`
}

// TakerPayload identifies the service taker
type TakerPayload struct {
	CPF         string `json:"cpf,omitempty"`
	CNPJ        string `json:"cnpj,omitempty"`
	RazaoSocial string `json:"razao_social,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ServiceDetail describes the service and the ISS
type ServiceDetail struct {
	Aliquota         string `json:"aliquota"`
	Discriminacao    string `json:"discriminacao"`
	ItemListaServico string `json:"item_lista_servico"`
	ValorServicos    string `json:"valor_servicos"`
	CodigoMunicipio  string `json:"codigo_municipio"`
	ISSRetido        bool   `json:"iss_retido"`
}

const defaultTaxCode = "102"

// BuildProductPayload assembles the NFCe/NFe body of a completed sale
func BuildProductPayload(comp *company.Company, doc *fiscal.Document, s *sale.Sale, issuedAt time.Time) ProductPayload {
	p := ProductPayload{
		NaturezaOperacao:  "Venda ao consumidor",
		DataEmissao:       issuedAt.Format(time.RFC3339),
		TipoDocumento:     1,
		FinalidadeEmissao: 1,
		ConsumidorFinal:   1,
		PresencaComprador: 1,
		Serie:             doc.Series,
		Numero:            doc.Number,
		CNPJEmitente:      comp.CNPJ,
		InscricaoEstadual: comp.StateRegistration,
		NomeDestinatario:  doc.RecipientName,
		ModalidadeFrete:   9,
		ValorProdutos:     money(s.Subtotal),
		ValorDesconto:     money(s.Discount),
		ValorTotal:        money(s.Total),
		Items:             make([]ItemPayload, 0, len(s.Items)),
		FormasPagamento:   make([]PaymentPayload, 0, len(s.Payments)),
	}
	if doc.Type == fiscal.TypeNFe {
		p.NaturezaOperacao = "Venda de mercadoria"
		p.IndicadorIEDest = 9
	}
	switch len(doc.RecipientDocument) {
	case 11:
		p.CPFDestinatario = doc.RecipientDocument
	case 14:
		p.CNPJDestinatario = doc.RecipientDocument
	}
	if s.Notes != "" {
		p.InformacoesFisco = s.Notes
	}

	discounts := spreadDiscount(s)
	for i, it := range s.Items {
		taxCode := it.TaxCode
		if taxCode == "" {
			taxCode = defaultTaxCode
		}
		item := ItemPayload{
			NumeroItem:               it.LineNumber,
			CodigoProduto:            it.ProductCode,
			CodigoBarras:             it.Barcode,
			Descricao:                it.ProductName,
			CFOP:                     it.CFOP,
			CodigoNCM:                it.NCM,
			UnidadeComercial:         it.Unit,
			QuantidadeComercial:      it.Quantity.StringFixed(3),
			ValorUnitarioComercial:   money(it.UnitPrice),
			ValorBruto:               money(it.Quantity.Mul(it.UnitPrice).Round(2)),
			IncluiNoTotal:            1,
			ICMSOrigem:               it.Origin,
			ICMSSituacaoTributaria:   taxCode,
			PISSituacaoTributaria:    "07",
			COFINSSituacaoTributaria: "07",
		}
		if d := it.Discount.Add(discounts[i]); d.IsPositive() {
			item.ValorDesconto = money(d)
		}
		p.Items = append(p.Items, item)
	}

	for _, pay := range s.Payments {
		entry := PaymentPayload{
			FormaPagamento: pay.Method.FiscalCode(),
			ValorPagamento: money(pay.Amount),
		}
		p.FormasPagamento = append(p.FormasPagamento, entry)
	}
	if s.Change.IsPositive() {
		for i := range p.FormasPagamento {
			if s.Payments[i].Method == sale.MethodCash {
				p.FormasPagamento[i].ValorTroco = money(s.Change)
				break
			}
		}
	}
	return p
}

// spreadDiscount distributes the sale level discount over the items
// proportionally to their totals; the rounding remainder goes to the last item
func spreadDiscount(s *sale.Sale) []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.Items))
	for i := range out {
		out[i] = decimal.Zero
	}
	if !s.Discount.IsPositive() || !s.Subtotal.IsPositive() || len(s.Items) == 0 {
		return out
	}
	assigned := decimal.Zero
	last := len(s.Items) - 1
	for i, it := range s.Items[:last] {
		share := s.Discount.Mul(it.Total).Div(s.Subtotal).Round(2)
		out[i] = share
		assigned = assigned.Add(share)
	}
	out[last] = s.Discount.Sub(assigned)
	return out
}

// BuildServicePayload assembles the NFSe body
func BuildServicePayload(comp *company.Company, doc *fiscal.Document, email string, issuedAt time.Time) ServicePayload {
	p := ServicePayload{
		DataEmissao: issuedAt.Format(time.RFC3339),
		Prestador: ProviderPayload{
			CNPJ:               comp.CNPJ,
			InscricaoMunicipal: comp.MunicipalRegistration,
			CodigoMunicipio:    comp.Address.CityCode,
		},
		Tomador: TakerPayload{
			RazaoSocial: doc.RecipientName,
			Email:       email,
		},
		Servico: ServiceDetail{
			Aliquota:         doc.Service.ISSRate.StringFixed(2),
			Discriminacao:    doc.Service.Description,
			ItemListaServico: doc.Service.Code,
			ValorServicos:    money(doc.Total),
			CodigoMunicipio:  comp.Address.CityCode,
		},
	}
	switch len(doc.RecipientDocument) {
	case 11:
		p.Tomador.CPF = doc.RecipientDocument
	case 14:
		p.Tomador.CNPJ = doc.RecipientDocument
	}
	return p
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

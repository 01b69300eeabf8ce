package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/notification"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	printer "github.com/pdv/backend/internal/infrastructure/printing"
	"github.com/pdv/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const (
	receiptLinkExpiry = 24 * time.Hour
	// reminderLeadDays is how early a receivable is reminded before its due date
	reminderLeadDays = 3
)

// ReceiptSource loads the receipt of a sale and its customer
type ReceiptSource interface {
	Load(ctx context.Context, companyID, saleID uuid.UUID) (printer.ReceiptData, error)
	Customer(ctx context.Context, companyID uuid.UUID, sl *sale.Sale) (*customer.Customer, error)
}

// CompanyLookup resolves the sending company
type CompanyLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*company.Company, error)
}

// DeliveryRecorder observes notification outcomes
type DeliveryRecorder interface {
	Notification(channel, status string)
}

// Service sends receipts and reminders to customers and keeps a log
type Service struct {
	notifications notification.Repository
	mailer        notification.Mailer
	whatsapp      notification.WhatsAppSender
	receipts      ReceiptSource
	renderer      printer.PDFRenderer
	storage       storage.ObjectStorage
	bills         bill.BillRepository
	customers     customer.CustomerRepository
	companies     CompanyLookup
	metrics       DeliveryRecorder
	logger        *zap.Logger
	now           func() time.Time
}

// Deps groups the collaborators of the notification service. A nil Mailer or
// WhatsApp disables the channel.
type Deps struct {
	Notifications notification.Repository
	Mailer        notification.Mailer
	WhatsApp      notification.WhatsAppSender
	Receipts      ReceiptSource
	Renderer      printer.PDFRenderer
	Storage       storage.ObjectStorage
	Bills         bill.BillRepository
	Customers     customer.CustomerRepository
	Companies     CompanyLookup
	Metrics       DeliveryRecorder
}

// NewService creates a new notification service
func NewService(deps Deps, logger *zap.Logger) *Service {
	renderer := deps.Renderer
	if renderer == nil {
		renderer = printer.NoopRenderer{}
	}
	return &Service{
		notifications: deps.Notifications,
		mailer:        deps.Mailer,
		whatsapp:      deps.WhatsApp,
		receipts:      deps.Receipts,
		renderer:      renderer,
		storage:       deps.Storage,
		bills:         deps.Bills,
		customers:     deps.Customers,
		companies:     deps.Companies,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// SendSaleReceipt sends the receipt of a completed sale by email (HTML body
// with the PDF attached) or WhatsApp (PDF link, or text when no PDF can be
// rendered)
func (s *Service) SendSaleReceipt(ctx context.Context, companyID, userID, saleID uuid.UUID, req SendReceiptRequest) (*NotificationResponse, error) {
	channel := notification.Channel(req.Channel)
	if err := s.channelEnabled(channel); err != nil {
		return nil, err
	}
	data, err := s.receipts.Load(ctx, companyID, saleID)
	if err != nil {
		return nil, err
	}
	if data.Sale.Status != sale.StatusCompleted {
		return nil, shared.NewDomainError("SALE_NOT_COMPLETED", "Only completed sales have a receipt")
	}

	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		c, err := s.receipts.Customer(ctx, companyID, data.Sale)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		recipient = contactOf(c, channel)
	}
	if recipient == "" {
		return nil, shared.NewDomainError("RECIPIENT_REQUIRED", "No recipient was given and the customer has no contact for this channel")
	}

	name := companyName(data.Company)
	subject := fmt.Sprintf("%s - Cupom %06d", name, data.Sale.Number)
	text := receiptText(data)
	n, err := notification.New(companyID, channel, recipient, subject, text, notification.RefSale, &saleID)
	if err != nil {
		return nil, err
	}
	if userID != uuid.Nil {
		n.CreatedBy = &userID
	}

	pdf := s.renderPDF(ctx, data)
	var providerID string
	switch channel {
	case notification.ChannelEmail:
		providerID, err = s.sendReceiptEmail(ctx, n, data, pdf)
	case notification.ChannelWhatsApp:
		providerID, err = s.sendReceiptWhatsApp(ctx, n, data, pdf)
	}
	return s.record(ctx, n, providerID, err)
}

// SendBillReminder sends a payment reminder for an open receivable
func (s *Service) SendBillReminder(ctx context.Context, companyID, userID, billID uuid.UUID) (*NotificationResponse, error) {
	b, err := s.bills.FindByIDForCompany(ctx, companyID, billID)
	if err != nil {
		return nil, err
	}
	n, err := s.remind(ctx, b, userID)
	if err != nil {
		return nil, err
	}
	resp := ToNotificationResponse(n)
	if n.Status == notification.StatusFailed {
		return &resp, shared.NewDomainError("NOTIFICATION_FAILED", n.Error)
	}
	return &resp, nil
}

// RemindDue reminds the customers of receivables due within the next days.
// It is run by the scheduler and returns how many reminders were sent.
func (s *Service) RemindDue(ctx context.Context, limit int) (int, error) {
	if s.mailer == nil && s.whatsapp == nil {
		return 0, nil
	}
	dueBy := shared.StartOfDay(s.now()).AddDate(0, 0, reminderLeadDays)
	bills, err := s.bills.FindDueForReminder(ctx, dueBy, limit)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range bills {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		n, err := s.remind(ctx, &bills[i], uuid.Nil)
		if err != nil {
			s.logger.Debug("Bill reminder skipped", zap.String("bill_id", bills[i].ID.String()), zap.Error(err))
			continue
		}
		if n.Status == notification.StatusSent {
			sent++
		}
	}
	if len(bills) > 0 {
		s.logger.Info("Bill reminders processed", zap.Int("due", len(bills)), zap.Int("sent", sent))
	}
	return sent, nil
}

// List returns the notification log of a company
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter NotificationListFilter) ([]NotificationResponse, int64, error) {
	nf := notification.Filter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
		},
		Channel:     notification.Channel(filter.Channel),
		Status:      notification.Status(filter.Status),
		ReferenceID: filter.ReferenceID,
	}
	items, total, err := s.notifications.FindAllForCompany(ctx, companyID, nf)
	if err != nil {
		return nil, 0, err
	}
	out := make([]NotificationResponse, len(items))
	for i := range items {
		out[i] = ToNotificationResponse(&items[i])
	}
	return out, total, nil
}

func (s *Service) channelEnabled(channel notification.Channel) error {
	switch {
	case !channel.IsValid():
		return shared.NewDomainError("INVALID_CHANNEL", "Channel must be whatsapp or email")
	case channel == notification.ChannelEmail && s.mailer == nil:
		return shared.NewDomainError("CHANNEL_DISABLED", "Email delivery is not configured")
	case channel == notification.ChannelWhatsApp && s.whatsapp == nil:
		return shared.NewDomainError("CHANNEL_DISABLED", "WhatsApp delivery is not configured")
	}
	return nil
}

// remind sends a reminder for b through WhatsApp when possible, email otherwise,
// and marks the bill as reminded once sent
func (s *Service) remind(ctx context.Context, b *bill.Bill, userID uuid.UUID) (*notification.Notification, error) {
	if b.Type != bill.TypeReceivable || !b.IsOpen() {
		return nil, shared.NewDomainError("INVALID_STATE", "Only open receivables can be reminded")
	}
	if b.CustomerID == nil {
		return nil, shared.NewDomainError("RECIPIENT_REQUIRED", "Bill has no customer")
	}
	c, err := s.customers.FindByIDForCompany(ctx, b.CompanyID, *b.CustomerID)
	if err != nil {
		return nil, err
	}
	comp, err := s.companies.Lookup(ctx, b.CompanyID)
	if err != nil {
		return nil, err
	}

	channel := notification.ChannelWhatsApp
	recipient := ""
	if s.whatsapp != nil {
		recipient = contactOf(c, notification.ChannelWhatsApp)
	}
	if recipient == "" && s.mailer != nil {
		channel, recipient = notification.ChannelEmail, contactOf(c, notification.ChannelEmail)
	}
	if recipient == "" {
		return nil, shared.NewDomainError("RECIPIENT_REQUIRED", "Customer has no contact for an enabled channel")
	}

	subject := fmt.Sprintf("%s - Lembrete de pagamento", companyName(comp))
	body := reminderText(comp, c, b, s.now())
	n, err := notification.New(b.CompanyID, channel, recipient, subject, body, notification.RefBill, &b.ID)
	if err != nil {
		return nil, err
	}
	if userID != uuid.Nil {
		n.CreatedBy = &userID
	}

	var providerID string
	if channel == notification.ChannelWhatsApp {
		providerID, err = s.whatsapp.SendText(ctx, n.Recipient, body)
	} else {
		err = s.mailer.Send(ctx, notification.Email{
			To:      n.Recipient,
			Subject: subject,
			HTML:    "<p>" + strings.ReplaceAll(htmlEscape(body), "\n", "<br>") + "</p>",
		})
	}
	if _, recErr := s.record(ctx, n, providerID, err); recErr != nil {
		var de *shared.DomainError
		if !errors.As(recErr, &de) {
			return nil, recErr
		}
	}
	if n.Status == notification.StatusSent {
		b.MarkReminded(s.now())
		if err := s.bills.Save(ctx, b); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (s *Service) sendReceiptEmail(ctx context.Context, n *notification.Notification, data printer.ReceiptData, pdf []byte) (string, error) {
	html, err := printer.RenderReceiptHTML(data)
	if err != nil {
		return "", err
	}
	msg := notification.Email{To: n.Recipient, Subject: n.Subject, HTML: html}
	if pdf != nil {
		msg.Attachments = []notification.Attachment{{
			Name:        receiptFileName(data.Sale),
			ContentType: "application/pdf",
			Data:        pdf,
		}}
	}
	return "", s.mailer.Send(ctx, msg)
}

func (s *Service) sendReceiptWhatsApp(ctx context.Context, n *notification.Notification, data printer.ReceiptData, pdf []byte) (string, error) {
	if pdf != nil && s.storage != nil {
		key := storage.Key(data.Sale.CompanyID, storage.KindReceiptPDF, data.Sale.ID, receiptFileName(data.Sale))
		if err := s.storage.Upload(ctx, key, pdf, "application/pdf"); err == nil {
			if link, _, err := s.storage.PresignDownload(ctx, key, receiptLinkExpiry); err == nil {
				return s.whatsapp.SendDocument(ctx, n.Recipient, link, receiptFileName(data.Sale), n.Subject)
			}
		} else {
			s.logger.Warn("Failed to store receipt PDF, sending text", zap.String("sale_id", data.Sale.ID.String()), zap.Error(err))
		}
	}
	return s.whatsapp.SendText(ctx, n.Recipient, n.Body)
}

// renderPDF returns nil when rendering is disabled or fails; receipts are then
// sent without the PDF
func (s *Service) renderPDF(ctx context.Context, data printer.ReceiptData) []byte {
	html, err := printer.RenderReceiptHTML(data)
	if err != nil {
		s.logger.Warn("Failed to render receipt HTML", zap.Error(err))
		return nil
	}
	res, err := s.renderer.Render(ctx, &printer.RenderRequest{
		HTML:         html,
		Title:        fmt.Sprintf("Cupom %06d", data.Sale.Number),
		PaperWidthMM: 80,
		MarginMM:     2,
	})
	if err != nil {
		if !printer.IsDisabled(err) {
			s.logger.Warn("Failed to render receipt PDF", zap.String("sale_id", data.Sale.ID.String()), zap.Error(err))
		}
		return nil
	}
	return res.PDFData
}

// record stores the delivery outcome. A failed delivery is logged and
// returned as NOTIFICATION_FAILED.
func (s *Service) record(ctx context.Context, n *notification.Notification, providerID string, sendErr error) (*NotificationResponse, error) {
	if sendErr != nil {
		n.MarkFailed(sendErr)
		s.logger.Warn("Notification failed",
			zap.String("channel", string(n.Channel)),
			zap.String("reference", n.ReferenceType),
			zap.Error(sendErr))
	} else {
		n.MarkSent(providerID)
	}
	if s.metrics != nil {
		s.metrics.Notification(string(n.Channel), string(n.Status))
	}
	if err := s.notifications.Save(ctx, n); err != nil {
		return nil, err
	}
	if sendErr != nil {
		return nil, shared.WrapDomainError("NOTIFICATION_FAILED", "The message could not be delivered", sendErr)
	}
	resp := ToNotificationResponse(n)
	return &resp, nil
}

func contactOf(c *customer.Customer, channel notification.Channel) string {
	if c == nil {
		return ""
	}
	if channel == notification.ChannelEmail {
		return c.Email
	}
	return c.WhatsAppNumber()
}

func companyName(c *company.Company) string {
	if c.TradeName != "" {
		return c.TradeName
	}
	return c.Name
}

func receiptFileName(sl *sale.Sale) string {
	return fmt.Sprintf("cupom-%06d.pdf", sl.Number)
}

func receiptText(d printer.ReceiptData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nCupom nº %06d\n\n", companyName(d.Company), d.Sale.Number)
	for _, it := range d.Sale.Items {
		fmt.Fprintf(&b, "%s x %s  %s\n", printer.FormatQuantity(it.Quantity), it.ProductName, printer.FormatBRL(it.Total))
	}
	if d.Sale.Discount.IsPositive() {
		fmt.Fprintf(&b, "Desconto: -%s\n", printer.FormatBRL(d.Sale.Discount))
	}
	fmt.Fprintf(&b, "Total: %s\n", printer.FormatBRL(d.Sale.Total))
	if d.Fiscal != nil && d.Fiscal.AccessKey != "" {
		fmt.Fprintf(&b, "\nNFC-e %d série %d\nChave: %s\n", d.Fiscal.Number, d.Fiscal.Series, printer.GroupDigits(d.Fiscal.AccessKey))
		if d.Fiscal.QRCodeURL != "" {
			b.WriteString("Consulta: " + d.Fiscal.QRCodeURL + "\n")
		}
	}
	b.WriteString("\nObrigado pela preferência!")
	return b.String()
}

func reminderText(comp *company.Company, c *customer.Customer, b *bill.Bill, now time.Time) string {
	parcel := b.Description
	if b.TotalInstallments > 1 && !strings.Contains(parcel, "/") {
		parcel = fmt.Sprintf("%s (%d/%d)", parcel, b.Installment, b.TotalInstallments)
	}
	due := b.DueDate.Format("02/01/2006")
	verb := "vence em"
	if b.IsOverdue(now) {
		verb = "venceu em"
	}
	first := strings.Fields(c.Name)
	greeting := "Olá"
	if len(first) > 0 {
		greeting += " " + first[0]
	}
	return fmt.Sprintf("%s! A %s informa que a parcela \"%s\" no valor de %s %s %s.\nEm caso de dúvidas, responda esta mensagem.",
		greeting, companyName(comp), parcel, printer.FormatBRL(b.Balance()), verb, due)
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}

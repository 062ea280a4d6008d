package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// NotificationSender delivers customer emails about an order.
type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendManualPaymentInstructions(ctx context.Context, order *models.Order, manual models.ManualPayment) error
}

var (
	_ NotificationSender = (*SMTPNotifier)(nil)
	_ NotificationSender = (*LogNotifier)(nil)
)

// NewNotificationSender returns an SMTP sender when email is configured and a
// log-only sender otherwise.
func NewNotificationSender(cfg config.EmailConfig, logger *logging.Logger) NotificationSender {
	if !cfg.Configured() {
		logger.Warn("SMTP is not fully configured, emails will only be logged")
		return NewLogNotifier(logger)
	}
	return NewSMTPNotifier(cfg, logger)
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`
<h2>Order Confirmation</h2>
<p>Hi {{.Order.CustomerName}},</p>
<p>Your payment has been confirmed. Here are the details:</p>
<ul>
  <li><strong>Order ID:</strong> {{.Order.ID}}</li>
  <li><strong>Status:</strong> {{.Order.Status}}</li>
  <li><strong>Payment Method:</strong> {{.PaymentMethod}}</li>
  <li><strong>Total:</strong> {{.Total}}</li>
</ul>
<p>We will ship your order soon. Estimated delivery within 5-7 business days.</p>
<p>Thank you,<br/>{{.ShopName}}</p>
`))

var manualTemplate = template.Must(template.New("manual").Parse(`
<h2>Complete Your Payment</h2>
<p>Hi {{.Order.CustomerName}},</p>
<p>We reserved your order <strong>{{.Order.ID}}</strong>. Please complete payment using the QR details below and email us the receipt.</p>
<p>{{.Manual.Instructions}}</p>
{{if .Manual.QRImageURL}}<p><img src="{{.Manual.QRImageURL}}" alt="Payment QR" style="max-width:280px"/></p>{{end}}
<p>Once paid, send the receipt to <a href="mailto:{{.Manual.PaymentEmail}}">{{.Manual.PaymentEmail}}</a> with your order ID in the subject line.</p>
<p>Thank you,<br/>{{.ShopName}}</p>
`))

type emailData struct {
	Order         *models.Order
	Manual        models.ManualPayment
	PaymentMethod string
	Total         string
	ShopName      string
}

type mailSender func(ctx context.Context, to string, msg []byte) error

// SMTPNotifier sends HTML email over SMTP. Port 465 uses implicit TLS; other
// ports upgrade with STARTTLS when the server offers it.
type SMTPNotifier struct {
	cfg    config.EmailConfig
	logger *logging.Logger
	send   mailSender
}

func NewSMTPNotifier(cfg config.EmailConfig, logger *logging.Logger) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg, logger: logger}
	n.send = n.dialAndSend
	return n
}

// SendOrderConfirmation emails the paid confirmation.
func (n *SMTPNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	method := models.Deref(order.PaymentMethod)
	if method == "" {
		method = "N/A"
	}
	body, err := render(confirmationTemplate, emailData{
		Order:         order,
		PaymentMethod: method,
		Total:         FormatMoney(order.Total, order.Currency),
		ShopName:      n.cfg.ShopName,
	})
	if err != nil {
		return err
	}
	return n.deliver(ctx, order, fmt.Sprintf("Order %s confirmed", order.ID), body)
}

// SendManualPaymentInstructions emails how to pay without the gateway.
func (n *SMTPNotifier) SendManualPaymentInstructions(ctx context.Context, order *models.Order, manual models.ManualPayment) error {
	if manual.PaymentEmail == "" {
		manual.PaymentEmail = n.cfg.From
	}
	body, err := render(manualTemplate, emailData{
		Order:    order,
		Manual:   manual,
		ShopName: n.cfg.ShopName,
	})
	if err != nil {
		return err
	}
	return n.deliver(ctx, order, fmt.Sprintf("Payment instructions for order %s", order.ID), body)
}

func (n *SMTPNotifier) deliver(ctx context.Context, order *models.Order, subject, body string) error {
	msg := buildMessage(n.cfg.From, order.Email, subject, body)
	if err := n.send(ctx, order.Email, msg); err != nil {
		n.logger.Error("Failed to send email", logging.Fields{
			"order_id": order.ID,
			"subject":  subject,
			"error":    err.Error(),
		})
		return err
	}
	n.logger.Info("Email sent", logging.Fields{
		"order_id": order.ID,
		"subject":  subject,
	})
	return nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	tlsConfig := &tls.Config{ServerName: n.cfg.Host}

	var conn net.Conn
	var err error
	if n.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if n.cfg.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(n.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// LogNotifier only logs what would have been sent.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	n.logger.Info("Skipping order confirmation email (SMTP not configured)", logging.Fields{
		"order_id": order.ID,
		"email":    order.Email,
	})
	return nil
}

func (n *LogNotifier) SendManualPaymentInstructions(ctx context.Context, order *models.Order, manual models.ManualPayment) error {
	n.logger.Info("Skipping manual payment email (SMTP not configured)", logging.Fields{
		"order_id": order.ID,
		"email":    order.Email,
	})
	return nil
}

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

// FormatMoney renders a whole-unit amount with thousands separators, e.g.
// ₱1,998.00 for PHP.
func FormatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}
	symbol := currency + " "
	if currency == "" || currency == "PHP" {
		symbol = "₱"
	}
	return sign + symbol + grouped.String() + ".00"
}

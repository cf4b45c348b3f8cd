package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

// MoneyFormatter renders amounts in a fixed currency using locale digit grouping.
type MoneyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
	scale   int
}

// NewMoneyFormatter parses a BCP 47 locale and an ISO 4217 currency code.
func NewMoneyFormatter(locale, code string) (MoneyFormatter, error) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return MoneyFormatter{}, fmt.Errorf("money formatter: invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return MoneyFormatter{}, fmt.Errorf("money formatter: invalid currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return MoneyFormatter{printer: message.NewPrinter(tag), unit: unit, scale: scale}, nil
}

// Format renders the amount with the currency symbol.
func (f MoneyFormatter) Format(amount decimal.Decimal) string {
	if f.printer == nil {
		return amount.StringFixed(2)
	}
	value := number.Decimal(amount.Round(int32(f.scale)).InexactFloat64(), number.Scale(f.scale))
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(value)))
}

// MailComposer renders mail jobs into subject, HTML and plain text bodies.
type MailComposer struct {
	storeName string
	money     MoneyFormatter
	html      *template.Template
	text      *texttemplate.Template
}

type mailView struct {
	StoreName string
	Heading   string
	Intro     string
	Order     MailOrder
}

const orderEmailHTML = `<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#1f2933">
<h2>{{.Heading}}</h2>
<p>{{.Intro}}</p>
<p><strong>Order:</strong> {{.Order.Number}}<br>
<strong>Customer:</strong> {{.Order.CustomerName}} ({{.Order.Email}}{{if .Order.Phone}}, {{.Order.Phone}}{{end}})<br>
<strong>Ship to:</strong> {{.Order.Address}}</p>
<table cellpadding="6" style="border-collapse:collapse">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}{{if .Variant}} ({{.Variant}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .UnitPrice}}</td><td align="right">{{money .LineTotal}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Order.Subtotal}}<br>Shipping: {{money .Order.ShippingFee}}<br><strong>Total: {{money .Order.Total}}</strong></p>
{{if .Order.Notes}}<p><em>Notes:</em> {{.Order.Notes}}</p>{{end}}
<p>{{.StoreName}}</p>
</body></html>`

const orderEmailText = `{{.Heading}}

{{.Intro}}

Order: {{.Order.Number}}
Customer: {{.Order.CustomerName}} <{{.Order.Email}}>
Ship to: {{.Order.Address}}
{{range .Order.Items}}
- {{.Name}}{{if .Variant}} ({{.Variant}}){{end}} x{{.Quantity}}: {{money .LineTotal}}{{end}}

Subtotal: {{money .Order.Subtotal}}
Shipping: {{money .Order.ShippingFee}}
Total: {{money .Order.Total}}
{{if .Order.Notes}}
Notes: {{.Order.Notes}}
{{end}}
{{.StoreName}}
`

// NewMailComposer parses the order templates.
func NewMailComposer(storeName string, money MoneyFormatter) (*MailComposer, error) {
	funcs := map[string]any{"money": money.Format}

	htmlTmpl, err := template.New("order_html").Funcs(template.FuncMap(funcs)).Parse(orderEmailHTML)
	if err != nil {
		return nil, fmt.Errorf("mail composer: parse html template: %w", err)
	}
	textTmpl, err := texttemplate.New("order_text").Funcs(texttemplate.FuncMap(funcs)).Parse(orderEmailText)
	if err != nil {
		return nil, fmt.Errorf("mail composer: parse text template: %w", err)
	}

	storeName = strings.TrimSpace(storeName)
	if storeName == "" {
		storeName = "Store"
	}
	return &MailComposer{storeName: storeName, money: money, html: htmlTmpl, text: textTmpl}, nil
}

// Compose renders the job. The returned message has no sender set.
func (c *MailComposer) Compose(job MailJob) (MailMessage, error) {
	view := mailView{StoreName: c.storeName, Order: job.Order}

	switch job.Kind {
	case MailKindOrderStatus:
		wording := customerStatusCopy(job.Order.Number, domain.OrderStatus(job.Order.Status))
		view.Heading = wording.Title
		view.Intro = wording.Message
	case MailKindAdminNewOrder:
		wording := adminNewOrderCopy(job.Order.Number, job.Order.CustomerName, c.money.Format(job.Order.Total))
		view.Heading = wording.Title
		view.Intro = wording.Message
	default:
		return MailMessage{}, fmt.Errorf("mail composer: unknown kind %q", job.Kind)
	}

	var htmlBody, textBody bytes.Buffer
	if err := c.html.Execute(&htmlBody, view); err != nil {
		return MailMessage{}, fmt.Errorf("mail composer: render html: %w", err)
	}
	if err := c.text.Execute(&textBody, view); err != nil {
		return MailMessage{}, fmt.Errorf("mail composer: render text: %w", err)
	}

	return MailMessage{
		To:      append([]string(nil), job.Recipients...),
		Subject: fmt.Sprintf("[%s] %s - %s", c.storeName, view.Heading, job.Order.Number),
		HTML:    htmlBody.String(),
		Text:    textBody.String(),
	}, nil
}

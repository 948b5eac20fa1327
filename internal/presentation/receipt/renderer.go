package receipt

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
)

const (
	businessName    = "Thika Meat Centre"
	businessTagline = "Quality Meat Products"
	businessAddress = "P.O. Box 123, Thika, Kenya"
	businessPhone   = "Tel: +254 712 345 678"
)

// Renderer turns sale records into self-contained printable documents.
// Successful receipts list line items; failure receipts carry the reason and
// no items, since no goods changed hands.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("receipt").Funcs(template.FuncMap{
		"money": func(v int64) string { return fmt.Sprintf("KSh %d", v) },
	}).Parse(receiptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the receipt document for a record.
func (r *Renderer) Render(record *sale.Record) (string, error) {
	var b strings.Builder
	if err := r.tmpl.Execute(&b, view{
		Business: businessName,
		Tagline:  businessTagline,
		Address:  businessAddress,
		Phone:    businessPhone,
		Record:   record,
	}); err != nil {
		return "", fmt.Errorf("render receipt %s: %w", record.ReceiptNumber, err)
	}
	return b.String(), nil
}

type view struct {
	Business string
	Tagline  string
	Address  string
	Phone    string
	Record   *sale.Record
}

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.Record.ReceiptNumber}}</title>
<style>
body { font-family: monospace; max-width: 420px; margin: 0 auto; padding: 16px; }
h1 { font-size: 1.2em; text-align: center; margin-bottom: 0; }
.meta { text-align: center; margin-bottom: 12px; }
.banner { text-align: center; font-weight: bold; padding: 6px; border: 1px dashed #000; margin: 10px 0; }
table { width: 100%; border-collapse: collapse; }
td, th { text-align: left; padding: 2px 4px; }
td.amount, th.amount { text-align: right; }
.total { border-top: 1px solid #000; font-weight: bold; }
.footer { text-align: center; margin-top: 14px; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.Business}}</h1>
<div class="meta">{{.Tagline}}<br>{{.Address}}<br>{{.Phone}}</div>
<div class="meta">
Receipt: {{.Record.ReceiptNumber}}<br>
Date: {{.Record.CompletedAt.Format "2006-01-02 15:04:05"}}<br>
Served by: {{.Record.StaffName}}{{if .Record.CustomerName}}<br>Customer: {{.Record.CustomerName}}{{end}}
</div>
{{if .Record.Succeeded}}
<div class="banner">PAYMENT SUCCESSFUL</div>
<table>
<tr><th>Item</th><th class="amount">Qty</th><th class="amount">Price</th><th class="amount">Total</th></tr>
{{range .Record.Lines}}
<tr><td>{{.Name}}</td><td class="amount">{{.Quantity}} {{.Unit}}</td><td class="amount">{{money .UnitPrice}}</td><td class="amount">{{money .Total}}</td></tr>
{{end}}
<tr class="total"><td colspan="3">TOTAL</td><td class="amount">{{money .Record.Total}}</td></tr>
</table>
{{else}}
<div class="banner">PAYMENT FAILED</div>
<table>
<tr><td>Amount</td><td class="amount">{{money .Record.Total}}</td></tr>
<tr><td>Reason</td><td class="amount">{{.Record.FailureReason}}</td></tr>
</table>
{{end}}
<div class="meta">
Paid via: {{.Record.Method}}{{if .Record.PaymentReference}}<br>Ref: {{.Record.PaymentReference}}{{end}}
</div>
<div class="footer">Thank you for shopping with us!</div>
</body>
</html>
`

package notify

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"money": func(v decimal.Decimal) string { return "$" + v.StringFixed(2) },
	"na":    orNA,
}).Parse(`Hello {{ .Greeting }},

Thank you for your order! Your order has been received and is being processed.

Order Details:
--------------
Order Number: #{{ .Order.ID }}
Order Date: {{ .Order.CreatedAt.Format "January 02, 2006 at 03:04 PM" }}
Status: {{ .StatusLabel }}

Items Ordered:
{{ range .Order.Items }}  - {{ .Name }} x {{ .Quantity }} = {{ money .LineTotal }}
{{ end }}
Order Summary:
--------------
Subtotal: {{ money .Order.TotalPrice }}
{{- if .Order.HasDiscount }}
Discount ({{ .Order.DiscountPercentage.String }}%): -{{ money .Order.DiscountAmount }}
{{- end }}
Total: {{ money .Order.DiscountedTotal }}

Shipping Address:
-----------------
{{ na .Order.Shipping.Name }}
{{ na .Order.Shipping.Address }}
{{ na .Order.Shipping.City }}
Phone: {{ na .Order.Shipping.Phone }}

You can track your order status by logging into your account.

Thank you for shopping with us!
`))

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// RenderOrderConfirmation builds the confirmation mail sent after checkout.
func RenderOrderConfirmation(o order.Order) (Message, error) {
	greeting := o.Shipping.Name
	if greeting == "" {
		greeting = o.UserID
	}

	var b strings.Builder
	err := confirmationTmpl.Execute(&b, struct {
		Greeting    string
		StatusLabel string
		Order       order.Order
	}{
		Greeting:    greeting,
		StatusLabel: statusLabel(o.Status),
		Order:       o,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}

	return Message{
		To:      o.UserID,
		Subject: fmt.Sprintf("Order Confirmation - Order #%d", o.ID),
		Body:    b.String(),
	}, nil
}

func statusLabel(s order.Status) string {
	words := strings.Split(s.String(), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

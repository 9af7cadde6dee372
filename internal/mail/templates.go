package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"shop-backend/internal/domain"
)

// FmtILS renders a whole-shekel amount the way the storefront shows prices.
func FmtILS(n float64) string {
	return fmt.Sprintf("%.0f₪", n)
}

var tmplFuncs = template.FuncMap{
	"ils": FmtILS,
	"lineTotal": func(i domain.CartItem) string {
		return FmtILS(i.Price * float64(i.Qty()))
	},
}

var adminTmpl = template.Must(template.New("admin").Funcs(tmplFuncs).Parse(`
<div style="font-family:Arial,Helvetica,sans-serif;line-height:1.45;color:#111;" dir="rtl">
  <h2 style="margin:0 0 10px;">התקבלה הזמנה חדשה ✅</h2>
  <div style="background:#f6f6f6;border-radius:10px;padding:12px 14px;margin:0 0 14px;">
    <div><strong>מספר הזמנה:</strong> {{.OrderID}}</div>
    <div><strong>שם:</strong> {{.Customer.Fullname}}</div>
    <div><strong>טלפון:</strong> {{.Customer.Phone}}</div>
    {{if .Customer.Email}}<div><strong>אימייל:</strong> {{.Customer.Email}}</div>{{end}}
    <div><strong>כתובת:</strong> {{.Address}}</div>
    {{if .Customer.Notes}}<div><strong>הערות:</strong> {{.Customer.Notes}}</div>{{end}}
    <div><strong>סטטוס:</strong> {{.Status}}</div>
  </div>
  <table style="width:100%;border-collapse:collapse;margin:0 0 12px;">
    <thead>
      <tr>
        <th style="text-align:right;padding:6px 8px;border-bottom:2px solid #ddd;">פריט</th>
        <th style="text-align:center;padding:6px 8px;border-bottom:2px solid #ddd;">כמות</th>
        <th style="text-align:left;padding:6px 8px;border-bottom:2px solid #ddd;">סה"כ</th>
      </tr>
    </thead>
    <tbody>
      {{range .Cart}}<tr>
        <td style="padding:6px 8px;border-bottom:1px solid #eee;text-align:right;">{{.Title}}{{if .Size}} ({{.Size}}){{end}}</td>
        <td style="padding:6px 8px;border-bottom:1px solid #eee;text-align:center;">{{.Qty}}</td>
        <td style="padding:6px 8px;border-bottom:1px solid #eee;text-align:left;">{{lineTotal .}}</td>
      </tr>{{end}}
    </tbody>
  </table>
  <div style="line-height:1.8;">
    <div>סכום ביניים: {{ils .Totals.Subtotal}}</div>
    <div>משלוח: {{ils .Totals.Shipping}}</div>
    <div style="font-size:18px;"><strong>לתשלום: {{ils .Totals.Total}}</strong></div>
  </div>
</div>
`))

var customerTmpl = template.Must(template.New("customer").Funcs(tmplFuncs).Parse(`
<div style="font-family:Arial,Helvetica,sans-serif;line-height:1.45;color:#111;" dir="rtl">
  <h2 style="margin:0 0 10px;">אישור הזמנה ✅</h2>
  <div style="margin:0 0 14px;">היי {{.Customer.Fullname}}, תודה על ההזמנה! קיבלנו את התשלום בהצלחה.</div>
  <div style="background:#f6f6f6;border-radius:10px;padding:12px 14px;margin:0 0 14px;">
    <div><strong>מספר הזמנה:</strong> {{.OrderID}}</div>
  </div>
  <table style="width:100%;border-collapse:collapse;margin:0 0 12px;">
    <thead>
      <tr>
        <th style="text-align:right;padding:6px 8px;border-bottom:2px solid #ddd;">פריט</th>
        <th style="text-align:center;padding:6px 8px;border-bottom:2px solid #ddd;">כמות</th>
        <th style="text-align:left;padding:6px 8px;border-bottom:2px solid #ddd;">סה"כ</th>
      </tr>
    </thead>
    <tbody>
      {{range .Cart}}<tr>
        <td style="padding:6px 8px;border-bottom:1px solid #eee;text-align:right;">{{.Title}}{{if .Size}} ({{.Size}}){{end}}</td>
        <td style="padding:6px 8px;border-bottom:1px solid #eee;text-align:center;">{{.Qty}}</td>
        <td style="padding:6px 8px;border-bottom:1px solid #eee;text-align:left;">{{lineTotal .}}</td>
      </tr>{{end}}
    </tbody>
  </table>
  <div style="line-height:1.8;">
    <div>סכום ביניים: {{ils .Totals.Subtotal}}</div>
    <div>משלוח: {{ils .Totals.Shipping}}</div>
    <div style="font-size:18px;"><strong>שולם: {{ils .Totals.Total}}</strong></div>
  </div>
  <div style="margin-top:16px;">שמרנו את ההזמנה במערכת. אם צריך משהו, אפשר לענות למייל הזה.</div>
</div>
`))

type templateData struct {
	OrderID  string
	Status   string
	Customer domain.CustomerDetails
	Cart     []domain.CartItem
	Totals   domain.Totals
	Address  string
}

func newTemplateData(order *domain.Order) templateData {
	cd := order.CustomerDetails
	orderID := order.Payment.OrderID
	if orderID == "" {
		orderID = fmt.Sprintf("%d", order.ID)
	}
	return templateData{
		OrderID:  orderID,
		Status:   order.Status.String(),
		Customer: cd,
		Cart:     order.Cart,
		Totals:   order.Totals,
		Address:  strings.TrimSpace(fmt.Sprintf("%s %s, %s", cd.Street, cd.HouseNumber, cd.City)),
	}
}

// AdminOrderEmail renders the new-order notification sent to the shop owner.
// The recipient address is filled in by the caller.
func AdminOrderEmail(order *domain.Order) (Message, error) {
	data := newTemplateData(order)

	var html bytes.Buffer
	if err := adminTmpl.Execute(&html, data); err != nil {
		return Message{}, err
	}

	return Message{
		ReplyTo: order.CustomerDetails.Email,
		Subject: fmt.Sprintf("הזמנה חדשה %s", data.OrderID),
		Text:    orderText(order, data, "התקבלה הזמנה חדשה:"),
		HTML:    html.String(),
	}, nil
}

// CustomerOrderEmail renders the payment confirmation sent to the buyer.
func CustomerOrderEmail(order *domain.Order) (Message, error) {
	data := newTemplateData(order)

	var html bytes.Buffer
	if err := customerTmpl.Execute(&html, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:      order.CustomerDetails.Email,
		Subject: fmt.Sprintf("אישור הזמנה %s", data.OrderID),
		Text:    orderText(order, data, "תודה על ההזמנה! קיבלנו את התשלום בהצלחה."),
		HTML:    html.String(),
	}, nil
}

func orderText(order *domain.Order, data templateData, heading string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", heading)
	fmt.Fprintf(&b, "מספר הזמנה: %s\n\n", data.OrderID)
	fmt.Fprintf(&b, "[פרטי לקוח]\n")
	fmt.Fprintf(&b, "שם: %s\n", data.Customer.Fullname)
	fmt.Fprintf(&b, "טלפון: %s\n", data.Customer.Phone)
	if data.Customer.Email != "" {
		fmt.Fprintf(&b, "אימייל: %s\n", data.Customer.Email)
	}
	fmt.Fprintf(&b, "כתובת: %s (%s)\n", data.Address, data.Customer.Zip)
	if data.Customer.Notes != "" {
		fmt.Fprintf(&b, "הערות: %s\n", data.Customer.Notes)
	}
	fmt.Fprintf(&b, "\n[פריטים]\n")
	for idx, item := range order.Cart {
		size := item.Size
		if size == "" {
			size = "—"
		}
		fmt.Fprintf(&b, "%d. %s | מידה: %s | כמות: %d | שורה: %s\n",
			idx+1, item.Title, size, item.Qty(), FmtILS(item.Price*float64(item.Qty())))
	}
	fmt.Fprintf(&b, "\nסה\"כ: %s\n", FmtILS(order.Totals.Total))
	return b.String()
}

package domain

import (
	"html/template"
	"strings"
	"time"
)

var documentTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Pedido {{.Reference}}</title>
<style>
  body { font-family: Arial, Helvetica, sans-serif; color: #222; margin: 40px; }
  header { text-align: center; border-bottom: 2px solid #222; padding-bottom: 12px; }
  header h1 { margin: 0; font-size: 22px; }
  header p { margin: 2px 0; font-size: 13px; }
  .meta { margin: 16px 0; font-size: 14px; }
  .meta span { display: block; }
  table { width: 100%; border-collapse: collapse; font-size: 14px; }
  th, td { text-align: left; padding: 6px 4px; border-bottom: 1px solid #ddd; }
  td.num, th.num { text-align: right; }
  .obs { color: #666; font-size: 12px; }
  .total { text-align: right; font-size: 16px; font-weight: bold; margin-top: 12px; }
  .notes { background: #f7f7f7; padding: 10px; margin-top: 16px; font-size: 13px; }
  footer { margin-top: 32px; text-align: center; font-size: 11px; color: #888; }
</style>
</head>
<body>
<header>
  <h1>{{.RestaurantName}}</h1>
  {{if .Address}}<p>{{.Address}}</p>{{end}}
  {{if .Phone}}<p>{{.Phone}}</p>{{end}}
</header>
<div class="meta">
  <span><strong>Pedido:</strong> {{.Reference}}</span>
  <span><strong>Data:</strong> {{.Date}}</span>
  <span><strong>Cliente:</strong> {{.Customer}}</span>
  {{if .CustomerPhone}}<span><strong>Fone:</strong> {{.CustomerPhone}}</span>{{end}}
  {{if .Payment}}<span><strong>Pagamento:</strong> {{.Payment}}</span>{{end}}
</div>
<table>
  <thead>
    <tr><th>Qtd</th><th>Item</th><th class="num">Unit.</th><th class="num">Total</th></tr>
  </thead>
  <tbody>
  {{range .Items}}
    <tr>
      <td>{{.Quantity}}</td>
      <td>{{.Name}}{{if .Observation}}<div class="obs">Obs: {{.Observation}}</div>{{end}}</td>
      <td class="num">R$ {{.UnitPrice}}</td>
      <td class="num">R$ {{.Total}}</td>
    </tr>
  {{end}}
  </tbody>
</table>
<div class="total">Total: R$ {{.Total}}</div>
{{if .Notes}}<div class="notes"><strong>Observações:</strong> {{.Notes}}</div>{{end}}
<footer>Gerado em {{.GeneratedAt}}</footer>
</body>
</html>
`))

type documentItem struct {
	Quantity    int
	Name        string
	Observation string
	UnitPrice   string
	Total       string
}

type documentData struct {
	RestaurantName string
	Address        string
	Phone          string
	Reference      string
	Date           string
	Customer       string
	CustomerPhone  string
	Payment        string
	Items          []documentItem
	Total          string
	Notes          string
	GeneratedAt    string
}

func renderDocument(o Order, r RestaurantProfile, generatedAt time.Time) (string, error) {
	name := r.Name
	if name == "" {
		name = "PEDIDO"
	}

	data := documentData{
		RestaurantName: name,
		Address:        r.Address,
		Phone:          r.Phone,
		Reference:      o.Reference(),
		Date:           o.CreatedAt.Format("02/01/2006 15:04"),
		Customer:       o.CustomerName,
		CustomerPhone:  o.CustomerPhone,
		Payment:        o.PaymentMethod,
		Total:          FormatAmount(o.TotalAmount),
		Notes:          o.Notes,
		GeneratedAt:    generatedAt.Format("02/01/2006 15:04:05"),
	}
	for _, it := range o.Items {
		data.Items = append(data.Items, documentItem{
			Quantity:    it.Quantity,
			Name:        it.Name,
			Observation: it.Observation,
			UnitPrice:   FormatAmount(it.UnitPrice),
			Total:       FormatAmount(it.Total()),
		})
	}

	var sb strings.Builder
	if err := documentTmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

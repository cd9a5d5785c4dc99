package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// ErrBadItems means the items field could not be decoded into a line
// item list. The order cannot be rendered; no partial receipt is
// produced.
var ErrBadItems = errors.New("order items undecodable")

type Order struct {
	ID            string
	RestaurantID  string
	CustomerName  string
	CustomerPhone string
	TotalAmount   decimal.Decimal
	PaymentMethod string
	Notes         string
	CreatedAt     time.Time
	Items         []LineItem
}

// ShortID is the 8-character order reference used on receipts,
// filenames and logs.
func (o Order) ShortID() string {
	if len(o.ID) > 8 {
		return o.ID[:8]
	}
	return o.ID
}

// Reference is the receipt form of the order id.
func (o Order) Reference() string {
	return strings.ToUpper(o.ShortID())
}

type LineItem struct {
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
	Observation string
}

func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type RestaurantProfile struct {
	Name    string
	Address string
	Phone   string
}

// PrinterConfig is the resolved printer settings for one restaurant,
// either the active row from the store or the environment fallback.
type PrinterConfig struct {
	Host    string
	Port    int
	SavePDF bool
	PDFDir  string
	Retries int
	Timeout time.Duration
}

// OrderEvent is the change-feed payload for an inserted order row.
type OrderEvent struct {
	New OrderRecord `json:"new"`
}

// OrderRecord mirrors the orders row as delivered by the feed. Items
// may arrive as a structured array, as a JSON-encoded string, or not
// at all (fetched by order id instead).
type OrderRecord struct {
	ID            string          `json:"id"`
	RestaurantID  string          `json:"restaurant_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         json.RawMessage `json:"items,omitempty"`
}

func NewOrder(rec OrderRecord, items []LineItem) Order {
	return Order{
		ID:            rec.ID,
		RestaurantID:  rec.RestaurantID,
		CustomerName:  rec.CustomerName,
		CustomerPhone: rec.CustomerPhone,
		TotalAmount:   rec.TotalAmount,
		PaymentMethod: rec.PaymentMethod,
		Notes:         rec.Notes,
		CreatedAt:     rec.CreatedAt,
		Items:         items,
	}
}

// rawItem accepts the field aliases seen in checkout payloads. It is
// decoded once at ingress; the rest of the pipeline only sees
// LineItem.
type rawItem struct {
	Name        string           `json:"name"`
	ProductName string           `json:"product_name"`
	Quantity    *int             `json:"quantity"`
	Qty         *int             `json:"qty"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Price       *decimal.Decimal `json:"price"`
	Observation string           `json:"observation"`
}

func (ri rawItem) normalize() LineItem {
	li := LineItem{Name: ri.Name, Observation: ri.Observation}
	if li.Name == "" {
		li.Name = ri.ProductName
	}

	qty := 0
	if ri.Quantity != nil {
		qty = *ri.Quantity
	}
	if qty == 0 && ri.Qty != nil {
		qty = *ri.Qty
	}
	if qty == 0 {
		qty = 1
	}
	li.Quantity = qty

	switch {
	case ri.UnitPrice != nil:
		li.UnitPrice = *ri.UnitPrice
	case ri.Price != nil:
		li.UnitPrice = *ri.Price
	default:
		li.UnitPrice = decimal.Zero
	}
	return li
}

// DecodeItems turns the items field into canonical line items. The
// field is accepted either as a structured array or as a JSON-encoded
// string holding one (a single extra decode step, never more).
func DecodeItems(raw json.RawMessage) ([]LineItem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var rs []rawItem
	if err := json.Unmarshal(raw, &rs); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadItems, err)
		}
		if err := json.Unmarshal([]byte(s), &rs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadItems, err)
		}
	}

	items := make([]LineItem, 0, len(rs))
	for _, r := range rs {
		items = append(items, r.normalize())
	}
	return items, nil
}

package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ESC/POS control sequences understood by the kitchen printers.
var (
	escInit        = []byte{0x1B, 0x40}
	escAlignLeft   = []byte{0x1B, 0x61, 0x00}
	escAlignCenter = []byte{0x1B, 0x61, 0x01}
	escBoldOn      = []byte{0x1B, 0x45, 0x01}
	escBoldOff     = []byte{0x1B, 0x45, 0x00}
	escCut         = []byte{0x1D, 0x56, 0x00}
)

// 58mm paper, 32 columns.
var separator = strings.Repeat("-", 32) + "\n"

// Receipt holds the two parallel renderings of one order snapshot:
// the ESC/POS byte stream for the thermal printer and the HTML
// document for PDF capture. Both are derived from the same
// order+restaurant read; the render is all-or-nothing.
type Receipt struct {
	Bytes    []byte
	Document string
}

// BuildReceipt is pure: no I/O, no state. generatedAt only appears in
// the document footer.
func BuildReceipt(o Order, r RestaurantProfile, generatedAt time.Time) (Receipt, error) {
	doc, err := renderDocument(o, r, generatedAt)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Bytes: renderBytes(o, r), Document: doc}, nil
}

func renderBytes(o Order, r RestaurantProfile) []byte {
	var b bytes.Buffer

	name := r.Name
	if name == "" {
		name = "PEDIDO"
	}

	b.Write(escInit)
	b.Write(escAlignCenter)
	b.Write(escBoldOn)
	writeLatin1(&b, strings.ToUpper(name)+"\n")
	b.Write(escBoldOff)
	if r.Address != "" {
		writeLatin1(&b, r.Address+"\n")
	}
	if r.Phone != "" {
		writeLatin1(&b, r.Phone+"\n")
	}

	b.Write(escAlignLeft)
	writeLatin1(&b, separator)

	b.Write(escBoldOn)
	writeLatin1(&b, "Pedido: "+o.Reference()+"\n")
	b.Write(escBoldOff)
	writeLatin1(&b, o.CreatedAt.Format("02/01/2006 15:04")+"\n")
	writeLatin1(&b, "Cliente: "+o.CustomerName+"\n")
	if o.CustomerPhone != "" {
		writeLatin1(&b, "Fone: "+o.CustomerPhone+"\n")
	}
	writeLatin1(&b, separator)

	for _, it := range o.Items {
		writeLatin1(&b, fmt.Sprintf("%d x %s\n", it.Quantity, it.Name))
		writeLatin1(&b, "   R$ "+FormatAmount(it.Total())+"\n")
		if it.Observation != "" {
			writeLatin1(&b, "   Obs: "+it.Observation+"\n")
		}
	}
	writeLatin1(&b, separator)

	b.Write(escAlignCenter)
	b.Write(escBoldOn)
	writeLatin1(&b, "TOTAL: R$ "+FormatAmount(o.TotalAmount)+"\n")
	b.Write(escBoldOff)
	b.Write(escAlignLeft)

	if o.Notes != "" {
		writeLatin1(&b, separator)
		writeLatin1(&b, "Observações:\n")
		writeLatin1(&b, o.Notes+"\n")
	}

	writeLatin1(&b, separator)
	b.Write(escAlignCenter)
	b.Write(escBoldOn)
	writeLatin1(&b, "*** COZINHA ***\n")
	b.Write(escBoldOff)
	writeLatin1(&b, "\n\n\n")
	b.Write(escCut)

	return b.Bytes()
}

// FormatAmount renders a currency value with two decimal places and a
// comma separator: 12.5 -> "12,50".
func FormatAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

// writeLatin1 encodes text one byte per character, the encoding the
// printers consume. Runes outside latin-1 degrade to '?'.
func writeLatin1(b *bytes.Buffer, s string) {
	for _, r := range s {
		if r < 256 {
			b.WriteByte(byte(r))
		} else {
			b.WriteByte('?')
		}
	}
}

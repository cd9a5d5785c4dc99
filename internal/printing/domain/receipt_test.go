package domain

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func fixtureOrder() Order {
	return Order{
		ID:            "abcd1234-e567-89f0-aaaa-bbbbccccdddd",
		RestaurantID:  "r1",
		CustomerName:  "Maria",
		CustomerPhone: "11 99999-0000",
		TotalAmount:   decimal.NewFromFloat(37.5),
		PaymentMethod: "pix",
		Notes:         "sem cebola",
		CreatedAt:     time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
		Items: []LineItem{
			{Name: "X-Burger", Quantity: 2, UnitPrice: decimal.NewFromFloat(15.0)},
			{Name: "Coke", Quantity: 1, UnitPrice: decimal.NewFromFloat(7.5), Observation: "gelada"},
		},
	}
}

func fixtureProfile() RestaurantProfile {
	return RestaurantProfile{Name: "Cantina da Praça", Address: "Rua A, 123", Phone: "11 5555-0000"}
}

func TestBuildReceiptDeterministic(t *testing.T) {
	at := time.Date(2026, 3, 14, 18, 31, 0, 0, time.UTC)

	r1, err := BuildReceipt(fixtureOrder(), fixtureProfile(), at)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	r2, err := BuildReceipt(fixtureOrder(), fixtureProfile(), at)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !bytes.Equal(r1.Bytes, r2.Bytes) {
		t.Error("byte form is not deterministic")
	}
	if r1.Document != r2.Document {
		t.Error("document form is not deterministic")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12.5, "12,50"},
		{0, "0,00"},
		{7.5, "7,50"},
		{37.5, "37,50"},
		{1234.567, "1234,57"},
	}
	for _, tt := range tests {
		if got := FormatAmount(decimal.NewFromFloat(tt.in)); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReceiptByteLayout(t *testing.T) {
	r, err := BuildReceipt(fixtureOrder(), fixtureProfile(), time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b := r.Bytes

	if !bytes.HasPrefix(b, []byte{0x1B, 0x40}) {
		t.Error("stream must start with the initialize sequence")
	}
	if !bytes.HasSuffix(b, []byte{0x1D, 0x56, 0x00}) {
		t.Error("stream must end with the cut command")
	}

	for _, want := range []string{
		"CANTINA DA PRA", // uppercased letterhead (latin-1 ç)
		"Pedido: ABCD1234",
		"14/03/2026 18:30",
		"Cliente: Maria",
		"2 x X-Burger",
		"R$ 30,00",
		"1 x Coke",
		"R$ 7,50",
		"Obs: gelada",
		"TOTAL: R$ 37,50",
		"sem cebola",
		"*** COZINHA ***",
	} {
		if !bytes.Contains(b, []byte(want)) {
			t.Errorf("byte form missing %q", want)
		}
	}

	// Ç is latin-1 0xC7, never multi-byte UTF-8.
	if !bytes.Contains(b, append([]byte("PRA"), 0xC7, 'A')) {
		t.Error("letterhead should be encoded one byte per character")
	}
}

func TestReceiptOptionalFields(t *testing.T) {
	o := fixtureOrder()
	o.CustomerPhone = ""
	o.Notes = ""

	r, err := BuildReceipt(o, RestaurantProfile{}, time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bytes.Contains(r.Bytes, []byte("Fone:")) {
		t.Error("phone line should be omitted when absent")
	}
	if bytes.Contains(r.Bytes, []byte("Observa")) {
		t.Error("notes block should be omitted when absent")
	}
	// Empty profile degrades the letterhead, never blanks it.
	if !bytes.Contains(r.Bytes, []byte("PEDIDO")) {
		t.Error("letterhead fallback missing")
	}
}

func TestDocumentContent(t *testing.T) {
	at := time.Date(2026, 3, 14, 18, 31, 5, 0, time.UTC)
	r, err := BuildReceipt(fixtureOrder(), fixtureProfile(), at)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc := r.Document

	for _, want := range []string{
		"Cantina da Praça",
		"ABCD1234",
		"14/03/2026 18:30",
		"Maria",
		"pix",
		"X-Burger",
		"R$ 15,00",
		"R$ 30,00",
		"Total: R$ 37,50",
		"sem cebola",
		"14/03/2026 18:31:05",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	// Only the footer timestamp may differ between renders.
	later, err := BuildReceipt(fixtureOrder(), fixtureProfile(), at.Add(time.Second))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.Document == later.Document {
		t.Error("footer timestamp should reflect generation time")
	}
	if !bytes.Equal(r.Bytes, later.Bytes) {
		t.Error("byte form must not depend on generation time")
	}
}

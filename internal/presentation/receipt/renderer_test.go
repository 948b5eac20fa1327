package receipt

import (
	"testing"
	"time"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSuccessfulSale(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	record, err := sale.NewRecord("TMC250301123456",
		[]sale.Line{
			{ProductID: "steak", Name: "Beef Steak", Unit: "kg", UnitPrice: 800, Quantity: 2, Total: 1600},
			{ProductID: "ribs", Name: "Beef Ribs", Unit: "kg", UnitPrice: 650, Quantity: 1, Total: 650},
		},
		"Jane", "Peter", "mpesa", "RCPT1",
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	doc, err := renderer.Render(record)
	require.NoError(t, err)

	assert.Contains(t, doc, "Thika Meat Centre")
	assert.Contains(t, doc, "Quality Meat Products")
	assert.Contains(t, doc, "P.O. Box 123, Thika, Kenya")
	assert.Contains(t, doc, "Tel: +254 712 345 678")
	assert.Contains(t, doc, "TMC250301123456")
	assert.Contains(t, doc, "PAYMENT SUCCESSFUL")
	assert.Contains(t, doc, "Beef Steak")
	assert.Contains(t, doc, "KSh 2250")
	assert.Contains(t, doc, "RCPT1")
	assert.Contains(t, doc, "Jane")
	assert.Contains(t, doc, "Peter")
	assert.NotContains(t, doc, "PAYMENT FAILED")
}

func TestRenderFailedSale(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	record := sale.NewFailureRecord("TMC250301123457", 2250, "Jane", "Peter", "mpesa", "", "Timeout", time.Now())

	doc, err := renderer.Render(record)
	require.NoError(t, err)

	assert.Contains(t, doc, "PAYMENT FAILED")
	assert.Contains(t, doc, "Timeout")
	assert.Contains(t, doc, "KSh 2250")
	assert.NotContains(t, doc, "Beef Steak")
	assert.NotContains(t, doc, "PAYMENT SUCCESSFUL")
}

func TestRenderEscapesCustomerInput(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	record, err := sale.NewRecord("TMC1",
		[]sale.Line{{ProductID: "p", Name: "Beef Steak", Unit: "kg", UnitPrice: 800, Quantity: 1, Total: 800}},
		"<script>alert(1)</script>", "Peter", "cash", "",
		time.Now())
	require.NoError(t, err)

	doc, err := renderer.Render(record)
	require.NoError(t, err)
	assert.NotContains(t, doc, "<script>alert(1)</script>")
}

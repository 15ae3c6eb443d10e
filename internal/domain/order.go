package domain

import (
	"strings"
	"time"
)

// Column names of the order table
const (
	ColumnOrderNumber = "Order number"
	ColumnHead        = "Head"
	ColumnBody        = "Body"
	ColumnLegs        = "Legs"
	ColumnAddress     = "Address"
)

// OrderRow is one record of the order table, keyed by column name.
type OrderRow map[string]string

// Get returns the trimmed value of a column or "" when the column is absent.
func (r OrderRow) Get(column string) string {
	return strings.TrimSpace(r[column])
}

func (r OrderRow) OrderNumber() string {
	return r.Get(ColumnOrderNumber)
}

// OrderArtifact holds everything produced for a confirmed order
type OrderArtifact struct {
	OrderNumber string   `json:"order_number"`
	ReceiptHTML string   `json:"receipt_html"`
	Images      []string `json:"images"`
	MergedImage string   `json:"merged_image,omitempty"`
	PDFPath     string   `json:"pdf_path"`
}

// OrderRecord is the ledger entry persisted for each processed row
type OrderRecord struct {
	RunID       string    `json:"run_id"`
	OrderNumber string    `json:"order_number"`
	State       RowState  `json:"state"`
	Retries     int       `json:"retries"`
	PDFPath     string    `json:"pdf_path,omitempty"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

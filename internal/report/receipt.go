package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"

	"github.com/yosssi/gohtml"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Order {{.OrderNumber}}</title>
<style>
body { font-family: sans-serif; margin: 24px; }
img.robot { width: 100%; }
</style>
</head>
<body>
<h1>Order Details: {{.OrderNumber}}</h1>
<div class="receipt">{{.Receipt}}</div>
{{if .Image}}<img class="robot" src="{{.Image}}">{{end}}
</body>
</html>
`))

type receiptData struct {
	OrderNumber string
	Receipt     template.HTML
	Image       template.URL
}

// ReceiptHTML builds the standalone document printed for an order. The receipt markup
// comes from the order site and is embedded as is; the merged image, when present, is
// inlined as a data URI so the document has no external references.
func ReceiptHTML(orderNumber, receiptMarkup, mergedImage string) (string, error) {
	data := receiptData{
		OrderNumber: orderNumber,
		Receipt:     template.HTML(gohtml.Format(receiptMarkup)),
	}

	if mergedImage != "" {
		raw, err := os.ReadFile(mergedImage)
		if err != nil {
			return "", fmt.Errorf("failed to read merged image %s: %w", mergedImage, err)
		}
		data.Image = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render receipt for order %s: %w", orderNumber, err)
	}
	return buf.String(), nil
}

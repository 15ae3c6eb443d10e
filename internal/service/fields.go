package service

import (
	"context"
	"fmt"
	"strings"

	"rpa/runner/internal/browser"
	"rpa/runner/internal/config"
	"rpa/runner/internal/domain"

	log "github.com/sirupsen/logrus"
)

// FieldSpec describes how one column of an order row reaches the form.
// The set of variants is closed: SelectOption, RadioChoice and TextInput.
type FieldSpec interface {
	column() string
	apply(ctx context.Context, page browser.Page, value string) error
}

// SelectOption picks the <option> whose value equals the cell
type SelectOption struct {
	Column   string
	Selector string
}

// RadioChoice clicks the radio input of group Name whose value equals the cell
type RadioChoice struct {
	Column string
	Name   string
}

// TextInput types the cell into an input
type TextInput struct {
	Column   string
	Selector string
}

func (f SelectOption) column() string { return f.Column }
func (f RadioChoice) column() string  { return f.Column }
func (f TextInput) column() string    { return f.Column }

func (f SelectOption) apply(ctx context.Context, page browser.Page, value string) error {
	return page.SelectByValue(ctx, f.Selector, value)
}

func (f RadioChoice) apply(ctx context.Context, page browser.Page, value string) error {
	return page.Click(ctx, f.Selector(value))
}

// Selector returns the CSS query of the radio input carrying value
func (f RadioChoice) Selector(value string) string {
	return fmt.Sprintf("input[type='radio'][name='%s'][value='%s']", cssString(f.Name), cssString(value))
}

var cssStringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\a `)

// cssString escapes s for use inside a single-quoted CSS string
func cssString(s string) string {
	return cssStringEscaper.Replace(s)
}

func (f TextInput) apply(ctx context.Context, page browser.Page, value string) error {
	return page.InputText(ctx, f.Selector, value)
}

// OrderFields maps the order table columns onto the order form
func OrderFields(sel config.OrderSelectors) []FieldSpec {
	return []FieldSpec{
		SelectOption{Column: domain.ColumnHead, Selector: sel.Head},
		RadioChoice{Column: domain.ColumnBody, Name: sel.BodyRadioName},
		TextInput{Column: domain.ColumnLegs, Selector: sel.Legs},
		TextInput{Column: domain.ColumnAddress, Selector: sel.Address},
	}
}

// fillFields applies every field in order. Blank cells are skipped and a field
// that cannot be applied is reported without stopping the others.
func fillFields(ctx context.Context, page browser.Page, fields []FieldSpec, row domain.OrderRow, logger *log.Entry) []domain.FieldResult {
	results := make([]domain.FieldResult, 0, len(fields))
	for _, f := range fields {
		value := row.Get(f.column())
		if value == "" {
			results = append(results, domain.FieldResult{Column: f.column(), Outcome: domain.FieldSkipped})
			continue
		}

		if err := f.apply(ctx, page, value); err != nil {
			logger.Errorf("❌ Failed to fill %s with %q: %v", f.column(), value, err)
			results = append(results, domain.FieldResult{Column: f.column(), Outcome: domain.FieldFailed, Err: err})
			continue
		}

		results = append(results, domain.FieldResult{Column: f.column(), Outcome: domain.FieldApplied})
	}
	return results
}

package stores

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

const maxNameLength = 120

// Store fields end up in the shared product list, which is plain text.
var plainText = bluemonday.StrictPolicy()

// ValidationError carries field-keyed messages for invalid input.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("stores: invalid input: %s", strings.Join(names, ", "))
}

// Message returns the message recorded for field.
func (e *ValidationError) Message(field string) string {
	if e == nil {
		return ""
	}
	return e.Fields[field]
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// StoreInput holds the editable fields of a store as submitted by staff.
type StoreInput struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Active  bool   `json:"isActive"`
}

// Normalize trims the input and validates it.
func (in StoreInput) Normalize() (StoreInput, error) {
	out := StoreInput{
		Name:    stripMarkup(in.Name),
		City:    stripMarkup(in.City),
		Address: stripMarkup(in.Address),
		Phone:   strings.TrimSpace(in.Phone),
		Active:  in.Active,
	}
	verr := &ValidationError{}
	switch {
	case out.Name == "":
		verr.add("name", "Informe o nome da loja.")
	case utf8.RuneCountInString(out.Name) > maxNameLength:
		verr.add("name", fmt.Sprintf("O nome deve ter no máximo %d caracteres.", maxNameLength))
	}
	if err := verr.orNil(); err != nil {
		return StoreInput{}, err
	}
	return out, nil
}

func stripMarkup(value string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(value)))
}

// Validate reports whether the input can be submitted.
func (in StoreInput) Validate() error {
	_, err := in.Normalize()
	return err
}

// StockInput holds the stock form fields exactly as typed.
type StockInput struct {
	Active        bool
	StockQuantity string
	CostPrice     string
	SalePrice     string
}

// StockUpdate is the validated payload sent to the backend.
type StockUpdate struct {
	Active        bool   `json:"isActive"`
	StockQuantity int64  `json:"stockQuantity"`
	CostPrice     string `json:"costPrice,omitempty"`
	SalePrice     string `json:"salePrice"`
}

// Normalize validates the form and converts it into a StockUpdate. Prices
// accept a comma as decimal separator and are sent with two decimal places.
func (in StockInput) Normalize() (StockUpdate, error) {
	verr := &ValidationError{}
	out := StockUpdate{Active: in.Active}

	qty, err := strconv.ParseInt(strings.TrimSpace(in.StockQuantity), 10, 64)
	switch {
	case err != nil:
		verr.add("stockQuantity", "Informe uma quantidade inteira.")
	case qty < 0:
		verr.add("stockQuantity", "A quantidade não pode ser negativa.")
	default:
		out.StockQuantity = qty
	}

	if strings.TrimSpace(in.CostPrice) != "" {
		if price, msg := parseMoney(in.CostPrice); msg != "" {
			verr.add("costPrice", msg)
		} else {
			out.CostPrice = price
		}
	}

	if strings.TrimSpace(in.SalePrice) == "" {
		verr.add("salePrice", "Informe o preço de venda.")
	} else if price, msg := parseMoney(in.SalePrice); msg != "" {
		verr.add("salePrice", msg)
	} else {
		out.SalePrice = price
	}

	if err := verr.orNil(); err != nil {
		return StockUpdate{}, err
	}
	return out, nil
}

// Validate reports whether the form can be submitted.
func (in StockInput) Validate() error {
	_, err := in.Normalize()
	return err
}

func parseMoney(raw string) (string, string) {
	text := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	d, err := decimal.NewFromString(text)
	if err != nil {
		return "", "Informe um valor numérico, por exemplo 19,90."
	}
	if d.IsNegative() {
		return "", "O valor não pode ser negativo."
	}
	if !d.Equal(d.Truncate(2)) {
		return "", "Use no máximo duas casas decimais."
	}
	return d.StringFixed(2), ""
}

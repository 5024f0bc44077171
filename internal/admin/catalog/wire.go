package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type wireProduct struct {
	Brand  string `json:"brand"`
	Name   string `json:"name"`
	Flavor string `json:"flavor"`
}

type wireRecord struct {
	ID            flexInt      `json:"id"`
	StoreID       flexInt      `json:"storeId"`
	Product       *wireProduct `json:"product"`
	IsActive      flexBool     `json:"isActive"`
	StockQuantity flexInt      `json:"stockQuantity"`
	CostPrice     decimalText  `json:"costPrice"`
	SalePrice     decimalText  `json:"salePrice"`
}

type wireMeta struct {
	CurrentPage *flexInt `json:"currentPage"`
	LastPage    *flexInt `json:"lastPage"`
	Total       *flexInt `json:"total"`
}

// DecodePage validates and decodes a raw "list store products" response body.
// The body must be a JSON object carrying a data field; a data value that is not
// an array is treated as empty. Entries that cannot be decoded are skipped and
// counted in Page.Skipped.
func DecodePage(body []byte, requested int) (Page, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return Page{}, fmt.Errorf("%w: body is not a JSON object", ErrUnexpectedResponse)
	}
	rawData, ok := envelope["data"]
	if !ok {
		return Page{}, fmt.Errorf("%w: missing data field", ErrUnexpectedResponse)
	}

	page := Page{PageNumber: requested}

	var entries []json.RawMessage
	if err := json.Unmarshal(rawData, &entries); err == nil {
		page.Items = make([]StockRecord, 0, len(entries))
		for _, entry := range entries {
			record, err := DecodeRecord(entry)
			if err != nil {
				page.Skipped++
				continue
			}
			page.Items = append(page.Items, record)
		}
	}

	if rawMeta, ok := envelope["meta"]; ok {
		var meta wireMeta
		if err := json.Unmarshal(rawMeta, &meta); err == nil {
			page.Meta = &PageMeta{
				CurrentPage: meta.CurrentPage.ptr(),
				LastPage:    meta.LastPage.ptr(),
				Total:       meta.Total.ptr(),
			}
			if page.Meta.CurrentPage != nil {
				page.PageNumber = *page.Meta.CurrentPage
			}
			page.TotalPages = page.Meta.LastPage
		}
	}
	return page, nil
}

// DecodeRecord decodes a single stock record as returned by the backend.
func DecodeRecord(raw json.RawMessage) (StockRecord, error) {
	var wire wireRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return StockRecord{}, fmt.Errorf("catalog: decode record: %w", err)
	}
	record := StockRecord{
		ID:            int64(wire.ID),
		StoreID:       int64(wire.StoreID),
		Active:        bool(wire.IsActive),
		StockQuantity: int64(wire.StockQuantity),
		CostPrice:     string(wire.CostPrice),
		SalePrice:     string(wire.SalePrice),
	}
	if wire.Product != nil {
		record.Product = &Product{
			Brand:  wire.Product.Brand,
			Name:   wire.Product.Name,
			Flavor: wire.Product.Flavor,
		}
	}
	return record, nil
}

// flexInt accepts JSON integers and numeric strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("catalog: invalid integer %s", string(data))
	}
	*f = flexInt(n)
	return nil
}

func (f *flexInt) ptr() *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

// flexBool accepts booleans, 0/1 and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.ToLower(string(bytes.TrimSpace(data))), `"`) {
	case "true", "1":
		*b = true
	case "false", "0", "null", "":
		*b = false
	default:
		return fmt.Errorf("catalog: invalid boolean %s", string(data))
	}
	return nil
}

// decimalText keeps prices as text. JSON numbers keep their literal form.
type decimalText string

func (d *decimalText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*d = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = decimalText(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("catalog: invalid price %s", string(data))
		}
		*d = decimalText(n.String())
	}
	return nil
}

package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/domespa/digital-store-sub001/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter loads catalog exports into the products table. Expected
// header columns: sku, name, description, price, currency, cover_url
// (order-insensitive, extra columns ignored).
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

// Run parses rows and upserts products, returning how many were written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return 0, errors.New("missing sku column")
	}

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		product, ok, err := parseRow(record, index)
		if err != nil {
			return imported, err
		}
		if !ok {
			continue
		}

		if _, err := i.productRepo.Upsert(ctx, product); err != nil {
			return imported, fmt.Errorf("upsert %s: %w", product.SKU, err)
		}
		imported++
	}

	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return index
}

func parseRow(record []string, index map[string]int) (domain.Product, bool, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	sku := field("sku")
	if sku == "" {
		return domain.Product{}, false, nil
	}

	priceRaw := field("price")
	price, err := decimal.NewFromString(priceRaw)
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("row %s: bad price %q", sku, priceRaw)
	}

	currency := strings.ToUpper(field("currency"))
	if currency == "" {
		currency = "USD"
	}

	return domain.Product{
		SKU:         sku,
		Name:        field("name"),
		Description: field("description"),
		Price:       price,
		Currency:    currency,
		CoverURL:    field("cover_url"),
	}, true, nil
}

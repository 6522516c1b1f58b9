// Package importer submits marketplace products and crop listings in bulk from
// a CSV file, through the same validation the forms apply.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"farmsmart/internal/domain"
	"farmsmart/internal/service/listing"
	"go.uber.org/zap"
)

const (
	KindProduct = "product"
	KindListing = "listing"
)

// Submitter is the slice of the listing service the importer drives.
type Submitter interface {
	SubmitProduct(ctx context.Context, f listing.ProductForm) (string, error)
	SubmitListing(ctx context.Context, f listing.ListingForm) (string, error)
}

// RowError records a row that failed validation. Line is the line number in
// the file.
type RowError struct {
	Line   int
	Fields domain.FieldErrors
}

type Result struct {
	Products int
	Listings int
	Rejected []RowError
}

// CSVImporter reads rows of kind,name,description,price,quantity,location.
// For listings, name is the crop name and price the price per unit.
type CSVImporter struct {
	reader *csv.Reader
	target Submitter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, target Submitter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{reader: csvr, target: target, logger: logger}
}

// Run submits every row. Rows that fail validation are collected in
// Result.Rejected; any other failure stops the import.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result

	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["kind"]; !ok {
		return res, errors.New("missing kind column")
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)
		if blank(record) {
			continue
		}

		kind := strings.ToLower(pick(record, index, "kind"))
		switch kind {
		case KindProduct:
			_, err = i.target.SubmitProduct(ctx, listing.ProductForm{
				Name:        pick(record, index, "name"),
				Description: pick(record, index, "description"),
				Price:       pick(record, index, "price"),
				Location:    pick(record, index, "location"),
			})
		case KindListing:
			_, err = i.target.SubmitListing(ctx, listing.ListingForm{
				CropName:     pick(record, index, "name"),
				Quantity:     pick(record, index, "quantity"),
				PricePerUnit: pick(record, index, "price"),
				Location:     pick(record, index, "location"),
			})
		default:
			err = domain.FieldErrors{"kind": fmt.Sprintf("unknown kind %q", kind)}
		}

		var fe domain.FieldErrors
		switch {
		case err == nil && kind == KindProduct:
			res.Products++
		case err == nil:
			res.Listings++
		case errors.As(err, &fe):
			i.logger.Warn("row rejected", zap.Int("line", line), zap.Error(err))
			res.Rejected = append(res.Rejected, RowError{Line: line, Fields: fe})
		default:
			return res, fmt.Errorf("row %d: %w", line, err)
		}
	}
	return res, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

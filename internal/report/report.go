// Package report writes batch results as JSON, CSV and plain-text tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-lattice/internal/batch"
)

// PriceDecimals is the number of decimals shown for prices in CSV and tables.
// JSON keeps full precision.
const PriceDecimals = 4

const (
	JSONFile = "quotes.json"
	CSVFile  = "quotes.csv"
)

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// WriteJSON writes res to <outdir>/quotes.json and returns the file path.
func WriteJSON(res *batch.Result, outdir string) (string, error) {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(outdir, JSONFile)
	return path, os.WriteFile(path, b, 0644)
}

// WriteCSV writes quotes to <outdir>/quotes.csv with rounded prices and
// returns the file path.
func WriteCSV(quotes []batch.Quote, outdir string) (string, error) {
	path := filepath.Join(outdir, CSVFile)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := MarshalCSV(quotes, f); err != nil {
		return "", fmt.Errorf("error marshalling file: %w", err)
	}
	return path, nil
}

// MarshalCSV writes quotes as CSV to w.
func MarshalCSV(quotes []batch.Quote, w io.Writer) error {
	rows := make([]batch.Quote, len(quotes))
	for i, q := range quotes {
		q.Price = Round(q.Price, PriceDecimals)
		rows[i] = q
	}
	return gocsv.Marshal(&rows, w)
}

// WriteTable renders quotes as an aligned text table.
func WriteTable(w io.Writer, quotes []batch.Quote) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Name", "Type", "Spot", "Strike", "Days", "Rate", "Sigma", "Steps", "Price"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoWrapText(false)

	for _, q := range quotes {
		name := q.Name
		if name == "" {
			name = q.Symbol
		}
		price := decimal.NewFromFloat(q.Price).StringFixed(PriceDecimals)
		if q.Error != "" {
			price = "error: " + q.Error
		}
		table.Append([]string{
			strconv.Itoa(q.Index),
			name,
			q.OptionType,
			decimal.NewFromFloat(q.Spot).StringFixed(2),
			decimal.NewFromFloat(q.Strike).StringFixed(2),
			strconv.FormatFloat(q.Days, 'f', -1, 64),
			strconv.FormatFloat(q.Rate, 'f', -1, 64),
			strconv.FormatFloat(q.Sigma, 'f', -1, 64),
			strconv.Itoa(q.Steps),
			price,
		})
	}

	table.Render()
}

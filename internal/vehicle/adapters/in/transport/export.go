package transport

import (
	"bytes"
	"fmt"
	"time"

	"carmarket/internal/vehicle/application/ports/in"

	"github.com/tealeg/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var salesHeaders = []string{
	"Date", "Transaction ID", "Type", "Car ID", "Brand", "Model",
	"Seller", "Seller Type", "Buyer", "Buyer Type", "Price",
}

// salesWorkbook собирает xlsx с листами Transactions и Summary
func salesWorkbook(report *in.DealerReport) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		return nil, fmt.Errorf("add transactions sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range salesHeaders {
		header.AddCell().SetValue(h)
	}

	for _, t := range report.Transactions {
		row := sheet.AddRow()
		row.AddCell().SetValue(t.CreatedAt.UTC().Format(time.RFC3339))
		row.AddCell().SetValue(t.ID)
		row.AddCell().SetValue(string(t.TransactionType))
		row.AddCell().SetValue(t.CarID)
		row.AddCell().SetValue(t.CarBrand)
		row.AddCell().SetValue(t.CarModel)
		row.AddCell().SetValue(t.Seller.ID)
		row.AddCell().SetValue(string(t.Seller.Type))
		row.AddCell().SetValue(t.Buyer.ID)
		row.AddCell().SetValue(string(t.Buyer.Type))
		row.AddCell().SetValue(t.Price.StringFixed(2))
	}

	summary, err := file.AddSheet("Summary")
	if err != nil {
		return nil, fmt.Errorf("add summary sheet: %w", err)
	}

	s := report.Summary
	for _, kv := range [][2]string{
		{"Dealer", report.DealerName},
		{"Cars sold", fmt.Sprint(s.TotalSold)},
		{"Cars bought", fmt.Sprint(s.TotalBought)},
		{"Revenue", s.TotalRevenue.StringFixed(2)},
		{"Expense", s.TotalExpense.StringFixed(2)},
		{"Test drives scheduled", fmt.Sprint(s.TestDrivesScheduled)},
		{"Current inventory", fmt.Sprint(s.CurrentInventory)},
	} {
		row := summary.AddRow()
		row.AddCell().SetValue(kv[0])
		row.AddCell().SetValue(kv[1])
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package data

import "github.com/cnoret/retail-data-analysis/pkg/failure"

// Column names used by the input files and the merged dataset.
const (
	ColStore        = "Store"
	ColType         = "Type"
	ColSize         = "Size"
	ColDept         = "Dept"
	ColDate         = "Date"
	ColWeeklySales  = "Weekly_Sales"
	ColIsHoliday    = "IsHoliday"
	ColTemperature  = "Temperature"
	ColFuelPrice    = "Fuel_Price"
	ColCPI          = "CPI"
	ColUnemployment = "Unemployment"

	// In the merged dataset the sales flag and the features flag keep
	// pandas-style suffixes so files stay interchangeable with the notebook.
	ColIsHolidaySales    = "IsHoliday_x"
	ColIsHolidayFeatures = "IsHoliday_y"
)

// MarkDownColumns are the five promotional markdown columns of features.csv.
var MarkDownColumns = [5]string{"MarkDown1", "MarkDown2", "MarkDown3", "MarkDown4", "MarkDown5"}

// Schema describes the columns a table must carry.
type Schema struct {
	Name    string
	Columns []string
}

var (
	StoresSchema = Schema{Name: "stores", Columns: []string{ColStore, ColType, ColSize}}
	SalesSchema  = Schema{Name: "sales", Columns: []string{ColStore, ColDept, ColDate, ColWeeklySales, ColIsHoliday}}

	FeaturesSchema = Schema{Name: "features", Columns: []string{
		ColStore, ColDate, ColTemperature, ColFuelPrice,
		MarkDownColumns[0], MarkDownColumns[1], MarkDownColumns[2], MarkDownColumns[3], MarkDownColumns[4],
		ColCPI, ColUnemployment, ColIsHoliday,
	}}

	MergedSchema = Schema{Name: "merged", Columns: []string{
		ColStore, ColDept, ColDate, ColWeeklySales, ColIsHolidaySales,
		ColTemperature, ColFuelPrice,
		MarkDownColumns[0], MarkDownColumns[1], MarkDownColumns[2], MarkDownColumns[3], MarkDownColumns[4],
		ColCPI, ColUnemployment, ColIsHolidayFeatures, ColType, ColSize,
	}}
)

// Validate returns a SchemaViolation naming the first column t lacks.
func (s Schema) Validate(t *Table) error {
	for _, c := range s.Columns {
		if _, err := t.Column(c); err != nil {
			return err
		}
	}
	return nil
}

func schemaError(table, column string) error {
	return failure.Newf(failure.SchemaViolation, "read "+table, "column %q not found", column)
}

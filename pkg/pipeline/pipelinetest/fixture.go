// Package pipelinetest writes small input datasets for tests.
package pipelinetest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cnoret/retail-data-analysis/pkg/data"
)

// Fixture shapes the generated dataset.
type Fixture struct {
	Stores int // stores, typed A, B, C in turn
	Depts  int
	Weeks  int
	// DuplicateFeature repeats the first features row, which fans out the join.
	DuplicateFeature bool
	// LeadingCPIGap blanks CPI for the first week of every store.
	LeadingCPIGap bool
}

// Default is three stores, four departments and six weeks.
var Default = Fixture{Stores: 3, Depts: 4, Weeks: 6}

// Start is the first week of every generated dataset.
var Start = time.Date(2010, 2, 5, 0, 0, 0, 0, time.UTC)

// Write creates stores.csv, sales.csv and features.csv under dir and returns
// their paths. Weekly sales grow with Dept and Store so models have signal.
func Write(t testing.TB, dir string, f Fixture) data.Paths {
	t.Helper()
	types := []string{"A", "B", "C"}

	var stores, sales, features strings.Builder
	stores.WriteString("Store,Type,Size\n")
	sales.WriteString("Store,Dept,Date,Weekly_Sales,IsHoliday\n")
	features.WriteString("Store,Date,Temperature,Fuel_Price,MarkDown1,MarkDown2,MarkDown3,MarkDown4,MarkDown5,CPI,Unemployment,IsHoliday\n")

	firstFeature := ""
	for s := 1; s <= f.Stores; s++ {
		fmt.Fprintf(&stores, "%d,%s,%d\n", s, types[(s-1)%len(types)], 100000+s*1000)
		for w := range f.Weeks {
			date := Start.AddDate(0, 0, 7*w).Format("02/01/2006")
			holiday := "FALSE"
			if w == 1 {
				holiday = "TRUE"
			}
			cpi := fmt.Sprintf("%.2f", 210+float64(w)*0.5)
			if f.LeadingCPIGap && w == 0 {
				cpi = "NA"
			}
			markdown := "NA"
			if w%2 == 0 {
				markdown = fmt.Sprintf("%d", 100*(w+1))
			}
			row := fmt.Sprintf("%d,%s,%.1f,%.3f,%s,NA,,NA,NA,%s,%.3f,%s\n",
				s, date, 40+float64(w), 2.5+0.01*float64(s), markdown, cpi, 8-0.1*float64(w), holiday)
			features.WriteString(row)
			if firstFeature == "" {
				firstFeature = row
			}
			for d := 1; d <= f.Depts; d++ {
				fmt.Fprintf(&sales, "%d,%d,%s,%.2f,%s\n", s, d, date, float64(1000*d+500*s+10*w), holiday)
			}
		}
	}
	if f.DuplicateFeature && firstFeature != "" {
		features.WriteString(firstFeature)
	}

	p := data.Paths{
		Stores:   filepath.Join(dir, "stores.csv"),
		Sales:    filepath.Join(dir, "sales.csv"),
		Features: filepath.Join(dir, "features.csv"),
	}
	for path, body := range map[string]string{
		p.Stores: stores.String(), p.Sales: sales.String(), p.Features: features.String(),
	} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	return p
}

package workbook

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
	"github.com/xuri/excelize/v2"
)

func writeInput(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		for j, c := range r {
			axis, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellStr("Sheet1", axis, c); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "companies.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save input: %v", err)
	}
	return path
}

func TestReadCompanies(t *testing.T) {
	path := writeInput(t, [][]string{
		{"Sector", " companies "},
		{"IT", "Tata Consultancy Services"},
		{"IT", ""},
		{"Banking", "HDFC  Bank"},
		{"IT", "tata consultancy services"},
		{"Auto"},
		{"Auto", "Maruti Suzuki"},
	})

	got, err := ReadCompanies(path, "", "Companies")
	if err != nil {
		t.Fatalf("ReadCompanies() error = %v", err)
	}
	want := []string{"Tata Consultancy Services", "HDFC Bank", "Maruti Suzuki"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadCompanies() = %q, want %q", got, want)
	}
}

func TestReadCompaniesErrors(t *testing.T) {
	path := writeInput(t, [][]string{{"Name"}, {"TCS"}})
	if _, err := ReadCompanies(path, "", "Companies"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("missing column error = %v", err)
	}

	empty := writeInput(t, [][]string{{"Companies"}, {"  "}})
	if _, err := ReadCompanies(empty, "", "Companies"); !errors.Is(err, ErrNoCompanies) {
		t.Errorf("empty column error = %v", err)
	}

	if _, err := ReadCompanies(filepath.Join(t.TempDir(), "missing.xlsx"), "", "Companies"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ReadCompanies(path, "Nope", "Companies"); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestSheetNamer(t *testing.T) {
	n := NewSheetNamer()

	tests := []struct {
		in   string
		want string
	}{
		{"TCS", "TCS"},
		{"tcs", "tcs~2"},
		{"Summary", "Summary~2"},
		{"A/B [India]: Ltd*?", "A_B _India__ Ltd__"},
		{"'Quoted'", "Quoted"},
		{"   ", "Company"},
		{"Adani Ports and Special Economic Zone Ltd", "Adani Ports and Special Economi"},
		{"Adani Ports and Special Economic Zone Limited", "Adani Ports and Special Econo~2"},
	}
	for _, tt := range tests {
		got := n.Name(tt.in)
		if got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if utf8.RuneCountInString(got) > 31 {
			t.Errorf("Name(%q) = %q is longer than 31", tt.in, got)
		}
		if strings.ContainsAny(got, `[]:*?/\`) {
			t.Errorf("Name(%q) = %q has a disallowed symbol", tt.in, got)
		}
	}
}

var (
	plTable = table.New(
		[]string{"Type", "Mar 2023", "Mar 2024"},
		[][]string{
			{"Total Revenue", "225458", "240893"},
			{"Total Expenses", "166199", "176597"},
			{"Profit Before Tax", "56907", "62203"},
			{"Net Profit", "42303", "46099"},
		},
	)
	bsTable = table.New(
		[]string{"Type", "Mar 2023", "Mar 2024"},
		[][]string{
			{"Total Equity", "90,424", "90,489"},
			{"Total Assets", "143651.5", "-12.25"},
		},
	)
)

func TestLayout(t *testing.T) {
	got := Layout([]*table.Table{plTable, bsTable})
	// 3: P&L header, 4-7: rows, 8: blank, 9: balance sheet header
	if !reflect.DeepEqual(got, []int{3, 9}) {
		t.Errorf("Layout() = %v, want [3 9]", got)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "company_data.xlsx")
	sheets := []Sheet{
		{Company: "Tata Consultancy Services", Tables: []*table.Table{plTable, bsTable}},
		{Company: "Infosys", Tables: []*table.Table{plTable}},
	}
	status := []StatusRow{
		{Company: "Tata Consultancy Services", Matched: "Tata Consultancy Services Ltd", Status: "ok"},
		{Company: "Infosys", Matched: "Infosys Ltd", Status: "ok"},
		{Company: "Nonexistent Widgets", Status: "failed", Stage: "resolve", Error: "company not found"},
	}

	written, err := Write(path, sheets, status, "(values are in INR Crores)")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	wantSheets := []string{"Tata Consultancy Services", "Infosys", SummarySheet}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, wantSheets) {
		t.Errorf("sheets = %q, want %q", got, wantSheets)
	}

	title, _ := f.GetCellValue("Tata Consultancy Services", "A1")
	if title != "Tata Consultancy Services (values are in INR Crores)" {
		t.Errorf("A1 = %q", title)
	}

	// numbers are stored as numbers, formatted text as text
	if typ, _ := f.GetCellType("Tata Consultancy Services", "B4"); typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		t.Errorf("B4 type = %v, want number", typ)
	}

	rows := Layout(sheets[0].Tables)
	for i, want := range sheets[0].Tables {
		got, err := ReadTable(path, written["Tata Consultancy Services"], rows[i])
		if err != nil {
			t.Fatalf("ReadTable(row %d) error = %v", rows[i], err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("table %d round trip:\n got %+v\nwant %+v", i, got, want)
		}
	}

	summary, _ := f.GetRows(SummarySheet)
	if len(summary) != 4 {
		t.Fatalf("summary rows = %d, want 4", len(summary))
	}
	if summary[1][1] != "Tata Consultancy Services" {
		t.Errorf("summary sheet column = %q", summary[1][1])
	}
	if summary[3][3] != "failed" || summary[3][4] != "resolve" {
		t.Errorf("summary failure row = %q", summary[3])
	}
}

func TestWriteOnlyFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	_, err := Write(path, nil, []StatusRow{{Company: "X", Status: "failed"}}, "")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SummarySheet}) {
		t.Errorf("sheets = %q", got)
	}
}

func TestReadTableErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if _, err := Write(path, []Sheet{{Company: "TCS", Tables: []*table.Table{plTable}}}, nil, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTable(path, "TCS", 2); err == nil {
		t.Error("ReadTable() on the blank row should fail")
	}
	if _, err := ReadTable(path, "TCS", 100); err == nil {
		t.Error("ReadTable() past the end should fail")
	}
}

func TestPlainDecimal(t *testing.T) {
	for _, s := range []string{"1200", "-3.5", "0", "42303"} {
		if _, ok := plainDecimal(s); !ok {
			t.Errorf("plainDecimal(%q) = false", s)
		}
	}
	for _, s := range []string{"", "1,200", "1.50", "007", "1e5", "+3", "(12)", "12%", "₹ 5", "Mar 2023", "-0", "1234567890123456"} {
		if _, ok := plainDecimal(s); ok {
			t.Errorf("plainDecimal(%q) = true", s)
		}
	}
}

package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/internal/reconciler"
)

func amt(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleEntries() []*models.PairEntry {
	imp := &models.ImportedRecord{Date: day(2024, 3, 1), Amount: amt("100.00"), Subject: "Invoice 42"}
	stored := &models.StoredRecord{ID: "r1", Date: day(2024, 3, 1), Amount: amt("100.00"), Subject: "Invoice 42"}
	leftover := &models.StoredRecord{ID: "r2", Date: day(2024, 3, 2), Amount: amt("-40.00"), Subject: "Fees"}
	fresh := &models.ImportedRecord{Date: day(2024, 3, 2), Amount: amt("5.00"), Subject: "Snack"}

	return []*models.PairEntry{
		{Imported: imp, Stored: stored},
		{Imported: fresh, ErrorMessage: "record belongs to a different bank account"},
		{Stored: leftover},
	}
}

func sampleAccount() *models.Account {
	return &models.Account{ID: "acc-1", Iban: "DE02120300000000202051"}
}

func TestGenerator_JSON(t *testing.T) {
	g, err := NewGenerator(&Config{Format: FormatJSON, IncludeStats: true})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	stats := reconciler.AggregateImported([]*models.ImportedRecord{
		{Amount: amt("100.00")}, {Amount: amt("5.00")},
	})

	var buf bytes.Buffer
	if err := g.Write(&buf, sampleAccount(), sampleEntries(), &stats); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var rep struct {
		Account string `json:"account"`
		Entries []struct {
			Status   string `json:"status"`
			Date     string `json:"date"`
			StoredID string `json:"storedId"`
			Note     string `json:"note"`
		} `json:"entries"`
		Stats *struct {
			Income string `json:"income"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if rep.Account != "acc-1" {
		t.Errorf("Account = %q", rep.Account)
	}
	if len(rep.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(rep.Entries))
	}
	if rep.Entries[0].Status != "MATCH" || rep.Entries[0].StoredID != "r1" {
		t.Errorf("Entry 0 = %+v", rep.Entries[0])
	}
	if rep.Entries[1].Status != "NEW" || rep.Entries[1].Note == "" {
		t.Errorf("Entry 1 = %+v", rep.Entries[1])
	}
	if rep.Entries[2].Status != "DELETE" || rep.Entries[2].Date != "2024-03-02" {
		t.Errorf("Entry 2 = %+v", rep.Entries[2])
	}
	if rep.Stats == nil {
		t.Error("Expected stats in the JSON report")
	}
}

func TestGenerator_JSONWithoutStats(t *testing.T) {
	g, err := NewGenerator(&Config{Format: FormatJSON})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	stats := reconciler.Stats{}
	var buf bytes.Buffer
	if err := g.Write(&buf, sampleAccount(), sampleEntries(), &stats); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), `"stats"`) {
		t.Error("Stats must be omitted when IncludeStats is off")
	}
}

func TestGenerator_CSV(t *testing.T) {
	g, err := NewGenerator(&Config{Format: FormatCSV})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	var buf bytes.Buffer
	if err := g.Write(&buf, sampleAccount(), sampleEntries(), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "status" {
		t.Errorf("Header = %v", rows[0])
	}
	if rows[1][0] != "MATCH" || rows[2][0] != "NEW" || rows[3][0] != "DELETE" {
		t.Errorf("Statuses = %q, %q, %q", rows[1][0], rows[2][0], rows[3][0])
	}
	if rows[3][3] != "-40.00" {
		t.Errorf("Stored amount = %q", rows[3][3])
	}
}

func TestGenerator_Console(t *testing.T) {
	g, err := NewGenerator(DefaultConfig())
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	stats := reconciler.AggregateImported([]*models.ImportedRecord{{Amount: amt("105.00")}})
	var buf bytes.Buffer
	if err := g.Write(&buf, sampleAccount(), sampleEntries(), &stats); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"acc-1",
		"MATCH",
		"NEW",
		"DELETE",
		"1 matches, 1 new, 1 deletion candidates",
		"[record belongs to a different bank account]",
		"Income: 105.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Console output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerator_ConsoleEmpty(t *testing.T) {
	g, err := NewGenerator(nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	var buf bytes.Buffer
	if err := g.Write(&buf, sampleAccount(), nil, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "No entries.") {
		t.Errorf("Expected the empty marker, got:\n%s", buf.String())
	}
}

func TestConfig_Validate(t *testing.T) {
	bad := &Config{Format: "yaml"}
	if _, err := NewGenerator(bad); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type row struct {
	Slug      string    `json:"slug" yaml:"slug"`
	Limit     int       `json:"retention_limit" yaml:"retention_limit"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	ID        string    `json:"id" yaml:"id" table:"wide"`
	Secret    string    `json:"-" yaml:"-" table:"-"`
}

var rows = []row{
	{Slug: "snap-1", Limit: 2, CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ID: "01A", Secret: "x"},
	{Slug: "snap-2", Limit: 2, ID: "01B"},
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "table": FormatTable, "JSON": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) succeeded")
	}
}

func TestTableSlice(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatTable, false).Format(&buf, rows); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	for _, want := range []string{"SLUG", "RETENTION_LIMIT", "CREATED_AT", "snap-1", "2024-05-01T10:00:00.000Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "01A") || strings.Contains(out, "SECRET") {
		t.Errorf("hidden columns rendered:\n%s", out)
	}
	if !strings.Contains(lines[2], "-") {
		t.Errorf("zero time not rendered as '-': %q", lines[2])
	}
}

func TestTableWide(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatTable, true).Format(&buf, rows); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), "01A") {
		t.Errorf("wide column missing:\n%s", buf.String())
	}
}

func TestTableStructAndMap(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(&buf, &rows[0]); err != nil {
		t.Fatalf("Format(struct): %v", err)
	}
	if !strings.Contains(buf.String(), "slug") || !strings.Contains(buf.String(), "snap-1") {
		t.Errorf("struct table:\n%s", buf.String())
	}

	buf.Reset()
	if err := f.Format(&buf, map[string]int{"b": 2, "a": 1}); err != nil {
		t.Fatalf("Format(map): %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "a") {
		t.Errorf("map table not sorted:\n%s", buf.String())
	}
}

func TestTableEmptyAndPrebuilt(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(&buf, []row{}); err != nil || buf.Len() != 0 {
		t.Errorf("Format(empty) = %q, %v", buf.String(), err)
	}
	if err := f.Format(&buf, nil); err != nil || buf.Len() != 0 {
		t.Errorf("Format(nil) = %q, %v", buf.String(), err)
	}

	tbl := &Table{Headers: []string{"NAME"}}
	tbl.AddRow("reports.s1")
	if err := (&TableFormatter{NoHeaders: true}).Format(&buf, tbl); err != nil {
		t.Fatalf("Format(table): %v", err)
	}
	if got := buf.String(); got != "reports.s1\n" {
		t.Errorf("Format(table) = %q", got)
	}

	buf.Reset()
	if err := f.Format(&buf, []string{"x", "y"}); err != nil {
		t.Fatalf("Format(strings): %v", err)
	}
	if !strings.Contains(buf.String(), "VALUE") || !strings.Contains(buf.String(), "y") {
		t.Errorf("Format(strings) = %q", buf.String())
	}
}

func TestJSONAndYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON, false).Format(&buf, rows[:1]); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"slug": "snap-1"`) || strings.Contains(buf.String(), "Secret") {
		t.Errorf("JSON output:\n%s", buf.String())
	}

	buf.Reset()
	if err := NewFormatter(FormatYAML, false).Format(&buf, rows[:1]); err != nil {
		t.Fatalf("YAML: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "- slug: snap-1") || !strings.Contains(out, "  retention_limit: 2") {
		t.Errorf("YAML output:\n%s", out)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type table struct {
	headers []string
	rows    [][]string
}

func (t table) Headers() []string { return t.headers }
func (t table) Rows() [][]string  { return t.rows }

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFormatter_Plain(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, "configuration valid"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "configuration valid\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestTextFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	data := table{
		headers: []string{"PATH", "COUNT"},
		rows: [][]string{
			{"/old/page", "12"},
			{"/a", "3"},
		},
	}
	if err := (&TextFormatter{}).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if lines[0] != "PATH       COUNT" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "/a         3" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]int{"deleted": 4}
	if err := NewFormatter(FormatJSON).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got["deleted"] != 4 {
		t.Errorf("deleted = %d, want 4", got["deleted"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("text should give a TextFormatter")
	}
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("json should give a JSONFormatter")
	}
}

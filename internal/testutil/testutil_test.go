package testutil

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("test error"))
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()
	req := NewTestRequest(http.MethodGet, "/?weather=Rainy")
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if got := req.URL.Query().Get("weather"); got != "Rainy" {
		t.Errorf("weather = %q, want Rainy", got)
	}
	if rec := NewTestRecorder(); rec.Code != http.StatusOK {
		t.Errorf("recorder default code = %d", rec.Code)
	}
}

func TestSampleCSV_Shape(t *testing.T) {
	t.Parallel()
	lines := strings.Split(strings.TrimSpace(SampleCSV), "\n")
	if len(lines) != 11 {
		t.Fatalf("lines = %d, want 11", len(lines))
	}
	cols := len(strings.Split(Header, ","))
	rainy := 0
	for i, l := range lines {
		if got := len(strings.Split(l, ",")); got != cols {
			t.Errorf("line %d has %d cells, want %d", i, got, cols)
		}
		if strings.HasPrefix(l, "Rainy,") {
			rainy++
		}
	}
	if rainy != 4 {
		t.Errorf("rainy rows = %d, want 4", rainy)
	}
}

func TestCSVAndRow(t *testing.T) {
	t.Parallel()
	got := CSV("a,b", Row("1", "2"), Row("3", "4"))
	if got != "a,b\n1,2\n3,4\n" {
		t.Errorf("CSV = %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	path := WriteCSV(t, "data.csv", "x\n1\n")
	b, err := os.ReadFile(path)
	AssertNoError(t, err)
	if string(b) != "x\n1\n" {
		t.Errorf("content = %q", b)
	}
}

func TestMemoryCSV(t *testing.T) {
	t.Parallel()
	m := MemoryCSV("data.csv", SampleCSV)
	b, err := m.ReadFile("data.csv")
	AssertNoError(t, err)
	if string(b) != SampleCSV {
		t.Error("memory content mismatch")
	}
}

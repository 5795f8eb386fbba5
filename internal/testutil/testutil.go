// Package testutil provides shared test helpers and accident CSV fixtures.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/accident.report/internal/fsutil"
)

// Header is the full column set of the accident dataset.
const Header = "Weather,Road_Type,Time_of_Day,Traffic_Density,Speed_Limit,Number_of_Vehicles,Driver_Alcohol,Accident_Severity,Road_Condition,Vehicle_Type,Driver_Age,Driver_Experience,Road_Light_Condition,Accident"

// SampleCSV has ten complete rows, four of them Rainy.
const SampleCSV = Header + `
Rainy,City Road,Morning,1,50,2,0,Low,Wet,Car,25,5,Daylight,0
Clear,Highway,Night,2,100,3,1,High,Dry,Truck,45,20,Artificial Light,1
Rainy,Highway,Evening,1,100,2,0,Moderate,Wet,Car,33,10,Daylight,0
Foggy,Rural Road,Afternoon,0,60,1,0,Low,Dry,Motorcycle,19,1,Daylight,1
Rainy,City Road,Night,2,50,4,1,High,Wet,Bus,52,30,No Light,1
Clear,City Road,Morning,1,50,2,0,Low,Dry,Car,38,15,Daylight,0
Snowy,Mountain Road,Afternoon,1,60,2,0,Moderate,Icy,Truck,41,18,Daylight,1
Clear,Highway,Evening,2,120,3,0,Low,Dry,Car,29,8,Artificial Light,0
Rainy,Rural Road,Morning,0,80,1,1,High,Wet,Car,61,40,Daylight,1
Stormy,Highway,Night,2,100,5,1,High,Wet,Truck,47,25,No Light,1
`

// MinimalHeader carries only the required columns.
const MinimalHeader = "Weather,Road_Type,Time_of_Day,Vehicle_Type,Driver_Age,Speed_Limit,Accident"

// Row builds one CSV line from cells.
func Row(cells ...string) string {
	return strings.Join(cells, ",")
}

// CSV joins a header and rows into a CSV document.
func CSV(header string, rows ...string) string {
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}

// WriteCSV writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MemoryCSV returns an in-memory filesystem holding content at name.
func MemoryCSV(name, content string) *fsutil.MemoryFileSystem {
	m := fsutil.NewMemoryFileSystem()
	m.WriteFile(name, []byte(content), time.Unix(1700000000, 0))
	return m
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

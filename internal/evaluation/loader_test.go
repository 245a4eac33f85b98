package evaluation

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadGoldenQueries_ValidFile(t *testing.T) {
	content := `[
		{"id": "q1", "query": "pastilhas de freio", "sector": "Autopecas", "expected_codes": ["87083010"], "difficulty": "easy"},
		{"id": "q2", "query": "azeite de oliva", "expected_codes": ["15090000", "15092000"], "difficulty": "medium"}
	]`
	path := writeTempFile(t, content)

	queries, err := LoadGoldenQueries(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	if queries[0].ID != "q1" {
		t.Errorf("expected id q1, got %s", queries[0].ID)
	}
	if queries[0].Sector != "Autopecas" {
		t.Errorf("expected sector Autopecas, got %s", queries[0].Sector)
	}
	if len(queries[1].ExpectedCodes) != 2 {
		t.Errorf("expected 2 codes, got %d", len(queries[1].ExpectedCodes))
	}
}

func TestLoadGoldenQueries_InvalidFile(t *testing.T) {
	_, err := LoadGoldenQueries("/nonexistent/path.json")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadGoldenQueries_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, `not valid json`)
	_, err := LoadGoldenQueries(path)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadGoldenQueries_ShippedSetIsValid(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "config", "golden_queries.json")

	queries, err := LoadGoldenQueries(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) == 0 {
		t.Fatal("expected shipped golden queries")
	}
	if err := ValidateGoldenQueries(queries); err != nil {
		t.Errorf("shipped golden queries invalid: %v", err)
	}
}

func TestValidateGoldenQueries(t *testing.T) {
	valid := GoldenQuery{ID: "q1", Query: "freio", Sector: "Autopecas", ExpectedCodes: []string{"87083010"}, Difficulty: "easy"}

	tests := []struct {
		name    string
		mutate  func(q *GoldenQuery)
		wantErr bool
	}{
		{"valid", func(q *GoldenQuery) {}, false},
		{"no sector", func(q *GoldenQuery) { q.Sector = "" }, false},
		{"missing id", func(q *GoldenQuery) { q.ID = "" }, true},
		{"missing query", func(q *GoldenQuery) { q.Query = "" }, true},
		{"unknown sector", func(q *GoldenQuery) { q.Sector = "Astronautics" }, true},
		{"no expected codes", func(q *GoldenQuery) { q.ExpectedCodes = nil }, true},
		{"short code", func(q *GoldenQuery) { q.ExpectedCodes = []string{"8708"} }, true},
		{"non-digit code", func(q *GoldenQuery) { q.ExpectedCodes = []string{"8708.30.10"} }, true},
		{"invalid difficulty", func(q *GoldenQuery) { q.Difficulty = "impossible" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			err := ValidateGoldenQueries([]GoldenQuery{q})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGoldenQueries() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGoldenQueries_DuplicateIDs(t *testing.T) {
	queries := []GoldenQuery{
		{ID: "q1", Query: "freio", ExpectedCodes: []string{"87083010"}, Difficulty: "easy"},
		{ID: "q1", Query: "azeite", ExpectedCodes: []string{"15090000"}, Difficulty: "easy"},
	}
	err := ValidateGoldenQueries(queries)
	if err == nil {
		t.Error("expected validation error for duplicate IDs")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

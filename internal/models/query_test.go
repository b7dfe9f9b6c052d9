package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name       string
		query      *SearchQuery
		defCol     string
		defIDs     string
		wantColumn string
		wantIDs    string
		wantErr    bool
	}{
		{"fills defaults", &SearchQuery{Query: "x"}, "content", "%", "content", "%", false},
		{"keeps explicit values", &SearchQuery{Query: "x", Column: "id", IDs: "12%"}, "content", "%", "id", "12%", false},
		{"empty query allowed", &SearchQuery{}, "content", "%", "content", "%", false},
		{"no column anywhere", &SearchQuery{Query: "x"}, "", "%", "", "%", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(tt.defCol, tt.defIDs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.query.Column != tt.wantColumn || tt.query.IDs != tt.wantIDs {
				t.Errorf("got column=%q ids=%q, want column=%q ids=%q",
					tt.query.Column, tt.query.IDs, tt.wantColumn, tt.wantIDs)
			}
		})
	}
}

func TestClassification_String(t *testing.T) {
	for c, want := range map[Classification]string{New: "new", Moved: "moved", Unchanged: "unchanged", Duplicate: "duplicate"} {
		if c.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(c), c.String(), want)
		}
	}
}

package domain

import "testing"

func TestIsExcludedType(t *testing.T) {
	cases := map[string]bool{
		"Agent":     true,
		"Gloves":    true,
		"Rifle":     false,
		"gloves":    false, // exact match only
		"":          false,
		"Equipment": false,
	}
	for in, want := range cases {
		if got := IsExcludedType(in); got != want {
			t.Errorf("IsExcludedType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestScrapeRequest_ChunkOrDefault(t *testing.T) {
	n := func(v int) *int { return &v }

	cases := []struct {
		name  string
		chunk *int
		want  int
	}{
		{"unset", nil, DefaultChunk},
		{"zero", n(0), DefaultChunk},
		{"negative", n(-3), DefaultChunk},
		{"set", n(2), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (ScrapeRequest{Chunk: tc.chunk}).ChunkOrDefault(DefaultChunk); got != tc.want {
				t.Fatalf("ChunkOrDefault = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTableNames(t *testing.T) {
	if (Category{}).TableName() != "categories" || (Paint{}).TableName() != "paints" {
		t.Fatalf("unexpected table names")
	}
}

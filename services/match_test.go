package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitlesMatch(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		year       int
		otherTitle string
		otherYear  int
		want       bool
	}{
		{"exact match", "The Matrix", 1999, "The Matrix", 1999, true},
		{"case insensitive", "the matrix", 1999, "THE MATRIX", 1999, true},
		{"substring one way", "The Matrix", 1999, "Matrix", 1999, true},
		{"substring other way", "Matrix", 1999, "The Matrix", 1999, true},
		{"year off by one", "Dune", 2021, "Dune", 2022, true},
		{"year off by two", "Dune", 2021, "Dune", 2023, false},
		{"different franchise entry", "The Matrix", 1999, "The Matrix Reloaded", 2003, false},
		{"substring but wrong year", "Matrix", 1999, "The Matrix", 2021, false},
		{"missing year on one side", "The Matrix", 1999, "The Matrix", 0, true},
		{"missing year on both sides", "The Matrix", 0, "The Matrix", 0, true},
		{"whitespace trimmed", "  The Matrix  ", 1999, "The Matrix", 1999, true},
		{"empty title never matches", "", 1999, "The Matrix", 1999, false},
		{"empty other title never matches", "The Matrix", 1999, "", 1999, false},
		{"unrelated titles", "The Matrix", 1999, "Inception", 1999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitlesMatch(tt.title, tt.year, tt.otherTitle, tt.otherYear)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTitlesMatchIsSymmetric(t *testing.T) {
	assert.Equal(t,
		TitlesMatch("Matrix", 1999, "The Matrix", 2000),
		TitlesMatch("The Matrix", 2000, "Matrix", 1999))
}

func TestTagLabel(t *testing.T) {
	assert.Equal(t, "mediarr-alice", TagLabel("Alice"))
	assert.Equal(t, "mediarr-bob-smith", TagLabel("Bob Smith"))
	assert.Equal(t, "", TagLabel("   "))
}

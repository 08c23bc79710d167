package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{140, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampConfidence(tt.in))
	}
}

func TestExtractedField_Normalized(t *testing.T) {
	f := ExtractedField{Label: "Name", Value: "Ana", Confidence: 130, Type: "blob", BoundingBox: []float64{1, 2}}
	n := f.Normalized()

	assert.Equal(t, 100, n.Confidence)
	assert.Equal(t, FieldTypeText, n.Type)

	n.BoundingBox[0] = 9
	assert.Equal(t, 1.0, f.BoundingBox[0], "normalized copy must not alias the original box")
}

func TestCanonicalPaths(t *testing.T) {
	paths := AllCanonicalPaths()
	require.NotEmpty(t, paths)

	seen := map[CanonicalPath]bool{}
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
		assert.True(t, IsCanonical(p))
	}

	assert.False(t, IsCanonical("favorite.color"))
	assert.True(t, IsDatePath(PathPassportExpiryDate))
	assert.False(t, IsDatePath(PathGivenName))
	assert.True(t, IsCritical(PathNationality))
	assert.False(t, IsCritical(PathEmail))

	// Mutating the returned slice must not leak into the closed set
	paths[0] = "hacked.path"
	assert.Equal(t, PathGivenName, AllCanonicalPaths()[0])
}

func TestFieldMatchResult_JSON(t *testing.T) {
	unmatched := FieldMatchResult{Field: ExtractedField{Label: "Favorite Color", Value: "blue", Confidence: 80, Type: FieldTypeText}}
	b, err := json.Marshal(unmatched)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"canonicalPath":null`)
	assert.Equal(t, "Favorite Color", unmatched.Key())

	matched := FieldMatchResult{
		Field: ExtractedField{Label: "DOB", Value: "01/02/1990", Confidence: 90, Type: FieldTypeDate},
		Path:  PathDateOfBirth,
		Value: NewDateValue(time.Date(1990, 2, 1, 15, 0, 0, 0, time.UTC)),
	}
	b, err = json.Marshal(matched)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"canonicalPath":"personalDetails.dateOfBirth"`)
	assert.Contains(t, string(b), `"value":"1990-02-01"`)
	assert.Equal(t, "personalDetails.dateOfBirth", matched.Key())
}

func TestFieldValues(t *testing.T) {
	assert.Equal(t, KindText, TextValue("x").Kind())
	assert.Equal(t, "12.5", NumberValue(12.5).String())
	assert.Equal(t, "true", CheckboxValue(true).String())
	assert.Equal(t, KindDate, NewDateValue(time.Now()).Kind())
}

package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "`users`"},
		{"doc_cities", "`doc_cities`"},
		{"my`table", "`my``table`"},
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.input))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("doc_medical_specialties"))
	assert.True(t, IsValidIdentifier("Table1"))
	assert.False(t, IsValidIdentifier("drop table;"))
	assert.False(t, IsValidIdentifier("with-dash"))
	assert.False(t, IsValidIdentifier(""))
}

func TestQuoteIdentifierSafe(t *testing.T) {
	quoted, err := QuoteIdentifierSafe("stable_id")
	require.NoError(t, err)
	assert.Equal(t, "`stable_id`", quoted)

	_, err = QuoteIdentifierSafe("id`; DROP")
	require.Error(t, err)

	var invalid *InvalidIdentifierError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "id`; DROP", invalid.Name)
}

func TestCollectionTable(t *testing.T) {
	tests := []struct {
		collection string
		expected   string
		wantErr    bool
	}{
		{"countries", "`doc_countries`", false},
		{"clinic-treatments", "`doc_clinic_treatments`", false},
		{"favorite-clinics", "`doc_favorite_clinics`", false},
		{"", "", true},
		{"bad name", "", true},
		{"x;drop", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			got, err := CollectionTable(tt.collection)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestJSONPath(t *testing.T) {
	assert.Equal(t, `$."name"`, JSONPath("name"))
	assert.Equal(t, `$."we\"ird"`, JSONPath(`we"ird`))
}

package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "categories.json", `{"Food": ["groceries", "restaurants", "groceries", " "], "Bills": []}`)

	tx, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bills", "Food"}, tx.Categories())
	assert.Equal(t, []string{"groceries", "restaurants"}, tx.Subcategories("Food"))
	assert.Empty(t, tx.Subcategories("Bills"))
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "categories.yaml", "Food:\n  - groceries\n  - coffee\nTransport:\n  - fuel\n")

	tx, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Food", "Transport"}, tx.Categories())
	assert.Equal(t, []string{"groceries", "coffee"}, tx.Subcategories("Food"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.json", `{"Food": `))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "empty.json", `{}`))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	tx, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, tx.Categories(), "Food")
	assert.NoError(t, tx.Validate("Food", "groceries"))
}

func TestValidate(t *testing.T) {
	tx, err := New(map[string][]string{"Food": {"groceries"}, "Bills": nil})
	require.NoError(t, err)

	cases := []struct {
		name        string
		category    string
		subcategory string
		ok          bool
	}{
		{"category only", "Food", "", true},
		{"category and subcategory", "Food", "groceries", true},
		{"unknown category", "Toys", "", false},
		{"category is case sensitive", "food", "", false},
		{"subcategory of other category", "Bills", "groceries", false},
		{"unknown subcategory", "Food", "caviar", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tx.Validate(tc.category, tc.subcategory)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	err = tx.Validate("Toys", "")
	assert.ErrorContains(t, err, "available: Bills, Food")
}

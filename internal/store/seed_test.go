package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensepie/internal/core"
)

func TestParseSeeds(t *testing.T) {
	data := []byte(`
- name: Food
  color: yellow
  emoji: "🍔"
- id: rent
  name: Home Rent
  color: "#336699"
- name: Shopping
  color: pink
  opacity: 0.3
- name: Food
  color: red
`)
	cats, err := ParseSeeds(data)
	require.NoError(t, err)
	require.Len(t, cats, 3)

	assert.Equal(t, "food", cats[0].ID)
	assert.Equal(t, "🍔", cats[0].Emoji)
	assert.Equal(t, "rent", cats[1].ID)
	assert.Equal(t, "#336699", cats[1].Color.Hex())
	assert.Equal(t, uint8(77), cats[2].Color.A)
}

func TestParseSeedsReportsEveryBadEntry(t *testing.T) {
	_, err := ParseSeeds([]byte("- name: A\n  color: nope\n- name: ''\n  color: red\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownColor)
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestLoadSeedsMissingFile(t *testing.T) {
	_, err := LoadSeeds(filepath.Join(t.TempDir(), SeedFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDefaultSeedsAreValid(t *testing.T) {
	for _, c := range DefaultSeeds() {
		assert.NoError(t, c.Validate(), c.Name)
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "home-rent", Slug("  Home Rent! "))
	assert.Equal(t, "fuori-come-fuori-a-cena", Slug("Fuori (come fuori a cena...)"))
}

func TestSeedsFromDir(t *testing.T) {
	assert.Len(t, SeedsFromDir(""), 6)

	dir := t.TempDir()
	assert.Len(t, SeedsFromDir(dir), 6)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte("- name: Rent\n  color: gray\n"), 0o644))
	cats := SeedsFromDir(dir)
	require.Len(t, cats, 1)
	assert.Equal(t, "rent", cats[0].ID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte("- name: Rent\n  color: plaid\n"), 0o644))
	assert.Len(t, SeedsFromDir(dir), 6)
}

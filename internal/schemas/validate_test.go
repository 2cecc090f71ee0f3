package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_AllSchemasEmbedded(t *testing.T) {
	for _, name := range []string{Profile, Ranking, Listing, Coaching, Cache} {
		content, err := Content(name)
		require.NoError(t, err, name)
		assert.Contains(t, content, "$schema")
	}
}

func TestContent_Unknown(t *testing.T) {
	_, err := Content("nope")
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidate_Ranking(t *testing.T) {
	valid := `{"candidates":[{"company":"Grab","rationale":"Go backend at scale","fit_tier":"strong"}]}`
	assert.NoError(t, Validate(Ranking, valid))

	err := Validate(Ranking, `{"candidates":[{"company":"Grab"}]}`)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, Ranking, ve.Schema)
	assert.NotEmpty(t, ve.Errors)
	assert.Contains(t, err.Error(), "rationale")
}

func TestValidate_ListingAllowsNullSalary(t *testing.T) {
	assert.NoError(t, Validate(Listing, `{"role_title":"Backend Engineer","location":"Kuala Lumpur","salary":null,"requirements":["Go"]}`))
	assert.Error(t, Validate(Listing, `{"role_title":"Backend Engineer","location":"KL","requirements":"Go"}`))
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(Coaching, `{"gaps": [`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "(root)", ve.Errors[0].Field)
}

func TestLoad_CompilesOnce(t *testing.T) {
	first, err := load(Listing)
	require.NoError(t, err)
	second, err := load(Listing)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = load("nope")
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateFile_Cache(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"version":1,"entries":{"grab|backend engineer":{"key":"grab|backend engineer","company":"Grab","role":"Backend Engineer","listings":[{"company":"Grab"}],"created_at":"2026-01-01T00:00:00Z"}}}`), 0o600))
	assert.NoError(t, ValidateFile(Cache, good))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":1,"entries":{"x":{"key":"nosep","company":"","role":"r","listings":[],"created_at":"t"}}}`), 0o600))
	var ve *ValidationError
	assert.ErrorAs(t, ValidateFile(Cache, bad), &ve)

	assert.Error(t, ValidateFile(Cache, filepath.Join(dir, "missing.json")))
}

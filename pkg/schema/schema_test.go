package schema_test

import (
	"testing"

	"github.com/aretw0/lattice/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for _, name := range []string{"string", "int", "float", "bool", "any", "[string]", "[[int]]", "bool?", "[float]?"} {
		typ, err := schema.ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, typ.Name())
	}

	_, err := schema.ParseType("uuid")
	assert.Error(t, err)
	_, err = schema.ParseType("[uuid]")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	s, err := schema.ParseTypeMap(map[string]string{
		"skipOpening": "bool?",
		"offset":      "float",
		"count":       "int",
		"tags":        "[string]",
	})
	require.NoError(t, err)

	t.Run("valid with optional absent", func(t *testing.T) {
		err := schema.Validate(s, map[string]any{
			"offset": 12,
			"count":  float64(3),
			"tags":   []any{"a", "b"},
			"extra":  struct{}{},
		})
		assert.NoError(t, err)
	})

	t.Run("reports every field in order", func(t *testing.T) {
		err := schema.Validate(s, map[string]any{
			"skipOpening": "yes",
			"count":       1.5,
			"tags":        []any{"a", 2},
		})
		require.Error(t, err)

		fields := schema.FieldErrors(err)
		require.Len(t, fields, 4)
		assert.Equal(t, "count", fields[0].Key)
		assert.Equal(t, "offset", fields[1].Key)
		assert.Equal(t, "required", fields[1].Reason)
		assert.Equal(t, "skipOpening", fields[2].Key)
		assert.Equal(t, "tags", fields[3].Key)
		assert.Contains(t, fields[3].Reason, "element 1")
	})

	t.Run("empty schema accepts anything", func(t *testing.T) {
		assert.NoError(t, schema.Validate(nil, map[string]any{"x": 1}))
	})
}

func TestParseKinds(t *testing.T) {
	kinds, err := schema.ParseKinds(map[string]map[string]string{
		"OPEN": {"skipOpening": "bool?"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"skipOpening": "bool?"}, kinds["OPEN"].TypeMap())

	_, err = schema.ParseKinds(map[string]map[string]string{"OPEN": {"x": "nope"}})
	assert.ErrorContains(t, err, "kind OPEN")
}

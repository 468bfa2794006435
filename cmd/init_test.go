package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pqorm/loader"
	"github.com/ridoystarlord/pqorm/validator"
)

func TestExampleSchemaIsValid(t *testing.T) {
	tables, err := loader.ParseTablesYAML([]byte(exampleSchemaYAML))
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "post_id", tables[1].PrimaryKeyName())

	result := validator.NewSchemaValidator(nil, "public").ValidateSchemaWithoutDB(tables)
	assert.True(t, result.Valid, "%+v", result.Errors)
}

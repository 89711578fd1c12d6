package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Text(t *testing.T) {
	out, _, err := execute(t, "validate", shopModel)
	require.NoError(t, err)

	assert.Contains(t, out, "Model valid")
	assert.Contains(t, out, "Products: Product (3 rows)")
	assert.Contains(t, out, "Brands: string (2 rows)")
	assert.Contains(t, out, "Discontinued: Product (0 rows)")
}

func TestValidate_JSON(t *testing.T) {
	out, _, err := execute(t, "validate", shopModel, "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	decodeData(t, out, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"Product"}, result.Types)
	assert.Equal(t, []SetValidation{
		{Name: "Products", Element: "Product", Rows: 3},
		{Name: "Brands", Element: "string", Rows: 2},
		{Name: "Discontinued", Element: "Product", Rows: 0},
	}, result.Sets)
}

func TestValidate_VerboseLogsToStderr(t *testing.T) {
	out, errOut, err := execute(t, "validate", shopModel, "--format", "json", "-v")
	require.NoError(t, err)

	assert.Contains(t, errOut, "Compiled 1 type(s) and 3 set(s)")
	assert.NotContains(t, out, "Compiled")
}

func TestValidate_FloatField(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/broken", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	cliErr := decodeError(t, out)
	assert.Equal(t, ErrCodeInvalidType, cliErr.Code)
	assert.Contains(t, cliErr.Message, "float types are forbidden")
	assert.NotNil(t, cliErr.Details, "error carries the source line")
}

func TestValidate_MissingDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

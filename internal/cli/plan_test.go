package cli

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/mutate"
)

func planJSON(t *testing.T, args ...string) PlanResult {
	t.Helper()
	out, _, err := execute(t, append([]string{"plan", shopModel, "--format", "json"}, args...)...)
	require.NoError(t, err)
	var result PlanResult
	decodeData(t, out, &result)
	return result
}

func TestPlan_ShowsEveryStage(t *testing.T) {
	result := planJSON(t, "--set", "Products", "--seed", "7")

	assert.Equal(t, "Products", result.Set)
	assert.Equal(t, int64(7), result.Seed)
	assert.Equal(t, `"Products":Queryable[Product]`, result.Base)
	assert.Contains(t, []string{
		mutate.NameAppendSelectConstant,
		mutate.NameAppendSelectIdentity,
		mutate.NameAppendSelectProperty,
	}, result.Mutator, "struct elements are not orderable")
	assert.Contains(t, result.Query, "(prm) => ")
	assert.NotEmpty(t, result.Plan)
}

func TestPlan_IsDeterministic(t *testing.T) {
	for seed := range 10 {
		s := strconv.Itoa(seed)
		first := planJSON(t, "--set", "Brands", "--seed", s)
		second := planJSON(t, "--set", "Brands", "--seed", s)
		assert.Equal(t, first, second, "seed %d", seed)
	}
}

func TestPlan_DenylistFromConfig(t *testing.T) {
	for seed := range 20 {
		result := planJSON(t, "--set", "Products", "--seed", strconv.Itoa(seed), "--config", "testdata/deny.yaml")
		assert.NotEqual(t, mutate.NameAppendSelectProperty, result.Mutator, "seed %d", seed)
	}
}

func TestPlan_Text(t *testing.T) {
	out, _, err := execute(t, "plan", shopModel, "--set", "Brands", "--seed", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "seed:    3\n")
	assert.Contains(t, out, `base:    "Brands":Queryable[string]`)
	assert.Contains(t, out, "mutator: ")
	assert.Contains(t, out, "plan:    ")
}

func TestPlan_UnknownSet(t *testing.T) {
	out, _, err := execute(t, "plan", shopModel, "--set", "Suppliers", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	cliErr := decodeError(t, out)
	assert.Equal(t, ErrCodeUnknownSet, cliErr.Code)
	assert.Contains(t, cliErr.Message, `model has no data set "Suppliers"`)
}

func TestPlan_MissingSetFlag(t *testing.T) {
	_, _, err := execute(t, "plan", shopModel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

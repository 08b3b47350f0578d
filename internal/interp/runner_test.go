package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muss-lang/muss/internal/compiler/errors"
	"github.com/muss-lang/muss/internal/runtime"
)

func TestRunnerCollectsItemsAcrossStatements(t *testing.T) {
	r := NewRunner(nil)
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result, err := r.Run("empties(2); empties(3);", ctx)
	require.NoError(t, err)
	assert.Len(t, result.Items, 5)
	assert.Empty(t, result.Warnings)
}

func TestRunnerAbortsOnSyntaxError(t *testing.T) {
	r := NewRunner(nil)
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result, err := r.Run("empties(2); )(nonsense", ctx)
	require.Error(t, err)
	assert.Len(t, result.Items, 2)

	var synErr *errors.SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestRunnerStampsLineNumberOnSyntaxError(t *testing.T) {
	r := NewRunner(nil)
	ctx := runtime.NewContext(nil, nil, nil, nil)
	source := "empties(2);\n)(nonsense\n"
	_, err := r.Run(source, ctx)
	require.Error(t, err)

	var synErr *errors.SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Equal(t, 2, synErr.Line)
}

func TestRunnerRecordsRuntimeErrorsAsWarningsAndContinues(t *testing.T) {
	r := NewRunner(nil)
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result, err := r.Run("empties(-1); empties(1);", ctx)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Len(t, result.Items, 1)
}

func TestRunnerSkipsBlankStatements(t *testing.T) {
	r := NewRunner(nil)
	ctx := runtime.NewContext(nil, nil, nil, nil)
	result, err := r.Run("  ;;  empties(1);  ", ctx)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}


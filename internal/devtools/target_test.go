package devtools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	"github.com/roelfdiedericks/chatpilot/internal/devtools/devtoolstest"
)

var countScript = devtools.Script{Name: "count", Fn: `(sels) => sels.length`}

func TestEvalIntoDecodes(t *testing.T) {
	fake := devtoolstest.New().On("count", func(args []any) (any, error) {
		return len(args[0].([]string)), nil
	})

	var n int
	err := devtools.EvalInto(context.Background(), fake, countScript.With([]string{"a", "b", "c"}), &n)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEvalIntoNullLeavesZero(t *testing.T) {
	fake := devtoolstest.New()
	n := 7
	require.NoError(t, devtools.EvalInto(context.Background(), fake, countScript, &n))
	assert.Equal(t, 7, n)
}

func TestEvalIntoDecodeError(t *testing.T) {
	fake := devtoolstest.New().Return("count", "not a number")
	var n int
	err := devtools.EvalInto(context.Background(), fake, countScript, &n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode result of count")
}

func TestEvalIntoPropagatesError(t *testing.T) {
	boom := errors.New("target closed")
	fake := devtoolstest.New().On("count", func([]any) (any, error) { return nil, boom })
	var n int
	assert.ErrorIs(t, devtools.EvalInto(context.Background(), fake, countScript, &n), boom)
}

func TestScriptWithDoesNotMutate(t *testing.T) {
	bound := countScript.With([]string{"x"})
	assert.Nil(t, countScript.Args)
	assert.Len(t, bound.Args, 1)
}

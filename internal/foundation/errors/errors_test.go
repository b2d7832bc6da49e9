package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := WrapError(cause, CategoryBuild, "mvn failed").
		WithContext("tool", "mvn").
		Fatal().
		Build()

	assert.Equal(t, CategoryBuild, err.Category())
	assert.Equal(t, SeverityFatal, err.Severity())
	assert.Equal(t, "mvn failed", err.Message())
	assert.True(t, err.IsFatal())
	assert.Same(t, cause, err.Cause())
	assert.ErrorIs(t, err, cause)

	tool, ok := err.Context().GetString("tool")
	require.True(t, ok)
	assert.Equal(t, "mvn", tool)
	assert.Equal(t, "[build] mvn failed: exit status 1", err.Error())
}

func TestClassifiedError_WithContextCopies(t *testing.T) {
	base := GitError("push failed").WithContext("remote", "origin").Build()
	derived := base.WithContext("branch", "1.9.x")

	_, ok := base.Context().Get("branch")
	assert.False(t, ok, "original context must not change")
	branch, ok := derived.Context().GetString("branch")
	require.True(t, ok)
	assert.Equal(t, "1.9.x", branch)
	remote, _ := derived.Context().GetString("remote")
	assert.Equal(t, "origin", remote)
}

func TestClassification_ThroughWrapping(t *testing.T) {
	inner := ValidationError("versions differ").Build()
	wrapped := fmt.Errorf("update config: %w", inner)

	assert.True(t, IsClassified(wrapped))
	assert.True(t, HasCategory(wrapped, CategoryValidation))
	assert.False(t, HasCategory(wrapped, CategoryGit))
	assert.Equal(t, CategoryValidation, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
}

func TestClassifiedError_Is(t *testing.T) {
	a := ConfigError("no editor set").Build()
	b := ConfigError("no editor set").WithContext("x", 1).Build()
	c := ConfigError("other").Build()

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestErrorContext_Merge(t *testing.T) {
	var nilCtx ErrorContext
	other := ErrorContext{"a": 1}
	assert.Equal(t, other, nilCtx.Merge(other))

	merged := ErrorContext{"a": 1, "b": 2}.Merge(ErrorContext{"b": 3})
	assert.Equal(t, ErrorContext{"a": 1, "b": 3}, merged)
}

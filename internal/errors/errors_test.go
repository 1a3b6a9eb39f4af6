package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := MissingField("score")
	wrapped := Wrap(base, "reading dataset")

	assert.Equal(t, CodeMissingField, GetCode(wrapped))
	assert.Equal(t, `reading dataset: field "score" not found`, wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWrap_PlainErrorIsInternal(t *testing.T) {
	err := Wrapf(fmt.Errorf("disk full"), "save %s", "out.png")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "save out.png: disk full", err.Error())
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, context.Canceled)
	assert.True(t, HasCode(err, CodeInvalidInput))
	assert.ErrorIs(t, err, context.Canceled)

	recoded := WithCode(CodeDataShape, InsufficientData("too few rows"))
	assert.Equal(t, CodeDataShape, GetCode(recoded))
	assert.Equal(t, "too few rows", recoded.Error())
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", DataShape("no p-value column"))
	assert.True(t, stderrors.Is(err, New(CodeDataShape, "")))
	assert.False(t, stderrors.Is(err, New(CodeConfigInvalid, "")))
	assert.False(t, stderrors.Is(err, DataShape("other message")))
}

func TestGetCode_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
	assert.False(t, IsAppError(fmt.Errorf("plain")))
}

func TestOptionalDependencyMissing(t *testing.T) {
	cause := fmt.Errorf("font not found")
	err := OptionalDependencyMissing("annotation font", cause)
	assert.Equal(t, "annotation font unavailable: font not found", err.Error())
	assert.ErrorIs(t, err, cause)
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrWeekend, "Start date cannot be a weekend.")

	assert.True(t, stderrors.Is(err, ErrWeekend))
	assert.False(t, stderrors.Is(err, ErrOutOfRange))
	assert.Equal(t, "Start date cannot be a weekend.", err.Message)
	assert.Equal(t, "date cannot be a weekend", ErrWeekend.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestUpstreamMessage(t *testing.T) {
	withMessage := fmt.Errorf("submit: %w", Clone(ErrUpstream, "Schedule already exists"))
	assert.Equal(t, "Schedule already exists", UpstreamMessage(withMessage))

	assert.Empty(t, UpstreamMessage(Wrap(fmt.Errorf("dial tcp"), ErrUpstream.Code, ErrUpstream.Status, ErrUpstream.Message)))
	assert.Empty(t, UpstreamMessage(Clone(ErrValidation, "bad input")))
	assert.Empty(t, UpstreamMessage(fmt.Errorf("plain")))
}

package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type taggedRequest struct {
	Query string `validate:"required,min=1"`
}

type selfValidatingRequest struct {
	err error
}

func (r selfValidatingRequest) Validate() error {
	return r.err
}

func TestValidateRequest_StructTags(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(taggedRequest{Query: "solar panels"}))
	assert.Error(t, ValidateRequest(taggedRequest{}))
}

func TestValidateRequest_ValidateMethodTakesPrecedence(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(selfValidatingRequest{}))

	sentinel := errors.New("bad request")
	assert.ErrorIs(t, ValidateRequest(selfValidatingRequest{err: sentinel}), sentinel)
}

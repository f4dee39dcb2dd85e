package objectstore

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestNotFoundError_Message(t *testing.T) {
	err := &NotFoundError{Key: "pages/manifest.json"}
	assert.Contains(t, err.Error(), "pages/manifest.json")
}

func TestIsNotFound_NoSuchKey(t *testing.T) {
	var err error = &types.NoSuchKey{}
	assert.True(t, isNotFound(err))
}

func TestIsNotFound_OtherErrorsPassThrough(t *testing.T) {
	assert.False(t, isNotFound(errors.New("connection reset")))
}

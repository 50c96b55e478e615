package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentityForIs(t *testing.T) {
	err := Clone(ErrDuplicateRegistration, "wallet W1 already registered")
	assert.True(t, errors.Is(err, ErrDuplicateRegistration))
	assert.False(t, errors.Is(err, ErrDuplicateClassroom))
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestIntegrityWrapsCause(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := Integrity("all_users", cause)
	assert.True(t, errors.Is(err, ErrDataIntegrity))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "all_users")
}

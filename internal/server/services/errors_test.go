package services

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weightlog/weightlog/internal/common"
)

func TestInternal_WrapsCause(t *testing.T) {
	cause := errors.New("db error: connection reset")
	err := internal(cause, "Unable to add entry: %v", cause)

	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, "Unable to add entry: db error: connection reset", err.Error())
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.ErrorIs(t, err, cause)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(notFound(common.ErrorNotFound, "Date %s not found.", "2022-01-01")))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(credentialsError(nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
}

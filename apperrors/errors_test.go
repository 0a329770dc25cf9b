package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("customer", 1), CodeNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("loading: %w", NotFound("order", 2)), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad"), CodeValidation, http.StatusBadRequest},
		{"conflict", Conflict("dup"), CodeConflict, http.StatusConflict},
		{"transient", Transient("save customer", errors.New("conn reset")), CodeTransient, http.StatusServiceUnavailable},
		{"bare sentinel", fmt.Errorf("%w: thing", ErrConflict), CodeConflict, http.StatusConflict},
		{"unknown", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := From(tt.err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
		})
	}
}

func TestFromNil(t *testing.T) {
	assert.Nil(t, From(nil))
}

func TestKindChecks(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("task", "x")))
	assert.False(t, IsNotFound(Validation("x")))
	assert.True(t, IsValidation(Validationf("quantity %d", 0)))
	assert.True(t, errors.Is(Transient("op", errors.New("x")), ErrTransient))
}

func TestMessageAndDetails(t *testing.T) {
	err := Validation("invalid payload").WithDetails(map[string]string{"name": "required"})
	assert.Equal(t, "invalid payload", err.Error())
	assert.Equal(t, map[string]string{"name": "required"}, err.Details)
	assert.Equal(t, "customer 42 not found", NotFound("customer", 42).Error())
}

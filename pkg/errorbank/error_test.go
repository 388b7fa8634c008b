package errorbank_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/stocklinehq/stockline/pkg/errorbank"
)

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err        *errorbank.AppError
		kind       errorbank.Kind
		httpStatus int
		grpcCode   codes.Code
	}{
		{errorbank.BadRequest("bad"), errorbank.KindBadRequest, http.StatusBadRequest, codes.InvalidArgument},
		{errorbank.Conflict("dup"), errorbank.KindConflict, http.StatusConflict, codes.AlreadyExists},
		{errorbank.NotFound("gone"), errorbank.KindNotFound, http.StatusNotFound, codes.NotFound},
		{errorbank.Unprocessable("nope"), errorbank.KindUnprocessableEntity, http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{errorbank.Internal("boom"), errorbank.KindInternal, http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind())
			assert.Equal(t, tt.httpStatus, tt.err.StatusCode())
			assert.Equal(t, tt.grpcCode, tt.err.GRPCCode())
		})
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := errorbank.Internal("write failed", errorbank.WithCause(cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "write failed: disk full", err.Error())
}

func TestWithDetail(t *testing.T) {
	err := errorbank.BadRequest("invalid",
		errorbank.WithDetail("field", "quantity"),
		errorbank.WithDetail("value", -1),
	)
	details := err.Details()
	assert.Equal(t, "quantity", details["field"])
	assert.Equal(t, -1, details["value"])
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, errorbank.From(nil))
	})

	t.Run("passthrough", func(t *testing.T) {
		appErr := errorbank.Conflict("dup")
		assert.Same(t, appErr, errorbank.From(appErr))
	})

	t.Run("wrapped passthrough", func(t *testing.T) {
		appErr := errorbank.NotFound("gone")
		wrapped := fmt.Errorf("lookup: %w", appErr)
		assert.Same(t, appErr, errorbank.From(wrapped))
	})

	t.Run("unexpected error", func(t *testing.T) {
		cause := errors.New("boom")
		appErr := errorbank.From(cause)
		require.NotNil(t, appErr)
		assert.Equal(t, errorbank.KindInternal, appErr.Kind())
		assert.ErrorIs(t, appErr, cause)
	})
}

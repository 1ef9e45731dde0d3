package toolerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("invoking tool: %w", New(KindTimeout, "exceeded %s", "1s"))

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrConnection))
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindConnection, cause, "resolving source %q", "my-pg")

	assert.Equal(t, `ConnectionError: resolving source "my-pg": dial tcp: refused`, err.Error())
	assert.ErrorIs(t, err, cause)

	var te *Error
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, `resolving source "my-pg": dial tcp: refused`, te.Detail())
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(KindInternal, nil, "ignored"))
}

func TestInvalidArgument(t *testing.T) {
	err := InvalidArgument("hotel_id", "expected %s, got %T", "integer", true)

	assert.Equal(t, "hotel_id", err.Param)
	assert.Equal(t, KindInvalidArgument, err.Kind)
	assert.Contains(t, err.Error(), `parameter "hotel_id": expected integer, got bool`)
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindToolNotFound, http.StatusNotFound},
		{KindToolsetNotFound, http.StatusNotFound},
		{KindInvalidArgument, http.StatusBadRequest},
		{KindConnection, http.StatusBadGateway},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindBackendExecution, http.StatusUnprocessableEntity},
		{KindCompile, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(New(tt.kind, "x")))
		})
	}
}

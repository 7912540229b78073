package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidErr("bad", nil), http.StatusBadRequest},
		{RejectedErr("no", nil, nil), http.StatusBadRequest},
		{NotFoundErr("missing"), http.StatusNotFound},
		{ConflictErr("dup"), http.StatusConflict},
		{UnavailableErr("down", errors.New("dial")), http.StatusInternalServerError},
		{Wrap(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ConflictErr("dup")), http.StatusConflict},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("sql: connection refused")))
	assert.Equal(t, "Internal server error", PublicMessage(Wrap(errors.New("sql: connection refused"))))
	assert.Equal(t, "Transaction already exists", PublicMessage(ConflictErr("Transaction already exists")))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("cause")
	assert.ErrorIs(t, RejectedErr("no", nil, cause), cause)
}

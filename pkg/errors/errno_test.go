package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		expected int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{20, 4, 1, 2004001},
		{20, 10, 1, 2010001},
		{11, 9, 1, 1109001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			assert.Equal(t, tt.expected, MakeCode(tt.service, tt.category, tt.sequence))
		})
	}
}

func TestParseCode(t *testing.T) {
	service, category, sequence := ParseCode(2010001)
	assert.Equal(t, 20, service)
	assert.Equal(t, 10, category)
	assert.Equal(t, 1, sequence)
	assert.Equal(t, 20, GetService(2010001))
	assert.Equal(t, 10, GetCategory(2010001))
}

func TestAssistantCodesRegistered(t *testing.T) {
	for _, e := range []*Errno{
		ErrProviderUnavailable, ErrRetrievalEmpty, ErrParseFailure,
		ErrPersistenceFailure, ErrInvalidRole, ErrEmptyQuery, ErrIndexUnavailable,
	} {
		got, ok := Lookup(e.Code)
		require.True(t, ok, "code %d not registered", e.Code)
		assert.Same(t, e, got)
		assert.Equal(t, ServiceAssistant, GetService(e.Code))
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrInvalidRole.Code, http.StatusBadRequest, codes.InvalidArgument, "dup", "重复"))
	})
}

func TestWithCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ErrProviderUnavailable.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, ErrProviderUnavailable.Unwrap(), "original must stay untouched")
}

func TestWrappedErrnoIsMatched(t *testing.T) {
	err := fmt.Errorf("build index: %w", ErrParseFailure.WithMessage("bad.py"))

	assert.True(t, Is(err, ErrParseFailure))
	assert.Equal(t, ErrParseFailure.Code, GetCode(err))
	assert.Equal(t, ErrParseFailure.Code, FromError(err).Code)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	e := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.Equal(t, -1, GetCode(stderrors.New("plain")))
}

func TestMessageLanguage(t *testing.T) {
	assert.Equal(t, "Unknown role", ErrInvalidRole.Message("en"))
	assert.Equal(t, "未知角色", ErrInvalidRole.Message("zh-CN"))
	assert.Equal(t, http.StatusBadRequest, ErrInvalidRole.HTTPStatus())
	assert.Equal(t, codes.InvalidArgument, ErrInvalidRole.GRPCStatus())
}

func TestFormat(t *testing.T) {
	err := ErrPersistenceFailure.WithCause(stderrors.New("disk full"))
	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, "HTTP 500")
	assert.Contains(t, out, "caused by: disk full")
	assert.Equal(t, err.Error(), fmt.Sprintf("%s", err))
}

func TestCodesSorted(t *testing.T) {
	all := Codes()
	require.NotEmpty(t, all)
	assert.IsNonDecreasing(t, all)
	assert.Contains(t, all, ErrEmptyQuery.Code)
}

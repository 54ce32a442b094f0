package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_KnownCode(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrEmptyMessage)

	req.Equal(ErrEmptyMessage, err.Code)
	req.Equal(KindValidation, err.Kind)
	req.Equal("Cannot send an empty message.", err.Message)
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	req := require.New(t)

	err := NewError(99999)

	req.Equal(ErrUnknown, err.Code)
	req.Equal(KindUnknown, err.Kind)
}

func TestNewError_TemplateFormatting(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrPasswordTooShort, 6)

	req.Equal("Password must be at least 6 characters.", err.Message)
}

func TestNewError_ServerMessageReplacesTemplate(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrUnauthorized, "Unauthorized - no token provided")

	req.Equal(ErrUnauthorized, err.Code)
	req.Equal("Unauthorized - no token provided", err.Message)
}

func TestFromStatus_Mapping(t *testing.T) {
	cases := []struct {
		status   int
		wantCode int
		wantKind Kind
	}{
		{http.StatusUnauthorized, ErrUnauthorized, KindAuth},
		{http.StatusForbidden, ErrUnauthorized, KindAuth},
		{http.StatusNotFound, ErrNotFound, KindNotFound},
		{http.StatusInternalServerError, ErrServer, KindServer},
		{http.StatusBadGateway, ErrServer, KindServer},
		{http.StatusBadRequest, ErrUnknown, KindUnknown},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			req := require.New(t)

			err := FromStatus(tc.status, "")

			req.Equal(tc.wantCode, err.Code)
			req.Equal(tc.wantKind, err.Kind)
			req.NotEmpty(err.Message)
		})
	}
}

func TestFromStatus_CarriesServerMessage(t *testing.T) {
	req := require.New(t)

	err := FromStatus(http.StatusInternalServerError, "database is on fire")

	req.Equal(ErrServer, err.Code)
	req.Equal("database is on fire", err.Message)
}

func TestIsKind(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrNetwork)

	req.True(IsKind(err, KindNetwork))
	req.False(IsKind(err, KindAuth))
	req.False(IsKind(fmt.Errorf("plain error"), KindNetwork))

	wrapped := fmt.Errorf("request failed: %w", err)
	req.True(IsKind(wrapped, KindNetwork))
}

func TestCustomError_ErrorString(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrInvalidCredentials)

	req.Equal("Error Code 3001 (auth): Incorrect email or password.", err.Error())
}

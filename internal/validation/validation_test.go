package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_ValidAndInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		want  string
		errIs error
	}{
		{name: "simple", in: "what's the weather", want: "what's the weather", errIs: nil},
		{name: "trimmed", in: "  hello  ", want: "hello", errIs: nil},
		{name: "empty", in: "", want: "", errIs: ErrEmptyQuery},
		{name: "whitespace only", in: "   ", want: "", errIs: ErrEmptyQuery},
		{name: "too long", in: strings.Repeat("a", MaxQueryBytes+1), want: "", errIs: ErrQueryTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(tt.in)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.errIs)
		})
	}
}

func TestQuery_ExactlyAtLimit(t *testing.T) {
	in := strings.Repeat("a", MaxQueryBytes)
	got, err := Query(in)
	assert.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestSessionID_ValidAndInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		want  string
		errIs error
	}{
		{name: "empty", in: "", want: "", errIs: nil},
		{name: "simple", in: "sess-1", want: "sess-1", errIs: nil},
		{name: "dotted", in: "sess.1_a", want: "sess.1_a", errIs: nil},
		{name: "slash", in: "a/b", want: "", errIs: ErrInvalidSessionID},
		{name: "colon", in: "a:b", want: "", errIs: ErrInvalidSessionID},
		{name: "space", in: "a b", want: "", errIs: ErrInvalidSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SessionID(tt.in)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.errIs)
		})
	}
}

func TestRequestID_ValidAndInvalid(t *testing.T) {
	t.Parallel()

	got, err := RequestID("req-123")
	assert.NoError(t, err)
	assert.Equal(t, "req-123", got)

	_, err = RequestID("bad id")
	assert.ErrorIs(t, err, ErrInvalidRequestID)
}

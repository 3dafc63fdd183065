package errors

import (
	"testing"
)

func TestSentinelWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{
			name:     "wrapped service unavailable keeps identity",
			err:      Wrap(ErrServiceUnavailable, "analysis stage"),
			sentinel: ErrServiceUnavailable,
			want:     true,
		},
		{
			name:     "double wrapped invalid response keeps identity",
			err:      Wrap(Wrap(ErrInvalidResponse, "chunk 3"), "analysis stage"),
			sentinel: ErrInvalidResponse,
			want:     true,
		},
		{
			name:     "unrelated error does not match",
			err:      New("disk full"),
			sentinel: ErrTimeout,
			want:     false,
		},
		{
			name:     "validation error built by helper",
			err:      NewValidationError("entity missing field %q", "start_char"),
			sentinel: ErrValidation,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.sentinel); got != tt.want {
				t.Errorf("Is() = %v, want %v for %v", got, tt.want, tt.err)
			}
		})
	}
}

func TestClassificationHelpers(t *testing.T) {
	if !IsServiceUnavailable(WrapServiceUnavailable(New("connection refused"), "infer")) {
		t.Error("WrapServiceUnavailable lost sentinel identity")
	}
	if !IsInvalidResponse(WrapInvalidResponse(New("unexpected token"), "infer")) {
		t.Error("WrapInvalidResponse lost sentinel identity")
	}
	if IsTimeout(nil) {
		t.Error("IsTimeout(nil) should be false")
	}
	if IsServiceUnavailable(New("other")) {
		t.Error("unrelated error classified as service unavailable")
	}
}

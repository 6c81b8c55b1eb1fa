package validation

import (
	"context"
	"errors"
	"testing"
)

type sample struct {
	ListingID string `validate:"required"`
	Mode      string `validate:"oneof=open close"`
	selfErr   error
}

func (s sample) Validate() error { return s.selfErr }

var errSelf = errors.New("self check failed")

func TestValidator(t *testing.T) {
	v := New()
	ctx := context.Background()

	if err := v.Validate(ctx, sample{ListingID: "l1", Mode: "open"}); err != nil {
		t.Fatalf("valid message: %v", err)
	}
	if err := v.Validate(ctx, sample{Mode: "open"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing id err = %v", err)
	}
	if err := v.Validate(ctx, sample{ListingID: "l1", Mode: "sideways"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad mode err = %v", err)
	}
	if err := v.Validate(ctx, sample{ListingID: "l1", Mode: "close", selfErr: errSelf}); !errors.Is(err, errSelf) {
		t.Fatalf("self validation err = %v", err)
	}
	if err := v.Validate(ctx, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("nil err = %v", err)
	}
}

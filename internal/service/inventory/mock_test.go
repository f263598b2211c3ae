package inventory

import (
	"context"
	"errors"
	"testing"
)

func TestMockChecker(t *testing.T) {
	mock := NewMockChecker()
	if mock == nil {
		t.Fatal("expected non-nil mock")
	}

	ok, err := mock.Available(context.Background(), "p-1", 5)
	if err != nil || !ok {
		t.Fatalf("expected product to be available, got ok=%v err=%v", ok, err)
	}

	mock.Unavailable["p-1"] = true
	if ok, _ := mock.Available(context.Background(), "p-1", 5); ok {
		t.Fatal("expected product to be unavailable")
	}

	mock.Err = errors.New("warehouse offline")
	if _, err := mock.Available(context.Background(), "p-2", 1); err == nil {
		t.Fatal("expected error")
	}

	if mock.Calls != 3 {
		t.Fatalf("unexpected call counter: %d", mock.Calls)
	}
}

func TestThresholdChecker(t *testing.T) {
	checker := NewThresholdChecker(0)

	for _, tc := range []struct {
		qty  int
		want bool
	}{
		{qty: 1, want: true},
		{qty: DefaultMaxQuantity, want: true},
		{qty: DefaultMaxQuantity + 1, want: false},
	} {
		got, err := checker.Available(context.Background(), "p", tc.qty)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("qty %d: expected %v, got %v", tc.qty, tc.want, got)
		}
	}

	small := NewThresholdChecker(2)
	if ok, _ := small.Available(context.Background(), "p", 3); ok {
		t.Fatal("custom threshold must apply")
	}
}

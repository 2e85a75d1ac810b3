package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		op      func() (Amount, error)
		want    Amount
		wantErr error
	}{
		{"Add", func() (Amount, error) { return Amount(100).Add(200) }, 300, nil},
		{"Add overflow", func() (Amount, error) { return Amount(math.MaxUint64).Add(1) }, 0, ErrOverflow},
		{"Sub", func() (Amount, error) { return Amount(500).Sub(200) }, 300, nil},
		{"Sub to zero", func() (Amount, error) { return Amount(100).Sub(100) }, 0, nil},
		{"Sub underflow", func() (Amount, error) { return Amount(1).Sub(2) }, 0, ErrUnderflow},
		{"Sum", func() (Amount, error) { return Sum(1, 2, 3) }, 6, nil},
		{"Sum empty", func() (Amount, error) { return Sum() }, 0, nil},
		{"Sum overflow", func() (Amount, error) { return Sum(math.MaxUint64, 1) }, 0, ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAmountSaturatingSub(t *testing.T) {
	if got := Amount(10).SaturatingSub(3); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
	if got := Amount(3).SaturatingSub(10); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestAmountStorageConversion(t *testing.T) {
	if got := FromInt64(Amount(42).Int64()); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if got := FromInt64(-5); got != 0 {
		t.Errorf("negative stored value should clamp to zero, got %d", got)
	}
	if MaxStorable.Int64() != math.MaxInt64 {
		t.Errorf("MaxStorable should map to MaxInt64")
	}
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(Amount(4900))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4900" {
		t.Errorf("got %s, want 4900", data)
	}

	var a Amount
	if err := json.Unmarshal([]byte(`"1250"`), &a); err != nil {
		t.Fatal(err)
	}
	if a != 1250 {
		t.Errorf("got %d, want 1250", a)
	}

	if err := json.Unmarshal([]byte(`"-1"`), &a); err == nil {
		t.Error("expected error for negative string")
	}
}

func TestAmountString(t *testing.T) {
	if Amount(0).String() != "0" {
		t.Error("zero should format as 0")
	}
	if Amount(1000).String() != "1000" {
		t.Error("unexpected format")
	}
}

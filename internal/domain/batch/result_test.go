package batch

import (
	"errors"
	"testing"
)

func TestNewStored(t *testing.T) {
	mapErr := errors.New("mapping")
	tests := []struct {
		name    string
		indexed bool
		err     error
	}{
		{"indexed", true, nil},
		{"stored but not indexed", false, mapErr},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewStored("book-1", tc.indexed, tc.err)
			if r.ID() != "book-1" || r.Status() != StatusOK || r.Indexed() != tc.indexed {
				t.Errorf("got id=%q status=%q indexed=%v", r.ID(), r.Status(), r.Indexed())
			}
			if !errors.Is(r.Err(), tc.err) {
				t.Errorf("Err() = %v, want %v", r.Err(), tc.err)
			}
		})
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("store down")
	r := NewError("book-2", err)
	if r.Status() != StatusError || r.Indexed() {
		t.Errorf("status=%q indexed=%v", r.Status(), r.Indexed())
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

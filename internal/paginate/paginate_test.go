package paginate

import (
	"math"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		page      int
		limit     int
		wantLen   int
		wantFirst int
		wantNext  *int
	}{
		{"first of three", 25, 1, 10, 10, 0, intp(2)},
		{"second of three", 25, 2, 10, 10, 10, intp(3)},
		{"last partial", 25, 3, 10, 5, 20, nil},
		{"past the end", 25, 4, 10, 0, -1, nil},
		{"single page", 5, 1, 200, 5, 0, nil},
		{"second page of small", 5, 2, 200, 0, -1, nil},
		{"exact fit", 20, 2, 10, 10, 10, nil},
		{"empty list", 0, 1, 10, 0, -1, nil},
		{"page zero", 25, 0, 10, 0, -1, intp(1)},
		{"page zero keys", 205, 0, 200, 0, -1, intp(1)},
		{"page minus one keys", 205, -1, 200, 5, 0, intp(0)},
		{"page minus one small", 5, -1, 10, 0, -1, intp(0)},
		{"page minus one counts back", 25, -1, 10, 10, 5, intp(0)},
		{"page minus two", 25, -2, 5, 5, 10, intp(-1)},
		{"max page", 25, math.MaxInt, 10, 0, -1, nil},
		{"max page keys", 205, math.MaxInt, 200, 0, -1, nil},
		{"largest page that fits", 25, (math.MaxInt-10)/10 + 1, 10, 0, -1, nil},
		{"min page", 25, math.MinInt, 10, 0, -1, intp(math.MinInt + 1)},
		{"min page limit one", 25, math.MinInt + 1, 1, 0, -1, intp(math.MinInt + 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Window(seq(tt.n), tt.page, tt.limit)
			if len(p.Items) != tt.wantLen {
				t.Fatalf("len: got %d, want %d (%v)", len(p.Items), tt.wantLen, p.Items)
			}
			if tt.wantLen > 0 && p.Items[0] != tt.wantFirst {
				t.Errorf("first: got %d, want %d", p.Items[0], tt.wantFirst)
			}
			switch {
			case tt.wantNext == nil && p.Next != nil:
				t.Errorf("next: got %d, want nil", *p.Next)
			case tt.wantNext != nil && p.Next == nil:
				t.Errorf("next: got nil, want %d", *tt.wantNext)
			case tt.wantNext != nil && *p.Next != *tt.wantNext:
				t.Errorf("next: got %d, want %d", *p.Next, *tt.wantNext)
			}
		})
	}
}

func TestWindowItemsNeverNil(t *testing.T) {
	p := Window[string](nil, 1, 10)
	if p.Items == nil {
		t.Fatal("Items should be an empty slice, not nil")
	}
}

func TestWindowCopies(t *testing.T) {
	items := seq(3)
	p := Window(items, 1, 10)
	p.Items[0] = 99
	if items[0] != 0 {
		t.Fatal("window must not alias the input")
	}
}

func intp(i int) *int { return &i }

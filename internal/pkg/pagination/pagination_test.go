package pagination

import "testing"

func TestMeta(t *testing.T) {
	cases := []struct {
		q         Query
		total     int64
		totalPage int
		hasNext   bool
	}{
		{Query{Page: 1, Size: 10}, 0, 0, false},
		{Query{Page: 1, Size: 10}, 10, 1, false},
		{Query{Page: 1, Size: 10}, 11, 2, true},
		{Query{Page: 2, Size: 10}, 11, 2, false},
		{Query{Page: 3, Size: 5}, 25, 5, true},
	}
	for _, c := range cases {
		m := Meta(c.q, c.total)
		if m.TotalPage != c.totalPage || m.HasNextPage != c.hasNext {
			t.Fatalf("Meta(%+v, %d) = {TotalPage:%d HasNextPage:%v}, want {%d %v}",
				c.q, c.total, m.TotalPage, m.HasNextPage, c.totalPage, c.hasNext)
		}
	}
}

func TestQueryOffset(t *testing.T) {
	if got := (Query{Page: 3, Size: 20}).Offset(); got != 40 {
		t.Fatalf("offset = %d, want 40", got)
	}
}

package calendar

import "testing"

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Paginate(items, 2, 2)
	if len(p.Items) != 2 || p.Items[0] != 3 || !p.HasNext || !p.HasPrev || p.Total != 5 {
		t.Fatalf("unexpected page: %+v", p)
	}

	last := Paginate(items, 3, 2)
	if len(last.Items) != 1 || last.HasNext {
		t.Fatalf("unexpected last page: %+v", last)
	}

	beyond := Paginate(items, 9, 2)
	if len(beyond.Items) != 0 || beyond.HasNext {
		t.Fatalf("expected empty page past the end, got %+v", beyond)
	}

	def := Paginate(items, 0, 0)
	if def.Page != 1 || def.PageSize != DefaultPageSize || len(def.Items) != 5 {
		t.Fatalf("expected defaults, got %+v", def)
	}
}

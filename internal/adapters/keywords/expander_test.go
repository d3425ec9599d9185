package keywords

import (
	"strings"
	"testing"
)

func TestExpandSizeAndContent(t *testing.T) {
	queries := Expand("cars")
	if len(queries) != CatalogSize()+1 {
		t.Fatalf("ожидали %d запросов, получили %d", CatalogSize()+1, len(queries))
	}
	seen := make(map[string]struct{})
	for _, q := range queries {
		if q == "" {
			t.Fatal("пустой запрос в выдаче")
		}
		if !strings.Contains(q, "cars") {
			t.Fatalf("запрос %q не содержит нишу", q)
		}
		if _, ok := seen[q]; ok {
			t.Fatalf("дубликат запроса %q", q)
		}
		seen[q] = struct{}{}
	}
	if queries[len(queries)-1] != "cars" {
		t.Fatalf("ожидали голую нишу последней, получили %q", queries[len(queries)-1])
	}
}

func TestExpandTrimsAndRejectsEmpty(t *testing.T) {
	if got := Expand("   "); got != nil {
		t.Fatalf("ожидали nil для пустой ниши, получили %v", got)
	}
	queries := Expand("  phone repair ")
	if queries[0] != "phone repair transformation" {
		t.Fatalf("ожидали обрезанную нишу, получили %q", queries[0])
	}
}

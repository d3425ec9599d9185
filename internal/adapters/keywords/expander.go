package keywords

import "strings"

// catalog — фиксированный набор модификаторов запроса для ниши.
var catalog = []string{
	"transformation", "before and after", "timelapse", "full process",
	"satisfying", "restoration", "repair", "rebuild",
	"makeover", "extreme", "project", "how to",
	"ASMR", "cinematic", "documentary",
}

// Expand превращает нишу в конечный набор поисковых запросов:
// ниша с каждым модификатором каталога плюс сама ниша. Дубликаты
// убираются, пустых запросов не бывает.
func Expand(niche string) []string {
	niche = strings.TrimSpace(niche)
	if niche == "" {
		return nil
	}
	seen := make(map[string]struct{}, len(catalog)+1)
	out := make([]string, 0, len(catalog)+1)
	add := func(q string) {
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	for _, mod := range catalog {
		add(niche + " " + mod)
	}
	add(niche)
	return out
}

// CatalogSize возвращает размер каталога модификаторов.
func CatalogSize() int {
	return len(catalog)
}

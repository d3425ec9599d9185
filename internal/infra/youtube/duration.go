package youtube

import (
	"regexp"
	"strconv"
)

var durationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseDuration переводит ISO-8601 код длительности в целые секунды.
// Некорректный код даёт нулевую длительность, ошибок не возникает.
func ParseDuration(code string) int {
	m := durationRe.FindStringSubmatch(code)
	if m == nil {
		return 0
	}
	return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

package telegram

import "strings"

// messageLimit — максимальная длина одного сообщения Telegram.
const messageLimit = 4096

// SplitMessage режет длинный отчёт о сканировании на части, каждая из
// которых укладывается в лимит Telegram. Разрез предпочитает границы
// строк, чтобы блоки находок не рвались посередине.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}

	var parts []string
	start := 0
	for start < len(runes) {
		end := start + messageLimit
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastLineBreak(runes, start, end); cut > start {
			end = cut
		}

		if chunk := strings.Trim(string(runes[start:end]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}

		start = end
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}

	if len(parts) == 0 {
		return []string{trimmed}
	}
	return parts
}

// lastLineBreak возвращает позицию сразу за последним переводом строки
// в окне (start, end] или start, если переводов строки в окне нет.
func lastLineBreak(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	return start
}

package parser

import "strings"

// markupRuns LLM 输出中常见的 Markdown 残留符号
var markupRuns = []string{"***", "---", "===", "~~~", "___", "###"}

// Sanitize 清理 LLM 输出中的标记符号并删除重复行
// 对自身输出再次执行不会产生变化
func Sanitize(text string) string {
	cleaned := stripMarkup(text)
	return strings.Join(DedupLines(strings.Split(cleaned, "\n")), "\n")
}

// stripMarkup 反复删除标记符号直到不再变化，删除后拼接出的新符号串也会被处理
func stripMarkup(text string) string {
	for {
		next := text
		for _, run := range markupRuns {
			next = strings.ReplaceAll(next, run, "")
		}
		next = strings.ReplaceAll(next, "*", "")
		if next == text {
			return next
		}
		text = next
	}
}

// DedupLines 删除完全相同的重复行，保留第一次出现的位置
func DedupLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

package parser

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"resume-optimizer/internal/types"
)

// DefaultMaxExperiences 构建改写提示时保留的工作经历条数
const DefaultMaxExperiences = 5

var monthNames = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// ParseLatestDate 返回一行中最右侧的 "Month Year" 日期
// 只识别完整英文月份名加四位年份，缩写月份、03/2021、纯年份都不识别。
func ParseLatestDate(line string) (time.Time, bool) {
	tokens := strings.Fields(line)
	var latest time.Time
	found := false
	for i := 0; i+1 < len(tokens); i++ {
		month, ok := monthNames[strings.ToLower(trimPunct(tokens[i]))]
		if !ok {
			continue
		}
		year, ok := parseYear(trimPunct(tokens[i+1]))
		if !ok {
			continue
		}
		latest = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		found = true
	}
	return latest, found
}

func trimPunct(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func parseYear(token string) (int, bool) {
	if len(token) != 4 {
		return 0, false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return year, true
}

// SortExperiences 按日期倒序排列工作经历，日期相同保持原顺序，无日期的行排在最后
// 不修改输入切片
func SortExperiences(lines []string) []string {
	type entry struct {
		line string
		date time.Time
	}
	entries := make([]entry, len(lines))
	for i, line := range lines {
		date, _ := ParseLatestDate(line) // 无日期时为零值，即最早
		entries[i] = entry{line: line, date: date}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date.After(entries[j].date)
	})

	sorted := make([]string, len(entries))
	for i, e := range entries {
		sorted[i] = e.line
	}
	return sorted
}

// TopExperiences 返回排序后的前 n 条，n<=0 返回全部
func TopExperiences(lines []string, n int) []string {
	sorted := SortExperiences(lines)
	if n > 0 && len(sorted) > n {
		return sorted[:n]
	}
	return sorted
}

// ExperienceEntries 返回工作经历章节的各行
func ExperienceEntries(sections types.Sections) []string {
	return sections.Lines(types.SectionWorkExperience)
}

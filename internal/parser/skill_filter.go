package parser

import (
	"strings"

	"resume-optimizer/internal/types"
)

// skillSeparators 技能行内的分隔符
const skillSeparators = ",;|•·▪●"

// SplitSkills 将技能章节的行拆分为单个技能
func SplitSkills(lines []string) []string {
	var skills []string
	for _, line := range lines {
		parts := strings.FieldsFunc(line, func(r rune) bool {
			return strings.ContainsRune(skillSeparators, r)
		})
		for _, p := range parts {
			p = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(p), "-–"))
			if p != "" {
				skills = append(skills, p)
			}
		}
	}
	return skills
}

// SkillCandidates 从章节中取出候选技能
func SkillCandidates(sections types.Sections) []string {
	return SplitSkills(sections.Lines(types.SectionSkills))
}

// RelevantSkills 返回在 JD 中以整词形式出现的技能（大小写不敏感）
// 按输入顺序返回，重复技能只保留第一次出现的写法
func RelevantSkills(skills []string, jobDesc string) []string {
	relevant := make([]string, 0)
	if strings.TrimSpace(jobDesc) == "" {
		return relevant
	}
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		if ContainsWholeWord(jobDesc, skill) {
			seen[key] = struct{}{}
			relevant = append(relevant, skill)
		}
	}
	return relevant
}

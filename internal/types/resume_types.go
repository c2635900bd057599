package types

import "strings"

// SectionLabel 表示简历章节标签
type SectionLabel string

const (
	// SectionContact 联系方式（第一个章节标题之前的内容）
	SectionContact SectionLabel = "CONTACT"
	// SectionProfessionalSummary 个人简介
	SectionProfessionalSummary SectionLabel = "PROFESSIONAL_SUMMARY"
	// SectionRelevantExperience 相关经历
	SectionRelevantExperience SectionLabel = "RELEVANT_EXPERIENCE"
	// SectionWorkExperience 工作经历
	SectionWorkExperience SectionLabel = "WORK_EXPERIENCE"
	// SectionEducation 教育经历
	SectionEducation SectionLabel = "EDUCATION"
	// SectionSkills 技能
	SectionSkills SectionLabel = "SKILLS"
	// SectionCertifications 证书与执照
	SectionCertifications SectionLabel = "CERTIFICATIONS_AND_LICENSES"
)

// AllSectionLabels 固定的章节顺序，渲染时也按此顺序输出
var AllSectionLabels = []SectionLabel{
	SectionContact,
	SectionProfessionalSummary,
	SectionRelevantExperience,
	SectionWorkExperience,
	SectionEducation,
	SectionSkills,
	SectionCertifications,
}

var sectionTitles = map[SectionLabel]string{
	SectionContact:             "Contact Information",
	SectionProfessionalSummary: "Professional Summary",
	SectionRelevantExperience:  "Relevant Experience",
	SectionWorkExperience:      "Work Experience",
	SectionEducation:           "Education",
	SectionSkills:              "Skills",
	SectionCertifications:      "Certifications and Licenses",
}

// Title 返回章节在文档中显示的标题
func (l SectionLabel) Title() string {
	if t, ok := sectionTitles[l]; ok {
		return t
	}
	return string(l)
}

// Sections 章节标签到章节正文的映射，始终包含 AllSectionLabels 中的每个键
type Sections map[SectionLabel]string

// NewSections 创建所有章节均为空字符串的映射
func NewSections() Sections {
	s := make(Sections, len(AllSectionLabels))
	for _, label := range AllSectionLabels {
		s[label] = ""
	}
	return s
}

// Lines 返回章节正文的各行，正文为空时返回 nil
func (s Sections) Lines(label SectionLabel) []string {
	body := s[label]
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n")
}

// EmptyLabels 返回正文为空的章节标签
func (s Sections) EmptyLabels() []SectionLabel {
	var empty []SectionLabel
	for _, label := range AllSectionLabels {
		if strings.TrimSpace(s[label]) == "" {
			empty = append(empty, label)
		}
	}
	return empty
}

// Analysis 简历与JD的分析结果（不含改写）
type Analysis struct {
	RequestID      string                  `json:"request_id"`
	ATSScore       float64                 `json:"ats_score"`
	Sections       map[SectionLabel]string `json:"sections"`
	RelevantSkills []string                `json:"relevant_skills"`
	Experiences    []string                `json:"experiences"`
}

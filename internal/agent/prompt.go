package agent

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

const systemPrompt = "You are an expert resume writer who tailors resumes to job descriptions for applicant tracking systems."

// PromptHints 从原始简历中提取的辅助信息
type PromptHints struct {
	RelevantSkills []string
	Experiences    []string
}

// BuildRewritePrompt 构建改写简历的消息列表
// 输出的章节标题与渲染器识别的标题保持一致
func BuildRewritePrompt(resumeText, jobDesc string, hints PromptHints) []*schema.Message {
	var b strings.Builder
	b.WriteString("Rewrite the following resume to better match the given job description.\n")
	b.WriteString("Make it professional, concise, and well-structured with sections like ")
	b.WriteString("Professional Summary, Skills, Work Experience, Education and Certifications and Licenses.\n")
	b.WriteString("Put each section title on its own line and do not use Markdown formatting.\n")

	if len(hints.RelevantSkills) > 0 {
		b.WriteString("\nSkills from the resume that the job description asks for (emphasize these):\n")
		b.WriteString(strings.Join(hints.RelevantSkills, ", "))
		b.WriteString("\n")
	}
	if len(hints.Experiences) > 0 {
		b.WriteString("\nMost recent work experience, newest first:\n")
		for _, e := range hints.Experiences {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nJob Description:\n")
	b.WriteString(strings.TrimSpace(jobDesc))
	b.WriteString("\n\nOriginal Resume:\n")
	b.WriteString(strings.TrimSpace(resumeText))
	b.WriteString("\n\nOptimized Resume:\n")

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(b.String()),
	}
}

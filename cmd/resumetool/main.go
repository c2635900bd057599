package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"resume-optimizer/internal/config"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/tracing"
	"resume-optimizer/internal/types"
)

func main() {
	cmd := flag.String("cmd", "sections", "命令: extract, sections, score, sanitize, sample-config")
	filePath := flag.String("file", "", "简历文件路径 (pdf/docx/txt)，sanitize 时为待清理的文本文件，- 表示标准输入")
	jdPath := flag.String("jd", "", "职位描述文件路径，score 和 sections 命令使用")
	maxLen := flag.Int("maxlen", 0, "extract 输出的最大字符数，0 表示不截断")
	pdfType := flag.String("pdf", "ledongthuc", "PDF 解析器: ledongthuc, eino")
	out := flag.String("out", "config.sample.yaml", "sample-config 的输出路径")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "[resumetool] ", log.LstdFlags)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var err error
	switch *cmd {
	case "extract":
		err = runExtract(ctx, *filePath, *pdfType, *maxLen, logger)
	case "sections":
		err = runSections(ctx, *filePath, *jdPath, *pdfType, logger)
	case "score":
		err = runScore(ctx, *filePath, *jdPath, *pdfType, logger)
	case "sanitize":
		err = runSanitize(*filePath)
	case "sample-config":
		err = config.CreateSampleConfig(*out)
		if err == nil {
			fmt.Printf("示例配置已写入 %s\n", *out)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("缺少 -file 参数")
	}
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func newExtractor(ctx context.Context, pdfType string, logger *log.Logger) (parser.TextExtractor, error) {
	var pdf parser.TextExtractor
	switch pdfType {
	case "eino":
		e, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(logger))
		if err != nil {
			return nil, err
		}
		pdf = e
	case "ledongthuc", "":
		pdf = parser.NewLocalPDFTextExtractor(logger)
	default:
		return nil, fmt.Errorf("未知的PDF解析器: %s", pdfType)
	}
	return parser.NewMultiFormatExtractor(pdf, nil, logger), nil
}

func extractText(ctx context.Context, path, pdfType string, logger *log.Logger) (string, error) {
	data, err := readInput(path)
	if err != nil {
		return "", err
	}
	extractor, err := newExtractor(ctx, pdfType, logger)
	if err != nil {
		return "", err
	}
	text, _, err := extractor.ExtractTextFromBytes(ctx, data, path, nil)
	return text, err
}

func runExtract(ctx context.Context, path, pdfType string, maxLen int, logger *log.Logger) error {
	text, err := extractText(ctx, path, pdfType, logger)
	if err != nil {
		return err
	}
	if maxLen > 0 {
		text = tracing.TruncateString(text, maxLen)
	}
	fmt.Println(text)
	return nil
}

func runSections(ctx context.Context, path, jdPath, pdfType string, logger *log.Logger) error {
	text, err := extractText(ctx, path, pdfType, logger)
	if err != nil {
		return err
	}
	sections := parser.NewSectionExtractor(parser.WithSectionLogger(logger)).Extract(text)

	analysis := types.Analysis{
		Sections:       sections,
		RelevantSkills: []string{},
		Experiences:    parser.TopExperiences(parser.ExperienceEntries(sections), parser.DefaultMaxExperiences),
	}
	if jdPath != "" {
		jd, err := os.ReadFile(jdPath)
		if err != nil {
			return err
		}
		analysis.ATSScore = parser.ATSScore(text, string(jd))
		analysis.RelevantSkills = parser.RelevantSkills(parser.SkillCandidates(sections), string(jd))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}

func runScore(ctx context.Context, path, jdPath, pdfType string, logger *log.Logger) error {
	if jdPath == "" {
		return fmt.Errorf("score 命令需要 -jd 参数")
	}
	text, err := extractText(ctx, path, pdfType, logger)
	if err != nil {
		return err
	}
	jd, err := os.ReadFile(jdPath)
	if err != nil {
		return err
	}
	fmt.Printf("ATS Score: %.2f\n", parser.ATSScore(text, string(jd)))
	return nil
}

func runSanitize(path string) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(parser.Sanitize(string(data))))
	return nil
}

package processor

import (
	"context"
	"fmt"
	"log"
	"time"

	"resume-optimizer/internal/config"
	"resume-optimizer/internal/parser"
)

// BuildTextExtractor 统一构建文本提取器的逻辑
// PDF 按 extractor.pdf 选择 eino、tika 或 ledongthuc；tika.all_formats 为 true 时 DOCX 也走 Tika
func BuildTextExtractor(ctx context.Context, cfg *config.Config, loggerProvider func(prefix string) *log.Logger) (parser.TextExtractor, error) {
	initLogger := loggerProvider("[ExtractorInit] ")

	var tika *parser.TikaTextExtractor
	if cfg.Tika.ServerURL != "" && (cfg.Extractor.PDF == "tika" || cfg.Tika.AllFormats) {
		tikaOptions := []parser.TikaOption{
			parser.WithTikaMetadata(cfg.Tika.MetadataMode != "none"),
			parser.WithTikaLogger(loggerProvider("[Tika] ")),
		}
		if cfg.Tika.Timeout > 0 {
			tikaOptions = append(tikaOptions, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		tika = parser.NewTikaTextExtractor(cfg.Tika.ServerURL, tikaOptions...)
	}

	var pdfExtractor parser.TextExtractor
	switch cfg.Extractor.PDF {
	case "tika":
		if tika == nil {
			return nil, fmt.Errorf("extractor.pdf 为 tika 但未配置 tika.server_url")
		}
		initLogger.Printf("使用Tika PDF解析器: %s", cfg.Tika.ServerURL)
		pdfExtractor = tika
	case "ledongthuc":
		initLogger.Println("使用本地 ledongthuc PDF解析器")
		pdfExtractor = parser.NewLocalPDFTextExtractor(loggerProvider("[LocalPDF] "))
	case "eino", "":
		initLogger.Println("使用Eino PDF解析器")
		einoExtractor, err := parser.NewEinoPDFTextExtractor(ctx,
			parser.WithEinoLogger(loggerProvider("[EinoPDF] ")),
			parser.WithEinoTimeout(config.GetDuration(cfg.Extractor.Timeout, 30*time.Second)),
		)
		if err != nil {
			return nil, err
		}
		pdfExtractor = einoExtractor
	default:
		return nil, fmt.Errorf("未知的PDF解析器类型: %s", cfg.Extractor.PDF)
	}

	var docxExtractor parser.TextExtractor
	if cfg.Tika.AllFormats && tika != nil {
		initLogger.Println("DOCX 使用Tika解析")
		docxExtractor = tika
	}
	return parser.NewMultiFormatExtractor(pdfExtractor, docxExtractor, loggerProvider("[Extractor] ")), nil
}

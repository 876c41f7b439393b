package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"ZhaoYaoJing/internal/model"
)

type OutputFormatter struct {
	format string
	out    io.Writer
}

func NewOutputFormatter(format string, out io.Writer) *OutputFormatter {
	return &OutputFormatter{format: format, out: out}
}

// PrintReport 输出查询报告，指定 outputFile 时写入文件
func (of *OutputFormatter) PrintReport(report model.QueryReport, outputFile string) error {
	var output string
	var err error

	switch strings.ToLower(of.format) {
	case "json":
		output, err = of.formatJSON(report)
	case "csv":
		output, err = of.formatCSV(report)
	default:
		output = of.formatText(report)
	}
	if err != nil {
		return err
	}

	if outputFile != "" {
		return os.WriteFile(outputFile, []byte(output), 0644)
	}

	_, err = io.WriteString(of.out, output)
	return err
}

func severityIcon(severity string) string {
	switch severity {
	case "CRITICAL":
		return "🔥"
	case "HIGH":
		return "🔴"
	case "MEDIUM":
		return "🟠"
	case "LOW":
		return "🟢"
	default:
		return "⚪"
	}
}

func (of *OutputFormatter) formatText(report model.QueryReport) string {
	var builder strings.Builder

	builder.WriteString("\n🔍 照妖镜 NVD 漏洞查询\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")

	label := "软件"
	if report.Flow == model.FlowKeywords {
		label = "关键词"
	}
	builder.WriteString(fmt.Sprintf("%s: %s\n", label, report.Input))
	if report.Elapsed != "" {
		builder.WriteString(fmt.Sprintf("耗时: %s\n", report.Elapsed))
	}

	if len(report.CPEs) > 0 {
		builder.WriteString(fmt.Sprintf("\n📦 匹配的CPE (%d):\n", len(report.CPEs)))
		for _, c := range report.CPEs {
			if c.Title != "" {
				builder.WriteString(fmt.Sprintf("  %s  (%s)\n", c.Name, c.Title))
			} else {
				builder.WriteString(fmt.Sprintf("  %s\n", c.Name))
			}
		}
	}

	if len(report.CVEs) == 0 {
		builder.WriteString("\n✅ 未发现已知CVE漏洞\n")
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("\n⚠️  发现 %d 个CVE漏洞 (最高分 %.1f):\n", len(report.CVEs), report.MaxScore()))
	builder.WriteString(strings.Repeat("─", 80) + "\n")

	w := tabwriter.NewWriter(&builder, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CVE\t发布时间\t最后修改\t影响分\t严重性")
	for _, cve := range report.CVEs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s %s\n",
			cve.ID,
			cve.Published,
			cve.LastModified,
			cve.ImpactScore,
			severityIcon(cve.Severity), cve.Severity,
		)
	}
	w.Flush()

	builder.WriteString(strings.Repeat("═", 60) + "\n")
	return builder.String()
}

func (of *OutputFormatter) formatJSON(report model.QueryReport) (string, error) {
	jsonBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("生成JSON失败: %w", err)
	}
	return string(jsonBytes) + "\n", nil
}

func (of *OutputFormatter) formatCSV(report model.QueryReport) (string, error) {
	var builder strings.Builder
	writer := csv.NewWriter(&builder)

	writer.Write([]string{"cve_id", "published", "last_modified", "impact_score", "severity", "source"})
	for _, cve := range report.CVEs {
		writer.Write([]string{
			cve.ID,
			cve.Published,
			cve.LastModified,
			strconv.FormatFloat(cve.ImpactScore, 'f', 1, 64),
			cve.Severity,
			cve.Source,
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("生成CSV失败: %w", err)
	}
	return builder.String(), nil
}

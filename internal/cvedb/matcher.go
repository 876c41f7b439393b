package cvedb

import (
	"math"
	"strings"

	"github.com/quay/claircore/toolkit/types/cpe"
	"github.com/quay/claircore/toolkit/types/cvss"

	"ZhaoYaoJing/internal/model"
)

const notAvailable = "N/A"

// ImpactScore 提取CVSS v3.1影响分
//
// 只使用第一条 cvssMetricV31，缺失时为0。
func ImpactScore(cve model.CveRecord) float64 {
	if len(cve.Metrics.CvssMetricV31) == 0 {
		return 0
	}
	score := cve.Metrics.CvssMetricV31[0].CvssData.BaseScore
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}
	return score
}

// Severity 返回定性严重程度 (NONE, LOW, MEDIUM, HIGH, CRITICAL)
func Severity(cve model.CveRecord) string {
	if len(cve.Metrics.CvssMetricV31) == 0 {
		return severityForScore(0)
	}
	data := cve.Metrics.CvssMetricV31[0].CvssData
	if data.VectorString != "" {
		if v, err := cvss.ParseV3(data.VectorString); err == nil {
			return qualitativeLabel(cvss.QualitativeScore[cvss.V3Metric](&v))
		}
	}
	if data.BaseSeverity != "" {
		return strings.ToUpper(data.BaseSeverity)
	}
	return severityForScore(ImpactScore(cve))
}

func qualitativeLabel(q cvss.Qualitative) string {
	switch q {
	case cvss.Low:
		return "LOW"
	case cvss.Medium:
		return "MEDIUM"
	case cvss.High:
		return "HIGH"
	case cvss.Critical:
		return "CRITICAL"
	default:
		return "NONE"
	}
}

func severityForScore(score float64) string {
	switch {
	case score == 0:
		return "NONE"
	case score < 4.0:
		return "LOW"
	case score < 7.0:
		return "MEDIUM"
	case score < 9.0:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}

// ApplicableCVEs 把一批漏洞转换为展示记录，每个漏洞对应一条，不做过滤
func ApplicableCVEs(batch *model.CveBatch, source string) []model.ApplicableCVE {
	if batch == nil {
		return nil
	}
	out := make([]model.ApplicableCVE, 0, len(batch.Vulnerabilities))
	for _, item := range batch.Vulnerabilities {
		out = append(out, model.ApplicableCVE{
			ID:           orNA(item.CVE.ID),
			Published:    orNA(item.CVE.Published),
			LastModified: orNA(item.CVE.LastModified),
			ImpactScore:  ImpactScore(item.CVE),
			Severity:     Severity(item.CVE),
			Source:       source,
		})
	}
	return out
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// MatchesCPE 判断CPE条件是否匹配软件名与版本
//
// 第4个字段(product)忽略大小写与名称比较，第5个字段(version)与版本比较，
// "*" 为通配符；未指定版本时匹配任意版本。
func MatchesCPE(name, version, criteria string) bool {
	parts := strings.Split(criteria, ":")
	if len(parts) < 6 {
		return false
	}
	if !strings.EqualFold(parts[4], name) {
		return false
	}
	if version == "" || parts[5] == "*" {
		return true
	}
	return parts[5] == version
}

// FilterByTargets 只保留受影响配置匹配任一目标软件的漏洞
func FilterByTargets(batch *model.CveBatch, targets []model.TargetSoftware) *model.CveBatch {
	if batch == nil {
		return nil
	}
	filtered := *batch
	filtered.Vulnerabilities = make([]model.Vulnerability, 0, len(batch.Vulnerabilities))
	for _, item := range batch.Vulnerabilities {
		if affectsAny(item.CVE, targets) {
			filtered.Vulnerabilities = append(filtered.Vulnerabilities, item)
		}
	}
	return &filtered
}

func affectsAny(cve model.CveRecord, targets []model.TargetSoftware) bool {
	for _, config := range cve.Configurations {
		for _, node := range config.Nodes {
			for _, match := range node.CpeMatch {
				if !match.Vulnerable {
					continue
				}
				for _, target := range targets {
					if MatchesCPE(target.Name, target.Version, match.Criteria) && InVersionRange(target.Version, match) {
						return true
					}
				}
			}
		}
	}
	return false
}

// SummarizeCPE 拆分CPE名称中的厂商、产品与版本
func SummarizeCPE(rec model.CpeRecord) model.CpeSummary {
	summary := model.CpeSummary{Name: rec.CPEName, Title: rec.Title()}

	wfn, err := cpe.Unbind(rec.CPEName)
	if err != nil {
		// 非标准格式按冒号拆分
		parts := strings.Split(rec.CPEName, ":")
		if len(parts) > 3 {
			summary.Vendor = parts[3]
		}
		if len(parts) > 4 {
			summary.Product = parts[4]
		}
		if len(parts) > 5 {
			summary.Version = parts[5]
		}
		return summary
	}

	summary.Vendor = wfnValue(wfn.Attr[cpe.Vendor])
	summary.Product = wfnValue(wfn.Attr[cpe.Product])
	summary.Version = wfnValue(wfn.Attr[cpe.Version])
	return summary
}

func wfnValue(v cpe.Value) string {
	switch v.Kind {
	case cpe.ValueSet:
		return unquoteWFN(v.V)
	case cpe.ValueNA:
		return "-"
	default:
		return "*"
	}
}

// WFN 中的特殊字符带反斜杠转义
func unquoteWFN(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

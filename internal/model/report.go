package model

// Flow 查询流程
type Flow string

const (
	// FlowSoftware 软件名/版本 → CPE → CVE
	FlowSoftware Flow = "software"
	// FlowKeywords 关键词 → CVE
	FlowKeywords Flow = "keywords"
)

// SoftwareQuery 用户输入的软件名与可选版本
type SoftwareQuery struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// TargetSoftware 匹配策略使用的目标软件
type TargetSoftware struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version"`
}

// QueryReport 一次查询的结果
type QueryReport struct {
	Input   string          `json:"input"`
	Flow    Flow            `json:"flow"`
	CPEs    []CpeSummary    `json:"cpes,omitempty"`
	CVEs    []ApplicableCVE `json:"cves"`
	Elapsed string          `json:"elapsed"`
}

// MaxScore 返回最高影响分
func (r QueryReport) MaxScore() float64 {
	maxScore := 0.0
	for _, cve := range r.CVEs {
		if cve.ImpactScore > maxScore {
			maxScore = cve.ImpactScore
		}
	}
	return maxScore
}

// Options 命令行选项
type Options struct {
	ConfigFile   string
	Listen       string
	Database     string
	Offline      bool
	ImportFiles  []string
	Software     string
	Keywords     string
	OutputFile   string
	OutputFormat string // text, json, csv
	Verbose      bool
}

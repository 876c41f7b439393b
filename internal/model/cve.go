package model

// 以下结构对应 NVD REST API 2.0 的 JSON 响应格式
// https://nvd.nist.gov/developers/vulnerabilities

// CveBatch CVE接口 (/rest/json/cves/2.0) 的响应
type CveBatch struct {
	ResultsPerPage  int             `json:"resultsPerPage"`
	StartIndex      int             `json:"startIndex"`
	TotalResults    int             `json:"totalResults"`
	Format          string          `json:"format,omitempty"`
	Version         string          `json:"version,omitempty"`
	Timestamp       string          `json:"timestamp,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// Vulnerability 响应中的单个漏洞条目
type Vulnerability struct {
	CVE CveRecord `json:"cve"`
}

// CveRecord NVD漏洞记录
type CveRecord struct {
	ID               string          `json:"id"`
	SourceIdentifier string          `json:"sourceIdentifier,omitempty"`
	Published        string          `json:"published"`
	LastModified     string          `json:"lastModified"`
	VulnStatus       string          `json:"vulnStatus,omitempty"`
	Descriptions     []Description   `json:"descriptions,omitempty"`
	Metrics          Metrics         `json:"metrics"`
	Configurations   []Configuration `json:"configurations,omitempty"`
}

// Description 多语言描述
type Description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Metrics CVSS评分集合，只使用 v3.1
type Metrics struct {
	CvssMetricV31 []CvssMetricV31 `json:"cvssMetricV31,omitempty"`
}

// CvssMetricV31 单条 CVSS v3.1 评分
type CvssMetricV31 struct {
	Source   string   `json:"source,omitempty"`
	Type     string   `json:"type,omitempty"`
	CvssData CvssData `json:"cvssData"`
}

// CvssData CVSS向量与基础分
type CvssData struct {
	Version      string  `json:"version,omitempty"`
	VectorString string  `json:"vectorString,omitempty"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity,omitempty"`
}

// Configuration 受影响配置
type Configuration struct {
	Nodes []ConfigNode `json:"nodes"`
}

// ConfigNode 配置节点
type ConfigNode struct {
	Operator string     `json:"operator,omitempty"`
	Negate   bool       `json:"negate,omitempty"`
	CpeMatch []CpeMatch `json:"cpeMatch"`
}

// CpeMatch 节点中的CPE匹配条件
//
// criteria 的版本字段为 "*" 时，受影响范围由 version* 边界给出。
type CpeMatch struct {
	Vulnerable            bool   `json:"vulnerable"`
	Criteria              string `json:"criteria"`
	MatchCriteriaID       string `json:"matchCriteriaId,omitempty"`
	VersionStartIncluding string `json:"versionStartIncluding,omitempty"`
	VersionStartExcluding string `json:"versionStartExcluding,omitempty"`
	VersionEndIncluding   string `json:"versionEndIncluding,omitempty"`
	VersionEndExcluding   string `json:"versionEndExcluding,omitempty"`
}

// HasVersionRange 是否带有版本范围边界
func (m CpeMatch) HasVersionRange() bool {
	return m.VersionStartIncluding != "" || m.VersionStartExcluding != "" ||
		m.VersionEndIncluding != "" || m.VersionEndExcluding != ""
}

// Description 返回英文描述，没有英文时返回第一条
func (r CveRecord) Description() string {
	for _, d := range r.Descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(r.Descriptions) > 0 {
		return r.Descriptions[0].Value
	}
	return ""
}

// ApplicableCVE 展示用的扁平化漏洞记录
type ApplicableCVE struct {
	ID           string  `json:"id"`
	Published    string  `json:"published"`
	LastModified string  `json:"last_modified"`
	ImpactScore  float64 `json:"impact_score"`
	Severity     string  `json:"severity"`
	Source       string  `json:"source,omitempty"`
}

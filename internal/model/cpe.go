package model

// CpeResponse CPE接口 (/rest/json/cpes/2.0) 的响应
type CpeResponse struct {
	ResultsPerPage int          `json:"resultsPerPage"`
	StartIndex     int          `json:"startIndex"`
	TotalResults   int          `json:"totalResults"`
	Format         string       `json:"format,omitempty"`
	Version        string       `json:"version,omitempty"`
	Timestamp      string       `json:"timestamp,omitempty"`
	Products       []CpeProduct `json:"products"`
}

// CpeProduct 产品条目，包装一个CPE记录
type CpeProduct struct {
	CPE CpeRecord `json:"cpe"`
}

// CpeRecord CPE字典记录
type CpeRecord struct {
	CPEName      string     `json:"cpeName"`
	CPENameID    string     `json:"cpeNameId,omitempty"`
	Deprecated   bool       `json:"deprecated,omitempty"`
	LastModified string     `json:"lastModified,omitempty"`
	Created      string     `json:"created,omitempty"`
	Titles       []CpeTitle `json:"titles,omitempty"`
}

// CpeTitle CPE标题
type CpeTitle struct {
	Title string `json:"title"`
	Lang  string `json:"lang"`
}

// Title 返回英文标题
func (r CpeRecord) Title() string {
	title := ""
	for _, t := range r.Titles {
		if title == "" || t.Lang == "en" {
			title = t.Title
		}
	}
	return title
}

// CpeSummary 拆分后的CPE名称，用于展示
type CpeSummary struct {
	Name    string `json:"name"`
	Vendor  string `json:"vendor"`
	Product string `json:"product"`
	Version string `json:"version"`
	Title   string `json:"title,omitempty"`
}

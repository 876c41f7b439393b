package cvedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"ZhaoYaoJing/internal/model"
)

// 以下方法让本地镜像与 NVDClient 提供相同的查询接口

// LookupCPE 按产品名与版本查询本地CPE字典，"*" 或空版本匹配任意版本
func (cd *CVEDatabase) LookupCPE(ctx context.Context, name, version string) ([]model.CpeProduct, error) {
	mirrorQueryCounter.WithLabelValues("cpe").Inc()

	if version == "" {
		version = "*"
	}

	rows, err := cd.db.QueryContext(ctx, `
		SELECT document FROM cpes
		WHERE product = ?
		AND (? = '*' OR version = ?)
		ORDER BY cpe_name`,
		strings.ToLower(name), version, version,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []model.CpeProduct{}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		var rec model.CpeRecord
		if err := json.Unmarshal([]byte(document), &rec); err != nil {
			cd.logger.Warn("跳过损坏的CPE记录: %v", err)
			continue
		}
		products = append(products, model.CpeProduct{CPE: rec})
	}

	return products, rows.Err()
}

// LookupCVEByCPE 查询受影响配置匹配该CPE名称的CVE。
// 带版本范围的条件（criteria 版本为 "*"）还需版本落在范围内
func (cd *CVEDatabase) LookupCVEByCPE(ctx context.Context, cpeName string) (*model.CveBatch, error) {
	mirrorQueryCounter.WithLabelValues("cve_by_cpe").Inc()

	vendor, product, version := cpeFields(cpeName)
	if version == "*" {
		version = ""
	}

	rows, err := cd.db.QueryContext(ctx, `
		SELECT c.cve_id, c.document, a.vendor, a.criteria,
			a.version_start_including, a.version_start_excluding,
			a.version_end_including, a.version_end_excluding
		FROM cves c
		JOIN affected_cpes a ON c.cve_id = a.cve_id
		WHERE a.product = ? AND a.vulnerable = 1
		ORDER BY c.cve_id`,
		product,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	batch := &model.CveBatch{Vulnerabilities: []model.Vulnerability{}}
	for rows.Next() {
		var id, document, affectedVendor string
		var match model.CpeMatch
		if err := rows.Scan(&id, &document, &affectedVendor, &match.Criteria,
			&match.VersionStartIncluding, &match.VersionStartExcluding,
			&match.VersionEndIncluding, &match.VersionEndExcluding); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		if vendor != "" && vendor != "*" && affectedVendor != "*" && affectedVendor != vendor {
			continue
		}
		if !MatchesCPE(product, version, match.Criteria) || !InVersionRange(version, match) {
			continue
		}

		var rec model.CveRecord
		if err := json.Unmarshal([]byte(document), &rec); err != nil {
			cd.logger.Warn("跳过损坏的CVE记录 %s: %v", id, err)
			continue
		}
		seen[id] = true
		batch.Vulnerabilities = append(batch.Vulnerabilities, model.Vulnerability{CVE: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	batch.TotalResults = len(batch.Vulnerabilities)
	batch.ResultsPerPage = batch.TotalResults
	return batch, nil
}

// LookupCVEByKeywords 在描述中搜索全部关键词（忽略大小写）
func (cd *CVEDatabase) LookupCVEByKeywords(ctx context.Context, keywords []string) (*model.CveBatch, error) {
	mirrorQueryCounter.WithLabelValues("cve_by_keywords").Inc()

	query := `SELECT document FROM cves`
	args := make([]interface{}, 0, len(keywords))
	conditions := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(description) LIKE ?")
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY cve_id"

	rows, err := cd.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return cd.scanBatch(rows)
}

func (cd *CVEDatabase) scanBatch(rows *sql.Rows) (*model.CveBatch, error) {
	batch := &model.CveBatch{Vulnerabilities: []model.Vulnerability{}}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		var rec model.CveRecord
		if err := json.Unmarshal([]byte(document), &rec); err != nil {
			cd.logger.Warn("跳过损坏的CVE记录: %v", err)
			continue
		}
		batch.Vulnerabilities = append(batch.Vulnerabilities, model.Vulnerability{CVE: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	batch.TotalResults = len(batch.Vulnerabilities)
	batch.ResultsPerPage = batch.TotalResults
	return batch, nil
}

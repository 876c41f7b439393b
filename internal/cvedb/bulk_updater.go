package cvedb

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ZhaoYaoJing/internal/model"
)

// nvdDocument NVD API 2.0 响应文档，CVE 与 CPE 两种格式共用
type nvdDocument struct {
	Vulnerabilities []model.Vulnerability `json:"vulnerabilities"`
	Products        []model.CpeProduct    `json:"products"`
}

// ImportFiles 导入多个NVD JSON文件 (.json 或 .zip)
func (cd *CVEDatabase) ImportFiles(paths []string) (int, error) {
	total := 0
	failed := 0
	for _, path := range paths {
		count, err := cd.ImportFile(path)
		if err != nil {
			failed++
			cd.logger.Warn("导入 %s 失败: %v", path, err)
			continue
		}
		total += count
		cd.logger.Info("%s 导入完成: %d 条记录", path, count)
	}

	cd.logger.Info("导入完成，总计 %d 条记录", total)
	if failed > 0 {
		return total, fmt.Errorf("部分文件导入失败: %d 个失败", failed)
	}
	return total, nil
}

// ImportFile 导入单个NVD API响应文件
func (cd *CVEDatabase) ImportFile(path string) (int, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, fmt.Errorf("文件不存在: %s", path)
	}

	var documents [][]byte
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		extracted, err := extractZip(path)
		if err != nil {
			return 0, err
		}
		documents = extracted
	} else {
		content, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("读取文件失败: %w", err)
		}
		documents = [][]byte{content}
	}

	count := 0
	for _, content := range documents {
		n, err := cd.importDocument(bytes.NewReader(content))
		if err != nil {
			return count, err
		}
		count += n
	}

	if err := cd.recordImport(filepath.Base(path), count); err != nil {
		cd.logger.Error("记录导入历史失败: %v", err)
	}
	return count, nil
}

func (cd *CVEDatabase) importDocument(r io.Reader) (int, error) {
	var doc nvdDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("解析JSON失败: %w", err)
	}

	count := 0
	for _, item := range doc.Vulnerabilities {
		if err := cd.InsertCVE(item.CVE); err != nil {
			cd.logger.Debug("插入CVE失败 %s: %v", item.CVE.ID, err)
			continue
		}
		count++

		// 每1000条显示一次进度
		if count%1000 == 0 {
			cd.logger.Info("已导入 %d 条CVE记录...", count)
		}
	}

	for _, product := range doc.Products {
		if err := cd.InsertCPE(product.CPE); err != nil {
			cd.logger.Debug("插入CPE失败 %s: %v", product.CPE.CPEName, err)
			continue
		}
		count++
	}

	return count, nil
}

// 读取ZIP中所有JSON文件
func extractZip(zipPath string) ([][]byte, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var documents [][]byte
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		documents = append(documents, content)
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("未找到JSON文件")
	}
	return documents, nil
}

package cvedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ZhaoYaoJing/internal/model"
	"ZhaoYaoJing/internal/utils"

	_ "github.com/mattn/go-sqlite3"
)

// CVEDatabase 本地NVD镜像，保存导入的CPE与CVE文档
type CVEDatabase struct {
	db     *sql.DB
	path   string
	logger *utils.Logger
}

func NewCVEDatabase(dbPath string) (*CVEDatabase, error) {
	logger := utils.NewLogger("cvedb")

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	cvedb := &CVEDatabase{
		db:     db,
		path:   dbPath,
		logger: logger,
	}

	// 初始化表
	if err := cvedb.initTables(); err != nil {
		db.Close()
		return nil, err
	}

	return cvedb, nil
}

func (cd *CVEDatabase) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cves (
		cve_id TEXT PRIMARY KEY,
		description TEXT,
		published TEXT,
		last_modified TEXT,
		document TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS affected_cpes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cve_id TEXT NOT NULL,
		vendor TEXT,
		product TEXT,
		version TEXT,
		criteria TEXT NOT NULL,
		vulnerable INTEGER NOT NULL DEFAULT 1,
		version_start_including TEXT NOT NULL DEFAULT '',
		version_start_excluding TEXT NOT NULL DEFAULT '',
		version_end_including TEXT NOT NULL DEFAULT '',
		version_end_excluding TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (cve_id) REFERENCES cves(cve_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_affected_product ON affected_cpes(product);
	CREATE INDEX IF NOT EXISTS idx_affected_cve ON affected_cpes(cve_id);

	CREATE TABLE IF NOT EXISTS cpes (
		cpe_name TEXT PRIMARY KEY,
		cpe_name_id TEXT,
		vendor TEXT,
		product TEXT,
		version TEXT,
		document TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cpes_product ON cpes(product);

	CREATE TABLE IF NOT EXISTS import_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		source TEXT,
		records_added INTEGER
	);
	`

	if _, err := cd.db.Exec(schema); err != nil {
		return err
	}
	return cd.migrateRangeColumns()
}

// 旧版本建立的镜像缺少版本范围列，补上后需重新导入才有范围数据
func (cd *CVEDatabase) migrateRangeColumns() error {
	for _, column := range []string{
		"version_start_including",
		"version_start_excluding",
		"version_end_including",
		"version_end_excluding",
	} {
		_, err := cd.db.Exec(`ALTER TABLE affected_cpes ADD COLUMN ` + column + ` TEXT NOT NULL DEFAULT ''`)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("迁移 affected_cpes.%s 失败: %w", column, err)
		}
	}
	return nil
}

// cpeFields 返回CPE 2.3字符串中的厂商、产品、版本（小写）
func cpeFields(name string) (vendor, product, version string) {
	parts := strings.Split(name, ":")
	if len(parts) > 3 {
		vendor = strings.ToLower(parts[3])
	}
	if len(parts) > 4 {
		product = strings.ToLower(parts[4])
	}
	if len(parts) > 5 {
		version = parts[5]
	}
	return vendor, product, version
}

// InsertCVE 插入CVE记录及其受影响的CPE条件
func (cd *CVEDatabase) InsertCVE(cve model.CveRecord) error {
	if cve.ID == "" {
		return fmt.Errorf("CVE缺少ID")
	}

	document, err := json.Marshal(cve)
	if err != nil {
		return err
	}

	tx, err := cd.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO cves
		(cve_id, description, published, last_modified, document)
		VALUES (?, ?, ?, ?, ?)`,
		cve.ID, cve.Description(), cve.Published, cve.LastModified, string(document),
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM affected_cpes WHERE cve_id = ?`, cve.ID); err != nil {
		return err
	}

	// 插入受影响的CPE条件
	for _, config := range cve.Configurations {
		for _, node := range config.Nodes {
			for _, match := range node.CpeMatch {
				vendor, product, version := cpeFields(match.Criteria)
				_, err = tx.Exec(`
					INSERT INTO affected_cpes
					(cve_id, vendor, product, version, criteria, vulnerable,
					 version_start_including, version_start_excluding,
					 version_end_including, version_end_excluding)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					cve.ID, vendor, product, version, match.Criteria, match.Vulnerable,
					match.VersionStartIncluding, match.VersionStartExcluding,
					match.VersionEndIncluding, match.VersionEndExcluding,
				)
				if err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit()
}

// InsertCPE 插入CPE字典记录
func (cd *CVEDatabase) InsertCPE(rec model.CpeRecord) error {
	if rec.CPEName == "" {
		return fmt.Errorf("CPE缺少名称")
	}

	document, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	vendor, product, version := cpeFields(rec.CPEName)
	_, err = cd.db.Exec(`
		INSERT OR REPLACE INTO cpes
		(cpe_name, cpe_name_id, vendor, product, version, document)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.CPEName, rec.CPENameID, vendor, product, version, string(document),
	)
	return err
}

// HasData 检查数据库中是否有数据
func (cd *CVEDatabase) HasData() (bool, error) {
	count, err := cd.GetCveCount()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCveCount 获取CVE总数
func (cd *CVEDatabase) GetCveCount() (int, error) {
	var count int
	err := cd.db.QueryRow("SELECT COUNT(*) FROM cves").Scan(&count)
	return count, err
}

// GetCpeCount 获取CPE总数
func (cd *CVEDatabase) GetCpeCount() (int, error) {
	var count int
	err := cd.db.QueryRow("SELECT COUNT(*) FROM cpes").Scan(&count)
	return count, err
}

// ImportRecord 导入历史条目
type ImportRecord struct {
	ID           int
	ImportedAt   string
	Source       string
	RecordsAdded int
}

// GetImportHistory 获取最近的导入历史
func (cd *CVEDatabase) GetImportHistory() ([]ImportRecord, error) {
	rows, err := cd.db.Query(`
		SELECT id, imported_at, source, records_added
		FROM import_history
		ORDER BY id DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(&rec.ID, &rec.ImportedAt, &rec.Source, &rec.RecordsAdded); err != nil {
			continue
		}
		history = append(history, rec)
	}

	return history, rows.Err()
}

func (cd *CVEDatabase) recordImport(source string, count int) error {
	_, err := cd.db.Exec(`
		INSERT INTO import_history (source, records_added)
		VALUES (?, ?)`,
		source, count,
	)
	return err
}

func (cd *CVEDatabase) Close() error {
	return cd.db.Close()
}

package cvedb

import (
	"regexp"
	"strconv"
	"strings"

	"ZhaoYaoJing/internal/model"
)

var versionDigits = regexp.MustCompile(`\d+`)

// InVersionRange 检查版本是否落在CPE匹配条件的范围边界内
//
// 没有边界、或未指定版本 ("", "*", "-") 时视为受影响。
func InVersionRange(version string, match model.CpeMatch) bool {
	version = strings.TrimSpace(version)
	if version == "" || version == "*" || version == "-" {
		return true
	}
	if !match.HasVersionRange() {
		return true
	}

	if start := match.VersionStartIncluding; start != "" && compareVersions(version, start) < 0 {
		return false
	}
	if start := match.VersionStartExcluding; start != "" && compareVersions(version, start) <= 0 {
		return false
	}
	if end := match.VersionEndIncluding; end != "" && compareVersions(version, end) > 0 {
		return false
	}
	if end := match.VersionEndExcluding; end != "" && compareVersions(version, end) >= 0 {
		return false
	}
	return true
}

// 解析版本号中的数字部分
func parseVersion(version string) []int {
	matches := versionDigits.FindAllString(version, -1)
	if len(matches) == 0 {
		return nil
	}

	parts := make([]int, 0, len(matches))
	for _, match := range matches {
		num, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		parts = append(parts, num)
	}
	return parts
}

// compareVersions 逐段比较数字版本，缺少的段按0处理；
// 任一方没有数字时退回字符串比较
func compareVersions(a, b string) int {
	v1, v2 := parseVersion(a), parseVersion(b)
	if v1 == nil || v2 == nil {
		return strings.Compare(a, b)
	}

	maxLen := len(v1)
	if len(v2) > maxLen {
		maxLen = len(v2)
	}

	for i := 0; i < maxLen; i++ {
		var num1, num2 int
		if i < len(v1) {
			num1 = v1[i]
		}
		if i < len(v2) {
			num2 = v2[i]
		}

		if num1 > num2 {
			return 1
		}
		if num1 < num2 {
			return -1
		}
	}
	return 0
}

package cvedb

import (
	"ZhaoYaoJing/internal/model"
)

// 测试用CVE数据

func mockCVE(id string, score float64, vector string, criteria ...string) model.CveRecord {
	cve := model.CveRecord{
		ID:           id,
		Published:    "2021-06-01T00:00:00.000",
		LastModified: "2021-06-15T00:00:00.000",
		Descriptions: []model.Description{
			{Lang: "en", Value: "Mock vulnerability " + id},
		},
	}
	if score > 0 || vector != "" {
		cve.Metrics.CvssMetricV31 = []model.CvssMetricV31{
			{
				Source: "nvd@nist.gov",
				Type:   "Primary",
				CvssData: model.CvssData{
					Version:      "3.1",
					VectorString: vector,
					BaseScore:    score,
				},
			},
		}
	}
	if len(criteria) > 0 {
		node := model.ConfigNode{Operator: "OR"}
		for _, c := range criteria {
			node.CpeMatch = append(node.CpeMatch, model.CpeMatch{Vulnerable: true, Criteria: c})
		}
		cve.Configurations = []model.Configuration{{Nodes: []model.ConfigNode{node}}}
	}
	return cve
}

func sampleCVEs() []model.CveRecord {
	nginx := mockCVE("CVE-2021-23017", 7.7,
		"CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:L/A:H",
		"cpe:2.3:a:f5:nginx:*:*:*:*:*:*:*:*")
	nginx.Descriptions[0].Value = "A security issue in nginx resolver was identified, which might allow an attacker to cause 1-byte memory overwrite"

	apache := mockCVE("CVE-2021-40438", 9.0,
		"CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:C/C:H/I:H/A:H",
		"cpe:2.3:a:apache:http_server:2.4.48:*:*:*:*:*:*:*")
	apache.Descriptions[0].Value = "A crafted request uri-path can cause mod_proxy to forward the request to an origin server chosen by the remote user"

	openssl := mockCVE("CVE-2022-3602", 7.5,
		"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H",
		"cpe:2.3:a:openssl:openssl:3.0.0:*:*:*:*:*:*:*",
		"cpe:2.3:a:openssl:openssl:3.0.6:*:*:*:*:*:*:*")
	openssl.Descriptions[0].Value = "A buffer overrun can be triggered in X.509 certificate verification"

	return []model.CveRecord{nginx, apache, openssl}
}

func sampleCPEs() []model.CpeRecord {
	return []model.CpeRecord{
		{
			CPEName:   "cpe:2.3:a:f5:nginx:1.18.0:*:*:*:*:*:*:*",
			CPENameID: "7A5E2A6C-0000-0000-0000-000000000001",
			Titles:    []model.CpeTitle{{Title: "F5 Nginx 1.18.0", Lang: "en"}},
		},
		{
			CPEName:   "cpe:2.3:a:f5:nginx:1.20.0:*:*:*:*:*:*:*",
			CPENameID: "7A5E2A6C-0000-0000-0000-000000000002",
			Titles:    []model.CpeTitle{{Title: "F5 Nginx 1.20.0", Lang: "en"}},
		},
		{
			CPEName:   "cpe:2.3:a:openssl:openssl:3.0.0:*:*:*:*:*:*:*",
			CPENameID: "7A5E2A6C-0000-0000-0000-000000000003",
		},
	}
}

// Package lookup 实现两条查询流程：软件名/版本 → CPE → CVE，以及关键词 → CVE
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"ZhaoYaoJing/internal/config"
	"ZhaoYaoJing/internal/cvedb"
	"ZhaoYaoJing/internal/model"
	"ZhaoYaoJing/internal/utils"
)

// ErrUpstreamUnavailable 上游查询失败或没有匹配的CPE
var ErrUpstreamUnavailable = errors.New("上游数据不可用")

// Source 提供CPE与CVE查询，由 cvedb.NVDClient 和 cvedb.CVEDatabase 实现
type Source interface {
	LookupCPE(ctx context.Context, name, version string) ([]model.CpeProduct, error)
	LookupCVEByCPE(ctx context.Context, cpeName string) (*model.CveBatch, error)
	LookupCVEByKeywords(ctx context.Context, keywords []string) (*model.CveBatch, error)
}

var (
	_ Source = (*cvedb.NVDClient)(nil)
	_ Source = (*cvedb.CVEDatabase)(nil)
)

// Options 查询服务配置
type Options struct {
	FanOut      int
	MatchPolicy string
	Targets     []model.TargetSoftware
}

// Service 执行软件与关键词两条查询流程
type Service struct {
	source  Source
	fanOut  int
	policy  string
	targets []model.TargetSoftware
	logger  *utils.Logger
}

// NewService 创建查询服务，FanOut 默认4，匹配策略默认 unfiltered
func NewService(source Source, opts Options) *Service {
	if opts.FanOut <= 0 {
		opts.FanOut = 4
	}
	if opts.MatchPolicy == "" {
		opts.MatchPolicy = config.PolicyUnfiltered
	}
	return &Service{
		source:  source,
		fanOut:  opts.FanOut,
		policy:  opts.MatchPolicy,
		targets: opts.Targets,
		logger:  utils.NewLogger("lookup"),
	}
}

// LookupSoftware 先查CPE，再逐个CPE并发查询CVE，结果按CPE顺序拼接
func (s *Service) LookupSoftware(ctx context.Context, q model.SoftwareQuery) (model.QueryReport, error) {
	start := time.Now()
	input := q.Name
	if q.Version != "" {
		input += " " + q.Version
	}
	report := model.QueryReport{Input: input, Flow: model.FlowSoftware, CVEs: []model.ApplicableCVE{}}

	products, err := s.source.LookupCPE(ctx, q.Name, q.Version)
	if err != nil {
		s.logger.Error("查询CPE失败 %q: %v", input, err)
		return report, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if len(products) == 0 {
		s.logger.Info("未找到匹配的CPE: %q", input)
		return report, fmt.Errorf("%w: 未找到匹配的CPE", ErrUpstreamUnavailable)
	}
	s.logger.Debug("%q 匹配到 %d 个CPE", input, len(products))

	targets := []model.TargetSoftware{{Name: q.Name, Version: q.Version}}
	results := make([][]model.ApplicableCVE, len(products))

	wg := sizedwaitgroup.New(s.fanOut)
	for i, product := range products {
		report.CPEs = append(report.CPEs, cvedb.SummarizeCPE(product.CPE))

		wg.Add()
		go func(i int, cpeName string) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			batch, err := s.source.LookupCVEByCPE(ctx, cpeName)
			if err != nil {
				s.logger.With("cpe", cpeName).Warn("查询CVE失败, 跳过: %v", err)
				return
			}
			results[i] = cvedb.ApplicableCVEs(s.applyPolicy(batch, targets), cpeName)
		}(i, product.CPE.CPEName)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, cves := range results {
		report.CVEs = append(report.CVEs, cves...)
	}
	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	s.logger.Info("%q: %d 个CPE, %d 个CVE, 耗时 %s", input, len(products), len(report.CVEs), report.Elapsed)
	return report, nil
}

// LookupKeywords 按关键词搜索CVE。空关键词直接返回空结果，不发出请求
func (s *Service) LookupKeywords(ctx context.Context, keywords []string) (model.QueryReport, error) {
	start := time.Now()
	report := model.QueryReport{
		Input: strings.Join(keywords, " "),
		Flow:  model.FlowKeywords,
		CVEs:  []model.ApplicableCVE{},
	}

	if len(keywords) == 0 {
		report.Elapsed = time.Since(start).Round(time.Millisecond).String()
		return report, nil
	}

	batch, err := s.source.LookupCVEByKeywords(ctx, keywords)
	if err != nil {
		s.logger.Error("关键词搜索失败 %q: %v", report.Input, err)
		return report, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	report.CVEs = cvedb.ApplicableCVEs(s.applyPolicy(batch, s.targets), report.Input)
	if report.CVEs == nil {
		report.CVEs = []model.ApplicableCVE{}
	}
	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	s.logger.Info("%q: %d 个CVE, 耗时 %s", report.Input, len(report.CVEs), report.Elapsed)
	return report, nil
}

func (s *Service) applyPolicy(batch *model.CveBatch, targets []model.TargetSoftware) *model.CveBatch {
	if s.policy != config.PolicyCPE {
		return batch
	}
	return cvedb.FilterByTargets(batch, targets)
}

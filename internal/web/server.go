// Package web 提供照妖镜的HTML页面与JSON接口
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ZhaoYaoJing/internal/lookup"
	"ZhaoYaoJing/internal/model"
	"ZhaoYaoJing/internal/query"
	"ZhaoYaoJing/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	msgCPEFailure = "Failed to fetch CPE data"
	msgCVEFailure = "Failed to fetch CVE data"
)

var httpRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "zhaoyaojing",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code.",
	},
	[]string{"route", "status"},
)

// Searcher 两条查询流程，由 lookup.Service 实现
type Searcher interface {
	LookupSoftware(ctx context.Context, q model.SoftwareQuery) (model.QueryReport, error)
	LookupKeywords(ctx context.Context, keywords []string) (model.QueryReport, error)
}

var _ Searcher = (*lookup.Service)(nil)

// Deps Web应用依赖
type Deps struct {
	Searcher Searcher
}

type server struct {
	searcher Searcher
	logger   *utils.Logger
}

type pageData struct {
	Title  string
	Input  string
	Back   string
	Report *model.QueryReport
}

// NewApp 创建Fiber应用并注册全部路由
func NewApp(deps Deps) *fiber.App {
	s := &server{
		searcher: deps.Searcher,
		logger:   utils.NewLogger("web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "ZhaoYaoJing",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})

	app.Use(fiberrecover.New())
	app.Use(logger.New(logger.Config{Output: s.logger.Writer()}))
	app.Use(compress.New())
	app.Use(countRequests)

	app.Get("/", s.softwareForm)
	app.Post("/", s.softwareSearch)
	app.Get("/keywords", s.keywordsForm)
	app.Post("/keywords", s.keywordsSearch)

	api := app.Group("/api/v1")
	api.Get("/software", s.apiSoftware)
	api.Get("/keywords", s.apiKeywords)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func countRequests(c *fiber.Ctx) error {
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	httpRequests.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Inc()
	return err
}

// statusFor 把查询错误映射为HTTP状态码与提示。
// 输入错误为400，上游不可用及其他错误一律为500
func statusFor(err error, upstreamMsg string) (int, string) {
	var verr *query.ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest, verr.Error()
	}
	return fiber.StatusInternalServerError, upstreamMsg
}

func (s *server) plainError(c *fiber.Ctx, err error, upstreamMsg string) error {
	code, msg := statusFor(err, upstreamMsg)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).SendString(msg)
}

func (s *server) jsonError(c *fiber.Ctx, err error, upstreamMsg string) error {
	code, msg := statusFor(err, upstreamMsg)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}

func (s *server) render(c *fiber.Ctx, name string, data pageData) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("渲染模板 %s 失败: %v", name, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

func (s *server) softwareForm(c *fiber.Ctx) error {
	return s.render(c, "index.html", pageData{Title: "Software vulnerability search"})
}

func (s *server) keywordsForm(c *fiber.Ctx) error {
	return s.render(c, "keywords.html", pageData{Title: "Keyword vulnerability search"})
}

func (s *server) searchSoftware(c *fiber.Ctx, raw string) (model.QueryReport, error) {
	q, err := query.ParseSoftware(raw)
	if err != nil {
		return model.QueryReport{}, err
	}
	return s.searcher.LookupSoftware(c.UserContext(), q)
}

func (s *server) searchKeywords(c *fiber.Ctx, raw string) (model.QueryReport, error) {
	return s.searcher.LookupKeywords(c.UserContext(), query.ParseKeywords(raw))
}

func (s *server) softwareSearch(c *fiber.Ctx) error {
	report, err := s.searchSoftware(c, c.FormValue("software"))
	if err != nil {
		return s.plainError(c, err, msgCPEFailure)
	}
	return s.render(c, "results.html", pageData{
		Title:  "Vulnerabilities",
		Input:  report.Input,
		Back:   "/",
		Report: &report,
	})
}

func (s *server) keywordsSearch(c *fiber.Ctx) error {
	report, err := s.searchKeywords(c, c.FormValue("keywords"))
	if err != nil {
		return s.plainError(c, err, msgCVEFailure)
	}
	return s.render(c, "results.html", pageData{
		Title:  "Vulnerabilities",
		Input:  report.Input,
		Back:   "/keywords",
		Report: &report,
	})
}

func (s *server) apiSoftware(c *fiber.Ctx) error {
	report, err := s.searchSoftware(c, c.Query("q"))
	if err != nil {
		return s.jsonError(c, err, msgCPEFailure)
	}
	return c.JSON(report)
}

func (s *server) apiKeywords(c *fiber.Ctx) error {
	report, err := s.searchKeywords(c, c.Query("q"))
	if err != nil {
		return s.jsonError(c, err, msgCVEFailure)
	}
	return c.JSON(report)
}

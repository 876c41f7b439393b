package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"ZhaoYaoJing/internal/model"
)

// fileList 可重复的 -import 参数，也接受逗号分隔
type fileList []string

func (f *fileList) String() string {
	return strings.Join(*f, ",")
}

func (f *fileList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*f = append(*f, part)
		}
	}
	return nil
}

type Parser struct {
	Options model.Options
	out     io.Writer
}

func NewParser(out io.Writer) *Parser {
	return &Parser{out: out}
}

// Parse 解析命令行参数。-help 时打印帮助并返回 flag.ErrHelp
func (p *Parser) Parse(args []string) error {
	var help bool
	var imports fileList

	fs := flag.NewFlagSet("ZhaoYaoJing", flag.ContinueOnError)
	fs.SetOutput(p.out)
	fs.Usage = p.printHelp

	fs.StringVar(&p.Options.ConfigFile, "config", "", "YAML配置文件")
	fs.StringVar(&p.Options.Listen, "listen", "", "HTTP监听地址 (默认: :8080)")
	fs.StringVar(&p.Options.Database, "db", "", "本地NVD镜像数据库路径")
	fs.BoolVar(&p.Options.Offline, "offline", false, "只使用本地镜像查询")
	fs.Var(&imports, "import", "导入NVD JSON文件 (.json 或 .zip)，可重复")
	fs.StringVar(&p.Options.Software, "software", "", "查询软件名与可选版本，如 \"nginx 1.18\"")
	fs.StringVar(&p.Options.Keywords, "keywords", "", "按关键词搜索CVE")
	fs.StringVar(&p.Options.OutputFile, "output", "", "输出文件")
	fs.StringVar(&p.Options.OutputFormat, "format", "text", "输出格式 (text, json, csv)")
	fs.BoolVar(&p.Options.Verbose, "verbose", false, "显示详细信息")
	fs.BoolVar(&help, "help", false, "显示帮助")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if help {
		p.printHelp()
		return flag.ErrHelp
	}

	// -import 之后的位置参数同样视为导入文件
	if len(imports) > 0 {
		imports = append(imports, fs.Args()...)
	} else if fs.NArg() > 0 {
		return fmt.Errorf("未知参数: %s", strings.Join(fs.Args(), " "))
	}
	p.Options.ImportFiles = imports

	switch strings.ToLower(p.Options.OutputFormat) {
	case "text", "json", "csv":
		p.Options.OutputFormat = strings.ToLower(p.Options.OutputFormat)
	default:
		return fmt.Errorf("不支持的输出格式: %s", p.Options.OutputFormat)
	}

	if p.Options.Software != "" && p.Options.Keywords != "" {
		return fmt.Errorf("-software 与 -keywords 不能同时使用")
	}

	return nil
}

// OneShot 是否执行单次查询而不是启动Web服务
func (p *Parser) OneShot() bool {
	return p.Options.Software != "" || p.Options.Keywords != ""
}

func (p *Parser) printHelp() {
	fmt.Fprintln(p.out, "照妖镜 - NVD 漏洞查询服务")
	fmt.Fprintln(p.out, "")
	fmt.Fprintln(p.out, "使用方法: ZhaoYaoJing [选项]")
	fmt.Fprintln(p.out, "")
	fmt.Fprintln(p.out, "选项:")
	fmt.Fprintln(p.out, "  -config string     YAML配置文件")
	fmt.Fprintln(p.out, "  -listen string     HTTP监听地址 (默认: :8080)")
	fmt.Fprintln(p.out, "  -db string         本地NVD镜像数据库路径")
	fmt.Fprintln(p.out, "  -offline           只使用本地镜像查询")
	fmt.Fprintln(p.out, "  -import file...    导入NVD JSON文件 (.json 或 .zip)")
	fmt.Fprintln(p.out, "  -software string   查询软件名与可选版本")
	fmt.Fprintln(p.out, "  -keywords string   按关键词搜索CVE")
	fmt.Fprintln(p.out, "  -format string     输出格式 (text, json, csv) (默认: text)")
	fmt.Fprintln(p.out, "  -output string     输出文件")
	fmt.Fprintln(p.out, "  -verbose           显示详细信息")
	fmt.Fprintln(p.out, "  -help              显示帮助")
	fmt.Fprintln(p.out, "")
	fmt.Fprintln(p.out, "示例:")
	fmt.Fprintln(p.out, "  ZhaoYaoJing -listen :8080")
	fmt.Fprintln(p.out, "  ZhaoYaoJing -software \"nginx 1.18.0\" -format json")
	fmt.Fprintln(p.out, "  ZhaoYaoJing -db data/nvd.db -import nvdcve-2.0-2024.json.zip")
	fmt.Fprintln(p.out, "  ZhaoYaoJing -db data/nvd.db -offline -keywords \"remote code execution\"")
}

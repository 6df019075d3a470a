package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-book-translator/internal/config"
	"github.com/nerdneilsfield/go-book-translator/internal/document"
	"github.com/nerdneilsfield/go-book-translator/internal/logger"
	"github.com/nerdneilsfield/go-book-translator/pkg/backend/factory"
	"github.com/nerdneilsfield/go-book-translator/pkg/glossary"
	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

var (
	// 命令行标志变量
	cfgFile      string
	backendKind  string
	endpoint     string
	modelName    string
	apiKey       string
	sourceLang   string
	targetLang   string
	windowSize   int
	overlapSize  int
	concurrency  int
	maxAttempts  int
	streamOutput bool
	wrapTerms    bool
	glossaryPath string
	debugMode    bool
	checkOnly    bool // 只做后端健康检查
	listBackends bool
	dryRun       bool // 只显示分章/窗口规划，不调用后端
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "booktrans [flags] input_file output_file",
		Short: "基于滑动窗口的上下文感知书籍翻译工具",
		Long: `booktrans 将长文档逐句翻译为目标语言，用重叠的句子窗口给模型提供
前后文，避免逐句翻译的生硬断裂，同时通过基于位置的去重缝合保证
译文不重不漏。

支持的翻译后端:
  - ollama: 本地 Ollama 推理服务器（支持流式输出）
  - openai: OpenAI 及兼容端点（支持流式输出）
  - huggingface: HuggingFace Inference API（整批翻译）`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if listBackends || checkOnly {
				return nil
			}
			if dryRun {
				if len(args) < 1 {
					return fmt.Errorf("dry-run mode requires at least 1 file argument")
				}
				return nil
			}
			if len(args) != 2 {
				return fmt.Errorf("accepts 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd, args)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认 ~/.booktrans.yaml)")
	flags.StringVarP(&backendKind, "backend", "b", "", "翻译后端 (ollama/openai/huggingface)")
	flags.StringVarP(&endpoint, "endpoint", "e", "", "后端端点地址")
	flags.StringVarP(&modelName, "model", "m", "", "模型名称")
	flags.StringVar(&apiKey, "api-key", "", "API 密钥")
	flags.StringVarP(&sourceLang, "source", "s", "", "源语言 (默认 auto)")
	flags.StringVarP(&targetLang, "target", "t", "", "目标语言")
	flags.IntVarP(&windowSize, "window", "w", 0, "窗口大小（句子数）")
	flags.IntVarP(&overlapSize, "overlap", "o", -1, "相邻窗口的重叠句子数")
	flags.IntVar(&concurrency, "concurrency", 0, "同时在途的后端调用数上限")
	flags.IntVar(&maxAttempts, "max-attempts", 0, "后端不可用时的重试预算")
	flags.BoolVar(&streamOutput, "stream", false, "启用流式输出（后端支持时）")
	flags.BoolVar(&wrapTerms, "wrap-terms", false, "用稳定标记包裹术语")
	flags.StringVarP(&glossaryPath, "glossary", "g", "", "术语表文件路径 (TOML)")
	flags.BoolVar(&debugMode, "debug", false, "输出调试日志")
	flags.BoolVar(&checkOnly, "check", false, "只检查后端可用性")
	flags.BoolVar(&listBackends, "list-backends", false, "列出支持的后端")
	flags.BoolVar(&dryRun, "dry-run", false, "只显示分章与窗口规划")

	return rootCmd
}

// buildConfig 加载配置文件并叠加命令行标志
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = backendKind
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("model") {
		cfg.Model = modelName
	}
	if flags.Changed("api-key") {
		cfg.APIKey = apiKey
	}
	if flags.Changed("source") {
		cfg.SourceLang = sourceLang
	}
	if flags.Changed("target") {
		cfg.TargetLang = targetLang
	}
	if flags.Changed("window") {
		cfg.WindowSize = windowSize
	}
	if flags.Changed("overlap") {
		cfg.Overlap = overlapSize
	}
	if flags.Changed("concurrency") {
		cfg.MaxConcurrency = concurrency
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = maxAttempts
	}
	if flags.Changed("stream") {
		cfg.Stream = streamOutput
	}
	if flags.Changed("wrap-terms") {
		cfg.WrapTerms = wrapTerms
	}
	if flags.Changed("glossary") {
		cfg.GlossaryPath = glossaryPath
	}
	if flags.Changed("debug") {
		cfg.Debug = debugMode
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	if listBackends {
		pterm.DefaultSection.Println("Supported backends")
		for _, kind := range factory.Kinds() {
			pterm.Println("  " + kind)
		}
		return nil
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Debug)
	defer func() { _ = log.Sync() }()

	be, err := factory.New(factory.Settings{
		Kind:     cfg.Backend,
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.RequestTimeout,
		Extra:    cfg.Extra,
	})
	if err != nil {
		return err
	}

	store := glossary.NewStore(log)
	if cfg.GlossaryPath != "" {
		if err := glossary.LoadFile(cfg.GlossaryPath, store); err != nil {
			return err
		}
		if err := store.CheckConflicts(); err != nil {
			pterm.Warning.Println(err.Error())
		}
	}

	adapter := pipeline.NewAdapter(be, log)

	if checkOnly {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if err := adapter.HealthCheck(ctx); err != nil {
			pterm.Error.Printf("backend %s is not available: %v\n", cfg.Backend, err)
			return err
		}
		pterm.Success.Printf("backend %s is ready\n", cfg.Backend)
		return nil
	}

	chapters, err := document.LoadText(args[0])
	if err != nil {
		return err
	}
	titles := make(map[int]string, len(chapters))
	for _, ch := range chapters {
		titles[ch.ID] = ch.Title
	}

	if dryRun {
		return printPlan(chapters, cfg)
	}

	renderer := newProgressRenderer(titles)
	mode := glossary.ModeTrust
	if cfg.WrapTerms {
		mode = glossary.ModeWrap
	}
	orch := pipeline.NewOrchestrator(adapter, store,
		pipeline.WithLogger(log),
		pipeline.WithMaxConcurrent(cfg.MaxConcurrency),
		pipeline.WithResolver(glossary.NewResolver(store, mode)),
		pipeline.WithEventHandler(renderer.Handle),
	)

	job, err := orch.Submit(chapters, cfg.JobConfig())
	if err != nil {
		return err
	}

	// Ctrl-C 触发协作式取消，在途窗口完整结束后任务转为 Cancelled
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		pterm.Warning.Println("cancellation requested, finishing in-flight windows")
		job.Cancel()
	}()

	renderer.Start()
	runErr := orch.Run(context.Background(), job)
	renderer.Stop()
	if runErr != nil {
		return runErr
	}

	renderSummary(job, titles)

	results := make(map[int][]pipeline.Sentence)
	for _, ch := range job.Chapters() {
		results[ch.ChapterID] = ch.Sentences
	}
	if err := document.WriteText(args[1], chapters, results); err != nil {
		return err
	}

	if cfg.GlossaryPath != "" {
		if pending := store.Pending(); len(pending) > 0 {
			pterm.Info.Printf("%d suggested glossary term(s) pending approval\n", len(pending))
		}
		if err := glossary.SaveFile(cfg.GlossaryPath, store); err != nil {
			return err
		}
	}

	switch job.Status() {
	case pipeline.JobCompleted:
		pterm.Success.Printf("translation completed, output written to %s\n", args[1])
		return nil
	case pipeline.JobCancelled:
		pterm.Warning.Printf("translation cancelled, partial output written to %s\n", args[1])
		return nil
	default:
		pterm.Error.Println("translation finished with failed chapters")
		return fmt.Errorf("job %s finished with status %s", job.ID, job.Status())
	}
}

// printPlan 预演模式：只显示分章与窗口规划
func printPlan(chapters []*pipeline.Chapter, cfg *config.Config) error {
	pterm.DefaultSection.Println("Translation plan")
	for _, ch := range chapters {
		windows, err := pipeline.PlanWindows(ch, cfg.WindowSize, cfg.Overlap)
		if err != nil {
			return err
		}
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("chapter %d", ch.ID)
		}
		pterm.Printf("%s: %d sentence(s), %d window(s)\n", title, ch.Len(), len(windows))
		for _, w := range windows {
			pterm.Printf("  window [%d, %d] (%d sentences)\n", w.StartID, w.EndID, w.Size())
		}
	}
	return nil
}

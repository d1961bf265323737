package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/config"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/display"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/executor"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/ledger"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/oracle"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/workspace"
)

// session bundles everything both phases need
type session struct {
	Root     string
	Config   *config.Config
	Ledger   *ledger.Ledger
	Executor *executor.Executor
	Display  *display.Display
	Rules    []oracle.Rule
}

// openSession finds (or initializes) the workspace, loads config, and
// replays the merged history into a fresh ledger.
func openSession(initIfMissing bool) (*session, error) {
	root, err := workspace.Find()
	if err != nil {
		if !initIfMissing {
			return nil, err
		}
		root, err = os.Getwd()
		if err != nil {
			return nil, err
		}
		if err := workspace.Init(root); err != nil {
			return nil, err
		}
	}

	var cfg *config.Config
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	led := ledger.New()
	historyPath := workspace.HistoryPath(root)
	if err := led.Load(historyPath); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	led.SetPersistPath(historyPath)

	execCfg := executor.DefaultConfig(root)
	execCfg.PipBinary = cfg.Pip.Binary
	execCfg.PythonBinary = cfg.Pip.Python
	if cfg.Pip.TimeoutSeconds > 0 {
		execCfg.Timeout = time.Duration(cfg.Pip.TimeoutSeconds) * time.Second
	}

	rules := oracle.DefaultRules()
	if cfg.Resolve.RulesFile != "" {
		rules, err = oracle.LoadRules(cfg.Resolve.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
	}

	return &session{
		Root:     root,
		Config:   cfg,
		Ledger:   led,
		Executor: executor.New(execCfg),
		Display:  display.New(),
		Rules:    rules,
	}, nil
}

// newOracle builds the oracle client, or nil when disabled
func (s *session) newOracle(disabled bool) (oracle.Client, error) {
	if disabled {
		return nil, nil
	}
	client, err := oracle.NewOpenAIClient(oracle.OpenAIOptions{
		APIKey:  s.Config.Oracle.APIKey,
		BaseURL: s.Config.Oracle.BaseURL,
		Model:   s.Config.Oracle.Model,
	}, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. The
// loops only observe cancellation at iteration boundaries, so the
// in-flight command finishes first.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt, finishing current iteration...")
		cancel()
	}()
	return ctx, cancel
}

// confirmPrompt asks y/n on stdin before a solution is applied
func confirmPrompt(description string) bool {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s Apply: %s [y/N] ", yellow("?"), description)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

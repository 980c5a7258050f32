package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"storyboard/internal/config"
	"storyboard/internal/generate"
	"storyboard/internal/history"
	"storyboard/internal/logging"
	"storyboard/internal/services/llm"
	"storyboard/internal/studio"
)

type commandContext struct {
	configFlag  *string
	projectFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, projectFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		projectFlag: projectFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) projectPath() (string, error) {
	path := defaultProjectFile
	if c.projectFlag != nil && strings.TrimSpace(*c.projectFlag) != "" {
		path = strings.TrimSpace(*c.projectFlag)
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}
	return filepath.Clean(expanded), nil
}

// openSession loads the project with the configured concurrency and style.
// The caller must Close the session to release the project lock.
func (c *commandContext) openSession(opts ...studio.Option) (*studio.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	path, err := c.projectPath()
	if err != nil {
		return nil, err
	}
	base := []studio.Option{
		studio.WithLogger(logger),
		studio.WithConcurrency(cfg.Batch.ImageConcurrency, cfg.Batch.PromptConcurrency),
		studio.WithDefaultStyle(cfg.Style.PromptTemplate),
	}
	return studio.Open(path, append(base, opts...)...)
}

// withSession opens the project, runs fn and saves the project when fn
// succeeds and changed something.
func (c *commandContext) withSession(fn func(*studio.Session) error, opts ...studio.Option) error {
	session, err := c.openSession(opts...)
	if err != nil {
		return err
	}
	defer session.Close()
	if err := fn(session); err != nil {
		return err
	}
	if !session.Dirty() {
		return nil
	}
	return session.Save()
}

// withGenerator opens the project with an OpenRouter backend and the history
// store attached. The project is saved even when fn fails so finished rows
// are kept.
func (c *commandContext) withGenerator(cmd *cobra.Command, fn func(*studio.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireLLM(); err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	client := newLLMClient(cfg, logger)

	progress := newProgressPrinter(cmd.OutOrStdout())
	session, err := c.openSession(
		studio.WithBackend(generate.NewOpenRouterBackend(client)),
		studio.WithHistory(store),
		studio.WithObserver(progress.observe),
	)
	if err != nil {
		return err
	}
	defer session.Close()
	runErr := fn(session)
	if session.Dirty() {
		if err := session.Save(); err != nil {
			return err
		}
	}
	return runErr
}

func (c *commandContext) withHistory(fn func(*history.Store, string) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	path, err := c.projectPath()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store, path)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func newLLMClient(cfg *config.Config, logger *slog.Logger) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		ImageModel:     cfg.LLM.ImageModel,
		TextModel:      cfg.LLM.TextModel,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithLogger(logger))
}

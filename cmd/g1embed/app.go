// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/cg1/g1embed/internal/config"
	"github.com/cg1/g1embed/internal/embed"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App reference and delegate through its service interfaces.
	App struct {
		Config   ConfigProvider
		Embedder EmbedService
		stdout   io.Writer
		stderr   io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Embedder EmbedService
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// EmbedRequest is the data contract between the root command and EmbedService.
	EmbedRequest struct {
		Request embed.Request
		// Config is the loaded configuration; it selects tools and the layout.
		Config *config.Config
		// Logger receives pipeline diagnostics.
		Logger *log.Logger
		// Verbose streams configure and build output to stderr.
		Verbose bool
	}

	// EmbedService runs or plans an embedding. Implementations must not print
	// results; the CLI layer renders them.
	EmbedService interface {
		Embed(ctx context.Context, req EmbedRequest) (*embed.Result, error)
		Plan(ctx context.Context, req EmbedRequest) ([]embed.PlanStep, error)
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// pipelineService implements EmbedService on top of embed.Pipeline.
	pipelineService struct {
		stderr io.Writer
	}
)

// NewApp creates the CLI composition root.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Embedder == nil {
		deps.Embedder = &pipelineService{stderr: deps.Stderr}
	}

	return &App{
		Config:   deps.Config,
		Embedder: deps.Embedder,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}, nil
}

// Embed runs the pipeline.
func (s *pipelineService) Embed(ctx context.Context, req EmbedRequest) (*embed.Result, error) {
	p, err := s.pipeline(req)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, req.Request)
}

// Plan describes the pipeline run without side effects.
func (s *pipelineService) Plan(ctx context.Context, req EmbedRequest) ([]embed.PlanStep, error) {
	p, err := s.pipeline(req)
	if err != nil {
		return nil, err
	}
	return p.Plan(req.Request)
}

func (s *pipelineService) pipeline(req EmbedRequest) (*embed.Pipeline, error) {
	cfg := req.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	encoderArgv, err := cfg.Encoder.Command.Argv()
	if err != nil {
		return nil, err
	}
	buildArgv, err := cfg.Build.Command.Argv()
	if err != nil {
		return nil, err
	}

	opts := embed.Options{
		Layout:         cfg.Layout(),
		EncoderCommand: encoderArgv,
		BuildCommand:   buildArgv,
		Logger:         req.Logger,
		DisableLock:    !cfg.Build.Lock,
	}
	if req.Verbose {
		opts.BuildOutput = s.stderr
	}
	return embed.New(opts), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"socflow/internal/di"
	"socflow/internal/domain/entity"
	"socflow/internal/infrastructure/env"
	"socflow/internal/infrastructure/httpapi"
	sqlitelookup "socflow/internal/infrastructure/lookup/sqlite"

	"github.com/spf13/cobra"
)

const appName = "socflow"

type globalFlags struct {
	dbPath   string
	logLevel string
	provider string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Interactive SOC workflow assistant",
		Long: `socflow turns chat requests such as "generate an incident report" into
guided workflows: it asks for the missing details one question at a time,
confirms the plan, then runs the task stage by stage.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database with incident records (overrides "+env.KeyDBPath+")")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides "+env.KeyLogLevel+")")
	cmd.PersistentFlags().StringVar(&flags.provider, "llm", "", "LLM provider: openrouter, ollama or none (overrides "+env.KeyLLMProvider+")")

	cmd.AddCommand(chatCmd(flags), serveCmd(flags), seedCmd(flags), catalogCmd(flags))
	return cmd
}

func newContainer(ctx context.Context, flags *globalFlags, configure func(*di.Config)) (*di.Container, *env.EnvService, error) {
	envService := env.NewEnvService()
	if flags.dbPath != "" {
		envService.Set(env.KeyDBPath, flags.dbPath)
	}
	if flags.logLevel != "" {
		envService.Set(env.KeyLogLevel, flags.logLevel)
	}
	if flags.provider != "" {
		envService.Set(env.KeyLLMProvider, flags.provider)
	}

	cfg := di.ConfigFromEnv(envService)
	if configure != nil {
		configure(&cfg)
	}

	c, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialization failed: %w", err)
	}
	return c, envService, nil
}

func orgFromEnv(e *env.EnvService) entity.OrgContext {
	return entity.OrgContext{
		OrganizationID: e.Get(env.KeyOrganizationID),
		UserID:         e.GetWithDefault("USER", "analyst"),
	}
}

func chatCmd(flags *globalFlags) *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive console session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, envService, err := newContainer(ctx, flags, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			if conversationID == "" {
				conversationID = fmt.Sprintf("console-%d", time.Now().Unix())
			}
			return runChat(ctx, c, conversationID, orgFromEnv(envService))
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation identifier (default: generated)")
	return cmd
}

func runChat(ctx context.Context, c *di.Container, conversationID string, org entity.OrgContext) error {
	ui := c.UserInteraction
	c.Logger.Info("Chat session started", "conversationId", conversationID)

	fmt.Println("Type a request such as \"generate an incident report\". /cancel drops the current workflow, /quit exits.")

	for {
		msg, err := ui.ReadMessage(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(msg) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/cancel":
			if err := c.Engine.ClearWorkflow(ctx, conversationID); err != nil {
				ui.ShowError(ctx, err)
			}
			ui.ShowTurn(ctx, &entity.TurnResult{Kind: entity.TurnCancelled, Text: "Workflow cleared."})
			continue
		}

		turn, err := c.Engine.HandleMessage(ctx, conversationID, msg, org)
		if err != nil {
			c.Logger.Error("Turn failed", "conversationId", conversationID, "error", err)
			ui.ShowError(ctx, err)
			continue
		}
		ui.ShowTurn(ctx, turn)

		if turn.Kind == entity.TurnReadyToExecute {
			executeWorkflow(ctx, c, conversationID, turn.Workflow)
		}
	}
}

func executeWorkflow(ctx context.Context, c *di.Container, conversationID string, wf *entity.WorkflowInstance) {
	ui := c.UserInteraction

	if c.TaskExecutor == nil {
		ui.ShowResult(ctx, "No language model is configured, so the gathered inputs are recorded without running the task.")
		if err := c.Engine.CompleteWorkflow(ctx, conversationID); err != nil {
			ui.ShowError(ctx, err)
		}
		return
	}

	result, err := c.TaskExecutor.Execute(ctx, wf)
	if err != nil {
		c.Logger.Error("Task failed", "workflowId", wf.ID, "error", err)
		ui.ShowError(ctx, err)
		if clearErr := c.Engine.ClearWorkflow(context.WithoutCancel(ctx), conversationID); clearErr != nil {
			ui.ShowError(ctx, clearErr)
		}
		return
	}

	c.Logger.Info("Task completed", "workflowId", wf.ID, "stages", result.Stages)
	ui.ShowResult(ctx, result.FinalAnswer)
	if err := c.Engine.CompleteWorkflow(ctx, conversationID); err != nil {
		ui.ShowError(ctx, err)
	}
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow engine over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, envService, err := newContainer(ctx, flags, func(cfg *di.Config) {
				cfg.Log.Console = true
				cfg.Headless = true
			})
			if err != nil {
				return err
			}
			defer c.Close()

			if addr == "" {
				addr = envService.Get(env.KeyHTTPAddr)
			}

			srv := httpapi.NewServer(httpapi.Config{
				Addr:                addr,
				DefaultOrganization: envService.Get(env.KeyOrganizationID),
			}, c.Engine, c.TaskExecutor, c.Metrics.Handler(), c.Logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			c.Logger.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides "+env.KeyHTTPAddr+")")
	return cmd
}

func seedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo incidents into the lookup database",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, envService, err := newContainer(cmd.Context(), flags, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			orgID := envService.Get(env.KeyOrganizationID)
			n, err := c.Lookup.Seed(cmd.Context(), sqlitelookup.DemoIncidents(orgID, time.Now()))
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			fmt.Printf("Seeded %d incidents for organization %s into %s\n", n, orgID, envService.Get(env.KeyDBPath))
			return nil
		},
	}
}

func catalogCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the task types and what they ask for",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newContainer(cmd.Context(), flags, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			for _, def := range c.Catalog.Definitions() {
				fmt.Fprintf(out, "%s (%s)\n", def.Type, def.Title)

				stages := make([]string, 0, len(def.Stages))
				for _, s := range def.Stages {
					stages = append(stages, s.Name)
				}
				fmt.Fprintf(out, "  stages: %s\n", strings.Join(stages, " → "))

				for _, s := range def.Slots {
					req := "optional"
					if s.Required {
						req = "required"
					}
					fmt.Fprintf(out, "  slot %-16s %-8s %s\n", s.Name, req, s.Shape())
				}

				for _, m := range def.Matchers {
					groups := make([]string, 0, len(m.Groups))
					for _, g := range m.Groups {
						groups = append(groups, "("+strings.Join(g, "|")+")")
					}
					fmt.Fprintf(out, "  matches: %s\n", strings.Join(groups, " + "))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

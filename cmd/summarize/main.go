package main

// Summarize a lab report PDF from the command line:
//   go run ./cmd/summarize --file report.pdf
//   go run ./cmd/summarize --file report.pdf --pages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"medreport-backend/internal/extract"
	"medreport-backend/internal/llm"
	"medreport-backend/internal/llm/openai"
	"medreport-backend/internal/reports"
	"medreport-backend/internal/shared/config"
	"medreport-backend/internal/shared/telemetry"
)

type options struct {
	file        string
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	pages       bool
	raw         bool
	out         string
}

func main() {
	if err := newRootCmd(config.Load()).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "summarize",
		Short:        "Extract a lab report and print its structured summary as JSON",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			telemetry.Configure("console", cfg.LogLevel)
			out := cmd.OutOrStdout()
			if opts.out != "" {
				f, err := os.Create(opts.out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return run(cmd.Context(), opts, out)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.file, "file", "", "path to the report PDF")
	flags.StringVar(&opts.apiKey, "api-key", cfg.LLMAPIKey, "LLM API key (defaults to LLM_API_KEY)")
	flags.StringVar(&opts.model, "model", cfg.LLMModel, "model name")
	flags.StringVar(&opts.baseURL, "base-url", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	flags.Float64Var(&opts.temperature, "temperature", cfg.LLMTemperature, "sampling temperature")
	flags.BoolVar(&opts.pages, "pages", false, "print extracted page text and stop")
	flags.BoolVar(&opts.raw, "raw", false, "print the model reply without parsing it")
	flags.StringVar(&opts.out, "out", "", "write output to this file instead of stdout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func run(ctx context.Context, opts options, out io.Writer) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	fileName := filepath.Base(opts.file)

	if opts.pages {
		pages, err := extract.Pages(ctx, data)
		if err != nil {
			return err
		}
		return writeJSON(out, pages)
	}

	text, err := extract.FromUpload(ctx, data, "", fileName)
	if err != nil {
		return err
	}

	client, err := openai.NewClient(openai.Options{
		BaseURL:     opts.baseURL,
		Model:       opts.model,
		Temperature: opts.temperature,
	})
	if err != nil {
		return err
	}

	if opts.raw {
		if strings.TrimSpace(opts.apiKey) == "" {
			return fmt.Errorf("--api-key or LLM_API_KEY is required")
		}
		temp := opts.temperature
		reply, err := client.Complete(ctx, llm.Request{
			APIKey:      opts.apiKey,
			Model:       client.Model(),
			Temperature: &temp,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: reports.BuildSummaryPrompt(text)}},
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, reply)
		return err
	}

	summarizer := &reports.Summarizer{
		LLM:         client,
		Model:       client.Model(),
		Temperature: opts.temperature,
	}
	summary, err := summarizer.SummarizeReport(ctx, text, opts.apiKey)
	if err != nil {
		return err
	}
	integrator := &reports.Integrator{}
	report := integrator.BuildReport(summary, reports.ReportMeta{SourceFileName: fileName})
	return writeJSON(out, report)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

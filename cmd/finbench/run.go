package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentify/finbench/internal/api"
	"github.com/agentify/finbench/internal/evaluator"
	"github.com/agentify/finbench/internal/infra/config"
	"github.com/agentify/finbench/internal/participant"
	"github.com/agentify/finbench/internal/schema"
	"github.com/agentify/finbench/internal/server"
)

var tasksFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start all three services in-process and run an assessment",
	Long: `Run starts the tool hub, participant agent and evaluator inside one
process, waits until all of them answer their readiness probes, resets the
agents, then submits the task file to the evaluator and prints the summary
and per-task results.`,
	Example: `  finbench run
  finbench run --tasks data/tasks/sample_tasks.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHarness(cmd.Context(), config.Load())
	},
}

func init() {
	runCmd.Flags().StringVar(&tasksFile, "tasks", "data/tasks/sample_tasks.yaml", "task file (.json, .yaml or .yml)")
}

func runHarness(ctx context.Context, cfg config.Config) error {
	tasks, err := schema.LoadTasks(tasksFile)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	toolsURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.ToolsPort)
	greenURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.EvaluatorPort)
	purpleURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.ParticipantPort)

	fmt.Println("Starting tool server, evaluator, and participant agent...")

	runner := evaluator.NewRunner(cfg.OutputDir, toolsURL)
	servers := []*server.Server{
		newLocalServer(api.NewToolHubRouter(newToolHub(cfg)), cfg.Host, cfg.ToolsPort),
		newLocalServer(api.NewEvaluatorRouter(runner, nil), cfg.Host, cfg.EvaluatorPort),
		newLocalServer(api.NewParticipantRouter(participant.NewSolver()), cfg.Host, cfg.ParticipantPort),
	}
	for _, srv := range servers {
		srv := srv
		go func() {
			if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("server %s: %v\n", srv.Addr(), err)
			}
		}()
	}
	defer func() {
		fmt.Println("Terminating services...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
	}()

	for _, probe := range []struct{ url, path string }{
		{toolsURL, "/tools"},
		{greenURL, "/agent_card"},
		{purpleURL, "/agent_card"},
	} {
		if err := waitReady(ctx, probe.url, probe.path, 20*time.Second); err != nil {
			return err
		}
	}

	fmt.Println("All services are live. Resetting agents...")
	postOrWarn(greenURL + "/reset")
	postOrWarn(purpleURL + "/reset")

	fmt.Printf("Loaded %d tasks. Launching assessment...\n", len(tasks))

	// Live progress, printed as the evaluator works through the tasks.
	events := runner.Bus().Subscribe(evaluator.ProgressTopic)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for evt := range events {
			payload, ok := evt.Payload.(map[string]any)
			if !ok {
				continue
			}
			switch payload["event"] {
			case schema.EventTaskStarted:
				fmt.Printf("  > task %v started\n", payload["task_id"])
			case schema.EventTaskFinished:
				fmt.Printf("  > task %v finished | success=%v | score=%v\n",
					payload["task_id"], payload["success"], payload["score"])
			case schema.EventAssessmentFinished:
				return
			}
		}
	}()

	result, err := submitAssessment(ctx, greenURL, schema.AssessRequest{
		PurpleAgentURL: purpleURL,
		Tasks:          tasks,
		ToolsBaseURL:   toolsURL,
	})
	if err != nil {
		return err
	}
	<-progressDone

	printResult(result)
	return nil
}

func newLocalServer(handler http.Handler, host string, port int) *server.Server {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	return server.NewServer(handler, srvCfg)
}

// waitReady polls url+path until it answers 200 or the timeout elapses.
func waitReady(ctx context.Context, url, path string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+path, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return fmt.Errorf("service not ready: %s%s", url, path)
}

func postOrWarn(url string) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		fmt.Printf("warning: POST %s: %v\n", url, err)
		return
	}
	resp.Body.Close()
}

func submitAssessment(ctx context.Context, greenURL string, req schema.AssessRequest) (*schema.AssessmentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal assess request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, greenURL+"/assess", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 600 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit assessment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("assessment failed with status %d: %s", resp.StatusCode, msg)
	}

	var result schema.AssessmentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode assessment result: %w", err)
	}
	return &result, nil
}

func printResult(result *schema.AssessmentResult) {
	fmt.Println("\n=== Assessment Result ===")
	if summary, err := json.MarshalIndent(result.Summary, "", "  "); err == nil {
		fmt.Println(string(summary))
	}

	fmt.Println("\nPer-task:")
	for _, pt := range result.PerTask {
		fmt.Printf("- %s | success=%v | score=%v\n", pt.TaskID, pt.Success, pt.Score)
		fmt.Printf("  answer: %s\n", pt.Answer.FinalAnswer)
		if len(pt.Answer.Sources) > 0 {
			urls := make([]string, 0, len(pt.Answer.Sources))
			for _, s := range pt.Answer.Sources {
				urls = append(urls, s.URL)
			}
			fmt.Printf("  sources: %v\n", urls)
		}
		fmt.Println()
	}
}

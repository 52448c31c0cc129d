package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"freshloop/internal/core/detection"
	"freshloop/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// resultsResponse GET /api/gemini-results 的回應
type resultsResponse struct {
	Success bool               `json:"success"`
	Results []detection.Result `json:"results"`
}

func newWatchCmd() *cobra.Command {
	var (
		server   string
		interval time.Duration
		polls    int
	)
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Poll a running server for new detection results",
		Example: "  freshctl watch --server http://localhost:8080 --interval 5s",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			return watch(cmd.Context(), newHTTPClient(server), interval, polls, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")
	cmd.Flags().IntVar(&polls, "polls", 0, "stop after this many polls (0 = until interrupted)")
	return cmd
}

func newHTTPClient(server string) *resty.Client {
	return resty.New().
		SetBaseURL(server).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
}

// watch 以固定間隔輪詢；失敗只記錄，不退避
func watch(ctx context.Context, client *resty.Client, interval time.Duration, polls int, out io.Writer) error {
	seen := make(map[string]bool)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		fresh, err := poll(ctx, client, seen)
		if err != nil {
			common.LogWarn("輪詢偵測結果失敗", zap.Error(err))
		}
		for _, r := range fresh {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%.0f%%\n", r.Timestamp, r.Name, r.Quality, r.Status(), r.Confidence*100)
		}
		if polls > 0 && n >= polls {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll 取回結果並回傳尚未見過的項目
func poll(ctx context.Context, client *resty.Client, seen map[string]bool) ([]detection.Result, error) {
	var body resultsResponse
	resp, err := client.R().SetContext(ctx).SetResult(&body).Get("/api/gemini-results")
	if err != nil {
		return nil, err
	}
	if resp.IsError() || !body.Success {
		return nil, fmt.Errorf("unexpected response: %s", resp.Status())
	}

	var fresh []detection.Result
	for _, r := range body.Results {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		fresh = append(fresh, r)
	}
	return fresh, nil
}

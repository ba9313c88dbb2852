// Command mfnavctl is an operator CLI against a running mfnav server's
// control plane: trigger a sync, check status, or pull a quick ranking, all
// over plain HTTP. Modeled on marlonfan-go-stock-collector's flag-driven CLI
// mode, rebuilt as a proper cobra command tree since the surface has grown
// past a single -mode/-action flag pair.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "mfnavctl",
		Short: "Operator CLI for the mfnav ingestion service",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "mfnav server base URL")

	root.AddCommand(triggerCmd(), statusCmd(), rankCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func client() *resty.Client {
	c := resty.New()
	c.SetBaseURL(serverURL)
	c.SetTimeout(10 * time.Second)
	return c
}

func triggerCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger a full or incremental sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().R().SetQueryParam("mode", mode).Post("/sync/trigger")
			if err != nil {
				return err
			}
			return printResponse(resp.Body())
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "incremental", "full or incremental")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline and rate-limiter status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().R().Get("/sync/status")
			if err != nil {
				return err
			}
			return printResponse(resp.Body())
		},
	}
}

func rankCmd() *cobra.Command {
	var window, sortBy, category string
	var limit int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show the top-ranked funds for a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client().R().
				SetQueryParam("window", window).
				SetQueryParam("sort_by", sortBy).
				SetQueryParam("limit", fmt.Sprint(limit))
			if category != "" {
				req.SetQueryParam("category", category)
			}
			resp, err := req.Get("/funds/rank")
			if err != nil {
				return err
			}
			return printResponse(resp.Body())
		},
	}
	cmd.Flags().StringVar(&window, "window", "1Y", "1Y, 3Y, 5Y, or 10Y")
	cmd.Flags().StringVar(&sortBy, "sort-by", "median_return", "median_return or max_drawdown")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().IntVar(&limit, "limit", 5, "number of results")
	return cmd
}

func printResponse(body []byte) error {
	var pretty interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

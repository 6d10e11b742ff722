package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fileguard/internal/client"
	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *App) processCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "process <path>...",
		Short: "Run local files through the pipeline",
		Long:  "Validate, scan, encrypt and store each file. One JSON result is printed per file, in argument order.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.config()
			if err != nil {
				return err
			}
			pw, err := a.password(c)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			comp, err := a.open(cmd.Context(), c, pw)
			if err != nil {
				return err
			}
			defer comp.Close()

			if workers <= 0 {
				workers = c.BatchWorkers
			}

			var results []pipeline.Result
			if len(args) == 1 {
				results = []pipeline.Result{comp.Pipeline.Process(cmd.Context(), args[0])}
			} else {
				results = comp.Pipeline.ProcessBatch(cmd.Context(), args, workers)
			}
			return a.printResults(results)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel pipeline runs (default from config)")
	return cmd
}

func (a *App) printResults(results []pipeline.Result) error {
	enc := json.NewEncoder(a.out)
	failed := 0
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
		if r.Status != pipeline.StatusSuccess {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func (a *App) sendCmd() *cobra.Command {
	var (
		addr   string
		token  string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "send <path>...",
		Short: "Upload files to a running server over gRPC",
		Long:  "Upload each file's bytes to the server. With --remote the paths name files already on the server host and --token is required.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				c, err := a.config()
				if err != nil {
					return err
				}
				addr = c.GRPCAddr
			}

			cl, err := client.NewGRPCClient(addr, token)
			if err != nil {
				return err
			}
			defer cl.Close()

			results := make([]pipeline.Result, 0, len(args))
			for _, path := range args {
				var r *pipeline.Result
				if remote {
					r, err = cl.ProcessPath(cmd.Context(), path)
				} else {
					r, err = a.send(cmd.Context(), cl, path)
				}
				if err != nil {
					return err
				}
				results = append(results, *r)
			}
			return a.printResults(results)
		},
	}
	cmd.Flags().StringVar(&addr, "server", "", "server gRPC address (default from config)")
	cmd.Flags().StringVar(&token, "token", "", "operator access token")
	cmd.Flags().BoolVar(&remote, "remote", false, "treat paths as server-side paths")
	return cmd
}

func (a *App) send(ctx context.Context, cl *client.GRPCClient, path string) (*pipeline.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cl.Send(ctx, path, data)
}

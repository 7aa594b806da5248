package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meikuraledutech/techrules"
	"github.com/meikuraledutech/techrules/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "techrules",
		Short:        "Export technical rules task graphs",
		SilenceUsage: true,
	}
	root.AddCommand(newExportCmd(cfg), newSeedCmd())
	return root
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		out         string
		productCode string
		noKinds     bool
	)

	cmd := &cobra.Command{
		Use:   "export [graph-file]",
		Short: "Write the export document for a graph file",
		Long: `Reads a task graph in JSON or YAML (by file extension, "-" for JSON on
stdin) and writes the export document with the resolved graph, the runtime
task list and the per-task formulas.

Examples:
  techrules export graph.json
  techrules export graph.yaml --out - --no-kinds`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cfg.Logger(cmd.ErrOrStderr())

			g, err := readGraph(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := techrules.DetectCycle(g.Nodes, g.Edges); err != nil {
				logger.Warn("task graph contains a cycle", "file", args[0])
			}

			opts := []techrules.Option{
				techrules.WithProductCode(cfg.ProductCode),
				techrules.WithLogger(logger),
			}
			if productCode != "" {
				opts = append(opts, techrules.WithProductCode(productCode))
			}
			if noKinds {
				opts = append(opts, techrules.WithoutKinds())
			}
			doc := techrules.NewExporter(opts...).Export(g)

			if out == "-" {
				return techrules.Encode(cmd.OutOrStdout(), doc)
			}
			if err := techrules.WriteFile(out, doc); err != nil {
				return err
			}
			logger.Info("export written", "path", out, "tasks", len(doc.Runtime.Tasks))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", techrules.DefaultFileName, `output file, "-" for stdout`)
	cmd.Flags().StringVar(&productCode, "product-code", "", "product code for graphs that carry none")
	cmd.Flags().BoolVar(&noKinds, "no-kinds", false, "treat start and finish nodes as tasks")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var (
		id     string
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Print the roller blind demo graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := techrules.SeedGraph(id)
			w := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(g); err != nil {
					return fmt.Errorf("encode seed: %w", err)
				}
				return enc.Close()
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		},
	}

	cmd.Flags().StringVar(&id, "id", "roller-std", "graph id")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of JSON")
	return cmd
}

func readGraph(path string, stdin io.Reader) (*techrules.Graph, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}

	var g techrules.Graph
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &g)
	default:
		err = json.Unmarshal(data, &g)
	}
	if err != nil {
		return nil, fmt.Errorf("parse graph %s: %w", path, err)
	}
	return &g, nil
}

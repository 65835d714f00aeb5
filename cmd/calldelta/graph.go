package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/agusespa/calldelta/internal/callgraph"
	"github.com/agusespa/calldelta/internal/types"
	"github.com/spf13/cobra"
)

var (
	graphRoots   []string
	graphReverse bool
	graphStdin   bool
)

var graphCmd = &cobra.Command{
	Use:   "graph [--root NAME... | --reverse] FILES...",
	Short: "Run the call-graph tool (or parse its output from stdin) and print both adjacency maps",
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().StringSliceVar(&graphRoots, "root", nil, "function to start from (repeatable)")
	graphCmd.Flags().BoolVar(&graphReverse, "reverse", false, "print callers instead of callees")
	graphCmd.Flags().BoolVar(&graphStdin, "stdin", false, "parse call-tree text from stdin instead of running the tool")
}

type graphOutput struct {
	CallerTree *types.AdjacencyMap `json:"callerTree"`
	CalleeTree *types.AdjacencyMap `json:"calleeTree"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	trees, err := graphTrees(cmd, args)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(graphOutput{CallerTree: trees.CallerTree, CalleeTree: trees.CalleeTree})
}

func graphTrees(cmd *cobra.Command, args []string) (types.Trees, error) {
	if graphStdin {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return types.Trees{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		trees := types.NewTrees()
		parser := callgraph.Parser{IndentUnit: cfg.CallGraph.IndentUnit, Inverted: graphReverse}
		stats := parser.ParseInto(string(text), trees)
		logger.WithField("edges", stats.Edges).WithField("skipped", stats.Skipped).Debug("call tree parsed")
		return trees, nil
	}

	if len(args) == 0 {
		return types.Trees{}, errors.New("no source files given")
	}
	files := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return types.Trees{}, err
		}
		files = append(files, abs)
	}

	builder := newBuilder()
	if graphReverse {
		trees, res := builder.BuildReverse(cmd.Context(), files)
		if !res.OK() {
			return types.Trees{}, res.Err
		}
		return trees, nil
	}

	if len(graphRoots) == 0 {
		return types.Trees{}, errors.New("--root is required unless --reverse or --stdin is set")
	}
	trees, stats := builder.Build(cmd.Context(), graphRoots, files)
	if stats.ToolFailures == stats.Invocations {
		return types.Trees{}, fmt.Errorf("call-graph tool produced no usable output for %v", graphRoots)
	}
	return trees, nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"gopkg.in/yaml.v3"
)

// isFile reports whether target names an existing regular file.
func isFile(target string) bool {
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

// graphName derives the store name of a graph file.
func graphName(target string) string {
	base := filepath.Base(target)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadDoc returns the document behind target: a YAML or JSON file when one
// exists at that path, a stored graph otherwise.
func ReadDoc(ctx context.Context, eng *flowgraph.Engine, target string) (*domain.GraphDoc, error) {
	if !isFile(target) {
		return eng.Library().Store().Load(ctx, target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}
	var doc domain.GraphDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(target), err)
	}
	return &doc, nil
}

// LoadGraph opens target as a live graph and returns the name it is stored under.
func LoadGraph(ctx context.Context, eng *flowgraph.Engine, target string) (*graph.Graph, string, error) {
	if !isFile(target) {
		g, err := eng.Library().Open(ctx, target)
		return g, target, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, "", err
	}
	g, err := eng.Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load %s: %w", filepath.Base(target), err)
	}
	return g, graphName(target), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// printValues lists shared values in key order.
func printValues(w io.Writer, values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "    %s = %v\n", k, values[k])
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

package processing

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/systemstart/many-dataflow/pkg/api"
)

// DiscoverPipelines finds pipeline files under root matching pattern
// (api.DefaultPipelinePattern when empty) and loads each with vars.
// Results are sorted by path depth (parents before children), then by path.
func DiscoverPipelines(root, pattern string, vars map[string]any) ([]*api.Pipeline, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path: %w", err)
	}
	if pattern == "" {
		pattern = api.DefaultPipelinePattern
	}

	matches, err := doublestar.Glob(os.DirFS(absRoot), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	slices.Sort(matches)
	slices.SortStableFunc(matches, func(a, b string) int {
		return pathDepth(a) - pathDepth(b)
	})

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(absRoot, filepath.FromSlash(m))
	}
	return loadAll(paths, vars)
}

func loadAll(paths []string, vars map[string]any) ([]*api.Pipeline, error) {
	pipelines := make([]*api.Pipeline, 0, len(paths))
	for _, p := range paths {
		pipeline, err := api.LoadPipeline(p, vars)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		pipelines = append(pipelines, pipeline)
	}
	return pipelines, nil
}

func pathDepth(p string) int {
	if p == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(p), "/") + 1
}

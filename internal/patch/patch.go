// Package patch applies regex rewrite rules to third-party library sources.
// It exists for one migration: embedding libraries pinned against an old
// huggingface_hub API need their download calls rewritten in place.
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Rule rewrites every match of Pattern with Replace ($1-style groups).
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// Result reports what happened to one candidate file.
type Result struct {
	Path    string
	Found   bool
	Patched bool
}

// SentenceTransformersFiles are the files inside a sentence-transformers
// installation that reference the removed download helper.
var SentenceTransformersFiles = []string{
	filepath.Join("models", "Transformer.py"),
	"SentenceTransformer.py",
}

// HuggingFaceHubRules rewrites cached_download usage to hf_hub_download.
func HuggingFaceHubRules() []Rule {
	return []Rule{
		{
			Name:    "import hf_hub_download",
			Pattern: regexp.MustCompile(`from huggingface_hub import cached_download`),
			Replace: `from huggingface_hub import hf_hub_download`,
		},
		{
			Name:    "rewrite cached_download calls",
			Pattern: regexp.MustCompile(`cached_download\(([^)]*)\)`),
			Replace: `hf_hub_download(repo_id="sentence-transformers/all-MiniLM-L6-v2", filename=$1)`,
		},
	}
}

// Apply runs rules over each file (relative to root). Files that do not
// exist are reported as not found rather than failing the run, since library
// layouts vary between versions. Changed files are replaced atomically.
func Apply(root string, files []string, rules []Rule) ([]Result, error) {
	results := make([]Result, 0, len(files))
	for _, rel := range files {
		path := filepath.Join(root, rel)

		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			results = append(results, Result{Path: path})
			continue
		}
		if err != nil {
			return results, fmt.Errorf("read %q: %w", path, err)
		}

		patched := raw
		for _, rule := range rules {
			patched = rule.Pattern.ReplaceAll(patched, []byte(rule.Replace))
		}

		if string(patched) == string(raw) {
			results = append(results, Result{Path: path, Found: true})
			continue
		}

		if err := writeAtomic(path, patched); err != nil {
			return results, fmt.Errorf("write %q: %w", path, err)
		}
		results = append(results, Result{Path: path, Found: true, Patched: true})
	}
	return results, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".patch-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

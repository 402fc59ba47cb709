package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApply_RewritesDownloadCalls(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "models"), 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}

	source := strings.Join([]string{
		"from huggingface_hub import cached_download",
		"",
		"path = cached_download(config_url)",
	}, "\n")
	target := filepath.Join(root, "models", "Transformer.py")
	if err := os.WriteFile(target, []byte(source), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	results, err := Apply(root, SentenceTransformersFiles, HuggingFaceHubRules())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(results) != len(SentenceTransformersFiles) {
		t.Fatalf("expected %d results, got %d", len(SentenceTransformersFiles), len(results))
	}
	if !results[0].Found || !results[0].Patched {
		t.Fatalf("expected Transformer.py patched: %+v", results[0])
	}
	// SentenceTransformer.py does not exist in this layout.
	if results[1].Found {
		t.Fatalf("expected missing file to be reported as not found: %+v", results[1])
	}

	patched, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read patched file: %v", err)
	}
	got := string(patched)
	if strings.Contains(got, "cached_download") {
		t.Fatalf("old helper still referenced:\n%s", got)
	}
	if !strings.Contains(got, "from huggingface_hub import hf_hub_download") {
		t.Fatalf("import not rewritten:\n%s", got)
	}
	if !strings.Contains(got, `hf_hub_download(repo_id="sentence-transformers/all-MiniLM-L6-v2", filename=config_url)`) {
		t.Fatalf("call not rewritten:\n%s", got)
	}
}

func TestApply_LeavesCleanFilesAlone(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "SentenceTransformer.py")
	source := "from huggingface_hub import hf_hub_download\n"
	if err := os.WriteFile(target, []byte(source), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	results, err := Apply(root, []string{"SentenceTransformer.py"}, HuggingFaceHubRules())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !results[0].Found || results[0].Patched {
		t.Fatalf("clean file should be found but untouched: %+v", results[0])
	}

	after, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(after) != source {
		t.Fatalf("clean file mutated: %q", after)
	}
}

func TestApply_AllFilesMissing(t *testing.T) {
	results, err := Apply(t.TempDir(), SentenceTransformersFiles, HuggingFaceHubRules())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, res := range results {
		if res.Found || res.Patched {
			t.Fatalf("expected nothing found: %+v", res)
		}
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"storyreel/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Refuses to clobber an existing file.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error for existing config file")
	}
}

func TestListAndShowCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No stories found")

	st := env.openStore(t)
	testsupport.NewStory(t, st, "abc123")

	out, err = runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "abc123")
	requireContains(t, out, "crawled")

	out, err = runCLI(t, []string{"list", "--status", "rendered"}, env.configPath)
	if err != nil {
		t.Fatalf("list --status: %v", err)
	}
	requireContains(t, out, "No stories found")

	if _, err := runCLI(t, []string{"list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown status")
	}

	out, err = runCLI(t, []string{"show", "abc123"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Test Story abc123")
	requireContains(t, out, "r/tifu")

	if _, err := runCLI(t, []string{"show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown story")
	}
}

func TestDeleteCommandRemovesArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	st := env.openStore(t)

	testsupport.NewStory(t, st, "abc123")
	stagingDir := env.cfg.StoryDir("abc123")
	testsupport.WriteFile(t, filepath.Join(stagingDir, "script.txt"), 32)

	out, err := runCLI(t, []string{"delete", "abc123"}, env.configPath)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Deleted story abc123")

	if _, err := os.Stat(stagingDir); !os.IsNotExist(err) {
		t.Error("staging dir left behind after delete")
	}
	if _, err := runCLI(t, []string{"show", "abc123"}, env.configPath); err == nil {
		t.Fatal("story still present after delete")
	}
}

func TestStatusCommandCountsStories(t *testing.T) {
	env := setupCLITestEnv(t)
	st := env.openStore(t)

	testsupport.NewStory(t, st, "s1")
	testsupport.NewStory(t, st, "s2")

	out, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "crawled")
	requireContains(t, out, "Total: 2")
}

func TestRootHelpListsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"--help"}, env.configPath)
	if err != nil {
		t.Fatalf("--help: %v", err)
	}
	for _, name := range []string{"crawl", "list", "process", "render", "run", "retry", "status", "config"} {
		requireContains(t, out, name)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lexidx/internal/config"
	"lexidx/internal/home"
	"lexidx/internal/logging"
	"lexidx/internal/memtest"
)

func TestResolveLexicons(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"en.bin", "de.bin.zst", "animals.bin"} {
		if err := os.WriteFile(filepath.Join(dir, name), memtest.Encode(t, memtest.Entry{Word: "x", ID: 1}), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Config{
		Lexicons: []config.LexiconConfig{
			{Name: "animals", Path: "/explicit/animals.bin", Strict: true},
		},
		Discover:         []string{filepath.Join(dir, "*.bin*")},
		DiscoverDefaults: config.LexiconConfig{Watch: true},
	}
	got, err := resolveLexicons(cfg)
	if err != nil {
		t.Fatalf("resolveLexicons: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d lexicons: %+v", len(got), got)
	}

	// Sorted by name: animals, de, en.
	if got[0].Name != "animals" || got[0].Path != "/explicit/animals.bin" || !got[0].Strict || got[0].Watch {
		t.Errorf("explicit entry not preferred: %+v", got[0])
	}
	if got[1].Name != "de" || got[1].Path != filepath.Join(dir, "de.bin.zst") || !got[1].Watch {
		t.Errorf("lexicons[1] = %+v", got[1])
	}
	if got[2].Name != "en" || !got[2].Watch {
		t.Errorf("lexicons[2] = %+v", got[2])
	}
}

func TestResolveLexiconsNone(t *testing.T) {
	cfg := config.Config{Discover: []string{filepath.Join(t.TempDir(), "*.bin")}}
	if _, err := resolveLexicons(cfg); err == nil {
		t.Fatal("expected error when nothing is found")
	}
}

func TestLoadConfigFallsBackToHome(t *testing.T) {
	hd := home.New(t.TempDir())

	cfg, err := loadConfig(hd, serveOptions{}, logging.Discard())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(cfg.Discover) != 1 || cfg.Discover[0] != hd.DiscoverPattern() {
		t.Errorf("Discover = %v", cfg.Discover)
	}
	if _, err := os.Stat(hd.LexiconDir()); err != nil {
		t.Errorf("lexicon dir not created: %v", err)
	}
	if cfg.Server.Addr != config.DefaultAddr {
		t.Errorf("defaults not applied: %+v", cfg.Server)
	}
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	hd := home.New(t.TempDir())
	_, err := loadConfig(hd, serveOptions{config: filepath.Join(t.TempDir(), "nope.json")}, logging.Discard())
	if err == nil {
		t.Fatal("missing explicit config must fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	hd := home.New(t.TempDir())
	in := config.Config{Lexicons: []config.LexiconConfig{{Name: "en", Path: "/data/en.bin"}}}
	if err := config.Save(hd.ConfigPath(), in); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(hd, serveOptions{discover: []string{"/extra/*.bin"}}, logging.Discard())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(cfg.Lexicons) != 1 || cfg.Lexicons[0].Name != "en" {
		t.Errorf("Lexicons = %+v", cfg.Lexicons)
	}
	if len(cfg.Discover) != 1 || cfg.Discover[0] != "/extra/*.bin" {
		t.Errorf("--discover not appended: %v", cfg.Discover)
	}
}

func TestApplyLogConfig(t *testing.T) {
	filter := logging.NewComponentFilterHandler(logging.Discard().Handler(), slog.LevelInfo)
	lc := config.LogConfig{Level: "warn", Components: map[string]string{"server": "debug"}}

	if err := applyLogConfig(filter, lc, false); err != nil {
		t.Fatal(err)
	}
	if filter.DefaultLevel() != slog.LevelWarn {
		t.Errorf("default = %v, want warn", filter.DefaultLevel())
	}
	if filter.Level("server") != slog.LevelDebug {
		t.Errorf("server = %v, want debug", filter.Level("server"))
	}

	// A level given on the command line wins.
	filter = logging.NewComponentFilterHandler(logging.Discard().Handler(), slog.LevelError)
	if err := applyLogConfig(filter, lc, true); err != nil {
		t.Fatal(err)
	}
	if filter.DefaultLevel() != slog.LevelError {
		t.Errorf("default = %v, want error", filter.DefaultLevel())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	hd := home.New(t.TempDir())
	path := memtest.WriteLexicon(t, memtest.Entry{Word: "cat", ID: 1})
	cfg := config.Config{
		Lexicons: []config.LexiconConfig{
			{Name: "animals", Path: path, Watch: true, ReloadCron: "0 3 * * *"},
		},
	}
	if err := config.Save(hd.ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}

	filter := logging.NewComponentFilterHandler(logging.Discard().Handler(), slog.LevelInfo)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, slog.New(filter), filter, serveOptions{home: hd.Root(), addr: "127.0.0.1:0"})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	hd := home.New(t.TempDir())
	bad := config.Config{Lexicons: []config.LexiconConfig{{Name: "x", Path: "/x.bin", ReloadCron: "bogus"}}}
	if err := config.Save(hd.ConfigPath(), bad); err != nil {
		t.Fatal(err)
	}
	filter := logging.NewComponentFilterHandler(logging.Discard().Handler(), slog.LevelInfo)
	if err := run(context.Background(), slog.New(filter), filter, serveOptions{home: hd.Root()}); err == nil {
		t.Fatal("expected invalid config error")
	}
}

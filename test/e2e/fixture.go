package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/apitest"
	"github.com/abelbrown/cinelog/internal/config"
	"github.com/abelbrown/cinelog/internal/store"
)

// fixture is a fake backend plus a private state directory.
type fixture struct {
	backend *apitest.Backend
	url     string
	home    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.New()
	b.AddUser("Ada", "ada@example.com", "secret1")
	b.Discover = apitest.SeedMovies(1, 30)
	b.TopRated = apitest.SeedMovies(100, 5)
	b.Trending = apitest.SeedMovies(200, 3)
	b.Results = []api.SearchResult{
		{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30"},
		{ID: 604, Title: "The Matrix Reloaded", ReleaseDate: "2003-05-15"},
	}
	b.SetDetails(api.MovieDetails{
		ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", Runtime: 136,
		Overview: "A hacker learns the truth.",
	})
	srv := b.Start(t)
	return &fixture{backend: b, url: srv.URL, home: t.TempDir()}
}

// env is the environment for a binary under test.
func (f *fixture) env() []string {
	return append(os.Environ(),
		"CINELOG_HOME="+f.home,
		"CINELOG_API_URL="+f.url,
		"CINELOG_LOG_LEVEL=debug",
		"CINELOG_CONFIG=",
	)
}

// writeConfig disables retries and rate limiting so failures show up fast.
func (f *fixture) writeConfig() error {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = f.url
	cfg.API.Retries = 0
	cfg.API.RequestsPerSecond = 0
	cfg.Search.Debounce = config.Duration{Duration: 50 * time.Millisecond}
	return cfg.SaveTo(filepath.Join(f.home, "config.toml"))
}

func (f *fixture) openStore() (*store.Store, error) {
	return store.Open(filepath.Join(f.home, "cinelog.db"))
}

// build compiles ./cmd/<name> into a temp dir and returns the binary path.
func build(t *testing.T, name string) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), name)

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// We run from test/e2e.
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/"+name)
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

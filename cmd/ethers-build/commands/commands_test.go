// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/account"
	"github.com/bureau-foundation/slug/lib/contenthash"
	"github.com/bureau-foundation/slug/lib/publishapi"
	"github.com/bureau-foundation/slug/lib/slug"
	"github.com/bureau-foundation/slug/lib/testutil"
	"github.com/bureau-foundation/slug/lib/versions"
)

const (
	// testKey is private key 1; testAddress is its address.
	testKey     = "0x0000000000000000000000000000000000000000000000000000000000000001"
	testAddress = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	testHost    = "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf.ethers.space"
	keyVariable = "ETHERS_BUILD_TEST_KEY"
)

// project is a git repository with a config file outside it, and the
// streams of the last command run against it.
type project struct {
	t          *testing.T
	repo       *testutil.GitRepo
	configPath string
	cacheDir   string
	stdin      string
	stdout     bytes.Buffer
	stderr     bytes.Buffer
}

func newProject(t *testing.T, extraConfig string) *project {
	t.Helper()
	t.Setenv("ETHERS_BUILD_CONFIG", "")

	repo := testutil.InitRepo(t)
	repo.WriteFile("index.html", "v1\n")
	repo.WriteFile("js/app.js", "console.log(1);\n")
	repo.CommitAll("initial")

	configDir := t.TempDir()
	cacheDir := filepath.Join(configDir, "cache")
	configPath := filepath.Join(configDir, "ethers-build.yaml")
	content := fmt.Sprintf("color: never\ncache_dir: %s\n%s", cacheDir, extraConfig)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return &project{t: t, repo: repo, configPath: configPath, cacheDir: cacheDir}
}

// withKey configures the key signer.
func withKey(t *testing.T) string {
	t.Setenv(keyVariable, testKey)
	return "signer: key\nprivate_key_env: " + keyVariable + "\n"
}

// run executes a project command with --dir and --config appended.
func (p *project) run(args ...string) error {
	p.t.Helper()
	return p.runRaw(append(args, "--dir", p.repo.Dir, "--config", p.configPath)...)
}

// runRaw executes a command with exactly the given arguments.
func (p *project) runRaw(args ...string) error {
	p.t.Helper()
	p.stdout.Reset()
	p.stderr.Reset()
	root := Root(Options{
		Stdin:  strings.NewReader(p.stdin),
		Stdout: &p.stdout,
		Stderr: &p.stderr,
	})
	return root.Execute(context.Background(), args)
}

func (p *project) mustRun(args ...string) string {
	p.t.Helper()
	if err := p.run(args...); err != nil {
		p.t.Fatalf("%s: %v\nstderr: %s", strings.Join(args, " "), err, p.stderr.String())
	}
	return p.stdout.String()
}

func (p *project) path(name string) string {
	return filepath.Join(p.repo.Dir, name)
}

// fakeAPI is a publishing service that reports fixed published
// versions and records uploaded slugs.
type fakeAPI struct {
	t         *testing.T
	mu        sync.Mutex
	requests  int
	published map[string]*string
	uploaded  []string
	status    int
}

func newFakeAPI(t *testing.T, published map[string]*string) (*fakeAPI, string) {
	api := &fakeAPI{t: t, published: published, status: http.StatusOK}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return api, "api_url: " + server.URL + "/api/v1/\n"
}

func (f *fakeAPI) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	body, _ := io.ReadAll(request.Body)
	var decoded map[string]string
	if err := json.Unmarshal(body, &decoded); err != nil {
		f.t.Errorf("request is not a JSON object: %s", body)
	}
	if f.status != http.StatusOK {
		writer.WriteHeader(f.status)
		return
	}

	var response map[string]any
	switch decoded["action"] {
	case "getSlugVersions":
		if decoded["address"] != testAddress {
			f.t.Errorf("getSlugVersions address = %q", decoded["address"])
		}
		response = map[string]any{"status": 200, "versions": f.published}
	case "addSlug":
		f.uploaded = append(f.uploaded, decoded["slug"])
		response = map[string]any{"status": 200}
	case "getPublished":
		response = map[string]any{"status": 200, "published": map[string]any{"nonce": 7}}
	default:
		f.t.Errorf("unexpected action %q", decoded["action"])
		response = map[string]any{"status": 400}
	}
	json.NewEncoder(writer).Encode(response)
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func stringPointer(value string) *string { return &value }

func assertCategory(t *testing.T, err error, want cli.ErrorCategory) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := cli.CategoryOf(err); got != want {
		t.Errorf("category = %q, want %q (error: %v)", got, want, err)
	}
}

func TestPrepareUnsigned(t *testing.T) {
	p := newProject(t, "")
	p.repo.WriteFile("index.html", "v2 not committed\n")
	p.repo.WriteFile("notes.txt", "scratch\n")

	output := p.mustRun("prepare")
	for _, want := range []string{
		"WARNING:",
		"index.html",
		"(file modified in stage; changes will NOT be published)",
		"notes.txt",
		"(untracked file; will not be published)",
		"Adding Files:",
		"  js/app.js",
		"unsigned.slug",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	data, err := os.ReadFile(p.path("unsigned.slug"))
	if err != nil {
		t.Fatalf("reading unsigned.slug: %v", err)
	}
	verified, err := slug.Verify(data, true)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.Address != "" {
		t.Errorf("unsigned slug has address %q", verified.Address)
	}
	if got := string(verified.Slug.Data("index.html")); got != "v1\n" {
		t.Errorf("index.html = %q, want the committed content", got)
	}
}

func TestPrepareSignedWithKey(t *testing.T) {
	p := newProject(t, withKey(t))
	p.mustRun("prepare", "--signed")

	data, err := os.ReadFile(p.path(testAddress + ".slug"))
	if err != nil {
		t.Fatalf("reading signed slug: %v", err)
	}
	verified, err := slug.Verify(data, false)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.Address != testAddress {
		t.Errorf("signer = %s, want %s", verified.Address, testAddress)
	}
}

func TestPrepareOutFlag(t *testing.T) {
	p := newProject(t, "")
	out := filepath.Join(t.TempDir(), "site.slug")
	p.mustRun("prepare", "--out", out)
	if _, err := os.Stat(out); err != nil {
		t.Errorf("--out file not written: %v", err)
	}
	if _, err := os.Stat(p.path("unsigned.slug")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("default output written despite --out")
	}
}

func TestPrepareSignedWithoutAccount(t *testing.T) {
	p := newProject(t, "")
	err := p.run("prepare", "--signed")
	assertCategory(t, err, cli.CategoryNotFound)
}

func TestInitAndSignWithAccount(t *testing.T) {
	p := newProject(t, "")
	p.stdin = "correct horse battery staple\n"

	output := p.mustRun("init", "--work-factor", "10")
	if !strings.Contains(output, "Account successfully created") {
		t.Errorf("init output:\n%s", output)
	}
	if !strings.Contains(p.stderr.String(), "Do NOT lose or forget this password") {
		t.Errorf("init did not warn about the password:\n%s", p.stderr.String())
	}
	address, err := account.ReadAddress(p.path(account.DefaultFilename))
	if err != nil {
		t.Fatalf("ReadAddress: %v", err)
	}

	assertCategory(t, p.run("init", "--work-factor", "10"), cli.CategoryConflict)

	p.mustRun("prepare", "--signed")
	data, err := os.ReadFile(p.path(address + ".slug"))
	if err != nil {
		t.Fatalf("reading signed slug: %v", err)
	}
	verified, err := slug.Verify(data, false)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.Address != address {
		t.Errorf("signer = %s, want %s", verified.Address, address)
	}
	if verified.Slug.Size(account.DefaultFilename) >= 0 {
		t.Error("account file was included in the slug")
	}

	p.stdin = "wrong passphrase\n"
	assertCategory(t, p.run("prepare", "--signed"), cli.CategoryForbidden)

	passphraseFile := filepath.Join(t.TempDir(), "passphrase")
	if err := os.WriteFile(passphraseFile, []byte("correct horse battery staple\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	os.Remove(p.path(address + ".slug"))
	p.mustRun("prepare", "--signed", "--passphrase-file", passphraseFile)
	if _, err := os.Stat(p.path(address + ".slug")); err != nil {
		t.Errorf("prepare with --passphrase-file: %v", err)
	}
}

func TestVerify(t *testing.T) {
	p := newProject(t, withKey(t))
	p.mustRun("prepare")
	p.mustRun("prepare", "--signed")
	unsigned := p.path("unsigned.slug")
	signed := p.path(testAddress + ".slug")

	if err := p.runRaw("verify", signed); err != nil {
		t.Fatalf("verify signed: %v", err)
	}
	if !strings.Contains(p.stdout.String(), testAddress) || !strings.Contains(p.stdout.String(), "js/app.js") {
		t.Errorf("verify output:\n%s", p.stdout.String())
	}

	err := p.runRaw("verify", unsigned)
	var exitError *cli.ExitError
	if !errors.As(err, &exitError) || exitError.Code != 1 {
		t.Fatalf("verify unsigned: err = %v, want exit code 1", err)
	}
	if !strings.Contains(p.stderr.String(), "FAILED") {
		t.Errorf("verify failure not reported:\n%s", p.stderr.String())
	}

	if err := p.runRaw("verify", unsigned, "--allow-unsigned"); err != nil {
		t.Fatalf("verify --allow-unsigned: %v", err)
	}
	if !strings.Contains(p.stdout.String(), "(unsigned)") {
		t.Errorf("verify output:\n%s", p.stdout.String())
	}

	// Point the signed envelope at another address.
	data, _ := os.ReadFile(signed)
	tampered := strings.Replace(string(data), testAddress, "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF", 1)
	tamperedPath := filepath.Join(t.TempDir(), "tampered.slug")
	os.WriteFile(tamperedPath, []byte(tampered), 0o644)
	if err := p.runRaw("verify", tamperedPath, "--json"); !errors.As(err, &exitError) {
		t.Fatalf("verify tampered: err = %v, want exit error", err)
	}
	var result verifyResult
	if err := json.Unmarshal(p.stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding JSON: %v\n%s", err, p.stdout.String())
	}
	if result.Valid || result.Error == "" {
		t.Errorf("tampered result = %+v", result)
	}

	assertCategory(t, p.runRaw("verify"), cli.CategoryValidation)
	assertCategory(t, p.runRaw("verify", filepath.Join(t.TempDir(), "missing.slug")), cli.CategoryNotFound)
}

func TestInspect(t *testing.T) {
	p := newProject(t, withKey(t))
	p.mustRun("prepare", "--signed")
	path := p.path(testAddress + ".slug")

	if err := p.runRaw("inspect", path, "--json"); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var result inspectResult
	if err := json.Unmarshal(p.stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding JSON: %v\n%s", err, p.stdout.String())
	}
	if result.Version != slug.CurrentVersion || result.Verified != testAddress || !strings.HasPrefix(result.Ref, "slug-") {
		t.Errorf("result = %+v", result)
	}
	if len(result.Files) != 2 || result.Files[0].Filename != "index.html" {
		t.Fatalf("files = %+v", result.Files)
	}
	index := result.Files[0]
	if index.Size != 3 || index.GitHash != contenthash.GitBlobHash([]byte("v1\n")) || index.Hash != contenthash.Hash([]byte("v1\n")) {
		t.Errorf("index.html = %+v", index)
	}

	if err := p.runRaw("inspect", path); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Signer: " + testAddress, "GIT HASH", "js/app.js"} {
		if !strings.Contains(p.stdout.String(), want) {
			t.Errorf("inspect output missing %q:\n%s", want, p.stdout.String())
		}
	}
}

func TestCat(t *testing.T) {
	p := newProject(t, "")
	p.mustRun("prepare")
	path := p.path("unsigned.slug")

	if err := p.runRaw("cat", path, "js/app.js", "--allow-unsigned"); err != nil {
		t.Fatalf("cat: %v", err)
	}
	if p.stdout.String() != "console.log(1);\n" {
		t.Errorf("cat output = %q", p.stdout.String())
	}

	assertCategory(t, p.runRaw("cat", path, "missing.html", "--allow-unsigned"), cli.CategoryNotFound)
	assertCategory(t, p.runRaw("cat", path, "index.html"), cli.CategoryValidation)
	assertCategory(t, p.runRaw("cat", path), cli.CategoryValidation)
}

func TestStatusHead(t *testing.T) {
	p := newProject(t, "")
	p.repo.WriteFile("index.html", "v2\n")
	p.repo.RemoveFile("js/app.js")
	p.repo.WriteFile("draft.html", "draft\n")

	output := p.mustRun("status", "--head")
	for _, want := range []string{
		"Comparing head to staging",
		"File Status:",
		"modified:  index.html",
		"removed:   js/app.js",
		"Untracked Files:",
		"draft.html",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("status output missing %q:\n%s", want, output)
		}
	}
}

func TestStatusNoSources(t *testing.T) {
	p := newProject(t, "")
	assertCategory(t, p.run("status"), cli.CategoryValidation)
	assertCategory(t, p.run("status", "--published"), cli.CategoryValidation)
}

func TestStatusTooManySources(t *testing.T) {
	p := newProject(t, "")
	p.mustRun("prepare")
	slugPath := p.path("unsigned.slug")
	err := p.run("status", "--slug", slugPath, "--slug", slugPath, "--head")
	assertCategory(t, err, cli.CategoryValidation)
}

func TestStatusPublished(t *testing.T) {
	api, apiConfig := newFakeAPI(t, map[string]*string{
		"index.html": stringPointer(contenthash.GitBlobHash([]byte("v0\n"))),
		"gone.html":  stringPointer(contenthash.GitBlobHash([]byte("gone\n"))),
		"draft.html": nil,
	})
	p := newProject(t, withKey(t)+apiConfig)

	if err := p.run("status", "--json"); err != nil {
		t.Fatalf("status: %v", err)
	}
	var compared comparison
	if err := json.Unmarshal(p.stdout.Bytes(), &compared); err != nil {
		t.Fatalf("decoding JSON: %v\n%s", err, p.stdout.String())
	}
	if compared.From != versions.PublishedName || compared.To != versions.StagingName {
		t.Errorf("compared %s to %s", compared.From, compared.To)
	}
	kinds := make(map[string]versions.ChangeKind)
	for _, change := range compared.Result.Changes {
		kinds[change.Filename] = change.Kind
	}
	want := map[string]versions.ChangeKind{
		"index.html": versions.Modified,
		"gone.html":  versions.Removed,
		"js/app.js":  versions.Added,
	}
	if len(kinds) != len(want) {
		t.Errorf("changes = %v, want %v", kinds, want)
	}
	for filename, kind := range want {
		if kinds[filename] != kind {
			t.Errorf("%s: %q, want %q", filename, kinds[filename], kind)
		}
	}
	if len(compared.Result.Untracked) != 1 || compared.Result.Untracked[0] != "draft.html" {
		t.Errorf("untracked = %v", compared.Result.Untracked)
	}

	// The online fetch filled the cache; offline reads it without a request.
	requests := api.requestCount()
	if err := p.run("status", "--published", "--head", "--offline", "--json"); err != nil {
		t.Fatalf("offline status: %v", err)
	}
	if api.requestCount() != requests {
		t.Error("offline status contacted the service")
	}
	compared = comparison{}
	json.Unmarshal(p.stdout.Bytes(), &compared)
	if compared.From != versions.PublishedName || compared.To != versions.HeadName || len(compared.Result.Changes) != 3 {
		t.Errorf("offline comparison = %+v", compared)
	}
}

func TestStatusPublishedServiceError(t *testing.T) {
	api, apiConfig := newFakeAPI(t, nil)
	api.status = http.StatusServiceUnavailable
	p := newProject(t, withKey(t)+apiConfig)
	assertCategory(t, p.run("status"), cli.CategoryTransient)
}

func TestDiff(t *testing.T) {
	p := newProject(t, "")
	p.repo.WriteFile("index.html", "v2\n")
	p.repo.WriteFile("about.html", "about\n")
	p.repo.Git("add", "about.html")

	output := p.mustRun("diff", "--head")
	for _, want := range []string{
		"Added: about.html",
		"Modified: index.html",
		"-v1",
		"+v2",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("diff output missing %q:\n%s", want, output)
		}
	}
}

func TestDiffContinuesWhenObjectIsMissing(t *testing.T) {
	_, apiConfig := newFakeAPI(t, map[string]*string{
		"gone.html":  stringPointer(contenthash.GitBlobHash([]byte("gone\n"))),
		"index.html": stringPointer(contenthash.GitBlobHash([]byte("published elsewhere\n"))),
		"js/app.js":  stringPointer(contenthash.GitBlobHash([]byte("console.log(1);\n"))),
	})
	p := newProject(t, withKey(t)+apiConfig)
	p.repo.WriteFile("js/app.js", "console.log(2);\n")
	p.repo.CommitAll("second")

	output := p.mustRun("diff")
	for _, want := range []string{
		"Removed: gone.html",
		"Modified: index.html",
		"(diff unavailable: fatal: bad object",
		"Modified: js/app.js",
		"-console.log(1);",
		"+console.log(2);",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("diff output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "Modified: index.html") > strings.Index(output, "Modified: js/app.js") {
		t.Errorf("changes out of order:\n%s", output)
	}
	if !strings.Contains(p.stderr.String(), "line diff unavailable") {
		t.Errorf("missing warning on stderr:\n%s", p.stderr.String())
	}
}

func TestPublish(t *testing.T) {
	api, apiConfig := newFakeAPI(t, map[string]*string{})
	p := newProject(t, withKey(t)+apiConfig)
	p.mustRun("prepare")

	output := p.mustRun("publish", p.path("unsigned.slug"))
	for _, want := range []string{
		"Application URLs:",
		"Mainnet:  https://ethers.io/#!/app-link/" + testHost,
		"Kovan:    https://kovan.ethers.io/#!/app-link/" + testHost,
		"Publication nonce: 7",
		"Successfully deployed!",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("publish output missing %q:\n%s", want, output)
		}
	}

	if len(api.uploaded) != 1 {
		t.Fatalf("uploaded %d slugs, want 1", len(api.uploaded))
	}
	verified, err := slug.Verify([]byte(api.uploaded[0]), false)
	if err != nil {
		t.Fatalf("uploaded slug does not verify: %v", err)
	}
	if verified.Address != testAddress {
		t.Errorf("uploaded slug signed by %s", verified.Address)
	}

	cache, err := publishapi.NewCache(p.cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	cached, err := cache.Load(testAddress)
	if err != nil {
		t.Fatalf("published versions not cached: %v", err)
	}
	if cached["index.html"] != contenthash.GitBlobHash([]byte("v1\n")) || len(cached) != 2 {
		t.Errorf("cached versions = %v", cached)
	}
}

func TestPublishSignedSlugAsIs(t *testing.T) {
	api, apiConfig := newFakeAPI(t, map[string]*string{})
	p := newProject(t, withKey(t)+apiConfig)
	p.mustRun("prepare", "--signed")
	data, err := os.ReadFile(p.path(testAddress + ".slug"))
	if err != nil {
		t.Fatal(err)
	}

	p.mustRun("publish", p.path(testAddress+".slug"))
	if len(api.uploaded) != 1 || api.uploaded[0] != string(data) {
		t.Errorf("signed slug was not uploaded unchanged")
	}
}

func TestPublishRejectsBadSignature(t *testing.T) {
	api, apiConfig := newFakeAPI(t, nil)
	p := newProject(t, withKey(t)+apiConfig)
	p.mustRun("prepare", "--signed")

	data, _ := os.ReadFile(p.path(testAddress + ".slug"))
	tampered := strings.Replace(string(data), testAddress, "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF", 1)
	path := filepath.Join(t.TempDir(), "tampered.slug")
	os.WriteFile(path, []byte(tampered), 0o644)

	err := p.run("publish", path)
	assertCategory(t, err, cli.CategoryValidation)
	if !errors.Is(err, slug.ErrInvalidSignature) {
		t.Errorf("error = %v, want ErrInvalidSignature", err)
	}
	if !strings.Contains(err.Error(), "refusing to publish") {
		t.Errorf("error = %q", err.Error())
	}
	if api.requestCount() != 0 {
		t.Error("tampered slug reached the service")
	}
}

func TestInvalidConfig(t *testing.T) {
	p := newProject(t, "colour: always\n")
	assertCategory(t, p.run("status", "--head"), cli.CategoryValidation)

	p = newProject(t, "signer: ledger\n")
	assertCategory(t, p.run("prepare"), cli.CategoryValidation)
}

func TestVersion(t *testing.T) {
	p := &project{t: t}
	if err := p.runRaw("version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(p.stdout.String(), "ethers-build ") {
		t.Errorf("version output = %q", p.stdout.String())
	}
	if err := p.runRaw("version", "--full"); err != nil {
		t.Fatalf("version --full: %v", err)
	}
	if !strings.Contains(p.stdout.String(), fmt.Sprintf("Slug format: v%d", slug.CurrentVersion)) {
		t.Errorf("version --full output = %q", p.stdout.String())
	}
}

func TestHelpWritesToStderr(t *testing.T) {
	p := newProject(t, "")
	if err := p.runRaw("prepare", "--help"); err != nil {
		t.Fatalf("prepare --help: %v", err)
	}
	if p.stdout.Len() != 0 {
		t.Errorf("help written to stdout: %q", p.stdout.String())
	}
	if !strings.Contains(p.stderr.String(), "ethers-build prepare") {
		t.Errorf("help missing from stderr:\n%s", p.stderr.String())
	}
}

func TestEveryCommandHasHelp(t *testing.T) {
	root := Root(Options{})
	for _, command := range root.Subcommands {
		if command.Summary == "" || command.Usage == "" {
			t.Errorf("%s: missing summary or usage", command.Name)
		}
		var buffer bytes.Buffer
		command.PrintHelp(&buffer)
		if !strings.Contains(buffer.String(), command.Usage) {
			t.Errorf("%s: help does not show usage", command.Name)
		}
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pterm/pterm"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mathmail/internal/cache"
	"github.com/alnah/go-mathmail/internal/config"
	"github.com/alnah/go-mathmail/internal/render"
)

const versionProbeTimeout = 5 * time.Second

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status    string        `json:"status"` // "ready", "warnings", "errors"
	Engine    string        `json:"engine"`
	Latex     toolInfo      `json:"latex"`
	Dvipng    toolInfo      `json:"dvipng"`
	Chrome    chromeInfo    `json:"chrome"`
	Cache     cacheInfo     `json:"cache"`
	Clipboard clipboardInfo `json:"clipboard"`
	Env       envInfo       `json:"environment"`
	System    systemInfo    `json:"system"`
	Warnings  []string      `json:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// toolInfo holds detection results for a command-line tool.
type toolInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// cacheInfo holds render cache reachability.
type cacheInfo struct {
	Enabled   bool   `json:"enabled"`
	Addr      string `json:"addr,omitempty"`
	Reachable bool   `json:"reachable"`
}

// clipboardInfo holds the detected clipboard tool.
type clipboardInfo struct {
	Tool string `json:"tool,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the check command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		jsonOutput bool
		noColor    bool
		name       string
		engine     string
	)
	fs.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	fs.BoolVar(&noColor, "no-color", false, "disable colored output")
	fs.StringVarP(&name, "config", "c", "", "config file name or path")
	fs.StringVarP(&engine, "engine", "e", "", "renderer to check: latex, browser")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printDoctorUsage(env.Stdout)
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	cfg, err := loadConfig(name, env)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	if engine != "" {
		cfg.Render.Engine = engine
	}

	result := runDoctor(ctx, cfg, env)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		if noColor || env.getenv("NO_COLOR") != "" {
			pterm.DisableStyling()
		}
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Engine: cfg.Render.Engine,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  env.getenv("ROD_NO_SANDBOX"),
			BrowserBin: env.getenv("ROD_BROWSER_BIN"),
		},
	}

	checkLatex(ctx, result, cfg, env)
	checkChrome(result, cfg)
	checkEnvironment(result, env)
	checkCache(ctx, result, cfg)
	checkClipboard(result, env)
	checkSystem(result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}

	return result
}

// checkLatex locates latex and dvipng. Missing tools are errors only when
// the latex engine is selected.
func checkLatex(ctx context.Context, result *doctorResult, cfg *config.Config, env *Environment) {
	required := cfg.Render.Engine != config.EngineBrowser
	report := func(msg string) {
		if required {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}

	latexBin := orDefault(cfg.Render.Latex.Binary, "latex")
	result.Latex = lookupTool(ctx, env, latexBin)
	if !result.Latex.Found {
		report(fmt.Sprintf("LaTeX distribution not found (%s). Install TeX Live, MiKTeX or MacTeX", latexBin))
	}

	dvipngBin := orDefault(cfg.Render.Latex.Dvipng, "dvipng")
	result.Dvipng = lookupTool(ctx, env, dvipngBin)
	if !result.Dvipng.Found {
		report(fmt.Sprintf("dvipng not found (%s). Install the dvipng package", dvipngBin))
	}
}

// lookupTool resolves bin on PATH and reads the first line of --version.
func lookupTool(ctx context.Context, env *Environment, bin string) toolInfo {
	path, err := env.lookPath(bin)
	if err != nil {
		return toolInfo{}
	}
	info := toolInfo{Found: true, Path: path}

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output() // #nosec G204 -- path comes from PATH lookup
	if err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(out)))
		if sc.Scan() {
			info.Version = strings.TrimSpace(sc.Text())
		}
	}
	return info
}

// checkChrome detects Chrome/Chromium. Without it the browser engine
// downloads Chromium on first use, so absence is only a warning.
func checkChrome(result *doctorResult, cfg *config.Config) {
	path := cfg.Render.Browser.Bin
	if path == "" {
		var found bool
		path, found = render.LookPathChrome()
		if !found {
			if cfg.Render.Engine == config.EngineBrowser {
				result.Warnings = append(result.Warnings,
					"Chrome/Chromium not found. Chromium will be downloaded on first use, or set ROD_BROWSER_BIN")
			}
			return
		}
	}

	if _, err := os.Stat(path); err != nil {
		if cfg.Render.Engine == config.EngineBrowser {
			result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", path))
		}
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = path
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if env.getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if result.Engine == config.EngineBrowser &&
		(result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(env *Environment) (bool, string) {
	if env.getenv("MATHMAIL_CONTAINER") == "1" {
		return true, "MATHMAIL_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := env.getenv("container"); v != "" {
		return true, "container=" + v
	}
	if env.getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkCache pings Redis when the render cache is enabled.
func checkCache(ctx context.Context, result *doctorResult, cfg *config.Config) {
	if !cfg.Cache.Enabled {
		return
	}
	result.Cache.Enabled = true
	result.Cache.Addr = cfg.Cache.Addr

	client, err := cache.NewClient(cache.ClientOptions{
		Addr:     cfg.Cache.Addr,
		DB:       cfg.Cache.DB,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Redis cache: %v", err))
		return
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(ctx, cachePingTimeout)
	defer cancel()
	if err := cache.Ping(ctx, client); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Redis cache unreachable at %s. Start Redis or disable the cache", cfg.Cache.Addr))
		return
	}
	result.Cache.Reachable = true
}

// checkClipboard detects the tool --copy would use.
func checkClipboard(result *doctorResult, env *Environment) {
	if env.Clipboard == nil {
		return
	}
	tool, err := env.Clipboard.Tool()
	if err != nil {
		result.Warnings = append(result.Warnings, "No clipboard tool found; --copy will not work")
		return
	}
	result.Clipboard.Tool = tool
}

// checkSystem verifies system requirements.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "mathmail-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	_ = os.Remove(testFile)
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintf(w, "mathmail check (engine: %s)\n\n", r.Engine)

	data := [][]string{
		{"Check", "Status", "Detail"},
		toolRow("LaTeX distribution", r.Latex),
		toolRow("dvipng", r.Dvipng),
		chromeRow(r.Chrome),
		cacheRow(r.Cache),
		{"Clipboard", okOr(r.Clipboard.Tool != "", "MISSING"), r.Clipboard.Tool},
		{"Temp directory", okOr(r.System.TempWritable, "ERROR"), os.TempDir()},
		{"Platform", "OK", platformDetail(r.Env)},
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		// Plain fallback keeps the report readable.
		for _, row := range data {
			fmt.Fprintln(w, strings.Join(row, "  "))
		}
	} else {
		fmt.Fprintln(w, table)
	}
	fmt.Fprintln(w)

	for _, warn := range r.Warnings {
		pterm.Warning.WithWriter(w).Println(warn)
	}
	for _, e := range r.Errors {
		pterm.Error.WithWriter(w).Println(e)
	}

	switch r.Status {
	case statusReady:
		pterm.Success.WithWriter(w).Println("Ready to convert")
	case statusWarnings:
		pterm.Warning.WithWriter(w).Println("Ready with warnings")
	case statusErrors:
		pterm.Error.WithWriter(w).Println("Not ready (see errors above)")
	}
}

func toolRow(name string, t toolInfo) []string {
	detail := t.Path
	if t.Version != "" {
		detail += " (" + t.Version + ")"
	}
	return []string{name, okOr(t.Found, "MISSING"), detail}
}

func chromeRow(c chromeInfo) []string {
	if !c.Found {
		return []string{"Chrome/Chromium", "MISSING", ""}
	}
	detail := c.Path
	if !c.Sandbox {
		detail += " (sandbox disabled)"
	}
	return []string{"Chrome/Chromium", "OK", detail}
}

func cacheRow(c cacheInfo) []string {
	if !c.Enabled {
		return []string{"Redis cache", "OFF", "disabled"}
	}
	return []string{"Redis cache", okOr(c.Reachable, "UNREACHABLE"), c.Addr}
}

func platformDetail(e envInfo) string {
	parts := []string{e.OS + "/" + e.Arch}
	if e.Container {
		parts = append(parts, "container: "+e.ContainerHint)
	}
	if e.CI {
		parts = append(parts, "CI")
	}
	return strings.Join(parts, ", ")
}

func okOr(ok bool, bad string) string {
	if ok {
		return "OK"
	}
	return bad
}

// orDefault returns v, or fallback when v is empty.
func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

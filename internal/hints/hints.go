// Package hints provides actionable follow-ups for common failures.
// Hints are formatted as "\n  hint: <text>" and appended to error messages.
package hints

import (
	"os"
	"runtime"
	"strings"

	"github.com/alnah/go-mathmail/internal/fileutil"
)

// IsInContainer detects Docker-like environments through /.dockerenv.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// GOOS is the platform used to pick install commands.
var GOOS = runtime.GOOS

// ForLatexMissing suggests how to install a TeX distribution.
func ForLatexMissing() string {
	switch GOOS {
	case "darwin":
		return format("install MacTeX or BasicTeX (brew install --cask basictex)")
	case "windows":
		return format("install MiKTeX or TeX Live and add its bin directory to PATH")
	default:
		return format("install TeX Live (e.g. apt install texlive-latex-base) or use --engine browser")
	}
}

// ForDvipngMissing suggests how to install dvipng.
func ForDvipngMissing() string {
	switch GOOS {
	case "darwin":
		return format("run: sudo tlmgr install dvipng")
	case "windows":
		return format("install the dvipng package from the MiKTeX console")
	default:
		return format("install dvipng (e.g. apt install dvipng) or use --engine browser")
	}
}

// ForLatexCompile points at the usual causes of a compilation failure.
func ForLatexCompile() string {
	return format("check the expression for unbalanced braces or packages missing from render.latex.packages")
}

// ForBrowserConnect returns hints for Chrome launch failures, tuned for
// CI and container environments.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	return formatHints(hints)
}

// ForRedisUnreachable suggests disabling or fixing the render cache.
func ForRedisUnreachable(addr string) string {
	return format("start Redis at " + addr + ", fix cache.addr, or set MATHMAIL_CACHE=false")
}

// ForTimeout suggests a longer per-expression timeout.
func ForTimeout() string {
	return format("for large expressions or a cold TeX cache, use --timeout")
}

// ForInvalidAddress shows the accepted address syntax.
func ForInvalidAddress() string {
	return format(`use "name@example.com" or "Name <name@example.com>", comma-separated`)
}

// ForConfigNotFound suggests --config or the user config location.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "/go-mathmail/") {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForOutputDirectory returns hints for output file errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// filepathSlash normalizes separators for substring checks.
func filepathSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}

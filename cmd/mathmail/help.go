package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "mathmail - LaTeX Email: send math that renders in every mail client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: mathmail <command> [flags] [args]")
	fmt.Fprintln(w, "       mathmail [flags] <text>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert     Convert LaTeX expressions in text to an email (default)")
	fmt.Fprintln(w, "  check       Check that renderers and tools are installed")
	fmt.Fprintln(w, "  config      Print the effective configuration")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mathmail help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mathmail convert [flags] [text...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert LaTeX expressions in text to images and assemble an email.")
	fmt.Fprintln(w, "Math is delimited by $...$ or \\(...\\) (inline) and $$...$$ or \\[...\\] (display).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  text    Text to convert; read from stdin when omitted or \"-\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Message:")
	fmt.Fprintln(w, "  -s, --subject <s>         Subject header")
	fmt.Fprintln(w, "      --from <addr>         From header")
	fmt.Fprintln(w, "      --to <addrs>          To header, comma-separated")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -f, --format <s>          Artifact: raw (base64, default), mime, html")
	fmt.Fprintln(w, "      --raw                 Print the MIME message (same as --format mime)")
	fmt.Fprintln(w, "      --html                Print HTML with inline images (same as --format html)")
	fmt.Fprintln(w, "  -o, --output <path>       Write to file instead of stdout")
	fmt.Fprintln(w, "      --copy                Also copy the output to the clipboard")
	fmt.Fprintln(w, "  -b, --body <s>            Body syntax: text, markdown")
	fmt.Fprintln(w, "      --standalone          Wrap --html output in a full document")
	fmt.Fprintln(w, "      --style <s>           CSS style name, file path, or content")
	fmt.Fprintln(w, "      --title <s>           Document title (default: subject)")
	fmt.Fprintln(w, "      --normalize           Apply Unicode NFC before extraction")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -e, --engine <s>          Renderer: latex (default), browser")
	fmt.Fprintln(w, "      --dpi <n>             Image resolution (50-2400, default 300)")
	fmt.Fprintln(w, "  -t, --timeout <dur>       Per-expression timeout (default 30s)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
	fmt.Fprintln(w, "      --latex <path>        latex executable")
	fmt.Fprintln(w, "      --dvipng <path>       dvipng executable")
	fmt.Fprintln(w, "      --package <name>      LaTeX package to load (repeatable)")
	fmt.Fprintln(w, "      --mathjax-url <url>   MathJax script for the browser engine")
	fmt.Fprintln(w, "      --browser-bin <path>  Chrome executable for the browser engine")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Cache:")
	fmt.Fprintln(w, "      --cache               Cache rendered images in Redis")
	fmt.Fprintln(w, "      --cache-addr <addr>   Redis address or redis:// URL")
	fmt.Fprintln(w, "      --cache-ttl <dur>     Cache entry lifetime (default 24h)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --asset-path <dir>    Directory overriding embedded assets")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Log each render to stderr")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  mathmail convert 'Euler: $e^{i\\pi} + 1 = 0$' --subject Math --to bob@example.com")
	fmt.Fprintln(w, "  echo 'Area: $\\pi r^2$' | mathmail convert --raw")
	fmt.Fprintln(w, "  mathmail convert --html --standalone -o note.html < note.txt")
}

// printDoctorUsage prints usage for the check command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mathmail check [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the LaTeX distribution, dvipng, Chrome, the Redis cache")
	fmt.Fprintln(w, "and a clipboard tool are available. Exits 1 if the configured engine")
	fmt.Fprintln(w, "cannot run.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -e, --engine <s>          Engine to check: latex, browser")
	fmt.Fprintln(w, "      --json                Print results as JSON")
	fmt.Fprintln(w, "      --no-color            Disable colored output")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "check", "doctor":
		printDoctorUsage(env.Stdout)
	case "config":
		fmt.Fprintln(env.Stdout, "Usage: mathmail config [-c name]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Print the configuration after applying the config file and MATHMAIL_* variables.")
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: mathmail version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: mathmail help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}

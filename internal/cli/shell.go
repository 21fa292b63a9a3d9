package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/vegasq/s3sel/internal/config"
	"github.com/vegasq/s3sel/internal/logger"
	"github.com/vegasq/s3sel/output"
	"github.com/vegasq/s3sel/query"
)

const (
	prompt         = "s3sel> "
	continuePrompt = "    -> "
)

// Shell is the interactive query loop
type Shell struct {
	cfg    *config.Config
	log    *logger.Logger
	runner *Runner
	out    io.Writer
	input  string
	stats  bool
}

// NewShell creates a shell reading input (may be empty) by default
func NewShell(cfg *config.Config, log *logger.Logger, input string) *Shell {
	return &Shell{
		cfg:    cfg,
		log:    log,
		runner: NewRunner(cfg, log, os.Stdout),
		out:    os.Stdout,
		input:  input,
	}
}

// Run starts the loop. Statements end with a semicolon and may span lines;
// backslash commands run immediately.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    newCompleter(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(s.out, `s3sel shell. Type \help for help, \q to quit.`)

	var buf strings.Builder
	for {
		if buf.Len() > 0 {
			rl.SetPrompt(continuePrompt)
		} else {
			rl.SetPrompt(prompt)
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(line, `\`) {
			if s.command(line) {
				return nil
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteByte(' ')
			continue
		}
		sql := buf.String()
		buf.Reset()
		if upper := strings.ToUpper(strings.TrimSuffix(sql, ";")); upper == "EXIT" || upper == "QUIT" {
			return nil
		}
		s.execute(ctx, sql)
	}
}

func (s *Shell) execute(ctx context.Context, sql string) {
	stats, err := s.runner.Run(ctx, sql, s.input)
	if err != nil {
		var perr *query.ParseError
		if errors.As(err, &perr) && perr.Offset <= len(sql) {
			fmt.Fprintf(s.out, "%s\n%s^\n", sql, strings.Repeat(" ", perr.Offset))
		}
		fmt.Fprintf(s.out, "Error: %v\n", err)
		s.log.Debug("query failed", "query", sql, "error", err)
		return
	}
	if s.stats {
		fmt.Fprintf(s.out, "(%d rows read, %d matched, %d skipped, %d emitted in %s)\n",
			stats.RowsRead, stats.RowsMatched, stats.RowsSkipped, stats.RowsEmitted, stats.Duration)
	}
}

// command handles a backslash command and reports whether to exit
func (s *Shell) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case `\q`, `\quit`:
		return true
	case `\?`, `\help`:
		s.printHelp()
	case `\input`:
		if arg == "" {
			fmt.Fprintf(s.out, "input: %s\n", displayInput(s.input))
			break
		}
		s.input = arg
	case `\format`:
		if !output.IsFormat(arg) {
			fmt.Fprintf(s.out, "Error: unknown output format %q (supported: %s)\n", arg, strings.Join(output.Formats, ", "))
			break
		}
		s.cfg.Output.Format = arg
	case `\header`:
		switch strings.ToLower(arg) {
		case "on", "use":
			s.cfg.Input.Header = "use"
		case "off", "none":
			s.cfg.Input.Header = "none"
		case "ignore":
			s.cfg.Input.Header = "ignore"
		default:
			fmt.Fprintf(s.out, "input header: %s\n", s.cfg.Input.Header)
		}
	case `\schema`:
		input := arg
		if input == "" {
			input = s.input
		}
		if input == "" {
			fmt.Fprintln(s.out, `Error: no input; use \input <path>`)
			break
		}
		if err := s.runner.Schema(input); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	case `\functions`:
		_ = s.runner.Functions()
	case `\stats`:
		s.stats = !s.stats
		fmt.Fprintf(s.out, "stats %s\n", onOff(s.stats))
	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", name)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Statements end with ';' and may span lines:
  SELECT name, count(*) FROM data.csv WHERE age > 30;

Commands:
  \input [path]    show or set the input file (glob patterns allowed)
  \header [mode]   show or set the CSV header mode: use, none, ignore
  \format [name]   set the output format: csv, json, table
  \schema [path]   describe the columns of the input
  \functions       list builtin functions
  \stats           toggle row statistics after each query
  \help            show this help
  \q               quit
`)
}

func displayInput(input string) string {
	if input == "" {
		return "(FROM target, or stdin)"
	}
	return input
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".s3sel_history")
}

// newCompleter creates an auto-completer for the shell
func newCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("SELECT"),
		readline.PcItem("FROM"),
		readline.PcItem("WHERE"),
		readline.PcItem("LIMIT"),
		readline.PcItem(`\input`),
		readline.PcItem(`\header`, readline.PcItem("use"), readline.PcItem("none"), readline.PcItem("ignore")),
		readline.PcItem(`\format`, readline.PcItem("csv"), readline.PcItem("json"), readline.PcItem("table")),
		readline.PcItem(`\schema`),
		readline.PcItem(`\functions`),
		readline.PcItem(`\stats`),
		readline.PcItem(`\help`),
		readline.PcItem(`\q`),
	}
	return readline.NewPrefixCompleter(items...)
}

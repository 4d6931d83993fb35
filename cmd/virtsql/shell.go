package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/vegasq/virtsql"
	"github.com/vegasq/virtsql/internal/config"
	"github.com/vegasq/virtsql/output"
	"github.com/vegasq/virtsql/stream"
)

const (
	prompt         = "virtsql> "
	continuePrompt = "     ... "
)

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && readline.IsTerminal(int(f.Fd()))
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".virtsql_history")
}

func completer(db *virtsql.DB) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(`\q`),
		readline.PcItem(`\d`),
	}
	for _, kw := range []string{"SELECT", "WITH"} {
		items = append(items, readline.PcItem(kw))
	}
	tables, _ := db.Tables()
	for _, t := range tables {
		items = append(items, readline.PcItem(t))
	}
	return readline.NewPrefixCompleter(items...)
}

// shell reads statements until \q or end of input. A trailing backslash
// continues a statement on the next line.
func shell(db *virtsql.DB, cfg *config.Config, stdout, stderr io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyFile(),
		AutoComplete:      completer(db),
		InterruptPrompt:   "^C",
		EOFPrompt:         `\q`,
		HistorySearchFold: true,
		Stdout:            stdout,
		Stderr:            stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(stdout, `Enter SQL, \d to list tables, \q to quit.`)
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(prompt)
			continue
		}
		if err != nil {
			return nil
		}

		input := strings.TrimSpace(line)
		if buf.Len() == 0 {
			switch input {
			case "":
				continue
			case `\q`, "quit", "exit":
				return nil
			case `\d`:
				if err := describe(db, stdout); err != nil {
					fmt.Fprintf(stderr, "Error: %v\n", err)
				}
				continue
			}
		}

		if strings.HasSuffix(input, `\`) {
			buf.WriteString(strings.TrimSuffix(input, `\`))
			buf.WriteByte(' ')
			rl.SetPrompt(continuePrompt)
			continue
		}
		buf.WriteString(input)
		sql := strings.TrimSuffix(strings.TrimSpace(buf.String()), ";")
		buf.Reset()
		rl.SetPrompt(prompt)

		if err := execute(db, sql, cfg, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
}

// execute prints the result of one statement as a table.
func execute(db *virtsql.DB, sql string, cfg *config.Config, w io.Writer) error {
	return db.Look(w, sql, cfg.Params, cfg.Limit)
}

// describe lists the tables queries can read.
func describe(db *virtsql.DB, w io.Writer) error {
	tables, err := db.Tables()
	if err != nil {
		return err
	}
	rows := make([]stream.Row, len(tables))
	for i, t := range tables {
		rows[i] = stream.Row{t}
	}
	return output.NewTableFormatter(w).Format(stream.Header{"table"}, stream.FromRows(rows))
}

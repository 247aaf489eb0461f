package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/pkg/dispatch"
)

// RunInteractive runs the readline REPL. Lines starting with '/' are
// commands; everything else is dispatched to the current model.
func (a *App) RunInteractive(ctx context.Context) error {
	paste := newPasteReader(readline.Stdin)
	fmt.Print("\x1b[?2004h")
	defer fmt.Print("\x1b[?2004l")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		HistoryLimit:      2000,
		Stdin:             paste,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/model"),
			readline.PcItem("/health"),
			readline.PcItem("/stats"),
			readline.PcItem("/topic"),
			readline.PcItem("/clear"),
			readline.PcItem("/exit"),
		),
	})
	if err != nil {
		return errors.Wrap(err, "initializing interactive mode")
	}
	defer func() { _ = rl.Close() }()

	fmt.Printf("modelmux — model: %s, topic: %s\n", a.model, a.topic)
	fmt.Println("Commands start with '/'; everything else goes to the model. /exit quits.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			paste.takeSegments()
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}

		if segs := paste.takeSegments(); len(segs) > 0 {
			line = expandPastes(line, segs)
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			if quit := a.handleCommand(ctx, line); quit {
				return nil
			}
		default:
			if _, err := a.chat(ctx, line); err != nil {
				a.printDispatchError(err)
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/model":
		a.selectModel(args)
	case "/health":
		a.printHealth()
	case "/stats":
		a.printStats()
	case "/topic":
		if len(args) > 0 {
			a.topic = args[0]
		}
		fmt.Printf("topic: %s\n", a.topic)
	case "/clear":
		if err := a.store.Clear(ctx, a.topic); err != nil {
			fmt.Printf("clear failed: %v\n", err)
		} else {
			fmt.Printf("cleared history for topic %s\n", a.topic)
		}
	default:
		fmt.Printf("unknown command %s\n", cmd)
	}
	return false
}

// selectModel switches the active model, via argument or interactive picker.
func (a *App) selectModel(args []string) {
	models := a.dispatcher.AvailableModels()
	if len(args) > 0 {
		for _, m := range models {
			if m.ID == args[0] {
				a.model = m.ID
				fmt.Printf("model: %s\n", a.model)
				return
			}
		}
		fmt.Printf("unknown model %q\n", args[0])
		return
	}

	items := make([]string, 0, len(models))
	for _, m := range models {
		label := fmt.Sprintf("%s (%s)", m.ID, m.Spec.Kind())
		if ep := m.Spec.Endpoint(); ep != "" {
			label += " @ " + ep
		}
		items = append(items, label)
	}
	picker := promptui.Select{
		Label: "Switch model",
		Items: items,
		Size:  10,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . }}",
		},
	}
	i, _, err := picker.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Printf("selection failed: %v\n", err)
		}
		return
	}
	a.model = models[i].ID
	fmt.Printf("model: %s\n", a.model)
}

func (a *App) printHealth() {
	statuses := a.dispatcher.ModelHealth()
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%-30s %s\n", id, statuses[id])
	}
}

func (a *App) printStats() {
	stats := a.dispatcher.ConcurrencyStats()
	if len(stats) == 0 {
		fmt.Println("no groups active yet")
		return
	}
	groups := make([]string, 0, len(stats))
	for g := range stats {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		s := stats[g]
		fmt.Printf("%-40s active %d/%d, waiting %d\n", g, s.Active, s.Limit, s.Waiting)
	}
}

// printDispatchError surfaces failover context when a dispatch fails.
func (a *App) printDispatchError(err error) {
	var ec *dispatch.ErrorContext
	if errors.As(err, &ec) {
		fmt.Printf("dispatch failed (%s): %v\n", ec.Status, ec.Err)
		if ec.Retryable {
			fmt.Println("the model may recover; retrying can help")
		}
		if len(ec.Alternatives) > 0 {
			fmt.Printf("alternatives: %s\n", strings.Join(ec.Alternatives, ", "))
		}
		return
	}
	fmt.Printf("error: %v\n", err)
}

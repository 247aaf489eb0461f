// Package app wires settings, registry, adapters and the dispatcher into the
// interactive front end.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/history"
	"github.com/modelmux/modelmux/internal/infra"
	"github.com/modelmux/modelmux/internal/registry"
	"github.com/modelmux/modelmux/internal/tool"
	"github.com/modelmux/modelmux/pkg/client"
	"github.com/modelmux/modelmux/pkg/dispatch"
	"github.com/modelmux/modelmux/pkg/dispatch/gate"
	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
	"github.com/pkg/errors"
)

// App owns one dispatcher and the session state of the front end.
type App struct {
	dispatcher *dispatch.Dispatcher
	store      *history.Store
	settings   *config.Settings

	model string
	topic string
	log   *pkgLogger.Logger
}

// New builds the app from loaded settings.
func New(settings *config.Settings) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid settings")
	}
	descs, err := settings.Descriptors()
	if err != nil {
		return nil, err
	}

	store := history.NewStore(infra.NewFileHistoryRepository(""))
	dispatcher, err := dispatch.New(dispatch.Config{
		Registry: registry.NewStatic(descs),
		Adapters: client.NewRegistry(registry.EnvCredentials{}),
		Gate:     gate.NewManager(settings.SlotLimit),
		History:  store,
		Tools:    tool.NewExecutor(),
	})
	if err != nil {
		return nil, err
	}

	return &App{
		dispatcher: dispatcher,
		store:      store,
		settings:   settings,
		model:      settings.DefaultModel,
		topic:      "default",
		log:        pkgLogger.NewComponentLogger("app"),
	}, nil
}

// SetModel switches the active model; the name must be declared in settings.
func (a *App) SetModel(id string) error {
	for _, m := range a.dispatcher.AvailableModels() {
		if m.ID == id {
			a.model = id
			return nil
		}
	}
	return errors.Errorf("model %q is not declared in settings", id)
}

// SetTopic switches the history namespace for subsequent exchanges.
func (a *App) SetTopic(topic string) {
	if topic != "" {
		a.topic = topic
	}
}

// RunOnce dispatches a single prompt and streams the reply to stdout.
func (a *App) RunOnce(ctx context.Context, prompt string) error {
	_, err := a.chat(ctx, prompt)
	return err
}

// chat runs one exchange on the current model and topic, streaming output.
// SIGINT while the call is in flight cancels the topic instead of killing
// the process.
func (a *App) chat(ctx context.Context, prompt string) (*dispatch.Result, error) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupts:
			a.dispatcher.CancelTopic(a.topic)
		case <-done:
		}
	}()

	res, err := a.dispatcher.Chat(ctx, dispatch.Options{
		Topic:        a.topic,
		ModelID:      a.model,
		Message:      prompt,
		SystemPrompt: a.settings.SystemPrompt,
		EnableTools:  true,
		Priority:     gate.PriorityNormal,
		OnChunk:      func(chunk string) { fmt.Print(chunk) },
	})
	fmt.Println()
	if err != nil {
		return nil, err
	}
	a.log.DebugWithIntention(pkgLogger.IntentionStatistics, "Exchange complete",
		"model", res.ModelID, "total_tokens", res.Usage.TotalTokens)
	return res, nil
}

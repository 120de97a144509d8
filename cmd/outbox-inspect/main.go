package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"emsp/internal/application/factories/infrastructure"
	"emsp/internal/config"
	"emsp/internal/domain/account"
	"emsp/internal/domain/card"
	"emsp/internal/domain/event"
	"emsp/internal/usecase"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Pending struct {
		Limit int `short:"n" help:"Maximum number of events to list" default:"20"`
	} `cmd:"" help:"List PENDING events, oldest first"`

	Show struct {
		EventID string `arg:"" help:"Event id"`
	} `cmd:"" help:"Show one stored event"`

	Redeliver struct {
		EventID string `arg:"" help:"Event id"`
	} `cmd:"" help:"Dispatch one event now, ignoring the grace period"`

	Seed struct {
		Email         string `help:"Account email" required:""`
		RFID          string `name:"rfid" help:"Card RFID UID" required:""`
		VisibleNumber string `help:"Card visible number" required:""`
	} `cmd:"" help:"Create an activated account and an unassigned card"`
}

func main() {
	os.Exit(run(kong.Parse(&CLI)))
}

// run returns the process exit code so deferred cleanup runs before exit.
func run(kctx *kong.Context) int {
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	ob, err := infraFactory.Outbox(ctx)
	if err != nil {
		slog.Error("Failed to initialize outbox", "error", err)
		return 1
	}

	switch kctx.Command() {
	case "pending":
		err = runPending(ctx, ob)
	case "show <event-id>":
		err = runShow(ctx, ob, CLI.Show.EventID)
	case "redeliver <event-id>":
		err = runRedeliver(ctx, ob, CLI.Redeliver.EventID)
	case "seed":
		err = runSeed(ctx, ob)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "command", kctx.Command(), "error", err)
		return 1
	}
	return 0
}

func runPending(ctx context.Context, ob *infrastructure.Outbox) error {
	records, err := ob.Store.ListRecords(ctx, event.StatusPending, CLI.Pending.Limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%s  %-20s  %s:%d  %s\n",
			rec.EventID, rec.EventType, rec.AggregateType, rec.AggregateID, rec.Timestamp.Format(time.RFC3339))
	}
	slog.Info("Listed pending events", "count", len(records))
	return nil
}

func runShow(ctx context.Context, ob *infrastructure.Outbox, eventID string) error {
	dto, err := usecase.NewGetEvent(ob.Store).Execute(ctx, eventID)
	if err != nil {
		return err
	}
	return printJSON(dto)
}

func runRedeliver(ctx context.Context, ob *infrastructure.Outbox, eventID string) error {
	e, err := ob.Store.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	outcome, err := ob.Dispatcher.Dispatch(ctx, e)
	if err != nil {
		return err
	}
	fmt.Println(outcome)
	return nil
}

func runSeed(ctx context.Context, ob *infrastructure.Outbox) error {
	acc := &account.Account{Email: CLI.Seed.Email, Status: account.StatusActivated}
	if err := ob.Accounts.Create(ctx, acc); err != nil {
		return err
	}
	c := &card.Card{RFIDUID: CLI.Seed.RFID, VisibleNumber: CLI.Seed.VisibleNumber, Status: card.StatusCreated}
	if err := ob.Cards.Create(ctx, c); err != nil {
		return err
	}
	return printJSON(map[string]int64{"account_id": acc.ID, "card_id": c.ID})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

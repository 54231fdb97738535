package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chatguard/chatguard/internal/bot"
	"github.com/chatguard/chatguard/internal/enforce"
	"github.com/chatguard/chatguard/internal/hierarchy"
	"github.com/chatguard/chatguard/internal/notify"
	"github.com/chatguard/chatguard/internal/platform/telegram"
	"github.com/chatguard/chatguard/internal/raid"
	"github.com/chatguard/chatguard/internal/setup"
	"github.com/chatguard/chatguard/internal/worker/reconcile"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "bot",
		Usage: "Start the membership guard bot",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return runBot(ctx)
		},
	}

	return app.Run(context.Background(), os.Args)
}

func runBot(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	client, err := telegram.New(app.Config.Bot.Token, app.Logger)
	if err != nil {
		return err
	}

	enforcement := &app.Config.Enforcement

	detector := raid.New(raid.Config{
		Window:    enforcement.RaidWindowDuration(),
		Threshold: enforcement.RaidThresholdCount(),
	}, app.Logger)

	router := notify.New(client, enforcement.NotificationCooldownDuration(), app.Logger)

	var (
		resolver *hierarchy.Resolver
		engine   *enforce.Engine
		fanout   *enforce.Fanout
	)

	if app.DB != nil {
		repo := app.DB.Model()
		resolver = hierarchy.New(repo.Room(), repo.Management(), app.Config.Bot.Superadmins, app.Logger)
		engine = enforce.New(
			client.SelfID(), client,
			repo.Ban(), repo.Member(), repo.Presence(), repo.JoinLog(),
			resolver, router, resolver.Superadmins(), app.Logger,
		)

		rooms := reconcile.CombinedRooms{Flat: repo.Room(), Managed: repo.Management()}
		fanout = enforce.NewFanout(client, rooms, app.Logger)

		worker := reconcile.New(
			client.SelfID(), client, rooms,
			repo.Presence(), engine,
			router, resolver.Superadmins(),
			enforcement.SweepIntervalDuration(), enforcement.SeenLimitCount(),
			app.Logger,
		)

		go worker.Start(ctx)
	} else {
		resolver = hierarchy.New(nil, nil, app.Config.Bot.Superadmins, app.Logger)
	}

	b := bot.New(client, app.DB, engine, detector, resolver, router, fanout,
		enforcement.PendingInputTimeoutDuration(), app.Logger)

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	b.Start()

	return nil
}

package main

import (
	"context"

	"financebladi/app"

	"github.com/spf13/cobra"
)

// cron + 대시보드 + 텔레그램 봇
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the batch on its cron schedule with the dashboard and the Telegram bot",
	RunE: func(cmd *cobra.Command, _ []string) error {

		teleBot := newTeleBot()

		var ch chan string
		if teleBot != nil {
			ch = make(chan string)
		}

		comp, err := setup(cmd.Context(), ch)
		if err != nil {
			return err
		}
		defer comp.Close()

		c := comp.fb.Run()
		defer c.Stop()

		server := app.New(conf.App.AllowOrigins, comp.local, comp.history, comp.fb)
		go func() {
			if err := app.Run(conf.App.Port, server); err != nil {
				lg.Error().Err(err).Msg("dashboard stopped")
			}
		}()

		if teleBot != nil {
			go teleBot.Run(ch)
		}

		<-cmd.Context().Done()
		lg.Info().Msg("shutting down")
		return server.ShutdownWithContext(context.Background())
	},
}

// 대시보드만
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and JSON API over the local backups",
	RunE: func(cmd *cobra.Command, _ []string) error {

		comp, err := setup(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer comp.Close()

		server := app.New(conf.App.AllowOrigins, comp.local, comp.history, comp.fb)
		go func() {
			<-cmd.Context().Done()
			_ = server.Shutdown()
		}()

		lg.Info().Int("port", conf.App.Port).Msg("dashboard listening")
		return app.Run(conf.App.Port, server)
	},
}

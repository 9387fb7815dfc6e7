package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/janryu/janryu/app"
	"github.com/janryu/janryu/common/config"
	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/common/metrics"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "janryu",
	Short: "four-seat riichi table server",
	Long:  `Runs the riichi table server: lobby API, websocket tables, quick match.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.Load(configFile); err != nil {
			log.Fatal("config load: %v", err)
		}
		log.InitLog(config.Conf.AppName, config.Conf.Log.Level)
		log.Info("config loaded from %s", configFile)

		if config.Conf.MetricPort > 0 {
			go func() {
				log.Info("statsviz on http://localhost:%d/debug/statsviz/", config.Conf.MetricPort)
				if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", config.Conf.MetricPort)); err != nil {
					log.Error("metrics server: %v", err)
				}
			}()
		}

		if err := app.Run(context.Background()); err != nil {
			log.Error("server exited: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "resource file")
	rootCmd.MarkFlagRequired("configFile")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}

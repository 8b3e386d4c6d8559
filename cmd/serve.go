package cmd

import (
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"squish/internal/codec"
	"squish/internal/processor"
	"squish/internal/server"
	"squish/pkg/imgutil"
)

var (
	serveAddr        string
	serveFormat      string
	serveMaxAttempts int
	serveMaxUpload   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /v1/compress over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := codec.ParseFormat(serveFormat)
		if err != nil {
			return err
		}
		maxUpload, err := imgutil.ParseSize(serveMaxUpload)
		if err != nil {
			return err
		}

		if zerolog.GlobalLevel() > zerolog.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}
		router := server.New(server.Config{
			DefaultFormat:     format,
			MaxSearchAttempts: serveMaxAttempts,
			MaxUploadBytes:    maxUpload,
			Logger:            log.Logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		log.Warn().Str("addr", serveAddr).Msg("listening")
		return server.Serve(ctx, serveAddr, router)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVarP(&serveFormat, "format", "f", "webp", "default output format when a request sets none")
	serveCmd.Flags().IntVar(&serveMaxAttempts, "max-attempts", processor.DefaultMaxSearchAttempts, "encode attempts allowed per image")
	serveCmd.Flags().StringVar(&serveMaxUpload, "max-upload", "64MB", "largest accepted upload")

	rootCmd.AddCommand(serveCmd)
}

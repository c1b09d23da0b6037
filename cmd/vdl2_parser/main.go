// Command vdl2_parser decodes the X.25 layer of VDL Mode 2 frames.
//
// Frames arrive as JSON objects (one per line in files, one per message on
// NATS) carrying the AVLC addresses, a timestamp and the X.25 packet as hex:
//
//	{"timestamp":"2026-05-04T10:30:00Z","src":"10AB12","dst":"280001","direction":"air2gnd","data":"10 01 21"}
//
// The NATS wrapper format {"source":{...},"vdl2":{...}} is accepted too.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vdl2_parser/internal/config"
	"vdl2_parser/internal/logging"
	"vdl2_parser/internal/metrics"
	_ "vdl2_parser/internal/parsers" // register next-layer parsers via init()
	"vdl2_parser/internal/x25"
)

var (
	configFile string
	v          = config.New()
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vdl2_parser",
	Short: "VDL Mode 2 X.25 decoder",
	Long: `vdl2_parser decodes the X.25 packet layer of VDL Mode 2 frames, reassembles
fragmented data packets and hands the user data to the CLNP and ES-IS parsers.

Frames are read from JSONL files (decode) or a NATS subject (serve). Decoded
packets are printed as text or JSON and can be archived to SQLite, PostgreSQL,
ClickHouse or MongoDB.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().String("output-format", "", "decoded output format (text/json)")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output-format"))

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(parsersCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.Load(v, configFile); err != nil {
		return err
	}
	return logging.Init(cfg.Log)
}

// newDecoder builds the X.25 decoder described by the configuration.
func newDecoder(m metrics.Sink) *x25.Decoder {
	return x25.New(
		x25.WithMetrics(m),
		x25.WithLogger(logrus.WithField("component", "x25")),
		x25.WithDecodeFragments(cfg.Decoder.DecodeFragments),
		x25.WithReasmTimeout(cfg.Reasm.Timeout),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bindFlag ties a command flag to a config key so the flag overrides the
// file and environment.
func bindFlag(key string, cmd *cobra.Command, name string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
		panic(err)
	}
}

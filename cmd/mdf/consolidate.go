package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/adapter/csvstore"
	"github.com/couchcryptid/mdf-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/mdf-dashboard/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) newConsolidateCommand() *cobra.Command {
	var (
		input   string
		output  string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge the raw exports into the consolidated table",
		Long: `consolidate reads every raw export matching --input (semicolon separated,
ISO-8859-1), keeps the most complete row per person, derives the death date,
birth date and age at death, and writes the result to --output.

With --kafka the consolidated records are also published to KAFKA_TOPIC.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if publish && !a.cfg.KafkaEnabled() {
				return errors.New("--kafka requires KAFKA_BROKERS")
			}

			sinks := []pipeline.RecordSink{csvstore.TableSink{Path: output}}
			if publish {
				w := kafka.NewWriter(a.cfg, a.logger)
				defer func() {
					if err := w.Close(); err != nil {
						a.logger.Error("kafka writer close", "error", err)
					}
				}()
				sinks = append(sinks, w)
			}

			c := pipeline.NewConsolidator(csvstore.RawSource{Pattern: input}, sinks, a.logger, a.metrics)
			summary, err := c.Run(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), output, summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", a.cfg.RawGlob, "glob of raw export files")
	cmd.Flags().StringVarP(&output, "output", "o", a.cfg.DataPath, "consolidated table path")
	cmd.Flags().BoolVar(&publish, "kafka", a.cfg.KafkaEnabled(), "also publish records to Kafka")
	return cmd
}

func printSummary(w io.Writer, output string, s pipeline.Summary) {
	fmt.Fprintf(w, "Consolidated %d raw rows into %s\n", s.RawRows, output)
	fmt.Fprintf(w, "  %-24s %d\n", "malformed rows", s.Malformed)
	fmt.Fprintf(w, "  %-24s %d\n", "duplicates dropped", s.Duplicates)
	fmt.Fprintf(w, "  %-24s %d\n", "records written", s.Written)
	fmt.Fprintf(w, "  %-24s %d\n", "missing death dates", s.MissingDeathDates)
	fmt.Fprintf(w, "  %-24s %d\n", "missing birth dates", s.MissingBirthDates)
	fmt.Fprintf(w, "  %-24s %d\n", "negative ages", s.NegativeAges)
	fmt.Fprintf(w, "  %-24s %s\n", "duration", s.Duration.Round(time.Millisecond))
}

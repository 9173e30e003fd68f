package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/couchcryptid/mdf-dashboard/internal/adapter/csvstore"
	"github.com/couchcryptid/mdf-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) newGeocodeCommand() *cobra.Command {
	var (
		dataPath      string
		gazetteerPath string
		country       string
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Add missing places of death to the gazetteer",
		Long: `geocode looks up, with the Mapbox Geocoding API, every place of death of
--country that the gazetteer does not hold yet and appends the resolved
coordinates. A missing gazetteer file is treated as empty.

--dry-run lists the pending places without calling the API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := csvstore.ReadTable(dataPath)
			if err != nil {
				return fmt.Errorf("load consolidated table: %w", err)
			}
			gazetteer, err := loadGazetteer(gazetteerPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				pending := domain.UngeocodedPlaces(table.Records, country, gazetteer)
				for _, place := range pending {
					fmt.Fprintln(out, place)
				}
				fmt.Fprintf(out, "%d places pending, %d known\n", len(pending), len(gazetteer))
				return nil
			}

			if !a.cfg.MapboxEnabled {
				return errors.New("geocoding requires MAPBOX_ENABLED=true and MAPBOX_TOKEN")
			}
			client := mapbox.NewClient(a.cfg.MapboxToken, a.cfg.MapboxTimeout, a.cfg.MapboxRate, a.metrics, a.logger)
			geocoder := mapbox.NewCachedGeocoder(client, a.cfg.MapboxCacheTTL, a.metrics)

			updated, summary, runErr := pipeline.NewGazetteerBuilder(geocoder, country, a.logger).
				Run(cmd.Context(), table.Records, gazetteer)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			// An interrupted run still keeps what it resolved.
			if summary.Resolved > 0 {
				if err := csvstore.WriteGazetteer(gazetteerPath, updated); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "Geocoded %d of %d pending places (%d failed), gazetteer now holds %d\n",
				summary.Resolved, summary.Pending, summary.Failed, len(updated))
			return runErr
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", a.cfg.DataPath, "consolidated table path")
	cmd.Flags().StringVar(&gazetteerPath, "gazetteer", a.cfg.GazetteerPath, "gazetteer path, read and rewritten")
	cmd.Flags().StringVar(&country, "country", a.cfg.Country, "country of death to geocode")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending places without geocoding")
	return cmd
}

func loadGazetteer(path string) (domain.Gazetteer, error) {
	gazetteer, dropped, err := csvstore.ReadGazetteer(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Gazetteer{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}
	if dropped > 0 {
		slog.Warn("gazetteer rows without coordinates dropped", "path", path, "dropped", dropped)
	}
	return gazetteer, nil
}

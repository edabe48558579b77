package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/bydelskart/assets"
	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bydelskart",
	Short: "An interactive Oslo district price map",
	Long: `Bydelskart renders Oslo's city districts as a choropleth of housing price
development.

It serves the map to a browser over a websocket session, renders overlay tiles
on demand or in bulk into MBTiles, and snapshots the map to PNG.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory with oslo_bydeler.geojson and oslo_label_points.geojson (default: bundled sample data)")
	rootCmd.PersistentFlags().String("geo-url", "", "Base URL serving the geography files (overrides --data-dir)")
	rootCmd.PersistentFlags().String("mapbox-token", "", "Mapbox access token for the base tile layers")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	for _, name := range []string{"data-dir", "geo-url", "mapbox-token", "verbose"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func initConfig() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring unreadable .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("BYDELSKART")
	viper.AutomaticEnv()
	_ = viper.BindEnv("mapbox-token", "BYDELSKART_MAPBOX_TOKEN")
	_ = viper.BindEnv("data-dir", "BYDELSKART_DATA_DIR")
	_ = viper.BindEnv("geo-url", "BYDELSKART_GEO_URL")

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func initLogging() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// geographyFS returns the configured data directory or the bundled sample.
func geographyFS() fs.FS {
	if dir := viper.GetString("data-dir"); dir != "" {
		return os.DirFS(dir)
	}
	return assets.Geography()
}

// mapInputs bundles what every map-rendering command needs.
type mapInputs struct {
	districts *district.Collection
	catalog   *tile.Catalog
	geo       fs.FS
	store     *geography.Store
}

func loadMapInputs() (mapInputs, error) {
	if logger == nil {
		initLogging()
	}
	districts := district.Oslo()
	if err := districts.Validate(); err != nil {
		return mapInputs{}, fmt.Errorf("invalid district table: %w", err)
	}
	token := viper.GetString("mapbox-token")
	if token == "" {
		logger.Warn("no Mapbox token configured, base layer URLs will not authenticate")
	}
	geo := geographyFS()
	src, err := geographySource(viper.GetString("geo-url"), geo)
	if err != nil {
		return mapInputs{}, err
	}
	return mapInputs{
		districts: districts,
		catalog:   tile.NewCatalog(token),
		geo:       geo,
		store:     geography.NewStore(src, logger.With("component", "geography")),
	}, nil
}

// geographySource fetches from baseURL when one is configured and reads geo
// otherwise.
func geographySource(baseURL string, geo fs.FS) (geography.Source, error) {
	if baseURL == "" {
		return geography.FSSource{FS: geo}, nil
	}
	src, err := geography.NewHTTPSource(baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid geo-url: %w", err)
	}
	return src, nil
}

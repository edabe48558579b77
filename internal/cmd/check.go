package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every geometry and label name matches a district",
	Long: `Check loads the geography and compares each feature's BYDELSNAVN with the
district table. Names must match exactly; a mismatch leaves the district
unclickable and unlabelled on the map. Exits non-zero on any mismatch.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Bool("json", false, "Print the report as JSON")
	if err := viper.BindPFlag("check.json", checkCmd.Flags().Lookup("json")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	in, err := loadMapInputs()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := in.store.Load(ctx)
	if err != nil {
		return err
	}

	rep := geography.CheckDistricts(data, in.districts)
	if viper.GetBool("check.json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(os.Stdout, rep, len(data.Polygons), len(data.Labels))
	}

	if !rep.OK() {
		return fmt.Errorf("%d geometry and %d label names do not match a district",
			len(rep.UnresolvedPolygons), len(rep.UnresolvedLabels))
	}
	return nil
}

func printReport(w io.Writer, rep geography.Report, polygons, labels int) {
	fmt.Fprintf(w, "Checked %d polygons and %d labels\n", polygons, labels)
	section := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		for _, n := range names {
			fmt.Fprintf(w, "  %q\n", n)
		}
	}
	section("Polygons without a district", rep.UnresolvedPolygons)
	section("Labels without a district", rep.UnresolvedLabels)
	section("Districts without a polygon", rep.MissingGeometry)
	if rep.OK() && len(rep.MissingGeometry) == 0 {
		fmt.Fprintln(w, "All names resolve")
	}
}

package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ooh-map/internal/filter"
	"github.com/sells-group/ooh-map/internal/model"
)

var optionsOutput string

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the selectable values of every filter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("options"); err != nil {
			return err
		}

		ds, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		opts := filter.BuildOptions(ds.Records)
		out := make(map[model.Facet][]string, len(model.Facets()))
		for _, f := range model.Facets() {
			out[f] = opts.Get(f)
		}

		var data []byte
		switch optionsOutput {
		case "json":
			data, err = json.MarshalIndent(out, "", "  ")
			data = append(data, '\n')
		case "yaml":
			data, err = yaml.Marshal(out)
		default:
			return eris.Errorf("unknown output %q (json or yaml)", optionsOutput)
		}
		if err != nil {
			return eris.Wrap(err, "encode options")
		}

		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	optionsCmd.Flags().StringVar(&optionsOutput, "output", "json", "json or yaml")
	rootCmd.AddCommand(optionsCmd)
}

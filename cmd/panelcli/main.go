package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sanepanel/adapters/export"
	"sanepanel/adapters/tabular"
	"sanepanel/app"
	"sanepanel/domain/panel"
	"sanepanel/internal"
	"sanepanel/internal/config"
	"sanepanel/internal/errors"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "panelcli",
		Short:        "Panel-data analysis of municipal sanitation indicators",
		SilenceUsage: true,
	}
	root.AddCommand(runCmd(), inspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.GetCode(err), err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis pipeline and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := internal.DefaultLogger
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Data.InputFile = input
			}
			if cfg.Data.InputFile == "" {
				return errors.ConfigInvalid("no input file: set PANEL_INPUT_FILE or pass --input")
			}

			frame, err := loadFrame(cfg)
			if err != nil {
				return err
			}

			pipeline := app.NewPipeline(cfg, logger)
			report, runErr := pipeline.Run(context.Background(), frame)
			if report != nil {
				fmt.Print(app.RenderReport(report))
				if cfg.Export.Dir != "" {
					if err := export.NewExporter(cfg.Export.Dir, logger).Export(report); err != nil {
						return err
					}
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input .xlsx or .csv panel file")
	return cmd
}

func inspectCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load and validate the input panel without fitting models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Data.InputFile = input
			}
			if cfg.Data.InputFile == "" {
				return errors.ConfigInvalid("no input file: set PANEL_INPUT_FILE or pass --input")
			}

			frame, err := loadFrame(cfg)
			if err != nil {
				return err
			}
			years := frame.Years()
			fmt.Printf("%s: %d observations, %d municipalities, years %d-%d\n\n",
				cfg.Data.InputFile, frame.Len(), frame.NumEntities(),
				years[0], years[len(years)-1])

			exploration, err := app.Explore(frame, frame.Columns(), nil)
			if err != nil {
				return err
			}
			fmt.Print(app.RenderExploration(exploration))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input .xlsx or .csv panel file")
	return cmd
}

func loadFrame(cfg *config.Config) (*panel.Frame, error) {
	reader := tabular.NewReader(cfg.Data.InputFile, tabular.Contract{
		EntityCol: cfg.Data.EntityCol,
		YearCol:   cfg.Data.YearCol,
		Columns:   append(append([]string{}, cfg.Data.Outcomes...), cfg.Data.Covariates...),
	})
	return reader.Read()
}

package commands

import (
	"errors"

	"rpa/runner/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	ordersInput  string
	ordersReplay bool
)

func init() {
	ordersCmd.Flags().StringVar(&ordersInput, "input", "orders.csv", "The order table to process (CSV or XLSX).")
	ordersCmd.Flags().BoolVar(&ordersReplay, "replay", false, "Process the rows waiting in the retry queue instead of the input table.")
	rootCmd.AddCommand(ordersCmd)
}

var ordersCmd = &cobra.Command{
	Use:   "orders [--input <orders.csv>] [--replay]",
	Short: "Submits every order row and saves a PDF receipt per confirmed order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ordersReplay && ordersInput == "" {
			return errors.New("--input is required unless --replay is set")
		}

		app, err := newContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		batch, err := app.RunOrders(cmd.Context(), ordersInput, ordersReplay)
		if batch != nil {
			for _, row := range batch.Rows {
				if row.Err != nil {
					log.Warnf("⚠️ Order %s ended %s: %v", row.OrderNumber, row.State, row.Err)
				}
			}
			log.Infof("📊 %d of %d orders have a receipt", batch.Count(domain.RowStateArtifactGenerated), len(batch.Rows))
		}
		return err
	},
}

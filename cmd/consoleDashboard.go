package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/usecase/dashconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive terminal views over the incident store",
}

var consoleDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the live incident dashboard",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		organization, _ := cmd.Flags().GetInt64("organization")
		warehouse, _ := cmd.Flags().GetInt64("warehouse")
		months, _ := cmd.Flags().GetInt("months")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 30 * time.Second
		}

		model := dashconsole.NewDashboardModel(ctx, svc.Incidents, dashconsole.Options{
			OrganizationID:      organization,
			ShippingWarehouseID: warehouse,
			Months:              months,
			RefreshInterval:     refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run dashboard console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleDashboardCmd)
	consoleDashboardCmd.Flags().Int64("organization", 0, "Organization id (0 = all)")
	consoleDashboardCmd.Flags().Int64("warehouse", 0, "Shipping warehouse id (0 = all)")
	consoleDashboardCmd.Flags().Int("months", 6, "Months in the monthly series")
	consoleDashboardCmd.Flags().Duration("refresh-interval", 30*time.Second, "Auto refresh interval")
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
	"troubledesk/internal/usecase/incident"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print incident counts by status, category, warehouse and month",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		list, err := listFilterFromFlags(cmd, svc.App.Config.App.Location())
		if err != nil {
			return err
		}
		months, _ := cmd.Flags().GetInt("months")
		summary, err := svc.Incidents.Dashboard(ctx, incident.DashboardFilter{
			OrganizationID:      list.OrganizationID,
			ShippingWarehouseID: list.ShippingWarehouseID,
			TroubleCategoryID:   list.TroubleCategoryID,
			CreatedFrom:         list.CreatedFrom,
			CreatedTo:           list.CreatedTo,
			Months:              months,
		})
		if err != nil {
			logging.Error(ctx, "build dashboard failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "build dashboard")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "Total: %d  Delayed: %d\n\nBy status:\n", summary.Total, summary.Delayed); err != nil {
			return errs.Wrap(err, "write dashboard")
		}
		for _, status := range domain.AllStatuses {
			if _, err := fmt.Fprintf(out, "  %-24s %d\n", status, summary.ByStatus[status]); err != nil {
				return errs.Wrap(err, "write dashboard")
			}
		}
		groups := []struct {
			title  string
			label  string
			counts []ports.GroupCount
		}{
			{"By category", "category", summary.ByCategory},
			{"By warehouse", "warehouse", summary.ByWarehouse},
		}
		for _, group := range groups {
			if _, err := fmt.Fprintf(out, "\n%s:\n", group.title); err != nil {
				return errs.Wrap(err, "write dashboard")
			}
			if len(group.counts) == 0 {
				if _, err := fmt.Fprintln(out, "  none"); err != nil {
					return errs.Wrap(err, "write dashboard")
				}
			}
			for _, count := range group.counts {
				if _, err := fmt.Fprintf(out, "  %s %-8d %d\n", group.label, count.Key, count.Count); err != nil {
					return errs.Wrap(err, "write dashboard")
				}
			}
		}
		if _, err := fmt.Fprintln(out, "\nMonthly (created / completed / delayed):"); err != nil {
			return errs.Wrap(err, "write dashboard")
		}
		for _, month := range summary.Monthly {
			if _, err := fmt.Fprintf(out, "  %s  %d / %d / %d\n", month.Month, month.Created, month.Completed, month.Delayed); err != nil {
				return errs.Wrap(err, "write dashboard")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().Int64("organization", 0, "Organization id")
	dashboardCmd.Flags().Int64("warehouse", 0, "Shipping warehouse id")
	dashboardCmd.Flags().Int64("category", 0, "Trouble category id")
	dashboardCmd.Flags().String("from", "", "Created on or after YYYY-MM-DD")
	dashboardCmd.Flags().String("to", "", "Created on or before YYYY-MM-DD")
	dashboardCmd.Flags().Int("months", 6, "Months in the monthly series")
}

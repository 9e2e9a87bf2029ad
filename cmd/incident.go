package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/usecase/incident"
)

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Create, inspect and edit trouble incidents",
}

var incidentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an incident from its 1st info",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		loc := svc.App.Config.App.Location()
		input, err := phase1FromFlags(cmd.Flags(), loc)
		if err != nil {
			return err
		}

		detail, err := svc.Incidents.CreateIncident(ctx, actor, input)
		if err != nil {
			logging.Error(ctx, "create incident failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create incident")
		}
		return writeDetail(cmd.OutOrStdout(), detail, loc)
	}),
}

var incidentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an incident with its status, permissions, files and history",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		// Viewing needs no role; permissions are shown for whichever role is given.
		rawRole, _ := cmd.Flags().GetString("role")
		actor := domain.Actor{}
		actor.UserID, _ = cmd.Flags().GetInt64("user")
		if rawRole != "" {
			if actor.Role, err = domain.ParseRole(rawRole); err != nil {
				return fmt.Errorf("--role: %w", err)
			}
		}

		detail, err := svc.Incidents.GetIncident(ctx, actor, id)
		if err != nil {
			logging.Error(ctx, "show incident failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "show incident")
		}
		return writeDetail(cmd.OutOrStdout(), detail, svc.App.Config.App.Location())
	}),
}

var incidentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents, newest first",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		loc := svc.App.Config.App.Location()
		filter, err := listFilterFromFlags(cmd, loc)
		if err != nil {
			return err
		}

		result, err := svc.Incidents.ListIncidents(ctx, filter)
		if err != nil {
			logging.Error(ctx, "list incidents failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list incidents")
		}

		out := cmd.OutOrStdout()
		if len(result.Items) == 0 {
			if _, err := fmt.Fprintln(out, "no incidents"); err != nil {
				return errs.Wrap(err, "write list output")
			}
			return nil
		}
		for _, item := range result.Items {
			deadline := "-"
			if item.NextDeadline != nil {
				deadline = item.NextDeadline.In(loc).Format(dateLayout)
			}
			if _, err := fmt.Fprintf(
				out,
				"#%d [%s] created=%s deadline=%s org=%d warehouse=%d category=%d details=%s\n",
				item.Incident.ID,
				item.Status,
				item.Incident.CreationDate.In(loc).Format(dateLayout),
				deadline,
				item.Incident.OrganizationID,
				item.Incident.ShippingWarehouseID,
				item.Incident.TroubleCategoryID,
				oneLine(item.Incident.Details, 60),
			); err != nil {
				return errs.Wrap(err, "write list item")
			}
		}
		if _, err := fmt.Fprintf(out, "page %d (%d per page), %d total\n", result.Page, result.PageSize, result.Total); err != nil {
			return errs.Wrap(err, "write list output")
		}
		return nil
	}),
}

var incidentUpdateFirstCmd = &cobra.Command{
	Use:   "update-first <id>",
	Short: "Replace the 1st info of an incident",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		loc := svc.App.Config.App.Location()
		input, err := phase1FromFlags(cmd.Flags(), loc)
		if err != nil {
			return err
		}
		return runPhaseOp(cmd, args, svc, "update 1st info", func(ctx context.Context, actor domain.Actor, id int64) (incident.Detail, error) {
			return svc.Incidents.UpdatePhase1(ctx, actor, id, input)
		})
	}),
}

var incidentAddSecondCmd = &cobra.Command{
	Use:   "add-second <id>",
	Short: "Record the 2nd info of an incident",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		input, err := phase2FromFlags(cmd.Flags(), svc.App.Config.App.Location())
		if err != nil {
			return err
		}
		return runPhaseOp(cmd, args, svc, "add 2nd info", func(ctx context.Context, actor domain.Actor, id int64) (incident.Detail, error) {
			return svc.Incidents.CreatePhase2(ctx, actor, id, input)
		})
	}),
}

var incidentUpdateSecondCmd = &cobra.Command{
	Use:   "update-second <id>",
	Short: "Edit the 2nd info of an incident",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		input, err := phase2FromFlags(cmd.Flags(), svc.App.Config.App.Location())
		if err != nil {
			return err
		}
		return runPhaseOp(cmd, args, svc, "update 2nd info", func(ctx context.Context, actor domain.Actor, id int64) (incident.Detail, error) {
			return svc.Incidents.UpdatePhase2(ctx, actor, id, input)
		})
	}),
}

var incidentAddThirdCmd = &cobra.Command{
	Use:   "add-third <id>",
	Short: "Record the 3rd info of an incident",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		input, err := phase3FromFlags(cmd.Flags(), svc.App.Config.App.Location())
		if err != nil {
			return err
		}
		return runPhaseOp(cmd, args, svc, "add 3rd info", func(ctx context.Context, actor domain.Actor, id int64) (incident.Detail, error) {
			return svc.Incidents.CreatePhase3(ctx, actor, id, input)
		})
	}),
}

var incidentUpdateThirdCmd = &cobra.Command{
	Use:   "update-third <id>",
	Short: "Edit the 3rd info of an incident",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		input, err := phase3FromFlags(cmd.Flags(), svc.App.Config.App.Location())
		if err != nil {
			return err
		}
		return runPhaseOp(cmd, args, svc, "update 3rd info", func(ctx context.Context, actor domain.Actor, id int64) (incident.Detail, error) {
			return svc.Incidents.UpdatePhase3(ctx, actor, id, input)
		})
	}),
}

var incidentPatchCmd = &cobra.Command{
	Use:   "patch <id>",
	Short: "Apply a partial edit; the touched phase decides the operation",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		patch, err := patchFromFlags(cmd.Flags(), svc.App.Config.App.Location())
		if err != nil {
			return err
		}
		return runPhaseOp(cmd, args, svc, "patch incident", func(ctx context.Context, actor domain.Actor, id int64) (incident.Detail, error) {
			return svc.Incidents.ApplyPatch(ctx, actor, id, patch)
		})
	}),
}

var incidentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an incident with its files and history",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := svc.Incidents.DeleteIncident(ctx, actor, id); err != nil {
			logging.Error(ctx, "delete incident failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "delete incident")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted incident #%d\n", id); err != nil {
			return errs.Wrap(err, "write delete output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(incidentCmd)
	addActorFlags(incidentCmd)

	incidentCmd.AddCommand(incidentCreateCmd)
	incidentCmd.AddCommand(incidentShowCmd)
	incidentCmd.AddCommand(incidentListCmd)
	incidentCmd.AddCommand(incidentUpdateFirstCmd)
	incidentCmd.AddCommand(incidentAddSecondCmd)
	incidentCmd.AddCommand(incidentUpdateSecondCmd)
	incidentCmd.AddCommand(incidentAddThirdCmd)
	incidentCmd.AddCommand(incidentUpdateThirdCmd)
	incidentCmd.AddCommand(incidentPatchCmd)
	incidentCmd.AddCommand(incidentDeleteCmd)

	addPhase1Flags(incidentCreateCmd.Flags())
	addPhase1Flags(incidentUpdateFirstCmd.Flags())
	addPhase2Flags(incidentAddSecondCmd.Flags())
	addPhase2Flags(incidentUpdateSecondCmd.Flags())
	addPhase3Flags(incidentAddThirdCmd.Flags())
	addPhase3Flags(incidentUpdateThirdCmd.Flags())
	addPatchFlags(incidentPatchCmd.Flags())
	addListFlags(incidentListCmd)
}

// runPhaseOp resolves the id and actor, runs op and prints the resulting detail.
func runPhaseOp(
	cmd *cobra.Command,
	args []string,
	svc services,
	what string,
	op func(ctx context.Context, actor domain.Actor, id int64) (incident.Detail, error),
) error {
	ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	actor, err := actorFromFlags(cmd)
	if err != nil {
		return err
	}

	detail, err := op(ctx, actor, id)
	if err != nil {
		logging.Error(ctx, what+" failed", slog.Int64("incident_id", id), slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, what)
	}
	return writeDetail(cmd.OutOrStdout(), detail, svc.App.Config.App.Location())
}

// addListFlags registers the list filter flags shared by list and export.
func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("organization", 0, "Organization id")
	cmd.Flags().Int64("warehouse", 0, "Shipping warehouse id")
	cmd.Flags().Int64("category", 0, "Trouble category id")
	cmd.Flags().String("from", "", "Created on or after YYYY-MM-DD")
	cmd.Flags().String("to", "", "Created on or before YYYY-MM-DD")
	cmd.Flags().String("keyword", "", "Match details, location, voucher, customer or product code")
	cmd.Flags().StringSlice("status", nil, "Derived status filter (repeatable)")
	cmd.Flags().Bool("delayed", false, "Only delayed incidents")
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().Int("page-size", 50, "Page size")
}

func listFilterFromFlags(cmd *cobra.Command, loc *time.Location) (incident.ListFilter, error) {
	flags := cmd.Flags()
	var filter incident.ListFilter
	filter.OrganizationID, _ = flags.GetInt64("organization")
	filter.ShippingWarehouseID, _ = flags.GetInt64("warehouse")
	filter.TroubleCategoryID, _ = flags.GetInt64("category")
	filter.Keyword, _ = flags.GetString("keyword")
	filter.DelayedOnly, _ = flags.GetBool("delayed")
	filter.Page, _ = flags.GetInt("page")
	filter.PageSize, _ = flags.GetInt("page-size")

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &filter.CreatedFrom},
		{"to", &filter.CreatedTo},
	} {
		raw, _ := flags.GetString(bound.name)
		if raw == "" {
			continue
		}
		value, err := parseDateArg(raw, loc)
		if err != nil {
			return incident.ListFilter{}, fmt.Errorf("--%s: %w", bound.name, err)
		}
		*bound.dst = &value
	}

	statuses, _ := flags.GetStringSlice("status")
	for _, raw := range statuses {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return incident.ListFilter{}, fmt.Errorf("--status: %w", err)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return filter, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func writeDetail(w io.Writer, detail incident.Detail, loc *time.Location) error {
	inc := detail.Incident
	lines := []struct {
		label string
		value string
	}{
		{"ID", fmt.Sprintf("#%d", inc.ID)},
		{"Status", detail.Status.String()},
		{"NextDeadline", optionalDate(detail.NextDeadline, loc)},
		{"CreationDate", inc.CreationDate.In(loc).Format(dateLayout)},
		{"Organization", strconv.FormatInt(inc.OrganizationID, 10)},
		{"Creator", strconv.FormatInt(inc.CreatorID, 10)},
		{"OccurredAt", inc.OccurrenceAt.In(loc).Format(timestampLayout)},
		{"Location", inc.OccurrenceLocation},
		{"Warehouse", strconv.FormatInt(inc.ShippingWarehouseID, 10)},
		{"Company", strconv.FormatInt(inc.ShippingCompanyID, 10)},
		{"Category", fmt.Sprintf("%d / %d", inc.TroubleCategoryID, inc.TroubleDetailCategoryID)},
		{"Details", inc.Details},
		{"Voucher", orDash(inc.VoucherNumber)},
		{"Customer", orDash(inc.CustomerCode)},
		{"Product", orDash(inc.ProductCode)},
		{"Quantity", quantityText(inc.Quantity, inc.Unit)},
		{"SecondInputDate", optionalDate(inc.SecondInputDate, loc)},
		{"ProcessDescription", orDash(inc.ProcessDescription)},
		{"Cause", orDash(inc.Cause)},
		{"Photo", orDash(inc.PhotoRef)},
		{"ThirdInputDate", optionalDate(inc.ThirdInputDate, loc)},
		{"Measures", orDash(inc.RecurrencePreventionMeasures)},
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "%s: %s\n", line.label, line.value); err != nil {
			return errs.Wrap(err, "write incident detail")
		}
	}

	allowed := make([]string, 0, len(domain.AllActions))
	for _, action := range domain.AllActions {
		if detail.Permissions[action] {
			allowed = append(allowed, string(action))
		}
	}
	if _, err := fmt.Fprintf(w, "Allowed: %s\n", orDash(strings.Join(allowed, ","))); err != nil {
		return errs.Wrap(err, "write incident detail")
	}

	if len(detail.Files) > 0 {
		if _, err := fmt.Fprintln(w, "\nFiles:"); err != nil {
			return errs.Wrap(err, "write incident files")
		}
		for _, file := range detail.Files {
			if _, err := fmt.Fprintf(w, "- f%d level=%d %s (%s, %d bytes)\n", file.ID, file.InfoLevel, file.FileName, file.ContentType, file.FileSize); err != nil {
				return errs.Wrap(err, "write incident file")
			}
		}
	}

	if len(detail.Events) > 0 {
		if _, err := fmt.Fprintln(w, "\nHistory:"); err != nil {
			return errs.Wrap(err, "write incident events")
		}
		for _, event := range detail.Events {
			if _, err := fmt.Fprintf(
				w,
				"- e%d %s by user=%d role=%s at=%s\n",
				event.ID,
				event.Action,
				event.ActorID,
				event.ActorRole,
				event.CreatedAt.In(loc).Format(time.RFC3339),
			); err != nil {
				return errs.Wrap(err, "write incident event")
			}
		}
	}
	return nil
}

func optionalDate(value *time.Time, loc *time.Location) string {
	if value == nil {
		return "-"
	}
	return value.In(loc).Format(dateLayout)
}

func quantityText(quantity *int, unit string) string {
	if quantity == nil {
		return "-"
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s", *quantity, unit))
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func oneLine(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

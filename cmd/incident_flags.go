package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/usecase/incident"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04"
)

// addActorFlags registers --user and --role on a command group.
func addActorFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Int64("user", 0, "Acting user id")
	cmd.PersistentFlags().String("role", "", "Acting role id or name (1|system_admin, 2|office_admin, 3|general_office, 4|3pl)")
}

func actorFromFlags(cmd *cobra.Command) (domain.Actor, error) {
	userID, _ := cmd.Flags().GetInt64("user")
	rawRole, _ := cmd.Flags().GetString("role")
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("--role: %w", err)
	}
	return domain.Actor{UserID: userID, Role: role}, nil
}

func addPhase1Flags(flags *pflag.FlagSet) {
	flags.String("creation-date", "", "Creation date YYYY-MM-DD (default today)")
	flags.Int64("organization", 0, "Organization id")
	flags.Int64("creator", 0, "Creator user id (default --user)")
	flags.String("occurred-at", "", "Occurrence time, RFC 3339 or YYYY-MM-DD HH:MM")
	flags.String("location", "", "Occurrence location")
	flags.Int64("warehouse", 0, "Shipping warehouse id")
	flags.Int64("company", 0, "Shipping company id")
	flags.Int64("category", 0, "Trouble category id")
	flags.Int64("detail-category", 0, "Trouble detail category id")
	flags.String("details", "", "Trouble details")
	flags.String("voucher", "", "Voucher number")
	flags.String("customer", "", "Customer code")
	flags.String("product", "", "Product code")
	flags.Int("quantity", 0, "Quantity")
	flags.String("unit", "", "Unit")
}

func phase1FromFlags(flags *pflag.FlagSet, loc *time.Location) (incident.Phase1Input, error) {
	var input incident.Phase1Input
	if raw, _ := flags.GetString("creation-date"); raw != "" {
		value, err := parseDateArg(raw, loc)
		if err != nil {
			return incident.Phase1Input{}, fmt.Errorf("--creation-date: %w", err)
		}
		input.CreationDate = value
	}
	if raw, _ := flags.GetString("occurred-at"); raw != "" {
		value, err := parseTimestampArg(raw, loc)
		if err != nil {
			return incident.Phase1Input{}, fmt.Errorf("--occurred-at: %w", err)
		}
		input.OccurrenceAt = value
	}
	input.OrganizationID, _ = flags.GetInt64("organization")
	input.CreatorID, _ = flags.GetInt64("creator")
	input.OccurrenceLocation, _ = flags.GetString("location")
	input.ShippingWarehouseID, _ = flags.GetInt64("warehouse")
	input.ShippingCompanyID, _ = flags.GetInt64("company")
	input.TroubleCategoryID, _ = flags.GetInt64("category")
	input.TroubleDetailCategoryID, _ = flags.GetInt64("detail-category")
	input.Details, _ = flags.GetString("details")
	input.VoucherNumber, _ = flags.GetString("voucher")
	input.CustomerCode, _ = flags.GetString("customer")
	input.ProductCode, _ = flags.GetString("product")
	input.Unit, _ = flags.GetString("unit")
	if flags.Changed("quantity") {
		quantity, _ := flags.GetInt("quantity")
		input.Quantity = &quantity
	}
	return input, nil
}

func addPhase2Flags(flags *pflag.FlagSet) {
	flags.String("input-date", "", "2nd info input date YYYY-MM-DD (default today on add)")
	flags.String("description", "", "Process description")
	flags.String("cause", "", "Cause")
	flags.String("photo", "", "Photo reference")
}

func phase2FromFlags(flags *pflag.FlagSet, loc *time.Location) (incident.Phase2Input, error) {
	var input incident.Phase2Input
	if raw, _ := flags.GetString("input-date"); raw != "" {
		value, err := parseDateArg(raw, loc)
		if err != nil {
			return incident.Phase2Input{}, fmt.Errorf("--input-date: %w", err)
		}
		input.InputDate = &value
	}
	input.ProcessDescription, _ = flags.GetString("description")
	input.Cause, _ = flags.GetString("cause")
	input.PhotoRef, _ = flags.GetString("photo")
	return input, nil
}

func addPhase3Flags(flags *pflag.FlagSet) {
	flags.String("input-date", "", "3rd info input date YYYY-MM-DD (required on add)")
	flags.String("measures", "", "Recurrence prevention measures")
}

func phase3FromFlags(flags *pflag.FlagSet, loc *time.Location) (incident.Phase3Input, error) {
	var input incident.Phase3Input
	if raw, _ := flags.GetString("input-date"); raw != "" {
		value, err := parseDateArg(raw, loc)
		if err != nil {
			return incident.Phase3Input{}, fmt.Errorf("--input-date: %w", err)
		}
		input.InputDate = &value
	}
	input.RecurrencePreventionMeasures, _ = flags.GetString("measures")
	return input, nil
}

// patchField binds one patch flag to its Patch member. Only flags given on
// the command line end up in the patch.
type patchField struct {
	name  string
	usage string
	kind  string
	apply func(p *domain.Patch, flags *pflag.FlagSet, name string, loc *time.Location) error
}

func stringField(name, usage string, dst func(*domain.Patch) **string) patchField {
	return patchField{name: name, usage: usage, kind: "string", apply: func(p *domain.Patch, flags *pflag.FlagSet, name string, _ *time.Location) error {
		value, _ := flags.GetString(name)
		*dst(p) = &value
		return nil
	}}
}

func idField(name, usage string, dst func(*domain.Patch) **int64) patchField {
	return patchField{name: name, usage: usage, kind: "int64", apply: func(p *domain.Patch, flags *pflag.FlagSet, name string, _ *time.Location) error {
		value, _ := flags.GetInt64(name)
		*dst(p) = &value
		return nil
	}}
}

func dateField(name, usage string, dst func(*domain.Patch) **time.Time, parse func(string, *time.Location) (time.Time, error)) patchField {
	return patchField{name: name, usage: usage, kind: "string", apply: func(p *domain.Patch, flags *pflag.FlagSet, name string, loc *time.Location) error {
		raw, _ := flags.GetString(name)
		value, err := parse(raw, loc)
		if err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		*dst(p) = &value
		return nil
	}}
}

var patchFields = []patchField{
	dateField("creation-date", "Creation date YYYY-MM-DD", func(p *domain.Patch) **time.Time { return &p.CreationDate }, parseDateArg),
	idField("organization", "Organization id", func(p *domain.Patch) **int64 { return &p.OrganizationID }),
	dateField("occurred-at", "Occurrence time", func(p *domain.Patch) **time.Time { return &p.OccurrenceAt }, parseTimestampArg),
	stringField("location", "Occurrence location", func(p *domain.Patch) **string { return &p.OccurrenceLocation }),
	idField("warehouse", "Shipping warehouse id", func(p *domain.Patch) **int64 { return &p.ShippingWarehouseID }),
	idField("company", "Shipping company id", func(p *domain.Patch) **int64 { return &p.ShippingCompanyID }),
	idField("category", "Trouble category id", func(p *domain.Patch) **int64 { return &p.TroubleCategoryID }),
	idField("detail-category", "Trouble detail category id", func(p *domain.Patch) **int64 { return &p.TroubleDetailCategoryID }),
	stringField("details", "Trouble details", func(p *domain.Patch) **string { return &p.Details }),
	stringField("voucher", "Voucher number", func(p *domain.Patch) **string { return &p.VoucherNumber }),
	stringField("customer", "Customer code", func(p *domain.Patch) **string { return &p.CustomerCode }),
	stringField("product", "Product code", func(p *domain.Patch) **string { return &p.ProductCode }),
	{name: "quantity", usage: "Quantity", kind: "int", apply: func(p *domain.Patch, flags *pflag.FlagSet, name string, _ *time.Location) error {
		value, _ := flags.GetInt(name)
		p.Quantity = &value
		return nil
	}},
	stringField("unit", "Unit", func(p *domain.Patch) **string { return &p.Unit }),
	dateField("second-input-date", "2nd info input date", func(p *domain.Patch) **time.Time { return &p.SecondInputDate }, parseDateArg),
	stringField("description", "Process description", func(p *domain.Patch) **string { return &p.ProcessDescription }),
	stringField("cause", "Cause", func(p *domain.Patch) **string { return &p.Cause }),
	stringField("photo", "Photo reference", func(p *domain.Patch) **string { return &p.PhotoRef }),
	dateField("third-input-date", "3rd info input date", func(p *domain.Patch) **time.Time { return &p.ThirdInputDate }, parseDateArg),
	stringField("measures", "Recurrence prevention measures", func(p *domain.Patch) **string { return &p.RecurrencePreventionMeasures }),
}

func addPatchFlags(flags *pflag.FlagSet) {
	for _, field := range patchFields {
		switch field.kind {
		case "int64":
			flags.Int64(field.name, 0, field.usage)
		case "int":
			flags.Int(field.name, 0, field.usage)
		default:
			flags.String(field.name, "", field.usage)
		}
	}
}

func patchFromFlags(flags *pflag.FlagSet, loc *time.Location) (domain.Patch, error) {
	var patch domain.Patch
	for _, field := range patchFields {
		if !flags.Changed(field.name) {
			continue
		}
		if err := field.apply(&patch, flags, field.name, loc); err != nil {
			return domain.Patch{}, err
		}
	}
	return patch, nil
}

func parseDateArg(raw string, loc *time.Location) (time.Time, error) {
	value, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD, got %q", raw)
	}
	return value, nil
}

func parseTimestampArg(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if value, err := time.Parse(time.RFC3339, raw); err == nil {
		return value, nil
	}
	value, err := time.ParseInLocation(timestampLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 or YYYY-MM-DD HH:MM, got %q", raw)
	}
	return value, nil
}

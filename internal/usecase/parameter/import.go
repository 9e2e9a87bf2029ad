package parameter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
)

// SeedFormat names a parameter seed file encoding.
type SeedFormat string

const (
	SeedTOML SeedFormat = "toml"
	SeedYAML SeedFormat = "yaml"
)

// SeedFormatFor picks the format from a file extension; anything that is not
// .yaml or .yml is read as TOML.
func SeedFormatFor(path string) SeedFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SeedYAML
	default:
		return SeedTOML
	}
}

type seedFile struct {
	Parameter []seedParameter `toml:"parameter" yaml:"parameter"`
}

type seedParameter struct {
	Key         string `toml:"key" yaml:"key"`
	Value       string `toml:"value" yaml:"value"`
	Type        string `toml:"type" yaml:"type"`
	Description string `toml:"description" yaml:"description,omitempty"`
	Active      *bool  `toml:"active" yaml:"active,omitempty"`
}

func decodeSeed(r io.Reader, format SeedFormat) (seedFile, error) {
	var seed seedFile
	switch format {
	case SeedYAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)
		if err := decoder.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
			return seedFile{}, err
		}
	case SeedTOML, "":
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&seed); err != nil {
			return seedFile{}, err
		}
	default:
		return seedFile{}, fmt.Errorf("unknown seed format %q", format)
	}
	return seed, nil
}

type ImportResult struct {
	Keys []string
}

// Import applies a TOML seed file of [[parameter]] tables in one transaction.
// Nothing is written when any entry is invalid.
func (s *Service) Import(ctx context.Context, actor incident.Actor, r io.Reader) (ImportResult, error) {
	return s.ImportFormat(ctx, actor, r, SeedTOML)
}

// ImportFormat is Import for a seed in the given format.
func (s *Service) ImportFormat(ctx context.Context, actor incident.Actor, r io.Reader, format SeedFormat) (ImportResult, error) {
	if !actor.Role.IsAdmin() {
		return ImportResult{}, errs.WithCode(
			fmt.Errorf("%w: %s cannot change system parameters", incident.ErrForbidden, actor.Role),
			errs.CodeForbidden,
		)
	}

	seed, err := decodeSeed(r, format)
	if err != nil {
		return ImportResult{}, errs.WithCode(errs.Wrap(err, "decode parameter seed"), errs.CodeInvalidInput)
	}

	var result ImportResult
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for i, entry := range seed.Parameter {
			description := entry.Description
			param, err := s.prepare(txCtx, actor, SetInput{
				Key:         entry.Key,
				Value:       entry.Value,
				Type:        entry.Type,
				Description: &description,
				IsActive:    entry.Active,
			})
			if err != nil {
				return errs.Wrapf(err, "parameter #%d (%s)", i+1, entry.Key)
			}
			saved, err := s.repo.UpsertParameter(txCtx, param)
			if err != nil {
				return err
			}
			result.Keys = append(result.Keys, saved.Key)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	for _, key := range result.Keys {
		s.invalidate(ctx, key)
	}
	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "usecase.parameter")),
		"system parameters imported",
		slog.Int("count", len(result.Keys)),
		slog.Int64("updated_by", actor.UserID),
	)
	return result, nil
}

// Export renders the stored parameters in the Import format.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	return s.ExportFormat(ctx, w, SeedTOML)
}

func (s *Service) ExportFormat(ctx context.Context, w io.Writer, format SeedFormat) error {
	items, err := s.List(ctx)
	if err != nil {
		return err
	}

	seed := seedFile{Parameter: make([]seedParameter, 0, len(items))}
	for _, item := range items {
		active := item.IsActive
		seed.Parameter = append(seed.Parameter, seedParameter{
			Key:         item.Key,
			Value:       item.Value,
			Type:        string(item.ValueType),
			Description: item.Description,
			Active:      &active,
		})
	}

	switch format {
	case SeedYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(seed); err != nil {
			return errs.Wrap(err, "encode parameter seed")
		}
		if err := encoder.Close(); err != nil {
			return errs.Wrap(err, "flush parameter seed")
		}
	default:
		if err := toml.NewEncoder(w).Encode(seed); err != nil {
			return errs.Wrap(err, "encode parameter seed")
		}
	}
	return nil
}

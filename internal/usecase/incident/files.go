package incident

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

// FileInput is an attachment for the 1st (level 1) or 2nd (level 2) info.
type FileInput struct {
	InfoLevel   int
	FileName    string
	ContentType string
	Data        []byte
}

// fileAllowed mirrors the permission of the phase a file level belongs to.
func fileAllowed(actor domain.Actor, level int, status domain.Status, s domain.Snapshot) bool {
	switch level {
	case 1:
		return domain.Allowed(domain.ActionUpdateFirstInfo, actor.Role, status, s)
	case 2:
		return domain.Allowed(domain.ActionCreateSecondInfo, actor.Role, status, s) ||
			domain.Allowed(domain.ActionUpdateSecondInfo, actor.Role, status, s)
	}
	return false
}

func (s *Service) AddFile(ctx context.Context, actor domain.Actor, incidentID int64, input FileInput) (ports.IncidentFile, error) {
	if ctx == nil {
		return ports.IncidentFile{}, errors.New("context is required")
	}
	if input.InfoLevel != 1 && input.InfoLevel != 2 {
		return ports.IncidentFile{}, invalidInput("info level must be 1 or 2, got %d", input.InfoLevel)
	}
	name := filepath.Base(strings.TrimSpace(input.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return ports.IncidentFile{}, invalidInput("file name is required")
	}
	if len(input.Data) == 0 {
		return ports.IncidentFile{}, invalidInput("file %s is empty", name)
	}
	if int64(len(input.Data)) > s.maxFileBytes {
		return ports.IncidentFile{}, invalidInput("file %s is %d bytes, limit is %d", name, len(input.Data), s.maxFileBytes)
	}

	contentType := detectContentType(name, input.ContentType, input.Data)
	now := s.now()
	deadlines := s.Deadlines(ctx)

	var (
		created ports.IncidentFile
		event   ports.IncidentEvent
	)
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		inc, err := s.repo.GetIncident(txCtx, incidentID)
		if err != nil {
			return err
		}
		status := domain.CalculateStatus(inc.Snapshot(), now, deadlines)
		if !fileAllowed(actor, input.InfoLevel, status, inc.Snapshot()) {
			return errs.WithCode(
				fmt.Errorf("%w: %s may not attach level %d files while %s", domain.ErrForbidden, actor.Role, input.InfoLevel, status),
				errs.CodeForbidden,
			)
		}

		created, err = s.repo.CreateFile(txCtx, ports.IncidentFile{
			IncidentID:  incidentID,
			InfoLevel:   input.InfoLevel,
			FileName:    name,
			ContentType: contentType,
			FileSize:    int64(len(input.Data)),
			DataURI:     EncodeDataURI(contentType, input.Data),
			CreatedAt:   now,
			CreatedBy:   actor.UserID,
		})
		if err != nil {
			return err
		}
		event = ports.IncidentEvent{
			IncidentID: incidentID,
			ActorID:    actor.UserID,
			ActorRole:  actor.Role,
			Action:     "file.add",
			Phase:      input.InfoLevel,
			Changes:    map[string]any{"file_id": created.ID, "file_name": name, "file_size": created.FileSize},
			CreatedAt:  now,
		}
		return s.repo.AppendEvent(txCtx, event)
	})
	if err != nil {
		return ports.IncidentFile{}, classify(err, "add incident file")
	}
	s.publish(ctx, event)

	logging.Info(
		s.logCtx(ctx, slog.Int64("incident_id", incidentID)),
		"incident file added",
		slog.Int64("file_id", created.ID),
		slog.Int("info_level", created.InfoLevel),
		slog.Int64("size", created.FileSize),
	)
	return created, nil
}

// ListFiles returns metadata of an incident's files; level 0 means every level.
func (s *Service) ListFiles(ctx context.Context, incidentID int64, level int) ([]ports.IncidentFile, error) {
	if _, err := s.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, classify(err, "get incident")
	}
	files, err := s.repo.ListFiles(ctx, incidentID, level)
	if err != nil {
		return nil, classify(err, "list incident files")
	}
	return files, nil
}

func (s *Service) GetFile(ctx context.Context, fileID int64) (ports.IncidentFile, error) {
	file, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		return ports.IncidentFile{}, classify(err, "get incident file")
	}
	return file, nil
}

func (s *Service) DeleteFile(ctx context.Context, actor domain.Actor, fileID int64) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	now := s.now()
	deadlines := s.Deadlines(ctx)
	var event ports.IncidentEvent
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		file, err := s.repo.GetFile(txCtx, fileID)
		if err != nil {
			return err
		}
		inc, err := s.repo.GetIncident(txCtx, file.IncidentID)
		if err != nil {
			return err
		}
		status := domain.CalculateStatus(inc.Snapshot(), now, deadlines)
		if !fileAllowed(actor, file.InfoLevel, status, inc.Snapshot()) {
			return errs.WithCode(
				fmt.Errorf("%w: %s may not remove level %d files while %s", domain.ErrForbidden, actor.Role, file.InfoLevel, status),
				errs.CodeForbidden,
			)
		}
		if err := s.repo.DeleteFile(txCtx, fileID); err != nil {
			return err
		}
		event = ports.IncidentEvent{
			IncidentID: file.IncidentID,
			ActorID:    actor.UserID,
			ActorRole:  actor.Role,
			Action:     "file.delete",
			Phase:      file.InfoLevel,
			Changes:    map[string]any{"file_id": fileID, "file_name": file.FileName},
			CreatedAt:  now,
		}
		return s.repo.AppendEvent(txCtx, event)
	})
	if err != nil {
		return classify(err, "delete incident file")
	}
	s.publish(ctx, event)

	logging.Info(s.logCtx(ctx, slog.Int64("file_id", fileID)), "incident file deleted", slog.Int64("actor_id", actor.UserID))
	return nil
}

func EncodeDataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI accepts only the base64 form written by EncodeDataURI.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data uri has no payload")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errs.Wrap(err, "decode data uri payload")
	}
	return contentType, data, nil
}

func detectContentType(name string, declared string, data []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

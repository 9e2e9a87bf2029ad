package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/usecase/incident"
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage files attached to an incident's 1st or 2nd info",
}

var fileAddCmd = &cobra.Command{
	Use:   "add <incident-id> <path>",
	Short: "Attach a local file",
	Args:  cobra.ExactArgs(2),
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
		level, _ := cmd.Flags().GetInt("level")
		contentType, _ := cmd.Flags().GetString("content-type")

		info, err := os.Stat(args[1])
		if err != nil {
			return errs.Wrapf(err, "stat %s", args[1])
		}
		if info.Size() > svc.Incidents.MaxFileBytes() {
			return fmt.Errorf("%s is %d bytes, limit is %d", args[1], info.Size(), svc.Incidents.MaxFileBytes())
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return errs.Wrapf(err, "read %s", args[1])
		}

		file, err := svc.Incidents.AddFile(ctx, actor, id, incident.FileInput{
			InfoLevel:   level,
			FileName:    filepath.Base(args[1]),
			ContentType: contentType,
			Data:        data,
		})
		if err != nil {
			logging.Error(ctx, "add file failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "add file")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "attached f%d %s (%s, %d bytes) to incident #%d\n", file.ID, file.FileName, file.ContentType, file.FileSize, id); err != nil {
			return errs.Wrap(err, "write file add output")
		}
		return nil
	}),
}

var fileListCmd = &cobra.Command{
	Use:   "list <incident-id>",
	Short: "List files of an incident",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		level, _ := cmd.Flags().GetInt("level")

		files, err := svc.Incidents.ListFiles(ctx, id, level)
		if err != nil {
			logging.Error(ctx, "list files failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list files")
		}
		if len(files) == 0 {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "no files"); err != nil {
				return errs.Wrap(err, "write file list output")
			}
			return nil
		}
		for _, file := range files {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "f%d level=%d %s (%s, %d bytes) by=%d\n", file.ID, file.InfoLevel, file.FileName, file.ContentType, file.FileSize, file.CreatedBy); err != nil {
				return errs.Wrap(err, "write file list item")
			}
		}
		return nil
	}),
}

var fileGetCmd = &cobra.Command{
	Use:   "get <file-id>",
	Short: "Write a stored file to disk",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}
		file, err := svc.Incidents.GetFile(ctx, fileID)
		if err != nil {
			logging.Error(ctx, "get file failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "get file")
		}
		_, data, err := incident.DecodeDataURI(file.DataURI)
		if err != nil {
			return errs.Wrapf(err, "decode file f%d", fileID)
		}

		target, _ := cmd.Flags().GetString("out")
		if target == "" {
			target = file.FileName
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return errs.Wrapf(err, "write %s", target)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", target, len(data)); err != nil {
			return errs.Wrap(err, "write file get output")
		}
		return nil
	}),
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Remove an attached file",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}
		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := svc.Incidents.DeleteFile(ctx, actor, fileID); err != nil {
			logging.Error(ctx, "delete file failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "delete file")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted file f%d\n", fileID); err != nil {
			return errs.Wrap(err, "write file delete output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(fileCmd)
	addActorFlags(fileCmd)

	fileCmd.AddCommand(fileAddCmd)
	fileCmd.AddCommand(fileListCmd)
	fileCmd.AddCommand(fileGetCmd)
	fileCmd.AddCommand(fileDeleteCmd)

	fileAddCmd.Flags().Int("level", 1, "Info level the file belongs to (1 or 2)")
	fileAddCmd.Flags().String("content-type", "", "Override the detected content type")
	fileListCmd.Flags().Int("level", 0, "Only files of this info level (0 = all)")
	fileGetCmd.Flags().String("out", "", "Output path (default: stored file name)")
}

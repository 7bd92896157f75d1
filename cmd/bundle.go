package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eamonnfaherty/codebundle/pkg/bundle"
	"github.com/eamonnfaherty/codebundle/pkg/logging"
	"github.com/eamonnfaherty/codebundle/pkg/progress"
)

var (
	bundleFlags selectionFlags
	outputPath  string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [dir]",
	Short: "Write the eligible files of a project into a zip archive",
	Long: `Bundle walks the project directory (default: the current directory), keeps the
files whose extension is allow-listed and that no ignore rule matches, and writes
them into a zip archive. The archive path, its base64 SHA-256 checksum and the
total size are printed. Without --out the archive stays in the temp directory
and must be removed by the caller.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBundle,
}

func init() {
	bundleFlags.register(bundleCmd.Flags())
	bundleCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Move the finished archive to this path")
	RootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	logger := logging.Logger
	opts, err := bundleFlags.options(cmd, args, cfg)
	if err != nil {
		return err
	}

	for {
		svc := bundle.New(opts, logger,
			bundle.WithTelemetry(bundle.LogSink{Logger: logger}),
			bundle.WithProgress(progress.NewTerminal()),
		)
		result, err := svc.Bundle(cmd.Context())
		if err == nil {
			return report(cmd.OutOrStdout(), result)
		}
		if !bundle.IsSizeLimit(err) || !stdinIsTerminal() {
			return err
		}

		fmt.Fprintln(cmd.ErrOrStderr(), err)
		sub, promptErr := promptLine(cmd.InOrStdin(), cmd.ErrOrStderr(),
			"Enter a folder inside the project to bundle instead (empty to abort): ")
		if promptErr != nil {
			return multierr.Append(err, promptErr)
		}
		if sub == "" {
			return err
		}
		logger.Info("Retrying with a narrower folder", zap.String("subfolder", sub))
		opts.Subfolder = sub
	}
}

func report(out io.Writer, result *bundle.Result) error {
	archivePath := result.ArchivePath
	if outputPath != "" {
		if err := moveFile(result.ArchivePath, outputPath); err != nil {
			return fmt.Errorf("failed to move archive to %s: %w", outputPath, err)
		}
		archivePath = outputPath
	}

	fmt.Fprintf(out, "archive:  %s\n", archivePath)
	fmt.Fprintf(out, "checksum: %s\n", result.Checksum)
	fmt.Fprintf(out, "files:    %d\n", result.FileCount)
	fmt.Fprintf(out, "size:     %s (%s compressed)\n",
		humanize.Bytes(uint64(result.TotalSizeBytes)), humanize.Bytes(uint64(result.ArchiveSizeBytes)))
	return nil
}

// moveFile renames src to dst, falling back to a copy when the rename
// fails, as it does across devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/eamonnfaherty/codebundle/pkg/bundle"
	"github.com/eamonnfaherty/codebundle/pkg/config"
)

// selectionFlags are shared by the commands that walk a workspace.
type selectionFlags struct {
	subfolder  string
	maxSize    string
	extensions []string
	ignoreFile string
	workers    int
	batchSize  int
}

func (f *selectionFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.subfolder, "subfolder", "", "Bundle only this folder inside the project root")
	fs.StringVar(&f.maxSize, "max-size", "", "Maximum total size of eligible files, e.g. 50MB (0 for no limit)")
	fs.StringSliceVar(&f.extensions, "extensions", nil, "Allowed source-code extensions (default: built-in list)")
	fs.StringVar(&f.ignoreFile, "ignore-file", "", "Ignore file to use instead of <root>/.gitignore")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent file readers (default: number of CPUs)")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Files per read task")
}

// options merges the config file with the flags the user set explicitly.
func (f *selectionFlags) options(cmd *cobra.Command, args []string, cfg *config.Config) (bundle.Options, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	opts := bundle.Options{
		Root:       root,
		Subfolder:  f.subfolder,
		Extensions: cfg.Extensions,
		IgnoreFile: cfg.IgnoreFile,
		Workers:    cfg.Workers,
		BatchSize:  cfg.BatchSize,
		TempDir:    cfg.TempDir,

		CompressionLevel: cfg.CompressionLevel,
	}

	maxSize := cfg.MaxSize
	fs := cmd.Flags()
	if fs.Changed("max-size") {
		maxSize = f.maxSize
	}
	maxBytes, err := config.ParseSize(maxSize)
	if err != nil {
		return bundle.Options{}, err
	}
	opts.MaxBytes = maxBytes

	if fs.Changed("extensions") {
		opts.Extensions = f.extensions
	}
	if fs.Changed("ignore-file") {
		opts.IgnoreFile = f.ignoreFile
	}
	if fs.Changed("workers") {
		opts.Workers = f.workers
	}
	if fs.Changed("batch-size") {
		opts.BatchSize = f.batchSize
	}
	return opts, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/backup-manager/internal/backup"
	"github.com/yourusername/backup-manager/internal/catalog"
	"github.com/yourusername/backup-manager/internal/config"
	"github.com/yourusername/backup-manager/internal/logging"
	"github.com/yourusername/backup-manager/internal/notify"
	"github.com/yourusername/backup-manager/internal/share"
)

const usageText = `Usage: backup <command> [flags]

Commands:
  create    Create a new backup archive
  share     Serve the latest archive over HTTP until interrupted
  download  Fetch an archive from a peer and restore it
  restore   Restore an archive into the destination tree
  list      List archives in the archive directory
  history   Show the backup catalog
  prune     Delete archives beyond a keep-N policy
  schedule  Run backups on a cron schedule until interrupted

Run 'backup <command> -h' for command flags.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 1
	}

	command := args[0]
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Print(usageText)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	switch command {
	case "create":
		err = runCreate(cfg, args[1:])
	case "share":
		err = runShare(cfg, args[1:])
	case "download":
		err = runDownload(cfg, args[1:])
	case "restore":
		err = runRestore(cfg, args[1:])
	case "list":
		err = runList(cfg, args[1:])
	case "history":
		err = runHistory(cfg, args[1:])
	case "prune":
		err = runPrune(cfg, args[1:])
	case "schedule":
		err = runSchedule(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n\n%s", command, usageText)
		return 1
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// addCreateFlags registers the flags shared by create and schedule. The
// returned apply func must be called after Parse to fold the list-valued
// flags into the config.
func addCreateFlags(fs *flag.FlagSet, cfg *config.Config) (apply func(), noNotify, verbose *bool) {
	fs.StringVar(&cfg.Backup.ArchiveDir, "dir", cfg.Backup.ArchiveDir, "archive directory")
	fs.StringVar(&cfg.Backup.RestoreDir, "dest", cfg.Backup.RestoreDir, "restore destination root")
	fs.StringVar(&cfg.Backup.TempDir, "tmp", cfg.Backup.TempDir, "working/temp directory")
	fs.IntVar(&cfg.Share.Port, "port", cfg.Share.Port, "share/download port")
	fs.StringVar(&cfg.Backup.Output, "output", cfg.Backup.Output, "archive filename override")
	fs.IntVar(&cfg.Backup.Compression, "compress", cfg.Backup.Compression, "compression level (0-9)")

	dirs := fs.String("dirs", "", "comma-separated source directories")
	exclude := fs.String("exclude", "", "comma-separated glob exclusion patterns")
	destType := fs.String("dest-type", cfg.Destination.Type, "offsite destination type (local, sftp, s3)")
	destPath := fs.String("dest-path", cfg.Destination.Path, "offsite destination path")
	noNotify = fs.Bool("no-notify", false, "disable desktop notifications")
	verbose = fs.Bool("verbose", false, "verbose logging")

	apply = func() {
		if *dirs != "" {
			cfg.Backup.Directories = splitList(*dirs)
		}
		if *exclude != "" {
			cfg.Backup.Exclude = splitList(*exclude)
		}
		cfg.Destination.Type = *destType
		cfg.Destination.Path = *destPath
	}

	return apply, noNotify, verbose
}

func runCreate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	apply, noNotify, verbose := addCreateFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	apply()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(cfg.Logging, *verbose)
	defer logging.Close()

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	notifier := notify.New("Backup Manager", cfg.Notify.Enabled && !*noNotify)
	manager := backup.NewManager(cfg, cat, notifier)

	info, err := manager.CreateBackup(context.Background(), "cli")
	if err != nil {
		return err
	}

	fmt.Printf("Created %s (%s, %d files)\n",
		info.Path, humanize.Bytes(uint64(info.SizeBytes)), info.FileCount)
	return nil
}

func runShare(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("share", flag.ContinueOnError)
	fs.StringVar(&cfg.Backup.ArchiveDir, "dir", cfg.Backup.ArchiveDir, "archive directory")
	fs.IntVar(&cfg.Share.Port, "port", cfg.Share.Port, "port to serve on")
	verbose := fs.Bool("verbose", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.Init(cfg.Logging, *verbose)
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := share.NewServer(cfg.Backup.ArchiveDir, cfg.Share.Port)
	if err := server.Run(ctx); err != nil {
		if errors.Is(err, backup.ErrNoBackups) {
			return fmt.Errorf("no backups found in %s", cfg.Backup.ArchiveDir)
		}
		return err
	}
	return nil
}

func runDownload(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	ip := fs.String("ip", "", "peer address (required)")
	fs.IntVar(&cfg.Share.Port, "port", cfg.Share.Port, "peer port")
	zipName := fs.String("zip-name", "", "expected archive filename")
	fs.StringVar(&cfg.Backup.TempDir, "tmp", cfg.Backup.TempDir, "working/temp directory")
	fs.StringVar(&cfg.Backup.RestoreDir, "dest", cfg.Backup.RestoreDir, "restore destination root")
	noNotify := fs.Bool("no-notify", false, "disable desktop notifications")
	verbose := fs.Bool("verbose", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *ip == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag --ip")
	}

	logging.Init(cfg.Logging, *verbose)
	defer logging.Close()

	filename := *zipName
	if filename == "" {
		filename = backup.DefaultRemoteName(time.Now())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archivePath, err := share.Download(ctx, *ip, cfg.Share.Port, filename, cfg.Backup.TempDir)
	if err != nil {
		return err
	}

	notifier := notify.New("Backup Manager", cfg.Notify.Enabled && !*noNotify)
	manager := backup.NewManager(cfg, nil, notifier)
	return manager.RestoreBackup(archivePath)
}

func runRestore(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	file := fs.String("file", "", "archive to restore (required)")
	fs.StringVar(&cfg.Backup.RestoreDir, "dest", cfg.Backup.RestoreDir, "restore destination root")
	fs.StringVar(&cfg.Backup.TempDir, "tmp", cfg.Backup.TempDir, "working/temp directory")
	noNotify := fs.Bool("no-notify", false, "disable desktop notifications")
	verbose := fs.Bool("verbose", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *file == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag --file")
	}

	logging.Init(cfg.Logging, *verbose)
	defer logging.Close()

	notifier := notify.New("Backup Manager", cfg.Notify.Enabled && !*noNotify)
	manager := backup.NewManager(cfg, nil, notifier)
	return manager.RestoreBackup(*file)
}

func runList(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.StringVar(&cfg.Backup.ArchiveDir, "dir", cfg.Backup.ArchiveDir, "archive directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	manager := backup.NewManager(cfg, nil, notify.LogNotifier{})
	files, err := manager.ListBackups()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		fmt.Println("no backups found")
		return nil
	}

	for _, file := range files {
		fmt.Printf("%s  %8s  %s\n",
			file.CreatedAt.Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(file.SizeBytes)),
			file.Filename)
	}
	return nil
}

func runHistory(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum records to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	records, err := cat.List(*limit)
	if err != nil {
		return err
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s  %-10s  %8s  %s",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Status,
			humanize.Bytes(uint64(rec.SizeBytes)),
			rec.Filename)
		if rec.ErrorMessage != "" {
			line += "  (" + rec.ErrorMessage + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runPrune(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	keep := fs.Int("keep", 0, "number of archives to keep (required, 0 keeps all)")
	fs.StringVar(&cfg.Backup.ArchiveDir, "dir", cfg.Backup.ArchiveDir, "archive directory")
	verbose := fs.Bool("verbose", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.Init(cfg.Logging, *verbose)
	defer logging.Close()

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	deleted, err := backup.NewRetentionManager(cfg, cat).EnforceRetention(*keep)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d archives\n", deleted)
	return nil
}

func runSchedule(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	cronExpr := fs.String("cron", "", "cron expression (required)")
	keep := fs.Int("keep", 0, "retention after each run (0 keeps all)")
	apply, noNotify, verbose := addCreateFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	apply()

	if *cronExpr == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag --cron")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(cfg.Logging, *verbose)
	defer logging.Close()

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	notifier := notify.New("Backup Manager", cfg.Notify.Enabled && !*noNotify)
	manager := backup.NewManager(cfg, cat, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return backup.NewScheduleRunner(manager, *cronExpr, *keep).Run(ctx)
}

func openCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup catalog: %w", err)
	}
	return cat, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/example/revtrack/internal/excel"
)

var errPathRequired = errors.New("file path is required")

func (a *App) importCmd() *Command {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.String("sheet", "", "Sheet to read from an .xlsx file [default: first sheet]")
	fs.Int("start-row", 2, "First data row; rows above it are headers")

	return &Command{
		Flags: fs,
		Usage: "import <file.xlsx|file.csv> [flags]",
		Short: "Import topics from a spreadsheet",
		Long: `Import topics from an .xlsx or .csv file.

Columns: A = subject, B = topic, C = last revised (YYYY-MM-DD, optional).
Subjects are matched by name and created when missing. Topics that
already exist in the subject are skipped.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errPathRequired
			}
			cfg := excel.DefaultImportConfig()
			cfg.SheetName, _ = fs.GetString("sheet")
			cfg.StartRow, _ = fs.GetInt("start-row")

			result, err := excel.ImportFile(ctx, a.Tracker, args[0], cfg)
			if err != nil {
				return err
			}

			o.Printf("Rows processed:   %d\n", result.Processed)
			o.Printf("Subjects created: %d\n", result.SubjectsCreated)
			o.Printf("Topics created:   %d\n", result.TopicsCreated)
			o.Printf("Skipped:          %d\n", result.Skipped)
			for _, e := range result.Errors {
				o.ErrPrintln("warning:", e)
			}
			return nil
		},
	}
}

func (a *App) exportCmd() *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.String("theme", "", "Report colours: light|dark [default: from config]")

	return &Command{
		Flags: fs,
		Usage: "export <file.xlsx> [flags]",
		Short: "Write the dashboard and all topics to an Excel report",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errPathRequired
			}
			path := args[0]
			if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
				return fmt.Errorf("report must be an .xlsx file: %s", path)
			}

			name, _ := fs.GetString("theme")
			if !fs.Changed("theme") && a.Config != nil {
				name = a.Config.Theme
			}
			theme, err := excel.ParseTheme(name)
			if err != nil {
				return err
			}

			dash, err := a.Tracker.Dashboard(ctx)
			if err != nil {
				return err
			}
			if err := excel.WriteReport(path, dash, theme); err != nil {
				return err
			}
			o.Println("Report written to", path)
			return nil
		},
	}
}

func (a *App) backupCmd() *Command {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "backup <file.json>",
		Short: "Save subjects, settings and stats to a JSON file",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errPathRequired
			}
			doc, err := a.Backup.Export(ctx, args[0])
			if err != nil {
				return err
			}
			o.Printf("Backed up %d subject(s) and %d active day(s) to %s\n", len(doc.Subjects), len(doc.Stats), args[0])
			return nil
		},
	}
}

func (a *App) restoreCmd() *Command {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.BoolP("yes", "y", false, "Do not ask for confirmation")

	return &Command{
		Flags: fs,
		Usage: "restore <file.json> [flags]",
		Short: "Merge a JSON backup into the store",
		Long: `Merge a JSON backup into the store.

Subjects and settings in the backup replace the stored ones with the
same id or key. Active days are added. The file may contain comments
and trailing commas.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errPathRequired
			}
			yes, _ := fs.GetBool("yes")
			ok, err := a.confirmer(yes).Confirm(ctx, fmt.Sprintf("Restore %s over the current data?", args[0]))
			if err != nil {
				return err
			}
			if !ok {
				o.Println("Cancelled.")
				return nil
			}

			res, err := a.Backup.Restore(ctx, args[0])
			if err != nil {
				return err
			}
			o.Printf("Restored %d subject(s), %d topic(s), %d setting(s), %d active day(s)\n",
				res.Subjects, res.Topics, res.Settings, res.Stats)
			return nil
		},
	}
}

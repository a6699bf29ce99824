package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Extended3652/supplements/internal/db"
	"github.com/Extended3652/supplements/internal/format"
	"github.com/Extended3652/supplements/internal/model"
	"github.com/Extended3652/supplements/internal/tui"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "supplements",
	Short: "Personal medication and supplement tracker",
	Long: `Track prescriptions, OTC medications, and supplements with dosing
schedules, a status lifecycle, and an append-only audit trail.

Running without a subcommand opens the interactive TUI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, path, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()
		fmt.Printf("Initialized database at %s\n", path)
		return nil
	},
}

var (
	addCategory string
	addBrand    string
	addGeneric  string
	addForm     string
	addRoute    string
	addNotes    string
	addAmount   float64
	addUnit     string
	addAM       bool
	addMidday   bool
	addPM       bool
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		fields := db.ItemFields{
			NameDisplay: args[0],
			Category:    model.Category(addCategory),
			Brand:       optFlag(addBrand),
			NameGeneric: optFlag(addGeneric),
			Form:        optFlag(addForm),
			Route:       optFlag(addRoute),
			Notes:       optFlag(addNotes),
			Unit:        optFlag(addUnit),
			TimeAM:      addAM,
			TimeMidday:  addMidday,
			TimePM:      addPM,
		}
		if cmd.Flags().Changed("amount") {
			fields.Amount = &addAmount
		}

		id, err := database.CreateItem(fields)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", args[0], id)
		return nil
	},
}

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		rows, err := database.ListByStatus(model.Status(listStatus))
		if err != nil {
			return err
		}
		counts, err := database.StatusCounts()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDOSE\tWHEN\tBRAND")
		for _, pair := range rows {
			r := format.ItemRow(pair.Item, pair.Dose)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(r.ID), r.Name, r.Category, r.Dose, r.Schedule, r.Brand)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\n%d active, %d paused, %d stopped\n",
			counts[model.StatusActive], counts[model.StatusPaused], counts[model.StatusStopped])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id> <active|paused|stopped>",
	Short: "Change an item's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		id, err := resolveID(database, args[0])
		if err != nil {
			return err
		}
		if err := database.SetStatus(id, model.Status(args[1])); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", shortID(id), args[1])
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show the audit trail, newest first",
	Long:  "Without an id, shows the global feed across all items.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		itemID := ""
		if len(args) == 1 {
			if itemID, err = resolveID(database, args[0]); err != nil {
				return err
			}
		}

		events, err := database.GetHistory(itemID, historyLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tITEM\tACTION\tNOTE")
		for _, ev := range events {
			note := ""
			if ev.Note != nil {
				note = *ev.Note
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				ev.TS.Format("2006-01-02 15:04:05"), shortID(ev.ItemID), ev.Action, note)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one item in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		id, err := resolveID(database, args[0])
		if err != nil {
			return err
		}
		item, dose, err := database.GetItem(id)
		if err != nil {
			return err
		}

		fmt.Printf("%s  [%s, %s]\n", item.NameDisplay, item.Category, item.Status)
		printField("Generic", item.NameGeneric)
		printField("Brand", item.Brand)
		printField("Form", item.Form)
		printField("Route", item.Route)
		printField("Prescriber", item.Prescriber)
		printField("Pharmacy", item.Pharmacy)
		printField("Started", item.StartDate)
		printField("Stopped", item.StopDate)
		if dose != nil {
			if label := format.DoseLabel(dose); label != "" {
				fmt.Printf("  %-11s %s\n", "Dose", label)
			}
			if sched := format.ScheduleLabel(dose); sched != "" {
				fmt.Printf("  %-11s %s\n", "When", sched)
			}
			printField("Directions", dose.Instructions)
		}
		printField("Notes", item.Notes)
		fmt.Printf("  %-11s %s\n", "ID", item.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item and its dose and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		id, err := resolveID(database, args[0])
		if err != nil {
			return err
		}
		if err := database.DeleteItem(id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", shortID(id))
		return nil
	},
}

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all items to JSON or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, path, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		out := exportOut
		if out == "" {
			dir, err := db.ExportsDir(path)
			if err != nil {
				return err
			}
			stamp := time.Now().UTC().Format("20060102-150405")
			out = filepath.Join(dir, "supplements-"+stamp+"."+exportFormat)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer func() { _ = f.Close() }()

		switch exportFormat {
		case "json":
			err = database.ExportJSON(f)
		case "csv":
			err = database.ExportCSV(f)
		default:
			return fmt.Errorf("unknown export format: %s (want json or csv)", exportFormat)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", out)
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the database file",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, path, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		dir, err := db.BackupsDir(path)
		if err != nil {
			return err
		}
		stamp := time.Now().UTC().Format("20060102-150405")
		dst := filepath.Join(dir, "supplements-"+stamp+".db")

		if err := database.Backup(dst); err != nil {
			return err
		}
		fmt.Printf("Backed up to %s\n", dst)
		return nil
	},
}

// openDB resolves the database path (flag, then env, then default), opens
// it, and ensures the schema exists.
func openDB() (*db.DB, string, error) {
	path := dbPath
	if path == "" {
		path = os.Getenv("SUPPLEMENTS_DB")
	}
	if path == "" {
		var err error
		if path, err = db.DefaultPath(); err != nil {
			return nil, "", err
		}
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, "", err
	}
	if err := database.Init(); err != nil {
		_ = database.Close()
		return nil, "", err
	}
	return database, path, nil
}

func runTUI() error {
	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	p := tea.NewProgram(tui.New(database), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// resolveID accepts a full item id or an unambiguous prefix of one.
func resolveID(database *db.DB, arg string) (string, error) {
	rows, err := database.ListAll()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, pair := range rows {
		if pair.Item.ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(pair.Item.ID, arg) {
			matches = append(matches, pair.Item.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("%w: %s", db.ErrNotFound, arg)
	default:
		return "", fmt.Errorf("ambiguous id prefix %q matches %d items", arg, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func optFlag(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func printField(label string, value *string) {
	if value == nil || *value == "" {
		return
	}
	fmt.Printf("  %-11s %s\n", label, *value)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default ~/.supplements/supplements.db)")

	addCmd.Flags().StringVarP(&addCategory, "category", "c", "supplement", "rx, otc, or supplement")
	addCmd.Flags().StringVarP(&addBrand, "brand", "b", "", "brand name")
	addCmd.Flags().StringVar(&addGeneric, "generic", "", "generic name")
	addCmd.Flags().StringVar(&addForm, "form", "", "form (tablet, capsule, ...)")
	addCmd.Flags().StringVar(&addRoute, "route", "", "route (oral, topical, ...)")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "free-text notes")
	addCmd.Flags().Float64Var(&addAmount, "amount", 0, "dose amount")
	addCmd.Flags().StringVarP(&addUnit, "unit", "u", "", "dose unit (mg, mcg, IU, ...)")
	addCmd.Flags().BoolVar(&addAM, "am", false, "taken in the morning")
	addCmd.Flags().BoolVar(&addMidday, "midday", false, "taken at midday")
	addCmd.Flags().BoolVar(&addPM, "pm", false, "taken in the evening")

	listCmd.Flags().StringVarP(&listStatus, "status", "s", "active", "active, paused, or stopped")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", db.DefaultHistoryLimit, "maximum events to show")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default under the exports dir)")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ajholden/DatasetDB"
	"github.com/ajholden/DatasetDB/core"
	"github.com/ajholden/DatasetDB/dataeng"
	"github.com/ajholden/DatasetDB/db"
	"github.com/ajholden/DatasetDB/lineage"
	"github.com/ajholden/DatasetDB/ps"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the CLI state
type CLI struct {
	engine      *db.Engine
	history     []string
	historyFile string
}

func main() {
	baseDir := flag.String("baseDir", os.Getenv("DATASETDB_REPO"), "Base directory for the repository")
	cacheDir := flag.String("cacheDir", "", "Cache directory for remote data pointers")
	cmdFile := flag.String("cmdFile", "", "Command file to execute (non-interactive)")
	userName := flag.String("name", "DatasetDB", "User name for commits")
	userEmail := flag.String("email", "cli@datasetdb.local", "User email for commits")
	flag.Parse()

	printBanner()

	var Instance DatasetDB.Instance

	if *baseDir == "" {
		fmt.Printf("%sUsing memory persistence%s\n", SuccessColor, ResetColor)
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		Instance = *DatasetDB.Open(&persistence)
	} else {
		fmt.Printf("%sUsing file persistence: %s%s\n", SuccessColor, *baseDir, ResetColor)
		persistence, err := ps.NewFilePersistence(*baseDir)
		if err != nil {
			fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		Instance = *DatasetDB.Open(&persistence)
	}

	cache := *cacheDir
	if cache == "" {
		cache = filepath.Join(os.TempDir(), "datasetdb-cache")
	}

	engine := Instance.Engine(core.Identity{
		Name:  *userName,
		Email: *userEmail,
	}, dataeng.New(cache))

	cli := &CLI{
		engine:      engine,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}
	cli.loadHistory()

	// Execute command file if provided
	if *cmdFile != "" {
		err := cli.importFile(*cmdFile)
		if err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("DatasetDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Git-backed Dataset Version Store    ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Printf("%sdatasetdb>%s ", PromptColor, ResetColor)

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		if strings.HasPrefix(input, ".") {
			if cli.handleCommand(input) {
				continue
			}
		}

		cli.addToHistory(input)

		if err := cli.execute(input); err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		}
	}
}

func (cli *CLI) execute(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: create <name> <pointer> [tag]")
		}
		params := db.CreateParams{Name: args[0], DataPointer: args[1]}
		if len(args) > 2 {
			params.Tag = args[2]
		}
		record, err := cli.engine.CreateDataset(params)
		if err != nil {
			return err
		}
		fmt.Printf("%s✓ Created %s (%s)%s\n", SuccessColor, record.Name, record.ID, ResetColor)

	case "derive":
		if len(args) < 2 {
			return fmt.Errorf("usage: derive <ref> <pointer> [name] [tag]")
		}
		params := db.CreateParams{DataPointer: args[1]}
		if len(args) > 2 {
			params.Name = args[2]
		}
		if len(args) > 3 {
			params.Tag = args[3]
		}
		record, err := cli.engine.DeriveDataset(args[0], params)
		if err != nil {
			return err
		}
		fmt.Printf("%s✓ Derived %s (%s)%s\n", SuccessColor, record.Name, record.ID, ResetColor)

	case "update":
		if len(args) < 2 {
			return fmt.Errorf("usage: update <ref> <pointer>")
		}
		record, err := cli.engine.UpdateDataset(args[0], args[1], nil)
		if err != nil {
			return err
		}
		fmt.Printf("%s✓ Updated %s, fingerprint %s%s\n", SuccessColor, record.Name, record.ShortFingerprint(), ResetColor)

	case "tag":
		if len(args) < 2 {
			return fmt.Errorf("usage: tag <ref> <label>")
		}
		if err := cli.engine.Tag(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s✓ Tagged%s\n", SuccessColor, ResetColor)

	case "untag":
		if len(args) < 2 {
			return fmt.Errorf("usage: untag <name> <label>")
		}
		if err := cli.engine.Untag(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s✓ Untagged%s\n", SuccessColor, ResetColor)

	case "rm":
		if len(args) < 1 {
			return fmt.Errorf("usage: rm <ref> [--force]")
		}
		force := len(args) > 1 && args[1] == "--force"
		if err := cli.engine.Delete(args[0], force); err != nil {
			return err
		}
		fmt.Printf("%s✓ Deleted%s\n", SuccessColor, ResetColor)

	case "rename":
		if len(args) < 2 {
			return fmt.Errorf("usage: rename <ref> <new-name>")
		}
		record, err := cli.engine.Rename(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s✓ Renamed to %s%s\n", SuccessColor, record.Name, ResetColor)

	case "describe":
		if len(args) < 2 {
			return fmt.Errorf("usage: describe <ref> <text...>")
		}
		if err := cli.engine.Describe(args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Printf("%s✓ Description set%s\n", SuccessColor, ResetColor)

	case "ls":
		nameFilter, tagFilter := "", ""
		if len(args) > 0 {
			nameFilter = args[0]
		}
		if len(args) > 1 {
			tagFilter = args[1]
		}
		records, err := cli.engine.Persistence.ListDatasets(nameFilter, tagFilter)
		if err != nil {
			return err
		}
		cli.printRecords(records)

	case "show":
		if len(args) < 1 {
			return fmt.Errorf("usage: show <ref>")
		}
		record, err := cli.engine.Get(args[0])
		if err != nil {
			return err
		}
		cli.printRecord(record)

	case "tags":
		if len(args) < 1 {
			return fmt.Errorf("usage: tags <ref>")
		}
		id, err := cli.engine.Resolve(args[0])
		if err != nil {
			return err
		}
		labels, err := cli.engine.Persistence.TagsFor(id)
		if err != nil {
			return err
		}
		if len(labels) == 0 {
			fmt.Println("No tags")
		}
		for _, label := range labels {
			fmt.Printf("  %s\n", label)
		}

	case "log":
		if len(args) < 2 {
			return fmt.Errorf("usage: log <name> <label>")
		}
		events, err := cli.engine.Persistence.TagHistory(args[0], args[1])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No tag history")
		}
		for _, event := range events {
			fmt.Printf("  %s  %s -> replaced %s\n",
				event.TaggedAt.Format(time.RFC3339), event.PreviousID,
				event.ReplacedAt.Format(time.RFC3339))
		}

	case "parents":
		if len(args) < 1 {
			return fmt.Errorf("usage: parents <ref>")
		}
		result, err := cli.engine.Parents(args[0])
		if err != nil {
			return err
		}
		cli.printLineage(result)

	case "children":
		if len(args) < 1 {
			return fmt.Errorf("usage: children <ref>")
		}
		records, err := cli.engine.Children(args[0])
		if err != nil {
			return err
		}
		cli.printRecords(records)

	case "ancestors":
		if len(args) < 1 {
			return fmt.Errorf("usage: ancestors <ref>")
		}
		result, err := cli.engine.Ancestors(args[0])
		if err != nil {
			return err
		}
		cli.printLineage(result)

	case "descendants":
		if len(args) < 1 {
			return fmt.Errorf("usage: descendants <ref>")
		}
		records, err := cli.engine.Descendants(args[0])
		if err != nil {
			return err
		}
		cli.printRecords(records)

	case "roots":
		if len(args) < 1 {
			return fmt.Errorf("usage: roots <ref>")
		}
		result, err := cli.engine.Roots(args[0])
		if err != nil {
			return err
		}
		cli.printLineage(result)

	case "txlog":
		transactions := cli.engine.Persistence.TransactionsSince(time.Time{})
		if len(transactions) == 0 {
			fmt.Println("No transactions")
		}
		for _, transaction := range transactions {
			fmt.Printf("  %s\n", transaction.String())
		}

	case "restore":
		if len(args) < 1 {
			return fmt.Errorf("usage: restore <transaction-id>")
		}
		return cli.restore(args[0])

	default:
		return fmt.Errorf("unknown command %q (type .help for commands)", cmd)
	}

	return nil
}

// restore rewinds the whole store to the named transaction.
func (cli *CLI) restore(txID string) error {
	for _, transaction := range cli.engine.Persistence.TransactionsSince(time.Time{}) {
		if strings.HasPrefix(transaction.Id, txID) {
			if err := cli.engine.Persistence.Restore(transaction); err != nil {
				return err
			}
			fmt.Printf("%s✓ Restored to %s%s\n", SuccessColor, transaction.Id[:8], ResetColor)
			return nil
		}
	}
	return fmt.Errorf("no transaction matching %q", txID)
}

func (cli *CLI) printRecord(record *core.DatasetVersion) {
	fmt.Printf("%s%s%s (%s)\n", BoldColor, record.Name, ResetColor, record.ID)
	fmt.Printf("  fingerprint  %s\n", record.Fingerprint)
	fmt.Printf("  pointer      %s\n", record.DataPointer)
	fmt.Printf("  shape        %d rows x %d cols\n", record.Shape.RowCount, record.Shape.ColumnCount)
	fmt.Printf("  author       %s\n", record.Author)
	fmt.Printf("  created      %s\n", record.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  updated      %s\n", record.UpdatedAt.Format(time.RFC3339))
	if len(record.ParentIDs) > 0 {
		fmt.Printf("  parents      %s\n", strings.Join(record.ParentIDs, ", "))
	}
	if record.Description != "" {
		fmt.Printf("  description  %s\n", truncate(record.Description, 70))
	}
}

func (cli *CLI) printRecords(records []core.DatasetVersion) {
	if len(records) == 0 {
		fmt.Println("No datasets")
		return
	}
	for _, record := range records {
		fmt.Printf("  %s  %-20s  %s  %6d rows\n",
			record.ID, truncate(record.Name, 20), record.ShortFingerprint(), record.Shape.RowCount)
	}
	fmt.Printf("%d dataset(s)\n", len(records))
}

func (cli *CLI) printLineage(result lineage.Result) {
	cli.printRecords(result.Versions)
	for _, id := range result.Dangling {
		fmt.Printf("  %s%s  (dangling)%s\n", ErrorColor, id, ResetColor)
	}
}

func (cli *CLI) handleCommand(input string) bool {
	cmd := strings.ToLower(strings.TrimSpace(input))
	parts := strings.Fields(cmd)

	if len(parts) == 0 {
		return true
	}

	switch parts[0] {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("DatasetDB version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			err := cli.importFile(parts[1])
			if err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .import <file>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h             Show this help message")
	fmt.Println("  .quit, .exit          Exit the CLI")
	fmt.Println("  .history              Show command history")
	fmt.Println("  .import <file>        Execute commands from a file")
	fmt.Println("  .clear                Clear the screen")
	fmt.Println()
	fmt.Printf("%s%sDataset Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  create <name> <pointer> [tag]        Register a new dataset version")
	fmt.Println("  derive <ref> <pointer> [name] [tag]  Derive a version from an existing one")
	fmt.Println("  update <ref> <pointer>               Point a version at new data")
	fmt.Println("  tag <ref> <label>                    Tag a version")
	fmt.Println("  untag <name> <label>                 Remove a tag")
	fmt.Println("  rm <ref> [--force]                   Delete a version")
	fmt.Println("  rename <ref> <new-name>              Rename a version")
	fmt.Println("  describe <ref> <text>                Set the description")
	fmt.Println("  ls [name] [tag]                      List versions, optionally filtered")
	fmt.Println("  show <ref>                           Show a version in full")
	fmt.Println("  tags <ref>                           List tags on a version")
	fmt.Println("  log <name> <label>                   Show tag reassignment history")
	fmt.Println("  parents|children <ref>               Direct lineage")
	fmt.Println("  ancestors|descendants <ref>          Transitive lineage")
	fmt.Println("  roots <ref>                          Parentless ancestors")
	fmt.Println("  txlog                                List store transactions")
	fmt.Println("  restore <transaction-id>             Rewind the store to a transaction")
	fmt.Println()
	fmt.Printf("%s%sReferences:%s a dataset id, name:tag, or name@fingerprint-prefix\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".datasetdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes commands from a file, one per line.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := cli.execute(line); err != nil {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(line, 50), ResetColor)
			fmt.Printf("      Error: %v\n", err)
			errorCount++
		} else {
			successCount++
		}
	}

	fmt.Printf("\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

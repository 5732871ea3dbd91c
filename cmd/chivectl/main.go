// Command chivectl performs one-shot operations against a store: loading
// an export, printing stats, taking a backup, shifting a dataset's clock,
// and planning/applying a merge. Every subcommand opens the store
// directly (there is no daemon socket to dial — see internal/daemon) and
// holds the store's file lock only for the duration of the operation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/apppath"
	"github.com/chathive/chathive/internal/equivalence"
	"github.com/chathive/chathive/internal/executor"
	"github.com/chathive/chathive/internal/ingest"
	"github.com/chathive/chathive/internal/lock"
	"github.com/chathive/chathive/internal/loader/textimport"
	"github.com/chathive/chathive/internal/merge"
	"github.com/chathive/chathive/internal/store"
)

func main() {
	storeFlag := flag.String("store", "", "store name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	storeName := apppath.Resolve(*storeFlag)
	if err := apppath.ValidateName(storeName); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "load":
		cmdLoad(storeName, args[1:])
	case "stats":
		cmdStats(storeName, *jsonFlag)
	case "backup":
		cmdBackup(storeName)
	case "shift-time":
		cmdShiftTime(storeName, args[1:])
	case "merge":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chivectl merge <plan|apply> ...")
			os.Exit(1)
		}
		cmdMerge(storeName, args[1], args[2:], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chivectl [--store <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  load [--alias <name>] <path>         Import a transcript into a new dataset")
	fmt.Fprintln(os.Stderr, "  stats                                 Show per-dataset chat/message/user counts")
	fmt.Fprintln(os.Stderr, "  backup                                Take an immediate backup")
	fmt.Fprintln(os.Stderr, "  shift-time <dataset-uuid> <hours>     Shift a dataset's message timestamps")
	fmt.Fprintln(os.Stderr, "  merge plan <master-uuid> <slave-uuid> <chat-id> <chat-id>")
	fmt.Fprintln(os.Stderr, "                                         Emit diff segments for a chat pair as JSON")
	fmt.Fprintln(os.Stderr, "  merge apply <resolution.json> <out-dir>")
	fmt.Fprintln(os.Stderr, "                                         Replay a resolution file into a new store")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

// openStore acquires the store's file lock and opens/migrates its
// database. The caller must call the returned closer exactly once, even on
// an error return from subsequent operations.
func openStore(name string) (*store.DB, func(), error) {
	dir := apppath.StoreDir(name)
	if err := apppath.EnsureDir(name); err != nil {
		return nil, nil, fmt.Errorf("ensure store dir: %w", err)
	}
	lk, err := lock.Acquire(dir)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(dir)
	if err != nil {
		_ = lk.Release()
		return nil, nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = lk.Release()
		return nil, nil, err
	}
	closer := func() {
		_ = db.Close()
		_ = lk.Release()
	}
	return db, closer, nil
}

func cmdLoad(storeName string, args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	alias := fs.String("alias", "", "dataset alias (defaults to the given path)")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: chivectl load [--alias <name>] <path>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	if *alias == "" {
		*alias = path
	}

	db, closer, err := openStore(storeName)
	if err != nil {
		fail(err)
	}
	defer closer()

	ds, warnings, err := ingest.Load(db, textimport.Loader{}, path, *alias, nil, nil)
	if err != nil {
		fail(err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Printf("loaded dataset %s (%s)\n", ds.UUID, ds.Alias)
}

func cmdStats(storeName string, jsonOut bool) {
	db, closer, err := openStore(storeName)
	if err != nil {
		fail(err)
	}
	defer closer()

	datasets, err := db.Datasets()
	if err != nil {
		fail(err)
	}

	type datasetStats struct {
		UUID  string             `json:"uuid"`
		Alias string             `json:"alias"`
		Stats store.DatasetStats `json:"stats"`
	}
	var out []datasetStats
	for _, ds := range datasets {
		s, err := db.Stats(ds.UUID)
		if err != nil {
			fail(err)
		}
		out = append(out, datasetStats{UUID: ds.UUID.String(), Alias: ds.Alias, Stats: s})
	}

	if jsonOut {
		outputJSON(out)
		return
	}
	for _, d := range out {
		fmt.Printf("%s  %-24s chats=%d messages=%d users=%d\n",
			d.UUID, d.Alias, d.Stats.ChatCount, d.Stats.MessageCount, d.Stats.UserCount)
	}
}

func cmdBackup(storeName string) {
	db, closer, err := openStore(storeName)
	if err != nil {
		fail(err)
	}
	defer closer()

	path, err := db.Backup()
	if err != nil {
		fail(err)
	}
	fmt.Printf("backup written to %s\n", path)
}

func cmdShiftTime(storeName string, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: chivectl shift-time <dataset-uuid> <hours>")
		os.Exit(1)
	}
	ds, err := uuid.Parse(args[0])
	if err != nil {
		fail(err)
	}
	var hours int
	if _, err := fmt.Sscanf(args[1], "%d", &hours); err != nil {
		fail(fmt.Errorf("invalid hour offset %q: %w", args[1], err))
	}

	db, closer, err := openStore(storeName)
	if err != nil {
		fail(err)
	}
	defer closer()

	if err := db.ShiftDatasetTime(ds, hours); err != nil {
		fail(err)
	}
	fmt.Println("dataset time shifted")
}

func cmdMerge(storeName, subcmd string, args []string, jsonOut bool) {
	switch subcmd {
	case "plan":
		cmdMergePlan(storeName, args, jsonOut)
	case "apply":
		cmdMergeApply(storeName, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown merge subcommand: %s\n", subcmd)
		os.Exit(1)
	}
}

// cmdMergePlan diffs one chat pair and prints the resulting segments as
// JSON, for a human or a UI to turn into a resolution file.
func cmdMergePlan(storeName string, args []string, jsonOut bool) {
	if len(args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: chivectl merge plan <master-uuid> <slave-uuid> <master-chat-id> <slave-chat-id>")
		os.Exit(1)
	}
	masterDS, err := uuid.Parse(args[0])
	if err != nil {
		fail(err)
	}
	slaveDS, err := uuid.Parse(args[1])
	if err != nil {
		fail(err)
	}
	var masterChatID, slaveChatID int64
	if _, err := fmt.Sscanf(args[2], "%d", &masterChatID); err != nil {
		fail(err)
	}
	if _, err := fmt.Sscanf(args[3], "%d", &slaveChatID); err != nil {
		fail(err)
	}

	db, closer, err := openStore(storeName)
	if err != nil {
		fail(err)
	}
	defer closer()

	master := merge.NewStoreSource(db, masterDS, masterChatID)
	slave := merge.NewStoreSource(db, slaveDS, slaveChatID)

	var segments []merge.Segment
	opts := merge.Options{Master: equivalence.Context{}, Slave: equivalence.Context{}}
	err = merge.Diff(context.Background(), master, slave, opts, func(seg merge.Segment) error {
		segments = append(segments, seg)
		return nil
	})
	if err != nil {
		fail(err)
	}

	if jsonOut {
		outputJSON(segments)
		return
	}
	for _, seg := range segments {
		fmt.Printf("%-8s master=%d slave=%d\n", seg.Kind, len(seg.Master), len(seg.Slave))
	}
}

// resolutionFile is the on-disk shape chivectl reads for merge apply: the
// master and slave dataset UUIDs plus the user and chat decisions a human or scripted
// planner made while reviewing merge plan's segment output. Both datasets
// are expected to live in the same store named by --store.
type resolutionFile struct {
	MasterDataset uuid.UUID               `json:"master_dataset"`
	SlaveDataset  uuid.UUID               `json:"slave_dataset"`
	Users         []executor.UserDecision `json:"users"`
	Chats         []executor.ChatDecision `json:"chats"`
}

// cmdMergeApply replays a resolution file against the store named by
// --store, materializing the merged result as a brand-new store rooted at
// out-dir. Neither the master nor the slave dataset's store is mutated.
func cmdMergeApply(storeName string, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: chivectl merge apply <resolution.json> <out-dir>")
		os.Exit(1)
	}
	resolutionPath, outDir := args[0], args[1]

	data, err := os.ReadFile(resolutionPath)
	if err != nil {
		fail(err)
	}
	var res resolutionFile
	if err := json.Unmarshal(data, &res); err != nil {
		fail(fmt.Errorf("parse resolution file: %w", err))
	}

	db, closer, err := openStore(storeName)
	if err != nil {
		fail(err)
	}
	defer closer()

	masterDataset, err := db.Dataset(res.MasterDataset)
	if err != nil {
		fail(fmt.Errorf("master dataset %s: %w", res.MasterDataset, err))
	}

	newDB, newDataset, err := executor.Execute(context.Background(), outDir, db, db, executor.Input{
		MasterDataset: masterDataset,
		SlaveDataset:  res.SlaveDataset,
		Users:         res.Users,
		Chats:         res.Chats,
	})
	if err != nil {
		fail(err)
	}
	defer func() { _ = newDB.Close() }()

	fmt.Printf("merged dataset %s written to %s\n", newDataset, outDir)
}

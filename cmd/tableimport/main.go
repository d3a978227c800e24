// Command tableimport loads a CSV file into the server's table store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/ome-tiles/server/internal/config"
	"github.com/ome-tiles/server/internal/data/table"
)

func main() {
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	name := flag.String("name", "", "Table name (defaults to the file name)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] table.csv\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		log.Fatalf("Failed to stat %s: %v", path, err)
	}

	store, err := table.NewStore(cfg.Data.TableDB)
	if err != nil {
		log.Fatalf("Failed to open table store: %v", err)
	}
	defer store.Close()

	tableName := *name
	if tableName == "" {
		tableName = filepath.Base(path)
	}

	ctx := context.Background()
	id, err := store.Import(ctx, tableName, f)
	if err != nil {
		log.Fatalf("Failed to import %s: %v", path, err)
	}
	info, err := store.Info(ctx, id)
	if err != nil {
		log.Fatalf("Failed to read table %d: %v", id, err)
	}

	log.Printf("Imported %s (%s) as table %d: %s rows",
		tableName, humanize.IBytes(uint64(st.Size())), id, humanize.Comma(int64(info.Rows)))
	fmt.Println(id)
}

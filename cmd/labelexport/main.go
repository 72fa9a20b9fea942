// Command labelexport exports the annotation database to training formats
// and prints dataset statistics.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"boxlabel/internal/annotation"
	"boxlabel/internal/export"
	"boxlabel/internal/store"
)

func main() {
	dbPath := flag.String("db", "", "Path to annotations.db (default: the application store)")
	classFile := flag.String("classes", "", "Path to a YAML class list file")
	yoloDir := flag.String("yolo", "", "Write YOLO label files into this directory")
	csvPath := flag.String("csv", "", "Write a CSV manifest to this file")
	statsOnly := flag.Bool("stats", false, "Print dataset statistics only")
	flag.Parse()

	if *yoloDir == "" && *csvPath == "" && !*statsOnly {
		fmt.Println("Usage: labelexport [-db <path>] [-classes <yaml>] -yolo <dir> | -csv <file> | -stats")
		os.Exit(1)
	}

	var db *store.DB
	var err error
	if *dbPath != "" {
		db, err = store.OpenPath(*dbPath)
	} else {
		db, err = store.Open()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	classes := annotation.DefaultClassList()
	if *classFile != "" {
		classes, err = annotation.LoadClassList(*classFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load classes: %v\n", err)
			os.Exit(1)
		}
	}

	var summary *export.Summary
	switch {
	case *yoloDir != "":
		summary, err = export.WriteYOLO(db, classes, *yoloDir)
	case *csvPath != "":
		summary, err = export.WriteCSV(db, classes, *csvPath)
	default:
		summary, err = export.Stats(db)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(summary)
	printPerClass(summary, classes)
}

func printPerClass(summary *export.Summary, classes *annotation.ClassList) {
	if len(summary.PerClass) == 0 {
		return
	}
	ids := make([]int, 0, len(summary.PerClass))
	for id := range summary.PerClass {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fmt.Println("\nPer class:")
	for _, id := range ids {
		fmt.Printf("  %-20s %d\n", classes.Name(id), summary.PerClass[id])
	}
}

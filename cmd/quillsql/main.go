// Command quillsql is an interactive REPL front-end for the engine,
// adapted from the teacher's bufio.Scanner loop over os.Stdin, plus a
// handful of debugging subcommands adapted from the teacher's standalone
// cmd/seed, cmd/inspect_idx and cmd/dump_sample tools.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	quill "quilldb"
	"quilldb/internal/exec/executor"
	"quilldb/internal/value"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "seed":
			runSeed(os.Args[2:])
			return
		case "inspect-index":
			runInspectIndex(os.Args[2:])
			return
		case "dump-sample":
			runDumpSample(os.Args[2:])
			return
		}
	}
	runREPL(os.Args[1:])
}

func runREPL(args []string) {
	fs := flag.NewFlagSet("quillsql", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "data directory for the database")
	dbName := fs.String("db", "quill", "database name, used only on first create")
	fs.Parse(args)

	eng := openOrExit(*dataDir, *dbName)
	defer eng.Close()

	conn := eng.Connect()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Printf("quillsql connected to %q (%s)\n", *dataDir, eng.Info().Name)
	fmt.Println(`enter SQL statements, "\stats" for I/O counters, "\dt" to list tables, or "exit" to quit.`)

	for {
		fmt.Print("quill> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
			return
		case line == `\stats`:
			fmt.Println(eng.Stats().String())
			continue
		case line == `\dt`:
			for _, name := range eng.ListTables() {
				fmt.Println(name)
			}
			continue
		}

		printResult(conn.ExecuteSQL(line))
	}
}

// runSeed inserts n rows of synthetic data into an existing table, one
// literal per column chosen by its declared type: 'row-N' for text, a
// random float for float columns, alternating TRUE/FALSE for booleans
// and a random integer for every other type.
func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "data directory for the database")
	table := fs.String("table", "", "table to seed")
	n := fs.Int("n", 100, "number of rows to insert")
	fs.Parse(args)
	if *table == "" {
		fmt.Fprintln(os.Stderr, "seed: -table is required")
		os.Exit(2)
	}

	eng := openOrExit(*dataDir, "")
	defer eng.Close()

	schema, ok := eng.GetSchema(*table)
	if !ok {
		fmt.Fprintf(os.Stderr, "seed: table %q does not exist\n", *table)
		os.Exit(1)
	}

	conn := eng.Connect()
	for i := 0; i < *n; i++ {
		var cells []string
		for j := 0; j < schema.Len(); j++ {
			cells = append(cells, seedLiteral(schema.Column(j).Type, i))
		}
		sql := fmt.Sprintf("INSERT INTO %s VALUES (%s);", *table, strings.Join(cells, ", "))
		if res := conn.ExecuteSQL(sql); res.Error != "" {
			fmt.Fprintln(os.Stderr, "seed:", res.Error)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded %d rows into %s\n", *n, *table)
}

func seedLiteral(kind value.Kind, i int) string {
	switch kind {
	case value.Text:
		return fmt.Sprintf("'row-%d'", i)
	case value.Float64:
		return strconv.FormatFloat(rand.Float64()*1000, 'f', 2, 64)
	case value.Bool:
		if i%2 == 0 {
			return "TRUE"
		}
		return "FALSE"
	default:
		return strconv.Itoa(rand.Intn(100000))
	}
}

// runInspectIndex walks a B-tree index leaf by leaf, printing every
// (key, rid) entry — a debugging aid for index-maintenance bugs.
func runInspectIndex(args []string) {
	fs := flag.NewFlagSet("inspect-index", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "data directory for the database")
	table := fs.String("table", "", "table owning the index")
	index := fs.String("index", "", "index name")
	fs.Parse(args)
	if *table == "" || *index == "" {
		fmt.Fprintln(os.Stderr, "inspect-index: -table and -index are required")
		os.Exit(2)
	}

	eng := openOrExit(*dataDir, "")
	defer eng.Close()

	entries, err := eng.InspectIndex(*table, *index)
	if err != nil {
		fmt.Fprintln(os.Stderr, "inspect-index:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Printf("%s -> %s\n", e.Key.String(), e.RID.String())
	}
	fmt.Printf("%d entries\n", len(entries))
}

// runDumpSample prints the first n live rows of a table in insertion
// (scan) order.
func runDumpSample(args []string) {
	fs := flag.NewFlagSet("dump-sample", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "data directory for the database")
	table := fs.String("table", "", "table to sample")
	n := fs.Int("n", 10, "number of rows to print")
	fs.Parse(args)
	if *table == "" {
		fmt.Fprintln(os.Stderr, "dump-sample: -table is required")
		os.Exit(2)
	}

	eng := openOrExit(*dataDir, "")
	defer eng.Close()

	conn := eng.Connect()
	res := conn.ExecuteSQL(fmt.Sprintf("SELECT * FROM %s LIMIT %d;", *table, *n))
	printResult(res)
}

func openOrExit(dataDir, dbName string) *quill.Engine {
	eng, err := quill.Open(dataDir, quill.Options{DBName: dbName})
	if err != nil {
		fmt.Fprintln(os.Stderr, "quillsql:", err)
		os.Exit(1)
	}
	return eng
}

func printResult(res executor.QueryResult) {
	if res.Error != "" {
		fmt.Fprintln(os.Stderr, "error:", res.Error)
		return
	}
	if res.Schema.Len() == 0 {
		fmt.Printf("OK (%d rows affected, %dus)\n", res.RowsAffected, res.ExecutionTimeUs)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	names := res.Schema.Names()
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, row.Len())
		for i := range cells {
			cells[i] = row.At(i).String()
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Printf("(%d rows, %dus)\n", len(res.Rows), res.ExecutionTimeUs)
}

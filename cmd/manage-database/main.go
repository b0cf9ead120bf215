// Command manage-database operates the hardware-compatibility database: a
// YAML document of DeviceInfo records describing known logic-analyzer
// models. It is deliberately separate from the capture core; nothing it
// does touches a live device.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/northfork-instruments/logicap/internal/buildinfo"
	"github.com/northfork-instruments/logicap/internal/devicedb"
)

const (
	exitOK      = 0
	exitUserErr = 1
	exitIOErr   = 2

	discoverTimeout = 3 * time.Second
)

func usage() {
	fmt.Fprintf(os.Stderr, "%s - manage the logic-analyzer hardware-compatibility database.\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s [--db path] <command> [args]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  query <name>            print one record")
	fmt.Fprintln(os.Stderr, "  add <file.yaml>         add a record from a single-record YAML file")
	fmt.Fprintln(os.Stderr, "  update <file.yaml>      replace an existing record")
	fmt.Fprintln(os.Stderr, "  remove <name>           delete a record")
	fmt.Fprintln(os.Stderr, "  validate <file.yaml>    check a record without storing it")
	fmt.Fprintln(os.Stderr, "  stats                   print record count and min/max bounds")
	fmt.Fprintln(os.Stderr, "  discover                probe for network and serial devices")
	fmt.Fprintln(os.Stderr, "  export <file.yaml>      write the whole database to a file")
	fmt.Fprintln(os.Stderr, "  import <file.yaml>      merge a database file in")
	fmt.Fprintln(os.Stderr, "  template                print a starting-point record")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	pflag.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("manage-database", pflag.ContinueOnError)
	fs.Usage = usage

	dbPath := fs.StringP("db", "d", "devices.yaml", "path to the device database YAML file")
	version := fs.BoolP("version", "V", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return exitUserErr
	}

	if *version {
		fmt.Println(buildinfo.String())
		return exitOK
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage()
		return exitUserErr
	}

	cmd, cmdArgs := rest[0], rest[1:]

	if cmd == "template" {
		return printTemplate()
	}

	store, err := devicedb.Load(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	switch cmd {
	case "query":
		return cmdQuery(store, cmdArgs)
	case "add":
		return cmdAdd(store, cmdArgs)
	case "update":
		return cmdUpdate(store, cmdArgs)
	case "remove":
		return cmdRemove(store, cmdArgs)
	case "validate":
		return cmdValidate(cmdArgs)
	case "stats":
		return cmdStats(store)
	case "discover":
		return cmdDiscover()
	case "export":
		return cmdExport(store, cmdArgs)
	case "import":
		return cmdImport(store, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()

		return exitUserErr
	}
}

func printTemplate() int {
	out, err := yaml.Marshal(devicedb.Template())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	os.Stdout.Write(out)

	return exitOK
}

func loadRecord(path string) (devicedb.DeviceInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return devicedb.DeviceInfo{}, err
	}

	var d devicedb.DeviceInfo
	if err := yaml.Unmarshal(data, &d); err != nil {
		return devicedb.DeviceInfo{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return d, nil
}

func cmdQuery(store *devicedb.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: query <name>")
		return exitUserErr
	}

	d, ok := store.Get(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "no such device %q\n", args[0])
		return exitUserErr
	}

	out, err := yaml.Marshal(d)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	os.Stdout.Write(out)

	return exitOK
}

func cmdAdd(store *devicedb.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: add <file.yaml>")
		return exitUserErr
	}

	d, err := loadRecord(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	if err := store.Add(d); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUserErr
	}

	if err := store.Save(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	return exitOK
}

func cmdUpdate(store *devicedb.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: update <file.yaml>")
		return exitUserErr
	}

	d, err := loadRecord(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	if err := store.Update(d); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUserErr
	}

	if err := store.Save(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	return exitOK
}

func cmdRemove(store *devicedb.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: remove <name>")
		return exitUserErr
	}

	if err := store.Remove(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUserErr
	}

	if err := store.Save(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	return exitOK
}

func cmdValidate(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: validate <file.yaml>")
		return exitUserErr
	}

	d, err := loadRecord(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	if err := devicedb.Validate(d); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUserErr
	}

	fmt.Println("ok")

	return exitOK
}

func cmdStats(store *devicedb.Store) int {
	st := store.ComputeStats()
	fmt.Printf("records:          %d\n", st.Count)
	fmt.Printf("bufferSize:       %d..%d\n", st.MinBufferSize, st.MaxBufferSize)
	fmt.Printf("maxFrequency:     %d..%d\n", st.MinMaxFrequency, st.MaxMaxFrequency)

	return exitOK
}

func cmdDiscover() int {
	found, err := devicedb.DiscoverAll(discoverTimeout)
	for _, c := range found {
		fmt.Printf("%s\t%s\t%s\n", c.Source, c.Name, c.Addr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	return exitOK
}

func cmdExport(store *devicedb.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: export <file.yaml>")
		return exitUserErr
	}

	if err := store.SaveTo(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	return exitOK
}

func cmdImport(store *devicedb.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: import <file.yaml>")
		return exitUserErr
	}

	src, err := devicedb.Load(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	store.Import(src)

	if err := store.Save(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}

	return exitOK
}

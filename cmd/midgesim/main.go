// Command midgesim runs the bluetongue midge simulation described by an HJSON
// run file.
//
//	midgesim -config runs/outbreak.hjson -v
//	midgesim -dump > default.hjson
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/stepien-lab/MidgePy/internal/driver"
	"github.com/stepien-lab/MidgePy/internal/runfile"
)

func main() {
	var (
		config  = flag.String("config", "", "HJSON run file; defaults are used when empty")
		mode    = flag.String("mode", "", "override the run file mode (run, outbreak, heatmap, biterate)")
		seed    = flag.Int64("seed", 0, "override the run file seed")
		out     = flag.String("out", "", "override the output directory")
		batch   = flag.String("batch", "", "batch id (UUID); a new one is drawn when empty")
		verbose = flag.Bool("v", false, "log progress once per simulated day")
		quiet   = flag.Bool("quiet", false, "suppress all logging")
		dump    = flag.Bool("dump", false, "print the effective run file and exit")
	)
	flag.Parse()
	log.SetFlags(log.LstdFlags)

	f := runfile.Default()
	if *config != "" {
		var err error
		if f, err = runfile.Load(*config); err != nil {
			log.Fatalf("Failed to load run file: %v", err)
		}
	}
	f = override(f, visited(flag.CommandLine), *mode, *seed, *out)
	if err := f.Validate(); err != nil {
		log.Fatalf("Invalid run file: %v", err)
	}

	if *dump {
		data, err := f.Encode()
		if err != nil {
			log.Fatalf("Failed to encode run file: %v", err)
		}
		os.Stdout.Write(append(data, '\n'))
		return
	}

	logger := log.Default()
	if *quiet {
		logger = log.New(io.Discard, "", 0)
	}
	opts := []driver.Option{driver.WithLogger(logger), driver.Verbose(*verbose && !*quiet)}
	if *batch != "" {
		id, err := uuid.Parse(*batch)
		if err != nil {
			log.Fatalf("Invalid batch id %q: %v", *batch, err)
		}
		opts = append(opts, driver.WithBatch(id))
	}

	d, err := driver.New(f, opts...)
	if err != nil {
		log.Fatalf("Failed to set up simulation: %v", err)
	}
	logger.Printf("Batch %s (%s mode, seed %d), writing to %s", d.Batch(), f.Mode, f.Seed, d.OutputDir())
	if err := d.Run(); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
	logger.Printf("Done.")
}

// visited names the flags given on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// override applies the explicitly set command-line values to f.
func override(f runfile.File, set map[string]bool, mode string, seed int64, out string) runfile.File {
	if set["mode"] {
		f.Mode = mode
	}
	if set["seed"] {
		f.Seed = seed
	}
	if set["out"] {
		f.Output = out
	}
	return f
}

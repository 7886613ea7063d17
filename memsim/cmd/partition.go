package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/datarecording"
	"github.com/sarchlab/memsim/partition"
)

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Run a dynamic partition allocation trace.",
	Long: "`partition --script [file]` executes a trace of allocation " +
		"commands. Each line is one of:\n" +
		"  alloc PID SIZE [first_fit|best_fit|worst_fit]\n" +
		"  free PID\n" +
		"  status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		capacity, _ := cmd.Flags().GetUint64("capacity")
		scriptPath, _ := cmd.Flags().GetString("script")
		record, _ := cmd.Flags().GetString("record")

		allocator := partition.MakeBuilder().
			WithCapacity(capacity).
			Build("Partition")

		logger := log.New(os.Stdout, "", log.Ltime)
		allocator.AcceptHook(partition.NewOpLogger(logger))

		if record != "" {
			recorder := datarecording.New(record)
			allocator.AcceptHook(datarecording.NewOpRecorder(recorder))
			defer recorder.Flush()
		}

		file, err := os.Open(scriptPath)
		if err != nil {
			return err
		}
		defer file.Close()

		lines, err := parseScript(file)
		if err != nil {
			return err
		}

		for _, line := range lines {
			err := runPartitionLine(allocator, line)
			if err != nil {
				return err
			}
		}

		return nil
	},
}

func runPartitionLine(a *partition.Allocator, line scriptLine) error {
	switch line.fields[0] {
	case "alloc":
		if len(line.fields) < 3 || len(line.fields) > 4 {
			return line.errorf("usage: alloc PID SIZE [ALGORITHM]")
		}

		size, err := line.uintArg(2)
		if err != nil {
			return err
		}

		algorithm := partition.FirstFit
		if len(line.fields) == 4 {
			algorithm, err = partition.ParseAlgorithm(line.fields[3])
			if err != nil {
				return line.errorf("%s", err)
			}
		}

		// Failures are part of the trace output, not script errors.
		_, _ = a.Allocate(line.fields[1], size, algorithm)

		return nil
	case "free":
		if len(line.fields) != 2 {
			return line.errorf("usage: free PID")
		}

		_, _ = a.Deallocate(line.fields[1])

		return nil
	case "status":
		printPartitionStatus(a)
		return nil
	default:
		return line.errorf("unknown command %q", line.fields[0])
	}
}

func printPartitionStatus(a *partition.Allocator) {
	for i, b := range a.Blocks() {
		owner := "free"
		if b.Allocated {
			owner = "process " + b.PID
		}

		fmt.Printf("%d. [%d-%d, size: %d, %s]\n",
			i+1, b.Start, b.End(), b.Size, owner)
	}
}

func init() {
	partitionCmd.Flags().Uint64("capacity",
		envUint("MEMSIM_CAPACITY", 1024),
		"total size of the managed memory")
	partitionCmd.Flags().String("script", "",
		"path of the trace script to execute")
	partitionCmd.Flags().String("record", "",
		"record operations into an SQLite database at this path")
	_ = partitionCmd.MarkFlagRequired("script")

	rootCmd.AddCommand(partitionCmd)
}

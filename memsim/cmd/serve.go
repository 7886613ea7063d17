package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/monitoring"
	"github.com/sarchlab/memsim/paging"
	"github.com/sarchlab/memsim/partition"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose both engines over HTTP for inspection.",
	Long: "`serve` constructs a partition allocator and a paged memory " +
		"engine and starts the monitoring server.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		capacity, _ := cmd.Flags().GetUint64("capacity")
		memKB, _ := cmd.Flags().GetUint64("mem")
		pageKB, _ := cmd.Flags().GetUint64("page")
		maxJobKB, _ := cmd.Flags().GetUint64("max-job")
		port, _ := cmd.Flags().GetInt("port")
		open, _ := cmd.Flags().GetBool("open")

		allocator := partition.MakeBuilder().
			WithCapacity(capacity).
			Build("Partition")

		engine := paging.MakeBuilder().
			WithMemSize(memKB).
			WithPageSize(pageKB).
			WithMaxJobSize(maxJobKB).
			Build("Paging")

		monitor := monitoring.NewMonitor()
		if port != 0 {
			monitor.WithPortNumber(port)
		}

		monitor.RegisterPartition(allocator)
		monitor.RegisterPaging(engine)

		url := monitor.StartServer()

		if open {
			err := browser.OpenURL(url)
			if err != nil {
				fmt.Fprintf(os.Stderr,
					"Failed to open the browser: %s\n", err)
			}
		}

		// Serve until interrupted.
		select {}
	},
}

func init() {
	serveCmd.Flags().Uint64("capacity",
		envUint("MEMSIM_CAPACITY", 1024),
		"total size of the partition memory")
	serveCmd.Flags().Uint64("mem",
		envUint("MEMSIM_MEM_KB", 64),
		"physical memory size of the paging engine, in KB")
	serveCmd.Flags().Uint64("page",
		envUint("MEMSIM_PAGE_KB", 1),
		"page size, in KB")
	serveCmd.Flags().Uint64("max-job",
		envUint("MEMSIM_MAX_JOB_KB", 64),
		"largest job size accepted, in KB")
	serveCmd.Flags().Int("port",
		int(envUint("MEMSIM_PORT", 0)),
		"port of the monitoring server, 0 for a random port")
	serveCmd.Flags().Bool("open", false,
		"open the monitoring URL in a browser")

	rootCmd.AddCommand(serveCmd)
}

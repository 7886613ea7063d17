package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/datarecording"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the operations recorded in a trace database.",
	Long: "`report --db [file]` reads a database produced with --record and " +
		"prints the recorded partition and paging operations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("db")

		reader := datarecording.NewReader(dbPath)
		defer reader.Close()

		reader.MapTable(datarecording.PartitionOpTable,
			datarecording.PartitionOpEntry{})
		reader.MapTable(datarecording.PagingOpTable,
			datarecording.PagingOpEntry{})

		ctx := context.Background()

		partitionOps, _, err := reader.Query(ctx,
			datarecording.PartitionOpTable, datarecording.QueryParams{})
		if err != nil {
			return err
		}

		for _, op := range partitionOps {
			entry := op.(*datarecording.PartitionOpEntry)
			fmt.Printf("%s %s %s pid=%s size=%d start=%d ok=%v %s\n",
				entry.Time, entry.Engine, entry.Kind,
				entry.PID, entry.Size, entry.Start, entry.OK, entry.Detail)
		}

		pagingOps, _, err := reader.Query(ctx,
			datarecording.PagingOpTable, datarecording.QueryParams{})
		if err != nil {
			return err
		}

		for _, op := range pagingOps {
			entry := op.(*datarecording.PagingOpEntry)
			fmt.Printf("%s %s %s job=%s page=%d offset=%d op=%s "+
				"addr=%d fault=%v evicted=%d ok=%v %s\n",
				entry.Time, entry.Engine, entry.Kind, entry.JobID,
				entry.PageNo, entry.Offset, entry.Op, entry.PhysAddr,
				entry.Fault, entry.Evicted, entry.OK, entry.Detail)
		}

		return nil
	},
}

func init() {
	reportCmd.Flags().String("db", "", "path of the trace database")
	_ = reportCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(reportCmd)
}

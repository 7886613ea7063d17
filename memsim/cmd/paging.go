package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/datarecording"
	"github.com/sarchlab/memsim/paging"
)

var pagingCmd = &cobra.Command{
	Use:   "paging",
	Short: "Run a demand-paging trace with FIFO replacement.",
	Long: "`paging --script [file]` executes a trace of paging commands. " +
		"Each line is one of:\n" +
		"  job ID SIZE_KB FRAME_COUNT\n" +
		"  access PAGE_NO OFFSET OP    (OP: + - * / load save)\n" +
		"  table\n" +
		"  frames",
	RunE: func(cmd *cobra.Command, _ []string) error {
		memKB, _ := cmd.Flags().GetUint64("mem")
		pageKB, _ := cmd.Flags().GetUint64("page")
		maxJobKB, _ := cmd.Flags().GetUint64("max-job")
		scriptPath, _ := cmd.Flags().GetString("script")
		record, _ := cmd.Flags().GetString("record")

		engine := paging.MakeBuilder().
			WithMemSize(memKB).
			WithPageSize(pageKB).
			WithMaxJobSize(maxJobKB).
			Build("Paging")

		logger := log.New(os.Stdout, "", log.Ltime)
		engine.AcceptHook(paging.NewOpLogger(logger))

		if record != "" {
			recorder := datarecording.New(record)
			engine.AcceptHook(datarecording.NewOpRecorder(recorder))
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
			err := runPagingLine(engine, line)
			if err != nil {
				return err
			}
		}

		return nil
	},
}

func runPagingLine(m *paging.PagedMemory, line scriptLine) error {
	switch line.fields[0] {
	case "job":
		if len(line.fields) != 4 {
			return line.errorf("usage: job ID SIZE_KB FRAME_COUNT")
		}

		sizeKB, err := line.uintArg(2)
		if err != nil {
			return err
		}

		frameCount, err := line.intArg(3)
		if err != nil {
			return err
		}

		_, _ = m.CreateJob(line.fields[1], sizeKB*paging.KB, frameCount)

		return nil
	case "access":
		if len(line.fields) != 4 {
			return line.errorf("usage: access PAGE_NO OFFSET OP")
		}

		pageNo, err := line.intArg(1)
		if err != nil {
			return err
		}

		offset, err := line.uintArg(2)
		if err != nil {
			return err
		}

		op, err := paging.ParseOp(line.fields[3])
		if err != nil {
			return line.errorf("%s", err)
		}

		_, _ = m.Access(pageNo, offset, op)

		return nil
	case "table":
		printPageTable(m)
		return nil
	case "frames":
		printFrames(m)
		return nil
	default:
		return line.errorf("unknown command %q", line.fields[0])
	}
}

func printPageTable(m *paging.PagedMemory) {
	fmt.Println("page\tresident\tframe\tdirty\tdisk")

	for _, p := range m.PageTable() {
		frame := "-"
		if p.Resident {
			frame = fmt.Sprint(p.FrameNo)
		}

		fmt.Printf("%d\t%v\t%s\t%v\t%s\n",
			p.PageNo, p.Resident, frame, p.Dirty, p.DiskTag)
	}
}

func printFrames(m *paging.PagedMemory) {
	for _, f := range m.Frames() {
		content := "empty"
		if f.Mapped {
			content = fmt.Sprintf("page %d", f.PageNo)
		}

		if f.Allocated {
			content += " (allocated to job)"
		}

		fmt.Printf("frame %d: %s\n", f.Index, content)
	}
}

func init() {
	pagingCmd.Flags().Uint64("mem",
		envUint("MEMSIM_MEM_KB", 64),
		"physical memory size, in KB")
	pagingCmd.Flags().Uint64("page",
		envUint("MEMSIM_PAGE_KB", 1),
		"page size, in KB")
	pagingCmd.Flags().Uint64("max-job",
		envUint("MEMSIM_MAX_JOB_KB", 64),
		"largest job size accepted, in KB")
	pagingCmd.Flags().String("script", "",
		"path of the trace script to execute")
	pagingCmd.Flags().String("record", "",
		"record operations into an SQLite database at this path")
	_ = pagingCmd.MarkFlagRequired("script")

	rootCmd.AddCommand(pagingCmd)
}

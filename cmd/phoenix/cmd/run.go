package cmd

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/comsec-group/phoenix-sub000/analysis"
	"github.com/comsec-group/phoenix-sub000/ctrl"
	"github.com/comsec-group/phoenix-sub000/ctrl/emu"
	"github.com/comsec-group/phoenix-sub000/datarecording"
	"github.com/comsec-group/phoenix-sub000/dram"
	"github.com/comsec-group/phoenix-sub000/monitoring"
	"github.com/comsec-group/phoenix-sub000/payload"
	"github.com/comsec-group/phoenix-sub000/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a hammering campaign.",
	Long: "`run -p prog.dsl --addresses 0:10,0:12 --victims 0:11 --emulate` " +
		"compiles a program and executes it in a refresh-synchronized " +
		"campaign, sweeping the configured refresh residues and exporting " +
		"one NDJSON record per run.",
	Run: func(cmd *cobra.Command, args []string) {
		program, err := compileProgram(cmd)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		hw, err := controllerFromFlags(cmd)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		mapping, err := mappingFromFlags(cmd)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		victimsSpec, _ := cmd.Flags().GetString("victims")
		victims, err := parseAddressList(victimsSpec)
		if err != nil {
			log.Fatalf("Error: --victims: %v", err)
		}
		if len(victims) == 0 {
			log.Fatalf("Error: a campaign needs at least one victim row.")
		}

		pattern, err := parsePattern(cmd)
		if err != nil {
			log.Fatalf("Error: --pattern: %v", err)
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = "phoenix_runs_" + xid.New().String() + ".ndjson"
		}

		writer, err := datarecording.NewNDJSONFileWriter(out)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		defer writer.Close()

		var recorder datarecording.DataRecorder
		if dbPath, _ := cmd.Flags().GetString("sqlite"); dbPath != "" {
			recorder = datarecording.NewSQLiteRecorder(dbPath)
			recorder.CreateTable(pipeline.RunTable, pipeline.RunRow{})
			defer recorder.Flush()
		}

		var monitor *monitoring.Monitor
		if port, _ := cmd.Flags().GetInt("monitor"); port != 0 {
			monitor = monitoring.NewMonitor().WithPortNumber(port)
			if browser, _ := cmd.Flags().GetBool("browser"); browser {
				monitor = monitor.WithBrowserOnStart()
			}
			monitor.StartServer()
		}

		campaign, err := campaignFromFlags(
			cmd, program, mapping, victims, pattern, writer, recorder, monitor)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		contexts, err := campaign.Execute(hw)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		flipped := 0
		for _, c := range contexts {
			if len(c.Flipped) > 0 {
				flipped++
			}
		}

		fmt.Printf("%d runs, %d with flips, records in %s\n",
			len(contexts), flipped, out)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addCompileFlags(runCmd)
	runCmd.Flags().String("victims", "",
		"Victim rows to write and verify, as bank:row pairs")
	runCmd.Flags().String("pattern", envOr("PHOENIX_PATTERN", "0x55555555"),
		"Data pattern written to the victim rows")
	runCmd.Flags().Int("runs", 1, "Runs per sweep point")
	runCmd.Flags().Int("align-modulus", 16,
		"Refresh-counter modulus to align runs to")
	runCmd.Flags().String("sweep-residues", "0",
		"Refresh-counter residues to sweep, comma separated")
	runCmd.Flags().Bool("expect-flips", false,
		"Record victims that did not flip")
	runCmd.Flags().String("out", envOr("PHOENIX_OUT", ""),
		"NDJSON output file (generated name when empty)")
	runCmd.Flags().String("sqlite", envOr("PHOENIX_SQLITE", ""),
		"Also record runs into this SQLite database")
	runCmd.Flags().Int("monitor", 0,
		"Serve campaign status on this port (0 disables)")
	runCmd.Flags().Bool("browser", false,
		"Open the monitoring URL in a browser on start")

	runCmd.Flags().Bool("emulate", false,
		"Run against the emulated controller")
	runCmd.Flags().String("inject", "",
		"Emulated flips as bank:row:bit triples, comma separated")
	runCmd.Flags().Int("flip-threshold", 1,
		"Activations needed to arm emulated flips")

	_ = runCmd.MarkFlagRequired("victims")
}

func controllerFromFlags(cmd *cobra.Command) (ctrl.Controller, error) {
	emulate, _ := cmd.Flags().GetBool("emulate")
	if !emulate {
		return nil, fmt.Errorf(
			"no hardware transport is configured; pass --emulate")
	}

	mapping, err := mappingFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	capacity, _ := cmd.Flags().GetInt("capacity")
	threshold, _ := cmd.Flags().GetInt("flip-threshold")

	builder := emu.MakeBuilder().
		WithGeometry(dram.MakeGeometry()).
		WithRowMapping(mapping).
		WithPayloadCapacity(capacity).
		WithFlipThreshold(threshold)

	injectSpec, _ := cmd.Flags().GetString("inject")
	flips, err := parseInjections(injectSpec)
	if err != nil {
		return nil, fmt.Errorf("--inject: %w", err)
	}

	for _, flip := range flips {
		builder = builder.WithBitFlip(flip.addr, flip.bit)
	}

	return builder.Build(), nil
}

type injection struct {
	addr dram.Address
	bit  int
}

func parseInjections(s string) ([]injection, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var flips []injection
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%q is not a bank:row:bit triple", part)
		}

		var nums [3]int
		for i, field := range fields {
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", part, err)
			}
			nums[i] = n
		}

		flips = append(flips, injection{
			addr: dram.Address{Bank: nums[0], Row: nums[1]},
			bit:  nums[2],
		})
	}

	return flips, nil
}

func parsePattern(cmd *cobra.Command) (uint32, error) {
	spec, _ := cmd.Flags().GetString("pattern")
	v, err := strconv.ParseUint(strings.TrimPrefix(spec, "0x"), 16, 32)
	if err != nil {
		return 0, err
	}

	return uint32(v), nil
}

func campaignFromFlags(
	cmd *cobra.Command,
	program payload.Program,
	mapping dram.RowMapping,
	victims []dram.Address,
	pattern uint32,
	writer *datarecording.NDJSONWriter,
	recorder datarecording.DataRecorder,
	monitor *monitoring.Monitor,
) (pipeline.Campaign, error) {
	modulus, _ := cmd.Flags().GetInt("align-modulus")
	runs, _ := cmd.Flags().GetInt("runs")
	expectFlips, _ := cmd.Flags().GetBool("expect-flips")

	residueSpec, _ := cmd.Flags().GetString("sweep-residues")
	var residues []int
	for _, part := range strings.Split(residueSpec, ",") {
		r, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return pipeline.Campaign{}, fmt.Errorf("--sweep-residues: %w", err)
		}
		residues = append(residues, r)
	}

	mode := pipeline.CheckCollectFlips
	if expectFlips {
		mode = pipeline.CheckExpectFlips
	}

	geometry := dram.MakeGeometry()

	factory := func(point pipeline.SweepPoint) (pipeline.Pipeline, error) {
		residue := point.Params["residue"].(int)

		alignment := analysis.Alignment{
			Modulus: uint64(modulus),
			Residue: uint64(residue),
		}
		if err := alignment.Validate(); err != nil {
			return pipeline.Pipeline{}, err
		}

		return pipeline.MakeBuilder().
			WithStages(
				pipeline.MakeResetStage(),
				pipeline.MakeDisableRefreshStage(),
				pipeline.MakeReadRefreshCounterStage(pipeline.CounterBefore),
				pipeline.MakeAlignRefreshStage(alignment),
				pipeline.MakeWritePatternStage(geometry, mapping, victims, pattern),
				pipeline.MakeExecutePayloadStage(program),
				pipeline.MakeReadRefreshCounterStage(pipeline.CounterAfter),
				pipeline.MakeEnableRefreshStage(),
				pipeline.MakeVerifyPatternStage(
					geometry, mapping, victims, pattern, mode),
				pipeline.MakeExportStage(writer, recorder),
			).
			Build(point.Name), nil
	}

	builder := pipeline.MakeCampaignBuilder().
		WithRunsPerPoint(runs).
		WithPipelineFactory(factory)

	for _, residue := range residues {
		builder = builder.WithSweepPoint(pipeline.SweepPoint{
			Name:   fmt.Sprintf("residue-%d", residue),
			Params: map[string]any{"residue": residue},
		})
	}

	if monitor != nil {
		builder = builder.WithMonitor(monitor)
	}

	return builder.Build("campaign"), nil
}

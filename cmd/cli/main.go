package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/timely/timetabling/pkg/model"
	"github.com/timely/timetabling/pkg/sat"
)

// Exit codes
const (
	exitScheduled  = 10
	exitInvalid    = 15
	exitInfeasible = 20
)

var validFormats = []string{"json", "csv"}

func main() {
	// Define arguments
	filePathPtr := flag.String("file", "", "Path to the input file")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	formatPtr := flag.String("format", "json", `Output format. Allowed values are: "json" and "csv", where "json" is the default`)
	timeoutPtr := flag.Duration("timeout", 30*time.Second, "Time budget of the solver, where 30s is the default")
	solverPtr := flag.String("solver", "gophersat", `Solver engine to use. Allowed values are: "gophersat" and "external", where "gophersat" is the default`)
	solverPathPtr := flag.String("solver-path", "", "Executable of the external pseudo-boolean solver")
	strictPtr := flag.Bool("strict", false, "Reject timeslot labels that cannot be parsed instead of degrading them")
	flag.Parse()
	filePath := *filePathPtr
	outFile := *outFilePathPtr
	format := strings.ToLower(*formatPtr)

	// Validate arguments
	if filePath == "" {
		log.Fatal("an input file must be specified")
	} else if !slices.Contains(validFormats, format) {
		log.Fatalf("%v is not a valid format", format)
	} else if *timeoutPtr <= 0 {
		log.Fatalf("timeout must be positive: %v", *timeoutPtr)
	}

	// Extract input
	request, err := model.RequestFromJson(filePath)
	if err != nil {
		log.Fatalf("cannot parse input file: %v", err)
	}

	// Initialize engines
	solver, err := sat.NewSolver(*solverPtr, *solverPathPtr)
	if err != nil {
		log.Fatal(err)
	}
	options := model.DefaultOptions()
	options.StrictTimeslots = *strictPtr
	timetabler := model.NewTimetabler(solver, options, nil)

	// Build timetable
	ctx, cancel := context.WithTimeout(context.Background(), *timeoutPtr)
	defer cancel()
	result, err := timetabler.Build(ctx, request)

	var infeasible *model.InfeasibleError
	if errors.As(err, &infeasible) {
		fmt.Fprintln(os.Stderr, infeasible.Error())
		printStats(result)
		os.Exit(exitInfeasible)
	} else if errors.Is(err, model.ErrMalformedTimeslot) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInvalid)
	} else if err != nil {
		log.Fatalf("an error occurred during timetable construction: %v", err)
	}

	// Verify timetable correctness
	if err := timetabler.Verify(result.Assignments, request); err != nil {
		fmt.Fprintf(os.Stderr, "the timetable is not valid: %v\n", err)
		printStats(result)
		os.Exit(exitInvalid)
	}

	// Marshal output
	var output []byte
	switch format {
	case "csv":
		output, err = gocsv.MarshalBytes(&result.Schedule)
	default:
		output, err = json.MarshalIndent(result.Schedule, "", "  ")
	}
	if err != nil {
		log.Fatalf("an error occurred while building output %v: %v", format, err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(output))
	} else {
		err := os.WriteFile(outFile, output, 0666)
		if err != nil {
			log.Fatalf("an error occurred while writing to the output file: %v", err)
		}
	}

	printStats(result)
	os.Exit(exitScheduled)
}

func printStats(result model.Result) {
	for _, message := range result.Trail {
		fmt.Fprintln(os.Stderr, message)
	}
	if result.Stage != model.StageSolve {
		fmt.Fprintf(os.Stderr, "Stage: %v\n", result.Stage)
		return
	}
	fmt.Fprintf(os.Stderr, "Status: %v\n", result.Status)
	fmt.Fprintf(os.Stderr, "Variables: %v\n", result.Variables)
	fmt.Fprintf(os.Stderr, "Constraints: %v\n", result.Constraints)
	fmt.Fprintf(os.Stderr, "Objective: %v\n", result.Objective)
}

package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/timely/timetabling/pkg/model"
)

const (
	exitScheduled  = 10
	exitInfeasible = 20
)

type ResultType int

const (
	solved ResultType = iota
	infeasible
	timeout
)

var resultTypes = map[ResultType]string{
	solved:     "solved",
	infeasible: "infeasible",
	timeout:    "timeout",
}

type TestMetadata struct {
	Name          string
	Instructors   int
	Courses       int
	Rooms         int
	StudentGroups int
	Days          int
	Timeslots     int
}

type SolverMetadata struct {
	Engine string
	Path   string
}

type BenchmarkResult struct {
	Solver        string  `csv:"Solver"`
	Test          string  `csv:"Test"`
	Instructors   int     `csv:"Instructors"`
	Courses       int     `csv:"Courses"`
	Rooms         int     `csv:"Rooms"`
	StudentGroups int     `csv:"StudentGroups"`
	Days          int     `csv:"Days"`
	Timeslots     int     `csv:"Timeslots"`
	Duration      int64   `csv:"Duration(ms)"`
	Memory        float32 `csv:"Memory(MB)"`
	CpuPercentage int64   `csv:"CPU(%)"`
	Result        string  `csv:"Result"`
}

func main() {
	executablePtr := flag.String("executable", "../../bin/timetable", "Path to the timetable CLI executable")
	directoryPtr := flag.String("dir", "../../test/", "Directory holding the JSON requests to benchmark")
	externalPtr := flag.String("solver-path", "", "Executable of an external pseudo-boolean solver to benchmark alongside gophersat")
	timeoutPtr := flag.String("timeout", "60s", "Time budget passed to every run")
	outPtr := flag.String("out", "benchmark_results.csv", "Path of the CSV report")
	flag.Parse()

	tests := getTests(*directoryPtr)
	solvers := getSolvers(*externalPtr)
	results := make([]BenchmarkResult, 0, len(tests)*len(solvers))

	for _, test := range tests {
		for _, solver := range solvers {
			fmt.Printf("Benchmarking test \"%v\" with solver \"%v\"\n", test.Name, solver.Engine)

			duration, maxMemory, cpuPercentage, result := measure(*executablePtr, solver, *timeoutPtr, test.Name)

			results = append(results, BenchmarkResult{
				Solver:        solver.Engine,
				Test:          test.Name,
				Instructors:   test.Instructors,
				Courses:       test.Courses,
				Rooms:         test.Rooms,
				StudentGroups: test.StudentGroups,
				Days:          test.Days,
				Timeslots:     test.Timeslots,
				Duration:      duration,
				Memory:        maxMemory,
				CpuPercentage: cpuPercentage,
				Result:        resultTypes[result],
			})
		}
	}

	toCsv(*outPtr, results)
}

func getTests(directory string) []TestMetadata {
	testFiles, err := os.ReadDir(directory)
	if err != nil {
		log.Fatalf("cannot read directory: %v", err)
	}

	tests := make([]TestMetadata, 0, len(testFiles))
	for _, file := range testFiles {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		filename := filepath.Join(directory, file.Name())
		request, err := model.RequestFromJson(filename)
		if err != nil {
			log.Fatalf("cannot parse input file: %v", err)
		}

		tests = append(tests, TestMetadata{
			Name:          filename,
			Instructors:   len(request.Instructors),
			Courses:       len(request.Courses),
			Rooms:         len(request.Rooms),
			StudentGroups: len(request.StudentGroups),
			Days:          len(request.Days),
			Timeslots:     len(request.Timeslots),
		})
	}
	return tests
}

func getSolvers(externalPath string) []SolverMetadata {
	solvers := []SolverMetadata{{Engine: "gophersat"}}
	if externalPath != "" {
		solvers = append(solvers, SolverMetadata{Engine: "external", Path: externalPath})
	}
	return solvers
}

func measure(executable string, solver SolverMetadata, budget, testFile string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType) {
	args := []string{"-v", executable, "-solver", solver.Engine, "-timeout", budget, "-file", testFile, "-out", os.DevNull}
	if solver.Path != "" {
		args = append(args, "-solver-path", solver.Path)
	}
	cmd := exec.Command("/usr/bin/time", args...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	exitCode := cmd.ProcessState.ExitCode()
	if exitCode != exitScheduled && exitCode != exitInfeasible {
		log.Fatalf("an error occurred during the execution \"timetable\" at test \"%v\" using solver \"%v\": %v\n", testFile, solver.Engine, stdErr.String())
	}
	splits := strings.Split(stdErr.String(), "\n")
	result = classify(exitCode, splits)

	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, result
}

// classify tells a proven infeasibility apart from an exhausted time budget
// by the status line the CLI prints.
func classify(exitCode int, lines []string) ResultType {
	if exitCode == exitScheduled {
		return solved
	}
	if lo.Contains(lines, "Stage: precheck") {
		return infeasible
	}
	if lo.Contains(lines, "Status: UNKNOWN") {
		return timeout
	}
	return infeasible
}

func toCsv(path string, results []BenchmarkResult) {
	file, err := os.Create(path)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		log.Panicf("cannot write CSV records: %v", err)
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return duration
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.Split(line, ":")[1][1:]
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) / 1024
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.Split(line, ":")[1][1:]
	percentageStr = percentageStr[:len(percentageStr)-1]
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}

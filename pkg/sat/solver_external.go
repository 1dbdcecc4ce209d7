package sat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

type externalSolver struct {
	path string
	args []string
}

// NewExternalSolver returns an engine that runs an OPB solver executable
// (e.g. the gophersat command line tool) on a temporary file and reads its
// "s"/"v" output lines.
func NewExternalSolver(path string, args ...string) Solver {
	return &externalSolver{
		path: path,
		args: args,
	}
}

func (engine *externalSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	problem, err := compile(model)
	if errors.Is(err, errTriviallyUnsat) {
		return NewSolution(Infeasible, nil, 0), nil
	} else if err != nil {
		return Solution{}, err
	}

	// Create a temporary file to hold the OPB content
	inputTempFile, err := os.CreateTemp("", "model-*.opb")
	if err != nil {
		return Solution{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(inputTempFile.Name()) // Ensure the file is removed after execution

	if err := writeOPB(inputTempFile, problem); err != nil {
		inputTempFile.Close()
		return Solution{}, fmt.Errorf("failed to write OPB to temporary file: %w", err)
	}
	if err := inputTempFile.Close(); err != nil {
		return Solution{}, fmt.Errorf("failed to close temporary file: %w", err)
	}

	cmd := exec.CommandContext(ctx, engine.path, append(engine.args, inputTempFile.Name())...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		// Killed on deadline; whatever was printed is not trusted to be complete
		return NewSolution(Unknown, nil, 0), nil
	}

	output := parseOutput(stdOut.String())
	if output.status == "" {
		if err != nil {
			return Solution{}, fmt.Errorf("an error occurred during %v execution: %v : %v", engine.path, err.Error(), stderr.String())
		}
		return Solution{}, fmt.Errorf("%v produced no status line", engine.path)
	}

	var status Status
	switch output.status {
	case "OPTIMUM FOUND":
		status = Optimal
	case "SATISFIABLE":
		status = Feasible
		if len(problem.cost.lits) == 0 {
			status = Optimal
		}
	case "UNSATISFIABLE":
		return NewSolution(Infeasible, nil, 0), nil
	default:
		return NewSolution(Unknown, nil, 0), nil
	}

	engineModel := make([]bool, problem.engineVariables())
	for _, literal := range output.literals {
		index := literal
		if index < 0 {
			index = -index
		}
		if index >= 1 && int(index) <= len(engineModel) {
			engineModel[index-1] = literal > 0
		}
	}
	values := problem.values(engineModel)
	return NewSolution(status, values, model.Evaluate(valueOf(values))), nil
}

package sat

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, model *Model) Solution {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	solution, err := NewGophersatSolver().Solve(ctx, model)
	require.NoError(t, err)
	return solution
}

func TestGophersat(t *testing.T) {
	t.Run("Satisfiable feasibility problem", func(t *testing.T) {
		g := gomega.NewWithT(t)

		//** Arrange
		model := NewModel()
		vars := model.NewBoolVars(4)
		model.Add(ExactlyOne(vars[0].Lit(), vars[1].Lit()))
		model.Add(ExactlyOne(vars[2].Lit(), vars[3].Lit()))
		model.Add(Forbid(vars[0]), Equivalent(vars[1].Lit(), vars[2].Lit()))

		//** Act
		solution := solve(t, model)

		//** Assert
		g.Expect(solution.Status).To(gomega.Equal(Optimal))
		g.Expect(solution.Found()).To(gomega.BeTrue())
		g.Expect(solution.Value(vars[1])).To(gomega.BeTrue())
		g.Expect(solution.Value(vars[2])).To(gomega.BeTrue())
		g.Expect(solution.Value(vars[3])).To(gomega.BeFalse())
		g.Expect(model.Satisfied(solution.Value)).To(gomega.BeTrue())
	})

	t.Run("Unsatisfiable problem", func(t *testing.T) {
		g := gomega.NewWithT(t)

		model := NewModel()
		x, y := model.NewBoolVar(), model.NewBoolVar()
		model.Add(ExactlyOne(x.Lit(), y.Lit()))
		model.Add(Fix(x.Lit()), Fix(y.Lit()))

		solution := solve(t, model)

		g.Expect(solution.Status).To(gomega.Equal(Infeasible))
		g.Expect(solution.Found()).To(gomega.BeFalse())
	})

	t.Run("Trivially unsatisfiable problem never reaches the engine", func(t *testing.T) {
		model := NewModel()
		model.NewBoolVar()
		model.Add(ExactlyOne())

		solution := solve(t, model)

		assert.Equal(t, Infeasible, solution.Status)
	})

	t.Run("Minimizes the objective", func(t *testing.T) {
		g := gomega.NewWithT(t)

		//** Arrange
		model := NewModel()
		vars := model.NewBoolVars(3)
		model.Add(ExactlyOne(vars[0].Lit(), vars[1].Lit(), vars[2].Lit()))
		model.Minimize(
			Term{Lit: vars[0].Lit(), Weight: 5},
			Term{Lit: vars[1].Lit(), Weight: 2},
			Term{Lit: vars[2].Lit(), Weight: 7},
		)

		//** Act
		solution := solve(t, model)

		//** Assert
		g.Expect(solution.Status).To(gomega.Equal(Optimal))
		g.Expect(solution.Objective).To(gomega.Equal(2))
		g.Expect(solution.Value(vars[1])).To(gomega.BeTrue())
	})

	t.Run("Negative weights and integer variables", func(t *testing.T) {
		g := gomega.NewWithT(t)

		//** Arrange
		// Minimize hi - lo subject to lo <= 2 <= hi
		model := NewModel()
		hi, lo := model.NewIntVar(0, 4), model.NewIntVar(0, 4)
		model.Add(Linear(hi.Terms(1), AtLeast, 2))
		model.Add(Linear(lo.Terms(1), AtMost, 2))
		model.Minimize(hi.Terms(1)...)
		model.Minimize(lo.Terms(-1)...)

		//** Act
		solution := solve(t, model)

		//** Assert
		g.Expect(solution.Status).To(gomega.Equal(Optimal))
		g.Expect(hi.Value(solution)).To(gomega.Equal(2))
		g.Expect(lo.Value(solution)).To(gomega.Equal(2))
		g.Expect(solution.Objective).To(gomega.Equal(0))
	})

	t.Run("Unconstrained objective variables take their cheapest value", func(t *testing.T) {
		g := gomega.NewWithT(t)

		model := NewModel()
		x, free, negated := model.NewBoolVar(), model.NewBoolVar(), model.NewBoolVar()
		model.Add(Fix(x.Lit()))
		model.Minimize(Term{Lit: free.Lit(), Weight: 3}, Term{Lit: negated.Not(), Weight: 3})

		solution := solve(t, model)

		g.Expect(solution.Status).To(gomega.Equal(Optimal))
		g.Expect(solution.Value(x)).To(gomega.BeTrue())
		g.Expect(solution.Value(free)).To(gomega.BeFalse())
		g.Expect(solution.Value(negated)).To(gomega.BeTrue())
		g.Expect(solution.Objective).To(gomega.BeZero())
	})

	t.Run("Expired budget does not block", func(t *testing.T) {
		g := gomega.NewWithT(t)

		model := NewModel()
		vars := model.NewBoolVars(2)
		model.Add(ExactlyOne(vars[0].Lit(), vars[1].Lit()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		solution, err := NewGophersatSolver().Solve(ctx, model)

		g.Expect(err).NotTo(gomega.HaveOccurred())
		g.Expect(solution.Status).To(gomega.BeElementOf(Optimal, Unknown))
	})
}

// pigeonhole places pigeons into fewer holes, which is unsatisfiable and
// takes the engine a while to prove.
func pigeonhole(pigeons, holes int) *Model {
	model := NewModel()
	placed := make([][]Var, pigeons)
	for p := range pigeons {
		placed[p] = model.NewBoolVars(holes)
		model.Add(Clause(literals(placed[p])...))
	}
	for h := range holes {
		inHole := make([]Lit, pigeons)
		for p := range pigeons {
			inHole[p] = placed[p][h].Lit()
		}
		model.Add(AtMostOne(inHole...))
	}
	return model
}

func literals(vars []Var) []Lit {
	lits := make([]Lit, len(vars))
	for i, v := range vars {
		lits[i] = v.Lit()
	}
	return lits
}

func TestGophersatDeadline(t *testing.T) {
	t.Run("The engine stops before Done is closed", func(t *testing.T) {
		//** Arrange
		baseline := runtime.NumGoroutine()
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()

		//** Act
		solution, err := NewGophersatSolver().Solve(ctx, pigeonhole(7, 6))

		//** Assert
		require.NoError(t, err)
		assert.Contains(t, []Status{Unknown, Infeasible}, solution.Status)
		select {
		case <-solution.Done():
		case <-time.After(60 * time.Second):
			t.Fatal("engine still running")
		}
		assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= baseline }, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("A completed solve is already done", func(t *testing.T) {
		solution := solve(t, pigeonhole(3, 2))

		assert.Equal(t, Infeasible, solution.Status)
		select {
		case <-solution.Done():
		default:
			t.Fatal("Done is not closed")
		}
	})

	t.Run("Optimizes on a single engine", func(t *testing.T) {
		model := pigeonhole(6, 6)
		model.Minimize(Term{Lit: 1, Weight: 1})

		solution := solve(t, model)

		assert.Equal(t, Optimal, solution.Status)
		assert.Zero(t, solution.Objective)
		assert.True(t, model.Satisfied(solution.Value))
	})
}

func TestNewSolver(t *testing.T) {
	solver, err := NewSolver("Gophersat", "")
	require.NoError(t, err)
	assert.NotNil(t, solver)

	_, err = NewSolver("external", "")
	assert.Error(t, err)

	_, err = NewSolver("kissat", "")
	assert.Error(t, err)

	external, err := NewSolver("external", "/usr/bin/true")
	require.NoError(t, err)
	assert.NotNil(t, external)
}

func TestWriteOPB(t *testing.T) {
	//** Arrange
	model := NewModel()
	x, y := model.NewBoolVar(), model.NewBoolVar()
	model.Add(ExactlyOne(x.Lit(), y.Lit()))
	model.Minimize(Term{Lit: x.Lit(), Weight: 3})

	//** Act
	var builder strings.Builder
	err := model.WriteOPB(&builder)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t,
		"* #variable= 2 #constraint= 2\n"+
			"min: +3 x1 ;\n"+
			"+1 x1 +1 x2 >= 1 ;\n"+
			"-1 x1 -1 x2 >= -1 ;\n",
		builder.String(),
	)
}

func TestParseOutput(t *testing.T) {
	t.Run("Competition format", func(t *testing.T) {
		output := parseOutput("c comment\no 3\ns OPTIMUM FOUND\nv x1 -x2\nv ~x3 x4\n")

		assert.Equal(t, "OPTIMUM FOUND", output.status)
		assert.Equal(t, []int64{1, -2, -3, 4}, output.literals)
	})

	t.Run("Integer literals", func(t *testing.T) {
		output := parseOutput("s SATISFIABLE\nv 1 -2 3 0\n")

		assert.Equal(t, "SATISFIABLE", output.status)
		assert.Equal(t, []int64{1, -2, 3}, output.literals)
	})

	t.Run("Missing status", func(t *testing.T) {
		output := parseOutput("c nothing to see\n")

		assert.Empty(t, output.status)
		assert.Empty(t, output.literals)
	})
}

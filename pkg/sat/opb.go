package sat

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// WriteOPB writes the model in OPB format (pseudo-boolean competition
// format). Literals are written over positive variables only, so negations
// become negative coefficients with the constant moved to the right-hand side.
func (m *Model) WriteOPB(w io.Writer) error {
	problem, err := compile(m)
	if errors.Is(err, errTriviallyUnsat) {
		// Keep the file well formed: x1 >= 1 and -x1 >= 0 cannot both hold
		_, err = fmt.Fprint(w, "* #variable= 1 #constraint= 2\n+1 x1 >= 1 ;\n-1 x1 >= 0 ;\n")
		return err
	} else if err != nil {
		return err
	}
	return writeOPB(w, problem)
}

func writeOPB(w io.Writer, problem *compiled) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "* #variable= %d #constraint= %d\n", max(problem.engineVariables(), 1), len(problem.constraints))
	if len(problem.cost.lits) > 0 {
		terms, _ := opbTerms(problem.cost)
		fmt.Fprintf(&builder, "min: %s ;\n", terms)
	}
	for _, part := range problem.constraints {
		terms, bound := opbTerms(part)
		fmt.Fprintf(&builder, "%s >= %d ;\n", terms, bound)
	}

	_, err := io.WriteString(w, builder.String())
	return err
}

// opbTerms renders the terms of part and returns its bound adjusted for
// negated literals.
func opbTerms(part normalized) (string, int) {
	bound := part.bound
	terms := make([]string, len(part.lits))
	for i, lit := range part.lits {
		weight := part.weights[i]
		if lit.Positive() {
			terms[i] = fmt.Sprintf("+%d x%d", weight, lit.Var())
		} else {
			// w·¬x = w - w·x
			terms[i] = fmt.Sprintf("-%d x%d", weight, lit.Var())
			bound -= weight
		}
	}
	return strings.Join(terms, " "), bound
}

package sat

import (
	"errors"
	"slices"
)

var errTriviallyUnsat = errors.New("model contains a constraint that cannot be satisfied")

// normalized is Σ weights[i]·lits[i] ≥ bound with every weight positive and
// every variable appearing once.
type normalized struct {
	lits    []Lit
	weights []int
	bound   int
}

func (n normalized) sum() int {
	total := 0
	for _, weight := range n.weights {
		total += weight
	}
	return total
}

// canonical merges the terms by variable and rewrites them so that every
// weight is positive, moving the constants introduced by negations into the bound.
func canonical(terms []Term, bound int) normalized {
	coefficients := make(map[Var]int, len(terms))
	order := make([]Var, 0, len(terms))
	for _, term := range terms {
		if term.Weight == 0 {
			continue
		}
		v := term.Lit.Var()
		if _, ok := coefficients[v]; !ok {
			order = append(order, v)
		}
		if term.Lit.Positive() {
			coefficients[v] += term.Weight
		} else {
			// w·¬x = w - w·x
			coefficients[v] -= term.Weight
			bound -= term.Weight
		}
	}

	result := normalized{bound: bound}
	for _, v := range order {
		coefficient := coefficients[v]
		switch {
		case coefficient > 0:
			result.lits = append(result.lits, v.Lit())
			result.weights = append(result.weights, coefficient)
		case coefficient < 0:
			// c·x = c + |c|·¬x
			result.lits = append(result.lits, v.Not())
			result.weights = append(result.weights, -coefficient)
			result.bound -= coefficient
		}
	}
	return result
}

func negateTerms(terms []Term) []Term {
	negated := make([]Term, len(terms))
	for i, term := range terms {
		negated[i] = Term{Lit: term.Lit, Weight: -term.Weight}
	}
	return negated
}

// normalize rewrites c into ≥ form. Trivially satisfied parts are dropped;
// errTriviallyUnsat is returned when a part can never hold.
func normalize(c Constraint) ([]normalized, error) {
	var parts []normalized
	switch c.Op {
	case AtLeast:
		parts = []normalized{canonical(c.Terms, c.Bound)}
	case AtMost:
		parts = []normalized{canonical(negateTerms(c.Terms), -c.Bound)}
	case Equal:
		parts = []normalized{
			canonical(c.Terms, c.Bound),
			canonical(negateTerms(c.Terms), -c.Bound),
		}
	}

	result := parts[:0]
	for _, part := range parts {
		if part.bound <= 0 {
			continue
		}
		if part.sum() < part.bound {
			return nil, errTriviallyUnsat
		}
		result = append(result, part)
	}
	return result, nil
}

// compiled is a model rewritten over a compact engine numbering that only
// covers constrained variables. Variables that appear in no constraint are
// set to whichever value zeroes their objective contribution.
type compiled struct {
	constraints []normalized
	cost        normalized // cost terms over engine literals; bound unused
	toEngine    map[Var]int
	fromEngine  []Var // fromEngine[i] is the model variable of engine variable i+1
	free        map[Var]bool
	variables   int
}

func compile(model *Model) (*compiled, error) {
	result := &compiled{
		toEngine:  make(map[Var]int),
		free:      make(map[Var]bool),
		variables: model.Variables(),
	}

	parts := make([]normalized, 0, len(model.Constraints()))
	constrained := make(map[Var]bool)
	for _, constraint := range model.Constraints() {
		normalizedParts, err := normalize(constraint)
		if err != nil {
			return nil, err
		}
		for _, part := range normalizedParts {
			for _, lit := range part.lits {
				constrained[lit.Var()] = true
			}
		}
		parts = append(parts, normalizedParts...)
	}

	//** Number hinted variables first, then the rest in ascending order
	assign := func(v Var) {
		if _, ok := result.toEngine[v]; ok || !constrained[v] {
			return
		}
		result.fromEngine = append(result.fromEngine, v)
		result.toEngine[v] = len(result.fromEngine)
	}
	for _, v := range model.Hints() {
		assign(v)
	}
	rest := make([]Var, 0, len(constrained))
	for v := range constrained {
		rest = append(rest, v)
	}
	slices.Sort(rest)
	for _, v := range rest {
		assign(v)
	}

	result.constraints = make([]normalized, len(parts))
	for i, part := range parts {
		result.constraints[i] = result.translate(part)
	}

	//** Cost function
	cost := canonical(model.Objective(), 0)
	for i, lit := range cost.lits {
		v := lit.Var()
		if constrained[v] {
			continue
		}
		// Unconstrained: make the cost literal false
		result.free[v] = !lit.Positive()
		cost.weights[i] = 0
	}
	filtered := normalized{}
	for i, lit := range cost.lits {
		if cost.weights[i] > 0 {
			filtered.lits = append(filtered.lits, lit)
			filtered.weights = append(filtered.weights, cost.weights[i])
		}
	}
	result.cost = result.translate(filtered)

	return result, nil
}

func (c *compiled) translate(part normalized) normalized {
	translated := normalized{
		lits:    make([]Lit, len(part.lits)),
		weights: part.weights,
		bound:   part.bound,
	}
	for i, lit := range part.lits {
		engineVar := Lit(c.toEngine[lit.Var()])
		if lit.Positive() {
			translated.lits[i] = engineVar
		} else {
			translated.lits[i] = -engineVar
		}
	}
	return translated
}

func (c *compiled) engineVariables() int {
	return len(c.fromEngine)
}

// values maps an engine assignment back to model variables.
func (c *compiled) values(engineModel []bool) []bool {
	values := make([]bool, c.variables+1)
	for v, value := range c.free {
		values[v] = value
	}
	for i, v := range c.fromEngine {
		if i < len(engineModel) {
			values[v] = engineModel[i]
		}
	}
	return values
}

package model

import (
	"fmt"

	"github.com/timely/timetabling/pkg/sat"
)

type familyResult struct {
	position    int
	constraints []sat.Constraint
	err         error
}

// buildModel runs every constraint family on its own goroutine and adds the
// results to model in family order, so the model is identical across runs.
func buildModel(model *sat.Model, families []constraintFamily, state constraintState) error {
	if len(families) == 0 {
		return nil
	}

	results := make([][]sat.Constraint, len(families))
	resultsChannel := make(chan familyResult) // Channel to collect constraints

	for position, family := range families {
		go func(position int, family constraintFamily) {
			defer func() {
				if r := recover(); r != nil {
					resultsChannel <- familyResult{position: position, err: fmt.Errorf("%w: constraint family %d panicked: %v", ErrInternal, position, r)}
				}
			}()
			resultsChannel <- familyResult{position: position, constraints: family(state)}
		}(position, family)
	}

	// Collect generated constraints
	var err error
	collected := 0
	for result := range resultsChannel {
		if result.err != nil && err == nil {
			err = result.err
		}
		results[result.position] = result.constraints

		// Check whether all families have reported to properly close the channel
		if collected++; collected == len(families) {
			close(resultsChannel)
		}
	}
	if err != nil {
		return err
	}

	for _, constraints := range results {
		model.Add(constraints...)
	}
	return nil
}

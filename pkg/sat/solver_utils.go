package sat

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type solverOutput struct {
	status   string
	literals []int64
}

// parseOutput reads the status ("s" line) and the assignment ("v" lines) of
// a pseudo-boolean solver. Literals may be written as "x3", "-x3", "~x3" or
// as bare integers.
func parseOutput(output string) solverOutput {
	lines := strings.Split(output, "\n")

	statusLine, _ := lo.Find(lines, func(line string) bool {
		return strings.HasPrefix(line, "s ")
	})

	literals := lo.Map(
		lo.Reduce(
			lo.Filter(lines, func(line string, _ int) bool {
				return len(line) > 0 && line[0] == 'v'
			}),
			func(values []string, line string, _ int) []string {
				return append(values, strings.Fields(line[1:])...)
			},
			[]string{},
		),
		func(valueStr string, _ int) int64 {
			return parseLiteral(valueStr)
		},
	)

	return solverOutput{
		status: strings.TrimSpace(strings.TrimPrefix(statusLine, "s ")),
		literals: lo.Filter(literals, func(literal int64, _ int) bool {
			return literal != 0
		}),
	}
}

func parseLiteral(valueStr string) int64 {
	sign := int64(1)
	if strings.HasPrefix(valueStr, "-") || strings.HasPrefix(valueStr, "~") {
		sign = -1
		valueStr = valueStr[1:]
	}
	valueStr = strings.TrimPrefix(valueStr, "x")
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0 // Not a literal (e.g. a trailing comment token)
	}
	return sign * value
}

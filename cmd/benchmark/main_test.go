package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("00:01:01.12"))
	assert.Equal(t, int64(60*60*1000+60*1000+1000+120), parseDuration("01:01:01.12"))
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("1:01.12"))
	assert.Equal(t, int64(120), parseDuration("0:00.12"))
}

func TestParseTimeLines(t *testing.T) {
	assert.Equal(t, int64(2500), parseDurationLine("\tElapsed (wall clock) time (h:mm:ss or m:ss): 0:02.50"))
	assert.Equal(t, float32(20), parseMemoryLine("\tMaximum resident set size (kbytes): 20480"))
	assert.Equal(t, int64(98), parseCpuPercentageLine("\tPercent of CPU this job got: 98%"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, solved, classify(exitScheduled, nil))
	assert.Equal(t, timeout, classify(exitInfeasible, []string{"Variables: 12", "Status: UNKNOWN"}))
	assert.Equal(t, infeasible, classify(exitInfeasible, []string{"Status: INFEASIBLE"}))
	assert.Equal(t, infeasible, classify(exitInfeasible, []string{"8:30 AM labs are not allowed", "Stage: precheck"}))
}

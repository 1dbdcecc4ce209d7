package model

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timely/timetabling/pkg/sat"
)

const testdataDirectory = "testdata/"

func newTestTimetabler() Timetabler {
	return NewTimetabler(sat.NewGophersatSolver(), DefaultOptions(), nil)
}

func build(t *testing.T, request Request) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return newTestTimetabler().Build(ctx, request)
}

func lectureRequest(timeslots ...string) Request {
	return Request{
		Instructors: []Instructor{{Id: "I1", Name: "Instructor 1"}},
		Courses: []Course{
			{Id: "C1", Name: "Course 1", LectureHours: 1, QualifiedInstructors: []string{"I1"}},
			{Id: "C2", Name: "Course 2", LectureHours: 1, QualifiedInstructors: []string{"I1"}},
		},
		Rooms:         []Room{{Id: "R1", Capacity: 50, Type: "Classroom"}},
		StudentGroups: []StudentGroup{{Id: "G1", Size: 30, EnrolledCourses: []string{"C1", "C2"}}},
		Days:          []string{"Monday"},
		Timeslots:     timeslots,
	}
}

func timeslotsOf(schedule []Record) []string {
	times := lo.Map(schedule, func(record Record, _ int) string { return record.Timeslot })
	slices.Sort(times)
	return times
}

func TestFacultyBreak(t *testing.T) {
	t.Run("Back-to-back lectures of one instructor fail", func(t *testing.T) {
		//** Arrange
		request := lectureRequest("09:00 AM", "10:00 AM")

		//** Act
		result, err := build(t, request)

		//** Assert
		var infeasible *InfeasibleError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, StageSolve, infeasible.Stage)
		assert.Equal(t, sat.Infeasible, infeasible.Status)
		assert.Contains(t, err.Error(), "No solution")
		assert.Empty(t, result.Schedule)
	})

	t.Run("Lectures are spaced when a gap is possible", func(t *testing.T) {
		request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")

		result, err := build(t, request)

		require.NoError(t, err)
		assert.Len(t, result.Schedule, 2)
		assert.Equal(t, []string{"09:00 AM", "11:00 AM"}, timeslotsOf(result.Schedule))
		assert.NoError(t, newTestTimetabler().Verify(result.Assignments, request))
	})

	t.Run("A two-hour lab runs back-to-back", func(t *testing.T) {
		request := labRequest("09:00 AM", "10:00 AM")

		result, err := build(t, request)

		require.NoError(t, err)
		assert.Equal(t, []string{"09:00 AM", "10:00 AM"}, timeslotsOf(result.Schedule))
		for _, record := range result.Schedule {
			assert.Equal(t, "lab", record.Type)
			assert.Equal(t, "R1", record.Room)
			assert.Equal(t, "Instructor 1", record.Instructor)
		}
	})
}

func TestLabContinuity(t *testing.T) {
	//** Arrange
	request := labRequest("8:00 AM - 9:00 AM", "9:30 AM - 10:30 AM", "10:30 AM - 11:30 AM")

	//** Act
	result, err := build(t, request)

	//** Assert
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)
	first, second := result.Assignments[0], result.Assignments[1]
	assert.Equal(t, 1, first.Slot)
	assert.Equal(t, 2, second.Slot)
	assert.Equal(t, first.Instructor, second.Instructor)
	assert.Equal(t, first.Room, second.Room)
}

func TestAvailability(t *testing.T) {
	//** Arrange
	request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")
	request.Courses = request.Courses[:1]
	request.StudentGroups[0].EnrolledCourses = []string{"C1"}
	request.Instructors[0].Availability = Availability{"Monday": {0, 1, 1}}
	request.Rooms[0].Availability = Availability{"Monday": {1, 1, 0}}

	//** Act
	result, err := build(t, request)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM"}, timeslotsOf(result.Schedule))
}

func TestPreferredRoom(t *testing.T) {
	request := func() Request {
		request := lectureRequest("8:30 AM - 9:30 AM", "9:30 AM - 10:30 AM")
		request.Courses = request.Courses[:1]
		request.StudentGroups[0].EnrolledCourses = []string{"C1"}
		request.StudentGroups[0].PreferredRoomId = "R1"
		request.Rooms = []Room{
			{Id: "R2", Capacity: 50, Type: "Classroom"},
			{Id: "R1", Capacity: 50, Type: "Classroom"},
		}
		request.Settings.GapPriority = 1
		return request
	}

	t.Run("The preferred room is used when free", func(t *testing.T) {
		//** Act
		result, err := build(t, request())

		//** Assert
		require.NoError(t, err)
		require.Len(t, result.Schedule, 1)
		assert.Equal(t, "R1", result.Schedule[0].Room)
		assert.Equal(t, 0, result.Objective)
	})

	t.Run("Another room is used when the preferred one is unavailable", func(t *testing.T) {
		fallback := request()
		fallback.Rooms[1].Availability = Availability{"Monday": {0, 0}}

		result, err := build(t, fallback)

		require.NoError(t, err)
		require.Len(t, result.Schedule, 1)
		assert.Equal(t, "R2", result.Schedule[0].Room)
	})
}

func TestSpecificLabRoom(t *testing.T) {
	//** Arrange
	request := labRequest("09:00 AM", "10:00 AM")
	request.Rooms = []Room{
		{Id: "L1", Capacity: 50, Type: "Computer Lab"},
		{Id: "L2", Capacity: 50, Type: "Computer Lab"},
	}
	request.StudentGroups[0].LabRoomPreferences = map[string]string{"L1": "L2"}

	//** Act
	result, err := build(t, request)

	//** Assert
	require.NoError(t, err)
	require.Len(t, result.Schedule, 2)
	for _, record := range result.Schedule {
		assert.Equal(t, "L2", record.Room)
	}
}

func TestEarlyLabs(t *testing.T) {
	t.Run("Labs avoid the early slot when disallowed", func(t *testing.T) {
		//** Arrange
		request := labRequest("8:30 AM - 9:30 AM", "9:30 AM - 10:30 AM", "11:00 AM - 12:00 PM", "12:00 PM - 1:00 PM")
		request.Settings.Disallow830Labs = true

		//** Act
		result, err := build(t, request)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"11:00 AM - 12:00 PM", "12:00 PM - 1:00 PM"}, timeslotsOf(result.Schedule))
		assert.Contains(t, result.Trail, "info: objective terms: early lab avoidance")
	})

	t.Run("Labs fail when only the early block exists", func(t *testing.T) {
		request := labRequest("8:30 AM - 9:30 AM", "9:30 AM - 10:30 AM")
		request.Settings.Disallow830Labs = true

		_, err := build(t, request)

		var infeasible *InfeasibleError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, StagePrecheck, infeasible.Stage)
		assert.Contains(t, err.Error(), "consecutive slots")
	})
}

func TestLabTimingPreference(t *testing.T) {
	request := func() Request {
		request := labRequest("9:00 AM - 10:00 AM", "10:00 AM - 11:00 AM", "11:00 AM - 12:00 PM", "12:00 PM - 1:00 PM")
		timing, _ := ParseLabTiming("11:00 AM - 1:00 PM")
		request.StudentGroups[0].LabTimingPreferences = map[string]LabTiming{"L1": timing}
		return request
	}

	t.Run("An exact start is honored", func(t *testing.T) {
		//** Act
		result, err := build(t, request())

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"11:00 AM - 12:00 PM", "12:00 PM - 1:00 PM"}, timeslotsOf(result.Schedule))
	})

	t.Run("An exact start the instructor cannot attend is rejected", func(t *testing.T) {
		unavailable := request()
		unavailable.Instructors[0].Availability = Availability{"Monday": {1, 1, 0, 0}}

		_, err := build(t, unavailable)

		assert.ErrorContains(t, err, "no assigned instructor")
	})

	t.Run("Afternoon labs stay in the afternoon", func(t *testing.T) {
		afternoon := request()
		afternoon.StudentGroups[0].LabTimingPreferences = map[string]LabTiming{"L1": {Kind: Afternoon}}
		afternoon.Timeslots = []string{"10:00 AM - 11:00 AM", "11:00 AM - 12:00 PM", "12:00 PM - 1:00 PM", "1:00 PM - 2:00 PM"}

		result, err := build(t, afternoon)

		require.NoError(t, err)
		assert.Equal(t, []string{"12:00 PM - 1:00 PM", "1:00 PM - 2:00 PM"}, timeslotsOf(result.Schedule))
	})
}

func TestLabLimit(t *testing.T) {
	//** Arrange
	request, err := RequestFromJson(testdataDirectory + "lab_limit.json")
	require.NoError(t, err)

	//** Act
	result, err := build(t, request)

	//** Assert
	require.NoError(t, err)
	assert.Len(t, result.Schedule, 4)

	coursesByDay := make(map[string]map[string]bool)
	for _, record := range result.Schedule {
		if coursesByDay[record.Day] == nil {
			coursesByDay[record.Day] = make(map[string]bool)
		}
		coursesByDay[record.Day][record.CourseId] = true
	}
	for day, courses := range coursesByDay {
		assert.Len(t, courses, 1, day)
	}
	assert.NoError(t, newTestTimetabler().Verify(result.Assignments, request))
}

func TestSoftConstraints(t *testing.T) {
	twoInstructors := func() Request {
		request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")
		request.Instructors = append(request.Instructors, Instructor{Id: "I2", Name: "Instructor 2"})
		request.Courses[0].QualifiedInstructors = []string{"I1", "I2"}
		request.Courses[1].QualifiedInstructors = []string{"I1", "I2"}
		return request
	}

	t.Run("Student gaps are closed", func(t *testing.T) {
		//** Arrange
		request := twoInstructors()
		request.Settings.GapPriority = 1

		//** Act
		result, err := build(t, request)

		//** Assert
		require.NoError(t, err)
		require.Len(t, result.Assignments, 2)
		assert.Equal(t, 1, result.Assignments[1].Slot-result.Assignments[0].Slot)
		assert.NotEqual(t, result.Assignments[0].Instructor, result.Assignments[1].Instructor)
		assert.Equal(t, 0, result.Objective)
	})

	t.Run("Workload is spread across instructors", func(t *testing.T) {
		request := twoInstructors()
		request.Settings.FairWorkload = true

		result, err := build(t, request)

		require.NoError(t, err)
		require.Len(t, result.Assignments, 2)
		assert.NotEqual(t, result.Assignments[0].Instructor, result.Assignments[1].Instructor)
		assert.Equal(t, 0, result.Objective)
	})

	t.Run("Preferred courses are taught in the morning", func(t *testing.T) {
		request := lectureRequest("1:00 PM - 2:00 PM", "3:00 PM - 4:00 PM", "11:00 AM - 12:00 PM")
		request.Courses = request.Courses[:1]
		request.StudentGroups[0].EnrolledCourses = []string{"C1"}
		request.Settings.PreferredMorningCourses = []string{"C1"}

		result, err := build(t, request)

		require.NoError(t, err)
		assert.Equal(t, []string{"11:00 AM - 12:00 PM"}, timeslotsOf(result.Schedule))
	})

	t.Run("A noon start is not a morning slot", func(t *testing.T) {
		request := lectureRequest("10:00 AM - 11:00 AM", "12:00 PM - 1:00 PM")
		request.Settings.PreferredMorningCourses = []string{"C1"}

		result, err := build(t, request)

		require.NoError(t, err)
		record, found := lo.Find(result.Schedule, func(record Record) bool { return record.CourseId == "C1" })
		require.True(t, found)
		assert.Equal(t, "10:00 AM - 11:00 AM", record.Timeslot)
	})
}

func TestBuildEdgeCases(t *testing.T) {
	t.Run("A request without sessions yields an empty schedule", func(t *testing.T) {
		//** Arrange
		request := lectureRequest("whenever", "10:00 AM")
		request.StudentGroups[0].EnrolledCourses = nil

		//** Act
		result, err := build(t, request)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, sat.Optimal, result.Status)
		assert.Empty(t, result.Schedule)
		assert.Contains(t, result.Trail, "info: no sessions to schedule")
		assert.True(t, lo.SomeBy(result.Trail, func(message string) bool { return strings.HasPrefix(message, "warning:") }))
	})

	t.Run("Strict mode rejects malformed timeslots", func(t *testing.T) {
		options := DefaultOptions()
		options.StrictTimeslots = true
		timetabler := NewTimetabler(sat.NewGophersatSolver(), options, nil)

		_, err := timetabler.Build(context.Background(), lectureRequest("whenever"))

		assert.ErrorIs(t, err, ErrMalformedTimeslot)
		assert.NotErrorIs(t, err, ErrInfeasible)
	})

	t.Run("Solver failures are internal errors", func(t *testing.T) {
		timetabler := NewTimetabler(sat.NewExternalSolver("/nonexistent/solver"), DefaultOptions(), nil)

		result, err := timetabler.Build(context.Background(), lectureRequest("09:00 AM", "10:00 AM", "11:00 AM"))

		assert.ErrorIs(t, err, ErrInternal)
		assert.NotNil(t, result.Trail)
	})

	t.Run("Verify rejects tampered schedules", func(t *testing.T) {
		request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")
		result, err := build(t, request)
		require.NoError(t, err)

		tampered := slices.Clone(result.Assignments)
		tampered[1].Slot = 1
		missing := result.Assignments[:1]

		assert.Error(t, newTestTimetabler().Verify(tampered, request))
		assert.ErrorContains(t, newTestTimetabler().Verify(missing, request), "1 of 2 tasks")
	})
}

func TestRoomFit(t *testing.T) {
	t.Run("Groups only sit in rooms that hold them", func(t *testing.T) {
		//** Arrange
		request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")
		request.Rooms = []Room{
			{Id: "R1", Capacity: 20, Type: "Classroom"},
			{Id: "R2", Capacity: 50, Type: "Classroom"},
		}

		//** Act
		result, err := build(t, request)

		//** Assert
		require.NoError(t, err)
		require.Len(t, result.Schedule, 2)
		for _, record := range result.Schedule {
			assert.Equal(t, "R2", record.Room)
		}
	})

	t.Run("Courses only use rooms with their equipment", func(t *testing.T) {
		request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")
		request.Courses[0].Equipment = []string{"Projector"}
		request.Rooms = []Room{
			{Id: "R1", Capacity: 50, Type: "Classroom", Equipment: []string{"Whiteboard"}},
			{Id: "R2", Capacity: 50, Type: "Classroom", Equipment: []string{"Whiteboard", "Projector"}},
		}

		result, err := build(t, request)

		require.NoError(t, err)
		record, found := lo.Find(result.Schedule, func(record Record) bool { return record.CourseId == "C1" })
		require.True(t, found)
		assert.Equal(t, "R2", record.Room)
	})
}

func TestSameDayLecture(t *testing.T) {
	//** Arrange
	request := lectureRequest("09:00 AM", "11:00 AM")
	request.Courses[0].LectureHours = 2
	request.StudentGroups[0].EnrolledCourses = []string{"C1"}

	//** Act
	result, err := build(t, request)

	//** Assert
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, StageSolve, infeasible.Stage)
	assert.Equal(t, sat.Infeasible, infeasible.Status)
	assert.Empty(t, result.Schedule)
}

func TestInstructorPin(t *testing.T) {
	//** Arrange
	request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")
	request.Instructors = append(request.Instructors, Instructor{Id: "I2", Name: "Instructor 2"})
	request.Courses[0].QualifiedInstructors = []string{"I1", "I2"}
	pinned := request
	pinned.StudentGroups = []StudentGroup{request.StudentGroups[0]}
	pinned.StudentGroups[0].InstructorPreferences = map[string]string{"C1": "I2"}

	//** Act
	free, err := build(t, request)
	require.NoError(t, err)
	result, err := build(t, pinned)

	//** Assert
	require.NoError(t, err)
	assert.Less(t, result.Variables, free.Variables)
	record, found := lo.Find(result.Schedule, func(record Record) bool { return record.CourseId == "C1" })
	require.True(t, found)
	assert.Equal(t, "Instructor 2", record.Instructor)
}

// interruptedSolver solves to optimality but reports the outcome as if the
// deadline had cut the search short.
type interruptedSolver struct{}

func (interruptedSolver) Solve(ctx context.Context, model *sat.Model) (sat.Solution, error) {
	solution, err := sat.NewGophersatSolver().Solve(ctx, model)
	if err != nil || !solution.Found() {
		return solution, err
	}
	values := make([]bool, model.Variables()+1)
	for v := 1; v <= model.Variables(); v++ {
		values[v] = solution.Value(sat.Var(v))
	}
	return sat.NewSolution(sat.Feasible, values, solution.Objective), nil
}

func TestFeasibleSchedule(t *testing.T) {
	//** Arrange
	request := lectureRequest("09:00 AM", "10:00 AM", "11:00 AM")
	timetabler := NewTimetabler(interruptedSolver{}, DefaultOptions(), nil)

	//** Act
	result, err := timetabler.Build(context.Background(), request)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, sat.Feasible, result.Status)
	assert.Len(t, result.Schedule, 2)
	assert.True(t, lo.SomeBy(result.Trail, func(message string) bool { return strings.Contains(message, "may not be optimal") }))
	assert.NoError(t, newTestTimetabler().Verify(result.Assignments, request))
}

func TestBuildStage(t *testing.T) {
	t.Run("Pre-check failures stop before the solver", func(t *testing.T) {
		//** Arrange
		request := labRequest("8:30 AM - 9:30 AM", "9:30 AM - 10:30 AM")
		request.Settings.Disallow830Labs = true

		//** Act
		result, err := build(t, request)

		//** Assert
		var infeasible *InfeasibleError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, StagePrecheck, infeasible.Stage)
		assert.Equal(t, StagePrecheck, result.Stage)
		assert.Nil(t, result.Done)
	})

	t.Run("Solved builds report the solver status", func(t *testing.T) {
		result, err := build(t, lectureRequest("09:00 AM", "10:00 AM", "11:00 AM"))

		require.NoError(t, err)
		assert.Equal(t, StageSolve, result.Stage)
		assert.Equal(t, sat.Optimal, result.Status)
		require.NotNil(t, result.Done)
		assert.Eventually(t, func() bool {
			select {
			case <-result.Done:
				return true
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Malformed timeslots never reach a stage", func(t *testing.T) {
		options := DefaultOptions()
		options.StrictTimeslots = true
		timetabler := NewTimetabler(sat.NewGophersatSolver(), options, nil)

		result, err := timetabler.Build(context.Background(), lectureRequest("whenever"))

		assert.ErrorIs(t, err, ErrMalformedTimeslot)
		assert.Empty(t, result.Stage)
	})
}

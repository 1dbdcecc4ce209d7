package model

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

const defaultLabType = "Computer Lab"

type groupCourse struct {
	group, course string
}

// catalog is the request indexed for lookups. It is built once per request
// and never mutated afterwards.
type catalog struct {
	days        []string
	timeslots   Timeslots
	settings    Settings
	instructors []Instructor
	courses     []Course
	rooms       []Room
	groups      []StudentGroup

	instructorById map[string]Instructor
	courseById     map[string]Course
	roomById       map[string]Room
	groupById      map[string]StudentGroup

	enrolled   map[string][]Course      // known, de-duplicated enrolled courses per group
	candidates map[groupCourse][]string // eligible instructors per (group, course)
}

func newCatalog(request Request, timeslots Timeslots, trail *Trail) *catalog {
	c := &catalog{
		days:           request.Days,
		timeslots:      timeslots,
		settings:       request.Settings,
		instructorById: make(map[string]Instructor),
		courseById:     make(map[string]Course),
		roomById:       make(map[string]Room),
		groupById:      make(map[string]StudentGroup),
		enrolled:       make(map[string][]Course),
		candidates:     make(map[groupCourse][]string),
	}

	//** Index entities; a repeated id replaces the earlier entry
	for _, instructor := range request.Instructors {
		if _, ok := c.instructorById[instructor.Id]; ok {
			trail.Warnf("instructor %q is declared more than once; the last declaration is used", instructor.Id)
			c.instructors = slices.DeleteFunc(c.instructors, func(i Instructor) bool { return i.Id == instructor.Id })
		}
		c.instructorById[instructor.Id] = instructor
		c.instructors = append(c.instructors, instructor)
	}
	for _, course := range request.Courses {
		if _, ok := c.courseById[course.Id]; ok {
			trail.Warnf("course %q is declared more than once; the last declaration is used", course.Id)
			c.courses = slices.DeleteFunc(c.courses, func(i Course) bool { return i.Id == course.Id })
		}
		c.courseById[course.Id] = course
		c.courses = append(c.courses, course)
	}
	for _, room := range request.Rooms {
		if _, ok := c.roomById[room.Id]; ok {
			trail.Warnf("room %q is declared more than once; the last declaration is used", room.Id)
			c.rooms = slices.DeleteFunc(c.rooms, func(i Room) bool { return i.Id == room.Id })
		}
		c.roomById[room.Id] = room
		c.rooms = append(c.rooms, room)
	}
	c.groups = lo.UniqBy(request.StudentGroups, func(group StudentGroup) string { return group.Id })
	if len(c.groups) != len(request.StudentGroups) {
		trail.Warnf("duplicate student group ids were ignored")
	}
	for _, group := range c.groups {
		c.groupById[group.Id] = group
	}

	//** Enrollment and eligible instructors
	for _, group := range c.groups {
		seen := make(map[string]bool)
		for _, courseId := range group.EnrolledCourses {
			course, ok := c.courseById[courseId]
			if !ok {
				trail.Infof("group %s enrolls in unknown course %q; skipped", group.Id, courseId)
				continue
			} else if seen[courseId] {
				continue
			}
			seen[courseId] = true
			c.enrolled[group.Id] = append(c.enrolled[group.Id], course)
			c.candidates[groupCourse{group.Id, course.Id}] = c.eligibleInstructors(group, course, trail)
		}

		pinnedCourses := lo.Keys(group.LabRoomPreferences)
		slices.Sort(pinnedCourses)
		for _, courseId := range pinnedCourses {
			roomId := group.LabRoomPreferences[courseId]
			if _, ok := c.roomById[roomId]; !ok && roomId != "" {
				trail.Warnf("group %s pins lab course %s to unknown room %q", group.Id, courseId, roomId)
			}
		}
	}

	return c
}

func (c *catalog) eligibleInstructors(group StudentGroup, course Course, trail *Trail) []string {
	if pinned, ok := group.InstructorPreferences[course.Id]; ok && pinned != "" {
		if _, known := c.instructorById[pinned]; !known {
			trail.Warnf("group %s pins course %s to unknown instructor %q", group.Id, course.Id, pinned)
			return []string{}
		}
		return []string{pinned}
	}

	return lo.Uniq(lo.Filter(course.QualifiedInstructors, func(id string, _ int) bool {
		if _, known := c.instructorById[id]; !known {
			trail.Warnf("course %s lists unknown instructor %q; ignored", course.Id, id)
			return false
		}
		return true
	}))
}

func (c *catalog) eligible(groupId, courseId string) []string {
	return c.candidates[groupCourse{groupId, courseId}]
}

func (c *catalog) slots() int {
	return c.timeslots.Len()
}

// availableCells counts the (day, slot) cells marked available.
func (c *catalog) availableCells(availability Availability) int {
	cells := 0
	for _, day := range c.days {
		for slot := range c.slots() {
			if availability.Available(day, slot) {
				cells++
			}
		}
	}
	return cells
}

func (c *catalog) requiredHours(group StudentGroup) int {
	return lo.SumBy(c.enrolled[group.Id], func(course Course) int { return course.Hours() })
}

func (c *catalog) labTiming(group StudentGroup, courseId string) LabTiming {
	return group.LabTimingPreferences[courseId]
}

// validLabStarts returns the slot indexes where a two-hour lab block of
// course may start for group, ignoring availability.
func (c *catalog) validLabStarts(group StudentGroup, course Course, earlyLabStart int) []int {
	timing := c.labTiming(group, course.Id)
	starts := []int{}
	for t := range c.slots() - 1 {
		slot := c.timeslots.Slots[t]
		if !c.timeslots.Contiguous(t) || !timing.AllowsStart(slot) {
			continue
		}
		if !timing.AllowsHour(slot) || !timing.AllowsHour(c.timeslots.Slots[t+1]) {
			continue
		}
		if c.settings.Disallow830Labs && slot.Start == earlyLabStart {
			continue
		}
		starts = append(starts, t)
	}
	return starts
}

func (c *catalog) group(id string) StudentGroup {
	return c.groupById[id]
}

//** Room classification

func labRoomMatches(labType, roomType string) bool {
	if labType == "" {
		labType = defaultLabType
	}
	roomType = strings.ToLower(roomType)
	if strings.EqualFold(labType, "Hardware Lab") {
		return strings.Contains(roomType, "hardware")
	}
	return strings.Contains(roomType, "computer") ||
		(strings.Contains(roomType, "lab") && !strings.Contains(roomType, "hardware"))
}

func isLabRoom(roomType string) bool {
	roomType = strings.ToLower(roomType)
	return strings.Contains(roomType, "lab") || strings.Contains(roomType, "computer")
}

func hasEquipment(room Room, required []string) bool {
	return lo.Every(room.Equipment, required)
}

func (c *catalog) hasRoom(id string) bool {
	_, ok := c.roomById[id]
	return id != "" && ok
}

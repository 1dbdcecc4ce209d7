package model

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Availability maps a day label to one flag per timeslot (0 = unavailable).
// Missing days and missing indexes count as available.
type Availability map[string][]int

func (a Availability) Available(day string, slot int) bool {
	slots, ok := a[day]
	if !ok || slot >= len(slots) {
		return true
	}
	return slots[slot] != 0
}

type Instructor struct {
	Id           string       `json:"id" validate:"required"`
	Name         string       `json:"name"`
	Availability Availability `json:"availability,omitempty"`
}

type Course struct {
	Id                   string   `json:"id" validate:"required"`
	Name                 string   `json:"name"`
	LectureHours         int      `json:"lectureHours" validate:"gte=0"`
	LabHours             int      `json:"labHours" validate:"gte=0"`
	LabType              string   `json:"labType,omitempty"`
	Equipment            []string `json:"equipment,omitempty"`
	QualifiedInstructors []string `json:"qualifiedInstructors"`
}

func (c Course) Hours() int {
	return c.LectureHours + c.LabHours
}

type Room struct {
	Id           string       `json:"id" validate:"required"`
	Name         string       `json:"name,omitempty"`
	Capacity     int          `json:"capacity" validate:"gte=0"`
	Type         string       `json:"type"`
	Equipment    []string     `json:"equipment,omitempty"`
	Availability Availability `json:"availability,omitempty"`
}

type StudentGroup struct {
	Id                    string               `json:"id" validate:"required"`
	Size                  int                  `json:"size" validate:"gte=0"`
	EnrolledCourses       []string             `json:"enrolledCourses"`
	Availability          Availability         `json:"availability,omitempty"`
	InstructorPreferences map[string]string    `json:"instructorPreferences,omitempty"`
	PreferredRoomId       string               `json:"preferredRoomId,omitempty"`
	LabRoomPreferences    map[string]string    `json:"labRoomPreferences,omitempty"`
	LabTimingPreferences  map[string]LabTiming `json:"labTimingPreferences,omitempty"`
}

type Settings struct {
	GapPriority             float64  `json:"gapPriority" validate:"gte=0"`
	FairWorkload            bool     `json:"fairWorkload"`
	PreferredMorningCourses []string `json:"preferredMorningCourses,omitempty"`
	Disallow830Labs         bool     `json:"disallow830Labs"`
}

// Request is a complete timetabling request. It is read-only once decoded.
type Request struct {
	Instructors   []Instructor   `json:"instructors" validate:"dive"`
	Courses       []Course       `json:"courses" validate:"dive"`
	Rooms         []Room         `json:"rooms" validate:"dive"`
	StudentGroups []StudentGroup `json:"student_groups" validate:"dive"`
	Days          []string       `json:"days" validate:"min=1,dive,required"`
	Timeslots     []string       `json:"timeslots" validate:"min=1,dive,required"`
	Settings      Settings       `json:"settings"`
}

func RequestFromJson(file string) (Request, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Request{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return Request{}, err
	}
	return RequestFromMap(inputJson)
}

// RequestFromMap decodes a generic JSON document. Numbers and booleans are
// accepted interchangeably in availability grids.
func RequestFromMap(inputJson map[string]any) (Request, error) {
	var request Request
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       labTimingHook,
		Result:           &request,
	})
	if err != nil {
		return Request{}, err
	}
	if err := decoder.Decode(inputJson); err != nil {
		return Request{}, fmt.Errorf("cannot decode request: %w", err)
	}
	return request, nil
}

func labTimingHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(LabTiming{}) || from.Kind() != reflect.String {
		return data, nil
	}
	return ParseLabTiming(data.(string))
}

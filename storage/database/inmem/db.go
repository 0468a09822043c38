// Package inmemdb provides map-backed repositories for handler and
// service tests. Semantics mirror the postgres repositories, including
// uniqueness and conflict checks, minus durability.
package inmemdb

import (
	"sync"

	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/assessment"
	"github.com/mwanzohq/mwanzo/core/attendance"
	"github.com/mwanzohq/mwanzo/core/audit"
	"github.com/mwanzohq/mwanzo/core/school"
	"github.com/mwanzohq/mwanzo/core/timetable"
)

type DB struct {
	sync.RWMutex
	seq int

	users       map[string]*account.User
	classes     map[int]*school.Class
	subjects    map[int]*school.Subject
	students    map[int]*school.Student
	teachers    map[int]*school.Teacher
	assignments map[int]*school.SubjectAssignment
	entries     map[int]*timetable.Entry
	exams       map[int]*assessment.Exam
	grades      map[int]*assessment.Grade
	records     map[int]*attendance.Record
	logs        map[int]*audit.Log
}

func Open() *DB {
	return &DB{
		users:       make(map[string]*account.User),
		classes:     make(map[int]*school.Class),
		subjects:    make(map[int]*school.Subject),
		students:    make(map[int]*school.Student),
		teachers:    make(map[int]*school.Teacher),
		assignments: make(map[int]*school.SubjectAssignment),
		entries:     make(map[int]*timetable.Entry),
		exams:       make(map[int]*assessment.Exam),
		grades:      make(map[int]*assessment.Grade),
		records:     make(map[int]*attendance.Record),
		logs:        make(map[int]*audit.Log),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int {
	db.seq++
	return db.seq
}

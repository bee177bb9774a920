// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"sync"

	"github.com/buddybow/backend/core/announce"
	"github.com/buddybow/backend/core/consult"
	"github.com/buddybow/backend/core/course"
	"github.com/buddybow/backend/core/diagnosis"
	"github.com/buddybow/backend/core/interview"
	"github.com/buddybow/backend/core/roadmap"
	"github.com/buddybow/backend/core/session"
	"github.com/buddybow/backend/core/upload"
	"github.com/buddybow/backend/core/user"
)

type (
	DB struct {
		mu sync.RWMutex

		users         map[string]*user.User
		courses       map[string]*course.Course
		chapters      map[string]*course.Chapter
		completions   map[string]*course.Completion
		sessions      map[string]*session.StudySession
		signups       map[string]*session.Signup
		announcements map[string]*announce.Announcement
		roadmaps      map[string]*roadmap.Roadmap
		milestones    map[string]*roadmap.Milestone
		interviews    map[string]*interview.Interview
		consultations map[string]*consult.Consultation
		files         map[string]*upload.UploadedFile
		diagRequests  map[string]*diagnosis.Request
		diagnoses     map[string]*diagnosis.Diagnosis
	}
)

func Open() (*DB, error) {
	return &DB{
		users:         make(map[string]*user.User),
		courses:       make(map[string]*course.Course),
		chapters:      make(map[string]*course.Chapter),
		completions:   make(map[string]*course.Completion),
		sessions:      make(map[string]*session.StudySession),
		signups:       make(map[string]*session.Signup),
		announcements: make(map[string]*announce.Announcement),
		roadmaps:      make(map[string]*roadmap.Roadmap),
		milestones:    make(map[string]*roadmap.Milestone),
		interviews:    make(map[string]*interview.Interview),
		consultations: make(map[string]*consult.Consultation),
		files:         make(map[string]*upload.UploadedFile),
		diagRequests:  make(map[string]*diagnosis.Request),
		diagnoses:     make(map[string]*diagnosis.Diagnosis),
	}, nil
}

package reconcile

import (
	"strings"

	"SchoolPortal/api/academics/models"
)

// IdentityMap resolves registration numbers to student ids. Keys are
// trimmed and uppercased so "a1" and " A1" match the same student.
type IdentityMap map[string]string

func NewIdentityMap(students []models.Student) IdentityMap {
	m := make(IdentityMap, len(students))
	for _, s := range students {
		reg := regKey(s.RegistrationNumber)
		if reg == "" || s.ID == "" {
			continue
		}
		m[reg] = s.ID
	}
	return m
}

func (m IdentityMap) Lookup(reg string) (string, bool) {
	key := regKey(reg)
	if key == "" {
		return "", false
	}
	id, ok := m[key]
	return id, ok
}

func regKey(reg string) string {
	return strings.ToUpper(strings.TrimSpace(reg))
}

// SubjectMap resolves sheet headers to subject ids. Every subject is keyed
// by its lowercased name and by the same name with whitespace removed.
type SubjectMap map[string]string

func NewSubjectMap(subjects []models.Subject) SubjectMap {
	m := make(SubjectMap, 2*len(subjects))
	for _, s := range subjects {
		if s.ID == "" {
			continue
		}
		key := subjectKey(s.Name)
		if key == "" {
			continue
		}
		m[key] = s.ID
		if compact := compactKey(key); compact != key {
			if _, taken := m[compact]; !taken {
				m[compact] = s.ID
			}
		}
	}
	return m
}

func (m SubjectMap) Lookup(header string) (string, bool) {
	key := subjectKey(header)
	if key == "" {
		return "", false
	}
	if id, ok := m[key]; ok {
		return id, true
	}
	id, ok := m[compactKey(key)]
	return id, ok
}

func subjectKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func compactKey(key string) string {
	return strings.Join(strings.Fields(key), "")
}

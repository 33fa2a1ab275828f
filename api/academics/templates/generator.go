// Package templates builds the xlsx workbooks operators fill in and upload
// back for grade and payment imports.
package templates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"SchoolPortal/api/academics/models"
	"SchoolPortal/api/academics/sheets"
	"SchoolPortal/internal/logger"
)

const (
	HeaderRegNumber   = "Reg Number"
	HeaderStudentName = "Student Name"
	HeaderClass       = "Class"
	HeaderMark        = "Mark"
	HeaderAmount      = "Amount"

	ScopeAllSubjects = "ALL_SUBJECTS"
	ScopeFees        = "FEES"
)

var (
	ErrNoSubjectsConfigured = errors.New("no subjects configured for this class or school")
	ErrRequestIncomplete    = errors.New("class, term and year are required")
)

// Roster is everything the generator reads. It is queried once per call.
type Roster interface {
	ListClassStudents(ctx context.Context, class string) ([]models.Student, error)
	ListClassSubjects(ctx context.Context, class string) ([]models.Subject, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
}

type Request struct {
	Class   string
	Subject string
	Term    string
	Year    int
}

type Template struct {
	FileName string
	Headers  []string
	Students int
	Content  []byte
}

type Generator struct {
	roster Roster
}

func NewGenerator(roster Roster) *Generator {
	return &Generator{roster: roster}
}

// GradeTemplate writes a grade entry workbook for req.Class. With
// req.Subject set the sheet has a single Mark column; otherwise it has one
// column per subject of the class, falling back to every known subject.
func (g *Generator) GradeTemplate(ctx context.Context, req Request) (*Template, error) {
	req = req.normalized()
	if err := req.validate(); err != nil {
		return nil, err
	}

	headers := []string{HeaderRegNumber, HeaderStudentName, HeaderClass}
	scope := req.Subject
	if req.Subject != "" {
		headers = append(headers, HeaderMark)
	} else {
		subjects, err := g.subjectsFor(ctx, req.Class)
		if err != nil {
			return nil, err
		}
		for _, s := range subjects {
			headers = append(headers, s.Name)
		}
		scope = ScopeAllSubjects
	}
	return g.build(ctx, req, scope, headers)
}

// PaymentTemplate writes a fee payment workbook with a single Amount column.
func (g *Generator) PaymentTemplate(ctx context.Context, req Request) (*Template, error) {
	req = req.normalized()
	if err := req.validate(); err != nil {
		return nil, err
	}
	headers := []string{HeaderRegNumber, HeaderStudentName, HeaderClass, HeaderAmount}
	return g.build(ctx, req, ScopeFees, headers)
}

func (g *Generator) build(ctx context.Context, req Request, scope string, headers []string) (*Template, error) {
	students, err := g.roster.ListClassStudents(ctx, req.Class)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", req.Class, err)
	}
	students = SortByName(students)

	rows := make([][]string, 0, len(students))
	for _, s := range students {
		class := s.ClassLabel
		if class == "" {
			class = req.Class
		}
		rows = append(rows, []string{s.RegistrationNumber, s.Name, class})
	}

	content, err := sheets.WriteWorkbook(req.Class+" "+req.Term, headers, rows)
	if err != nil {
		return nil, err
	}
	name := FileName(req.Class, scope, req.Term, req.Year)
	logger.Audit("[Templates] generated %s with %d students and %d columns", name, len(students), len(headers))
	return &Template{
		FileName: name,
		Headers:  headers,
		Students: len(students),
		Content:  content,
	}, nil
}

func (g *Generator) subjectsFor(ctx context.Context, class string) ([]models.Subject, error) {
	subjects, err := g.roster.ListClassSubjects(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load subjects for %s: %w", class, err)
	}
	if len(subjects) > 0 {
		return subjects, nil
	}
	subjects, err = g.roster.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	if len(subjects) == 0 {
		return nil, ErrNoSubjectsConfigured
	}
	logger.Audit("[Templates] class %s has no subjects assigned, using all %d subjects", class, len(subjects))
	return subjects, nil
}

// FileName follows {class}_{scope}_{term}_{year}_TEMPLATE.xlsx with spaces
// replaced by underscores.
func FileName(class, scope, term string, year int) string {
	name := strings.Join([]string{class, scope, term, strconv.Itoa(year), "TEMPLATE"}, "_") + ".xlsx"
	return strings.ReplaceAll(name, " ", "_")
}

// SortByName orders students by name, case-insensitively, keeping the input
// order for equal names. The input slice is not modified.
func SortByName(students []models.Student) []models.Student {
	out := make([]models.Student, len(students))
	copy(out, students)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (r Request) normalized() Request {
	r.Class = strings.TrimSpace(r.Class)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Term = strings.TrimSpace(r.Term)
	return r
}

func (r Request) validate() error {
	if r.Class == "" || r.Term == "" || r.Year <= 0 {
		return ErrRequestIncomplete
	}
	return nil
}

// Package registry holds the canonical department, program, fund, allocation
// and processed-file collections. The repository loads every collection into
// memory at start and writes changed collections back atomically, one file
// per collection.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/utc"

	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/save"
)

// Collection names a persisted registry collection.
type Collection string

// Persisted collections, in commit order.
const (
	CollectionDepartments Collection = "departments"
	CollectionPrograms    Collection = "programs"
	CollectionFunds       Collection = "funds"
	CollectionBudgets     Collection = "budgets"
	CollectionProcessed   Collection = "processed"
)

// Collections lists every persisted collection in commit order.
var Collections = []Collection{
	CollectionDepartments,
	CollectionPrograms,
	CollectionFunds,
	CollectionBudgets,
	CollectionProcessed,
}

// Repository is the in-memory registry arena plus its persistence state.
type Repository struct {
	dir    string
	format save.Format
	now    func() time.Time

	departments *Departments
	programs    *Programs
	funds       *Funds
	allocations *Allocations
	processed   *ProcessedFiles

	mu    sync.Mutex
	dirty map[Collection]bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithFormat sets the on-disk format of every collection.
func WithFormat(f save.Format) Option {
	return func(r *Repository) {
		r.format = f
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewMemory creates an empty repository with no backing directory. Commit on
// a memory repository only clears dirty flags.
func NewMemory(opts ...Option) *Repository {
	r := &Repository{
		format:      save.FormatYAML,
		now:         time.Now,
		departments: NewDepartments(),
		programs:    NewPrograms(),
		funds:       NewFunds(),
		allocations: NewAllocations(),
		processed:   NewProcessedFiles(),
		dirty:       make(map[Collection]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open loads every collection found in dir. Missing files are empty
// collections; unreadable or malformed files are fatal.
func Open(dir string, opts ...Option) (*Repository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &errors.ConfigError{Component: "registry", Message: "no registry directory configured"}
	}
	r := NewMemory(opts...)
	r.dir = dir
	if !r.format.IsValid() {
		return nil, &errors.ConfigError{Component: "registry", Message: fmt.Sprintf("unsupported format %s", r.format)}
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	logging.Debug().
		Str("dir", dir).
		Int("departments", r.departments.Len()).
		Int("programs", r.programs.Len()).
		Int("funds", r.funds.Len()).
		Int("allocations", r.allocations.Len()).
		Int("processed", r.processed.Len()).
		Msg("Registry loaded")
	return r, nil
}

// Dir returns the backing directory, or "" for a memory repository.
func (r *Repository) Dir() string { return r.dir }

// Departments returns the department collection.
func (r *Repository) Departments() *Departments { return r.departments }

// Programs returns the program description collection.
func (r *Repository) Programs() *Programs { return r.programs }

// Funds returns the fund collection.
func (r *Repository) Funds() *Funds { return r.funds }

// Allocations returns the budget allocation collection.
func (r *Repository) Allocations() *Allocations { return r.allocations }

// Processed returns the processed-file set.
func (r *Repository) Processed() *ProcessedFiles { return r.processed }

// Now returns the current time as a UTC timestamp.
func (r *Repository) Now() utc.Time {
	return utc.Time{Time: r.now().UTC()}
}

// CreateDepartment inserts a new department named name. The id is the slug of
// the name, suffixed when another department already owns it.
func (r *Repository) CreateDepartment(name, orgCode string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("department.name", name, "cannot be empty")
	}
	if orgCode != "" {
		if existing, ok := r.departments.ByOrgCode(orgCode); ok {
			return nil, &errors.ValidationError{
				Field:   "department.org_code",
				Value:   orgCode,
				Message: fmt.Sprintf("already assigned to %s", existing.ID),
			}
		}
	}

	base := Slug(name)
	if base == "" {
		return nil, errors.NewValidationError("department.name", name, "has no usable characters")
	}
	id := base
	for i := 2; r.departments.Exists(id); i++ {
		id = DepartmentID(fmt.Sprintf("%s_%d", base, i))
	}

	now := r.Now()
	dept := &Department{
		ID:            id,
		OrgCode:       orgCode,
		Name:          name,
		CanonicalName: name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.departments.put(id, dept)
	r.MarkDirty(CollectionDepartments)
	return dept, nil
}

// UpdateDepartment applies fn to the stored department and stamps UpdatedAt.
func (r *Repository) UpdateDepartment(id DepartmentID, fn func(*Department)) error {
	dept, ok := r.departments.Get(id)
	if !ok {
		return errors.NewNotFoundError("department", string(id))
	}
	fn(dept)
	dept.UpdatedAt = r.Now()
	r.MarkDirty(CollectionDepartments)
	return nil
}

// PutDepartment stores d as is. Used when loading external registries.
func (r *Repository) PutDepartment(d Department) error {
	if d.ID == "" {
		return errors.NewValidationError("department.id", d.ID, "cannot be empty")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.Now()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	r.departments.put(d.ID, &d)
	r.MarkDirty(CollectionDepartments)
	return nil
}

// PutProgram stores p, returning the previously stored value for its key.
func (r *Repository) PutProgram(p Program) (*Program, bool) {
	prev, ok := r.programs.put(p.Key(), &p)
	r.MarkDirty(CollectionPrograms)
	return prev, ok
}

// PutAllocation stores a, returning the previously stored value for its key.
func (r *Repository) PutAllocation(a Allocation) (*Allocation, bool) {
	a.UpdatedAt = r.Now()
	prev, ok := r.allocations.put(a.Key(), &a)
	r.MarkDirty(CollectionBudgets)
	return prev, ok
}

// PutFund stores f, returning the previously stored value for its code.
func (r *Repository) PutFund(f Fund) (*Fund, bool) {
	prev, ok := r.funds.put(f.FundCode, &f)
	r.MarkDirty(CollectionFunds)
	return prev, ok
}

// MarkProcessed records a completed source file.
func (r *Repository) MarkProcessed(pf ProcessedFile) {
	if pf.ProcessedAt.IsZero() {
		pf.ProcessedAt = r.Now()
	}
	r.processed.put(pf.Path, &pf)
	r.MarkDirty(CollectionProcessed)
}

// ClearProcessed forgets a processed file so it can be ingested again.
func (r *Repository) ClearProcessed(path string) bool {
	if !r.processed.remove(path) {
		return false
	}
	r.MarkDirty(CollectionProcessed)
	return true
}

// MarkDirty flags a collection for the next Commit.
func (r *Repository) MarkDirty(c Collection) {
	r.mu.Lock()
	r.dirty[c] = true
	r.mu.Unlock()
}

// Dirty returns the collections awaiting a write, in commit order.
func (r *Repository) Dirty() []Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Collection
	for _, c := range Collections {
		if r.dirty[c] {
			out = append(out, c)
		}
	}
	return out
}

// Commit writes every dirty collection. A collection that fails to write
// stays dirty so a later Commit retries it; the failures are joined.
func (r *Repository) Commit() error {
	var errs []error
	for _, c := range r.Dirty() {
		if r.dir != "" {
			if err := r.write(c); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		r.mu.Lock()
		delete(r.dirty, c)
		r.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Path returns the file backing collection c.
func (r *Repository) Path(c Collection) string {
	return filepath.Join(r.dir, string(c)+r.format.Extension())
}

func (r *Repository) write(c Collection) error {
	var v any
	switch c {
	case CollectionDepartments:
		v = r.departments.List()
	case CollectionPrograms:
		v = r.programs.List()
	case CollectionFunds:
		v = r.funds.List()
	case CollectionBudgets:
		v = r.allocations.List()
	case CollectionProcessed:
		v = r.processed.List()
	default:
		return errors.NewValidationError("collection", c, "unknown collection")
	}

	data, err := save.Marshal(v, r.format)
	if err != nil {
		return errors.WrapResource("persist", string(c), "", err)
	}
	return save.WriteFileAtomic(r.Path(c), data)
}

func (r *Repository) load() error {
	var departments []Department
	var programs []Program
	var funds []Fund
	var allocations []Allocation
	var processed []ProcessedFile

	targets := map[Collection]any{
		CollectionDepartments: &departments,
		CollectionPrograms:    &programs,
		CollectionFunds:       &funds,
		CollectionBudgets:     &allocations,
		CollectionProcessed:   &processed,
	}
	for _, c := range Collections {
		path := r.Path(c)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.WrapIO("read", path, err)
		}
		if err := save.Unmarshal(data, r.format, path, targets[c]); err != nil {
			return err
		}
	}

	for i := range departments {
		d := departments[i]
		r.departments.put(d.ID, &d)
	}
	for i := range programs {
		p := programs[i]
		r.programs.put(p.Key(), &p)
	}
	for i := range funds {
		f := funds[i]
		r.funds.put(f.FundCode, &f)
	}
	for i := range allocations {
		a := allocations[i]
		r.allocations.put(a.Key(), &a)
	}
	for i := range processed {
		p := processed[i]
		r.processed.put(p.Path, &p)
	}
	return nil
}

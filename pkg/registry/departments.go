package registry

import (
	"sort"
	"strings"
)

// Departments is a concurrent safe collection of canonical departments.
type Departments struct {
	store[DepartmentID, Department]
}

// NewDepartments creates an empty collection.
func NewDepartments() *Departments {
	return &Departments{store: newStore[DepartmentID, Department]()}
}

// Get returns a department by id and whether it exists.
func (d *Departments) Get(id DepartmentID) (*Department, bool) {
	return d.get(id)
}

// Exists checks if a department exists.
func (d *Departments) Exists(id DepartmentID) bool {
	_, ok := d.get(id)
	return ok
}

// Len returns the number of departments.
func (d *Departments) Len() int {
	return d.len()
}

// ByOrgCode returns the department carrying the given org code.
func (d *Departments) ByOrgCode(code string) (*Department, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	var found *Department
	d.forEach(func(_ DepartmentID, dept *Department) bool {
		if dept.OrgCode == code {
			found = dept
			return false
		}
		return true
	})
	return found, found != nil
}

// List returns deep copies of all departments sorted by id.
func (d *Departments) List() []Department {
	items := d.snapshot()
	out := make([]Department, 0, len(items))
	for _, dept := range items {
		out = append(out, DeepCopyDepartment(*dept))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// ForEach applies fn to each department until fn returns false.
func (d *Departments) ForEach(fn func(id DepartmentID, dept *Department) bool) {
	d.forEach(fn)
}

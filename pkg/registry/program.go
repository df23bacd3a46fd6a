package registry

import "sort"

// Program is a program description extracted from a budget document.
type Program struct {
	ProjectCode string `json:"project_code" yaml:"project_code"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	SourceFile  string `json:"source_file" yaml:"source_file"`
}

// ProgramKey identifies a program description. Names are not part of the key
// and may be updated in place.
type ProgramKey struct {
	ProjectCode string
	Description string
	SourceFile  string
}

// Key returns the unique key of p.
func (p Program) Key() ProgramKey {
	return ProgramKey{ProjectCode: p.ProjectCode, Description: p.Description, SourceFile: p.SourceFile}
}

// Programs is a concurrent safe collection of program descriptions.
type Programs struct {
	store[ProgramKey, Program]
}

// NewPrograms creates an empty collection.
func NewPrograms() *Programs {
	return &Programs{store: newStore[ProgramKey, Program]()}
}

// Get returns a program by key.
func (p *Programs) Get(key ProgramKey) (*Program, bool) {
	return p.get(key)
}

// Len returns the number of programs.
func (p *Programs) Len() int {
	return p.len()
}

// ByProjectCode returns every description recorded for a project code.
func (p *Programs) ByProjectCode(code string) []Program {
	var out []Program
	p.forEach(func(_ ProgramKey, prog *Program) bool {
		if prog.ProjectCode == code {
			out = append(out, *prog)
		}
		return true
	})
	sortPrograms(out)
	return out
}

// List returns copies of all programs sorted by project code and source file.
func (p *Programs) List() []Program {
	items := p.snapshot()
	out := make([]Program, 0, len(items))
	for _, prog := range items {
		out = append(out, *prog)
	}
	sortPrograms(out)
	return out
}

func sortPrograms(out []Program) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectCode != out[j].ProjectCode {
			return out[i].ProjectCode < out[j].ProjectCode
		}
		if out[i].SourceFile != out[j].SourceFile {
			return out[i].SourceFile < out[j].SourceFile
		}
		return out[i].Description < out[j].Description
	})
}

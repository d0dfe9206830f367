// Package directory holds the read-only employee master and department KPI
// definitions. Both are loaded once at startup and never mutated.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Employee struct {
	ID         string
	Name       string `json:"name"`
	Department string `json:"department"`
	Password   string `json:"password,omitempty"`
}

type Directory struct {
	employees map[string]Employee
	kpis      map[string][]string
}

// Load reads the employee master and KPI definition files. Missing KPI
// entries for a department are allowed; missing files are not.
func Load(employeesPath, kpiPath string) (*Directory, error) {
	employees, err := loadEmployees(employeesPath)
	if err != nil {
		return nil, fmt.Errorf("load employee master: %w", err)
	}
	kpis, err := loadKPIs(kpiPath)
	if err != nil {
		return nil, fmt.Errorf("load kpi definitions: %w", err)
	}
	return &Directory{employees: employees, kpis: kpis}, nil
}

func loadEmployees(path string) (map[string]Employee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]Employee{}
	if err := json.Unmarshal(stripBOM(data), &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for id, e := range raw {
		e.ID = id
		raw[id] = e
	}
	return raw, nil
}

func loadKPIs(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kpis := map[string][]string{}
	if err := json.Unmarshal(stripBOM(data), &kpis); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return kpis, nil
}

// The original master files were saved with a UTF-8 BOM (utf-8-sig).
func stripBOM(data []byte) []byte {
	return []byte(strings.TrimPrefix(string(data), "\uFEFF"))
}

// Lookup returns the employee record for an ID, if it exists.
func (d *Directory) Lookup(id string) (Employee, bool) {
	e, ok := d.employees[id]
	return e, ok
}

// KPIs returns the ordered KPI labels for a department. Departments without
// KPI definitions get an empty list.
func (d *Directory) KPIs(department string) []string {
	return d.kpis[department]
}

// Employees returns all employee records. Order is not defined.
func (d *Directory) Employees() []Employee {
	out := make([]Employee, 0, len(d.employees))
	for _, e := range d.employees {
		out = append(out, e)
	}
	return out
}

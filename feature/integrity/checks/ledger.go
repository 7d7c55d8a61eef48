package checks

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// Migrator is the subset of gorm.Migrator the schema check uses.
type Migrator interface {
	HasTable(dst any) bool
	HasColumn(dst any, field string) bool
}

// LedgerReport is the result of a ledger schema check.
type LedgerReport struct {
	Table          string   `json:"table,omitempty"`
	Status         string   `json:"status"` // "ok", "error", "disabled"
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}

// OK reports whether the ledger is usable or intentionally off.
func (r *LedgerReport) OK() bool {
	return r.Status != StatusError
}

// CheckLedger verifies that the table of model has every column the model
// declares. A nil db reports the ledger as disabled.
func CheckLedger(db *gorm.DB, model any) (*LedgerReport, error) {
	if db == nil {
		return &LedgerReport{Status: StatusDisabled, MissingColumns: []string{}, Errors: []string{}}, nil
	}
	return CheckSchema(db.Migrator(), model)
}

// CheckSchema compares the columns gorm derives from model with the ones m
// reports.
func CheckSchema(m Migrator, model any) (*LedgerReport, error) {
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}

	report := &LedgerReport{
		Table:          s.Table,
		Status:         StatusOK,
		MissingColumns: []string{},
		Errors:         []string{},
	}

	if !m.HasTable(model) {
		report.Status = StatusError
		report.Errors = append(report.Errors, fmt.Sprintf("table %s does not exist", s.Table))
		return report, nil
	}

	for _, column := range s.DBNames {
		if !m.HasColumn(model, column) {
			report.MissingColumns = append(report.MissingColumns, column)
		}
	}
	if len(report.MissingColumns) > 0 {
		report.Status = StatusError
	}
	return report, nil
}

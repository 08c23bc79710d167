package formfill

import "fmt"

// Thresholds above which a template is still accepted but flagged
const (
	MaxPagesWithoutWarning  = 20
	MaxFieldsWithoutWarning = 200
)

// ValidationReport is the pre-flight verdict on a template
type ValidationReport struct {
	IsValid    bool     `json:"isValid"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	PageCount  int      `json:"pageCount"`
	FieldCount int      `json:"fieldCount"`
}

// Validate runs the pre-flight checks. Encrypted templates and templates without
// fillable fields are invalid; very large ones only warn.
func Validate(engine Engine, data []byte) ValidationReport {
	report := ValidationReport{Errors: []string{}, Warnings: []string{}}

	info, err := engine.Inspect(data)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("cannot read PDF: %v", err))
		return report
	}
	return reportFor(info)
}

func reportFor(info Info) ValidationReport {
	report := ValidationReport{
		Errors:     []string{},
		Warnings:   []string{},
		PageCount:  info.PageCount,
		FieldCount: info.FillableCount(),
	}

	if info.Encrypted {
		report.Errors = append(report.Errors, "PDF is encrypted")
	}
	if report.FieldCount == 0 && !info.Encrypted {
		report.Errors = append(report.Errors, "PDF has no fillable form fields")
	}
	if info.PageCount > MaxPagesWithoutWarning {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("PDF has %d pages (more than %d); filling may be slow", info.PageCount, MaxPagesWithoutWarning))
	}
	if report.FieldCount > MaxFieldsWithoutWarning {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("PDF has %d form fields (more than %d)", report.FieldCount, MaxFieldsWithoutWarning))
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

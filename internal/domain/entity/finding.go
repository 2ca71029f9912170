package entity

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationFinding is one issue reported by the template analyzer.
type ValidationFinding struct {
	Severity Severity `json:"severity" bson:"severity"`
	Message  string   `json:"message" bson:"message"`
	Path     string   `json:"path,omitempty" bson:"path,omitempty"`
	Line     int      `json:"line,omitempty" bson:"line,omitempty"`
	Column   int      `json:"column,omitempty" bson:"column,omitempty"`
}

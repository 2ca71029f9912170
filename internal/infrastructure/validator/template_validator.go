package validator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

const TemplateFormatVersion = "2010-09-09"

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type AnalysisResult struct {
	Format   Format
	Passed   bool
	Findings []*entity.ValidationFinding
}

var SensitiveKeywords = []string{"password", "secret", "token", "accesskey", "secretkey", "apikey"}

var resourceTypePattern = regexp.MustCompile(`^[A-Za-z0-9]+::[A-Za-z0-9:]+$`)

// TemplateAnalyzer performs offline checks on CloudFormation templates.
type TemplateAnalyzer struct{}

var _ repository.TemplateValidator = (*TemplateAnalyzer)(nil)

func NewTemplateAnalyzer() *TemplateAnalyzer {
	return &TemplateAnalyzer{}
}

func (a *TemplateAnalyzer) Validate(template string) ([]*entity.ValidationFinding, error) {
	res, err := a.Analyze(template)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// Analyze parses the template and reports syntax and structure problems. Syntax
// problems are findings, not errors; an error is returned only for empty input.
func (a *TemplateAnalyzer) Analyze(template string) (*AnalysisResult, error) {
	if strings.TrimSpace(template) == "" {
		metrics.IncValidationRun("error")
		return nil, entity.ErrEmptyTemplate
	}

	result := &AnalysisResult{Format: DetectFormat(template), Passed: true}

	var root *yaml.Node
	var findings []*entity.ValidationFinding
	if result.Format == FormatJSON {
		root, findings = parseJSON(template)
	} else {
		root, findings = parseYAML(template)
	}
	result.Findings = append(result.Findings, findings...)

	if root != nil {
		result.Findings = append(result.Findings, analyzeTemplate(root)...)
	}

	for _, f := range result.Findings {
		if f.Severity == entity.SeverityError {
			result.Passed = false
			break
		}
	}

	if result.Passed {
		metrics.IncValidationRun("pass")
	} else {
		metrics.IncValidationRun("fail")
	}
	return result, nil
}

func DetectFormat(template string) Format {
	if strings.HasPrefix(strings.TrimSpace(template), "{") {
		return FormatJSON
	}
	return FormatYAML
}

// parseJSON uses the HCL JSON parser for positioned syntax diagnostics, then re-reads
// the document into a YAML node tree so both formats share one set of checks.
func parseJSON(template string) (*yaml.Node, []*entity.ValidationFinding) {
	parser := hclparse.NewParser()
	_, diags := parser.ParseJSON([]byte(template), "template.json")
	if diags.HasErrors() {
		return nil, diagnosticsToFindings(diags)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(template), &doc); err != nil {
		return nil, []*entity.ValidationFinding{{
			Severity: entity.SeverityError,
			Message:  fmt.Sprintf("invalid JSON: %s", err),
		}}
	}

	var root yaml.Node
	if err := root.Encode(doc); err != nil {
		return nil, []*entity.ValidationFinding{{
			Severity: entity.SeverityError,
			Message:  fmt.Sprintf("convert JSON template: %s", err),
		}}
	}
	return &root, nil
}

func parseYAML(template string) (*yaml.Node, []*entity.ValidationFinding) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(template), &doc); err != nil {
		return nil, []*entity.ValidationFinding{{
			Severity: entity.SeverityError,
			Message:  fmt.Sprintf("invalid YAML: %s", err),
		}}
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	return &doc, nil
}

func diagnosticsToFindings(diags hcl.Diagnostics) []*entity.ValidationFinding {
	var findings []*entity.ValidationFinding
	for _, diag := range diags {
		f := &entity.ValidationFinding{
			Severity: entity.SeverityWarning,
			Message:  strings.TrimSuffix(fmt.Sprintf("%s: %s", diag.Summary, diag.Detail), ": "),
		}
		if diag.Severity == hcl.DiagError {
			f.Severity = entity.SeverityError
		}
		if diag.Subject != nil {
			f.Line = diag.Subject.Start.Line
			f.Column = diag.Subject.Start.Column
		}
		findings = append(findings, f)
	}
	return findings
}

func analyzeTemplate(root *yaml.Node) []*entity.ValidationFinding {
	var findings []*entity.ValidationFinding

	if root.Kind != yaml.MappingNode {
		return append(findings, errorAt(root, "", "template must be a mapping of top-level sections"))
	}

	if v := lookup(root, "AWSTemplateFormatVersion"); v != nil {
		if v.Kind != yaml.ScalarNode || v.Value != TemplateFormatVersion {
			findings = append(findings, errorAt(v, "AWSTemplateFormatVersion",
				fmt.Sprintf("AWSTemplateFormatVersion must be %q", TemplateFormatVersion)))
		}
	}

	resources := lookup(root, "Resources")
	switch {
	case resources == nil:
		return append(findings, errorAt(root, "Resources", "template has no Resources section"))
	case resources.Kind != yaml.MappingNode:
		return append(findings, errorAt(resources, "Resources", "Resources must be a mapping"))
	case len(resources.Content) == 0:
		return append(findings, errorAt(resources, "Resources", "Resources section is empty"))
	}

	for i := 0; i+1 < len(resources.Content); i += 2 {
		name := resources.Content[i].Value
		findings = append(findings, analyzeResource(name, resources.Content[i+1])...)
	}
	return findings
}

func analyzeResource(name string, res *yaml.Node) []*entity.ValidationFinding {
	var findings []*entity.ValidationFinding
	path := "Resources." + name

	if res.Kind != yaml.MappingNode {
		return append(findings, errorAt(res, path, fmt.Sprintf("resource %s must be a mapping", name)))
	}

	typ := lookup(res, "Type")
	switch {
	case typ == nil || typ.Kind != yaml.ScalarNode || typ.Value == "":
		findings = append(findings, errorAt(res, path+".Type", fmt.Sprintf("resource %s has no Type", name)))
	case !resourceTypePattern.MatchString(typ.Value):
		findings = append(findings, warningAt(typ, path+".Type",
			fmt.Sprintf("resource %s has unexpected type %q", name, typ.Value)))
	}

	if props := lookup(res, "Properties"); props != nil {
		findings = append(findings, scanSensitive(path+".Properties", props)...)
	}
	return findings
}

// scanSensitive flags literal strings under sensitive-looking keys. Intrinsic
// functions (!Ref, {"Ref": ...}, dynamic references) are not literals.
func scanSensitive(path string, n *yaml.Node) []*entity.ValidationFinding {
	var findings []*entity.ValidationFinding
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			childPath := path + "." + key.Value
			if isSensitiveKey(key.Value) && isLiteral(val) {
				findings = append(findings, warningAt(val, childPath,
					fmt.Sprintf("potential hardcoded sensitive value in %s", childPath)))
				continue
			}
			findings = append(findings, scanSensitive(childPath, val)...)
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			findings = append(findings, scanSensitive(fmt.Sprintf("%s[%d]", path, i), item)...)
		}
	}
	return findings
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	for _, kw := range SensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

func isLiteral(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" || n.Value == "" {
		return false
	}
	return !strings.HasPrefix(n.Value, "{{resolve:")
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func errorAt(n *yaml.Node, path, msg string) *entity.ValidationFinding {
	return &entity.ValidationFinding{Severity: entity.SeverityError, Message: msg, Path: path, Line: n.Line, Column: n.Column}
}

func warningAt(n *yaml.Node, path, msg string) *entity.ValidationFinding {
	return &entity.ValidationFinding{Severity: entity.SeverityWarning, Message: msg, Path: path, Line: n.Line, Column: n.Column}
}

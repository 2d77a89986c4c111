package report

import (
	"strconv"
	"strings"

	"github.com/c360studio/contractspec/element"
)

// ModuleMap renders the navigation index for a report: classes, methods,
// and functions with file references and one-line descriptions. The text
// is returned to the caller; persisting it is not this package's concern.
//
// Entry format:
//
//	- @path#Lstart-end - Name - description
//
// Classes additionally carry the header end line between start and end.
func ModuleMap(r *Report) string {
	var classes, methods, functions []string
	seen := make(map[string]bool)

	for _, rec := range r.Records {
		if seen[rec.QualifiedPath] {
			continue
		}
		seen[rec.QualifiedPath] = true

		desc := rec.Description
		if desc == "" {
			desc = rec.Purpose
		}
		if desc == "" {
			desc = "No description available"
		}

		switch rec.Kind {
		case element.KindClass:
			classes = append(classes, entryLine(rec, desc))
		case element.KindMethod:
			methods = append(methods, entryLine(rec, desc))
		case element.KindFunction:
			functions = append(functions, entryLine(rec, desc))
		}
	}

	var sb strings.Builder
	sb.WriteString("MODULE_MAP:\n\n")
	writeGroup(&sb, "CLASSES", classes, "No classes found")
	sb.WriteString("\n")
	writeGroup(&sb, "METHODS", methods, "No methods found")
	sb.WriteString("\n")
	writeGroup(&sb, "FUNCTIONS", functions, "No functions found")
	return sb.String()
}

func entryLine(rec Record, desc string) string {
	var ref strings.Builder
	ref.WriteString("@")
	ref.WriteString(rec.Path)
	if rec.StartLine > 0 {
		ref.WriteString("#L")
		ref.WriteString(strconv.Itoa(rec.StartLine))
		ref.WriteString("-")
		ref.WriteString(strconv.Itoa(rec.EndLine))
	}
	return "- " + ref.String() + " - " + rec.Name + " - " + desc
}

func writeGroup(sb *strings.Builder, header string, entries []string, empty string) {
	sb.WriteString(header + ":\n")
	if len(entries) == 0 {
		sb.WriteString("- " + empty + "\n")
		return
	}
	for _, e := range entries {
		sb.WriteString(e + "\n")
	}
}

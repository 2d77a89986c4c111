package element

import (
	"time"

	"github.com/c360studio/semstreams/message"
)

// Vocabulary predicates for contract elements and analysis results.
// Three-part dotted notation: domain.category.property.
const (
	// Identity
	DocKind     = "doc.element.kind"     // module|class|method|function
	DocPath     = "doc.element.path"     // source file path
	DocLanguage = "doc.element.language" // source language

	// Structure
	DocContains  = "doc.structure.contains" // parent → child qualified path
	DocBelongsTo = "doc.structure.belongs"  // child → parent qualified path

	// Signature
	DocParameter = "doc.signature.parameter" // name:type entry
	DocAttribute = "doc.signature.attribute" // name:type entry
	DocReturns   = "doc.signature.returns"   // declared return descriptor

	// Documentation state
	DocHasText = "doc.contract.has_text" // whether doc text is attached

	// Location
	DocStartLine = "doc.metric.start_line"
	DocEndLine   = "doc.metric.end_line"

	// Standard metadata (Dublin Core aligned)
	DcTitle = "dc.terms.title"
)

// tripleSource identifies this module as the triple producer.
const tripleSource = "contractspec.analyzer"

// Triples converts the element to graph triples keyed by qualified path,
// for publication alongside analysis reports. Children are not included;
// callers walk the tree and convert each element.
func (el *Element) Triples() []message.Triple {
	now := time.Now()
	triples := make([]message.Triple, 0, 12)

	add := func(subject, predicate string, object any) {
		triples = append(triples, message.Triple{
			Subject:    subject,
			Predicate:  predicate,
			Object:     object,
			Source:     tripleSource,
			Timestamp:  now,
			Confidence: 1.0,
		})
	}

	add(el.QualifiedPath, DocKind, string(el.Kind))
	add(el.QualifiedPath, DcTitle, el.Name)

	if el.Path != "" {
		add(el.QualifiedPath, DocPath, el.Path)
	}
	if el.Language != "" {
		add(el.QualifiedPath, DocLanguage, el.Language)
	}

	for _, p := range el.Params {
		entry := p.Name
		if p.Type != "" {
			entry += ":" + p.Type
		}
		add(el.QualifiedPath, DocParameter, entry)
	}
	for _, a := range el.Attributes {
		entry := a.Name
		if a.Type != "" {
			entry += ":" + a.Type
		}
		add(el.QualifiedPath, DocAttribute, entry)
	}
	if el.ReturnType != "" {
		add(el.QualifiedPath, DocReturns, el.ReturnType)
	}

	add(el.QualifiedPath, DocHasText, el.DocText != "")

	if el.StartLine > 0 {
		add(el.QualifiedPath, DocStartLine, el.StartLine)
	}
	if el.EndLine > 0 {
		add(el.QualifiedPath, DocEndLine, el.EndLine)
	}

	for _, child := range el.Children {
		add(el.QualifiedPath, DocContains, child.QualifiedPath)
		add(child.QualifiedPath, DocBelongsTo, el.QualifiedPath)
	}

	return triples
}

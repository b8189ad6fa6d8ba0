package nl2cypher

import (
	"fmt"
	"strings"
)

// graphSchema is the static schema description embedded into every
// translation prompt. The gateway serves a fixed legal-cases graph, so the
// schema is compiled in rather than introspected per request.
const graphSchema = `Node labels:
  Case(title, number, status, filedDate)
  Court(name, jurisdiction)
  Judge(name)
  Lawyer(name, firm)
  Party(name, role)
Relationship types:
  (Case)-[:FILED_IN]->(Court)
  (Case)-[:PRESIDED_BY]->(Judge)
  (Party)-[:INVOLVED_IN]->(Case)
  (Lawyer)-[:REPRESENTS]->(Party)`

const translateSystemPrompt = "You convert natural language questions into a single read-only Cypher query " +
	"for a Neo4j database. Use only the labels and relationship types listed in the schema. " +
	"Return ONLY Cypher. No markdown, no explanation."

func buildTranslatePrompt(question string) string {
	return fmt.Sprintf(
		"Graph schema:\n%s\n\nQuestion:\n%s\n\nRules:\n- Read-only: MATCH/RETURN only, never CREATE, MERGE, SET or DELETE.\n- Output a single Cypher query only.",
		graphSchema,
		strings.TrimSpace(question),
	)
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag, from generated query text.
func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```cypher")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

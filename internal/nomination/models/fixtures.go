package models

import "encoding/json"

// Test fixtures shared by the wizard, service and handler tests. Kept here so
// every suite exercises the same known-valid payloads.

// ValidSections returns a fully filled, valid section set.
func ValidSections() Sections {
	return Sections{
		Nominee: &NomineeDetails{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Category: "science",
		},
		Nominator: &NominatorDetails{
			FullName:     "Charles Babbage",
			Email:        "charles@example.com",
			Relationship: "colleague",
		},
		Achievement: &Achievement{
			Title:   "Analytical Engine Notes",
			Summary: "Wrote the first published algorithm intended for execution by a machine.",
		},
		Statement: &SupportingStatement{
			Statement: "Her annotated translation of Menabrea's paper went far beyond the original, " +
				"describing how the engine could compute Bernoulli numbers step by step.",
		},
		Declaration: &Declaration{
			RefereeName:  "Mary Somerville",
			RefereeEmail: "mary@example.com",
			Agreed:       true,
		},
	}
}

// ValidSectionPayloads returns raw JSON payloads for sections A-E in form
// order, suitable for driving the wizard end to end.
func ValidSectionPayloads() map[SectionKey]json.RawMessage {
	sections := ValidSections()
	payloads := make(map[SectionKey]json.RawMessage, len(SectionOrder))
	for key, v := range map[SectionKey]any{
		SectionA: sections.Nominee,
		SectionB: sections.Nominator,
		SectionC: sections.Achievement,
		SectionD: sections.Statement,
		SectionE: sections.Declaration,
	} {
		raw, _ := json.Marshal(v)
		payloads[key] = raw
	}
	return payloads
}

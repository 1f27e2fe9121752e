package classify

// TopicInfo describes one canonical hot topic.
type TopicInfo struct {
	Label       string
	Description string
}

// CanonicalTopics is the closed set of topic slugs the classifier may emit.
// Model output naming any other slug is dropped during filtering.
var CanonicalTopics = map[string]TopicInfo{
	"property-tax-relief": {
		Label:       "Property Tax Relief",
		Description: "Rising assessments squeezing homeowners; proposals cap increases and expand exemptions.",
	},
	"water-rights": {
		Label:       "Water Rights & Drought Planning",
		Description: "Allocation rules and storage/efficiency funding to balance agricultural, energy, and municipal needs.",
	},
	"education-funding": {
		Label:       "Education Funding & Local Control",
		Description: "Adjusting school funding and curriculum oversight; impacts class sizes and local boards.",
	},
	"energy-permitting": {
		Label:       "Energy Permitting & Grid Reliability",
		Description: "Streamlining permits for transmission or generation with reclamation standards.",
	},
	"public-safety-fentanyl": {
		Label:       "Public Safety & Fentanyl Response",
		Description: "Penalties, interdiction funding, and treatment resources targeting opioid trafficking.",
	},
	"housing-land-use": {
		Label:       "Housing & Land Use",
		Description: "Zoning reforms, infrastructure grants, and incentives for workforce housing near jobs.",
	},
}

// TopicLabel returns the display label for a canonical slug, or the slug
// itself if it is not canonical.
func TopicLabel(slug string) string {
	if info, ok := CanonicalTopics[slug]; ok {
		return info.Label
	}
	return slug
}

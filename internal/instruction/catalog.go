package instruction

// Topics is the fixed catalog of report sections, in the order the report
// presents them.
var Topics = []string{
	"Trafik fra websitets organiske søgeord",
	"Søgeord der genererer trafik",
	"Fokus på trafikskabende organiske søgeord",
	"Organiske søgeord med uforløst potentiale",
	"Hvor vinder jeres konkurrenter?",
	"Pagetitles",
	"Antal refererende domæner til websitet",
	"EEAT",
	"Teknisk sundhedstjek (teknisk SEO)",
	"Bedre indhold",
	"Fokus",
}

// IsTopic reports whether name is one of the catalog topics.
func IsTopic(name string) bool {
	for _, t := range Topics {
		if t == name {
			return true
		}
	}
	return false
}

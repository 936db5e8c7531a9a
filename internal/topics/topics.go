package topics

import "math/rand"

// Catalogue is the default set of discussion topics offered to a session
// that does not bring its own.
var Catalogue = []string{
	"Impact of Artificial Intelligence on Job Markets",
	"Cryptocurrencies: Future of Finance or Bubble?",
	"Role of Social Media in Shaping Public Opinion",
	"The Rise of Electric Vehicles: Opportunities and Challenges",
	"Sustainability in Fashion: Necessity or Trend?",
	"The Influence of ChatGPT on Education and Learning",
	"Work from Home vs. Office: The Future of Work",
	"Data Privacy in the Age of Surveillance Capitalism",
	"Climate Change and Its Impact on Global Economies",
	"Space Exploration: Should We Prioritize Mars Colonization?",
	"Gaming and Mental Health: Boon or Bane?",
	"India's Role in Shaping the Global Economy in 2025",
}

// Random picks a topic from the catalogue.
func Random() string {
	return Catalogue[rand.Intn(len(Catalogue))]
}

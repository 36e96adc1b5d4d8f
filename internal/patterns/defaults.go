package patterns

import "github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"

// defaults is the built-in vocabulary, tuned for hospitality and travel
// channels. It is read-only; admin and learned phrases live in the database.
var defaults = map[model.Language]map[model.Category][]string{
	model.LanguageFR: {
		model.CategoryHero: {
			"nouveau", "nouvelle", "nouveauté", "lancement", "première",
			"avant-première", "exclusif", "exclusivité", "sortie", "annonce",
			"révélation", "découverte", "inédit", "breaking", "news",
			"événement", "festival", "concert", "spectacle", "ouverture",
			"grande ouverture", "inauguration", "célébration", "fête", "anniversaire",
			"bande annonce", "teaser", "officiel", "campagne", "enfin disponible",
			"dévoilement", "édition limitée",
		},
		model.CategoryHub: {
			"visite", "découvrir", "découvrez", "explorer", "présentation",
			"tour", "destination", "voyage", "séjour", "vacances",
			"nature", "parc", "center parcs", "village", "cottage",
			"hébergement", "activité", "activités", "loisirs", "détente",
			"bien-être", "spa", "restaurant", "gastronomie", "cuisine",
			"aqua mundo", "épisode", "série", "vlog", "en famille",
			"week-end", "immersion", "balade", "dans les coulisses", "reportage",
		},
		model.CategoryHelp: {
			"comment", "tuto", "tutoriel", "guide", "conseil",
			"conseils", "astuce", "astuces", "aide", "explication",
			"mode d'emploi", "étape", "procédure", "réserver", "réservation",
			"booking", "planifier", "organiser", "préparer", "checklist",
			"tips", "faq", "questions", "problème", "solution",
			"dépannage", "assistance", "comment faire", "pas à pas", "tout savoir",
			"bien choisir", "que faire", "quoi emporter", "infos pratiques",
		},
	},
	model.LanguageEN: {
		model.CategoryHero: {
			"new", "launch", "first", "exclusive", "release",
			"announcement", "reveal", "discovery", "unprecedented", "breaking",
			"news", "event", "festival", "concert", "show",
			"opening", "grand opening", "inauguration", "celebration", "party",
			"anniversary", "premiere", "trailer", "teaser", "official",
			"campaign", "coming soon", "now open", "brand new", "limited edition",
			"introducing", "world premiere", "big news",
		},
		model.CategoryHub: {
			"visit", "discover", "explore", "presentation", "tour",
			"destination", "travel", "stay", "vacation", "holiday",
			"nature", "park", "center parcs", "village", "cottage",
			"accommodation", "activity", "activities", "leisure", "relaxation",
			"wellness", "spa", "restaurant", "gastronomy", "cuisine",
			"aqua mundo", "episode", "series", "vlog", "weekend",
			"behind the scenes", "day in the life", "experience", "getaway", "adventure",
		},
		model.CategoryHelp: {
			"how", "how to", "tutorial", "guide", "advice",
			"tip", "help", "explanation", "manual", "step",
			"procedure", "book", "booking", "plan", "organize",
			"prepare", "checklist", "tips", "faq", "questions",
			"problem", "solution", "troubleshooting", "assistance", "step by step",
			"what to pack", "things to know", "explained", "everything you need to know", "beginner",
			"instructions", "q&a",
		},
	},
	model.LanguageDE: {
		model.CategoryHero: {
			"neu", "neue", "neuer", "start", "erste",
			"exklusiv", "veröffentlichung", "ankündigung", "enthüllung", "entdeckung",
			"einmalig", "breaking", "news", "ereignis", "festival",
			"konzert", "show", "eröffnung", "große eröffnung", "einweihung",
			"feier", "jahrestag", "premiere", "trailer", "teaser",
			"offiziell", "kampagne", "jetzt neu", "limitiert", "sonderedition",
		},
		model.CategoryHub: {
			"besuch", "entdecken", "entdeckt", "erkunden", "präsentation",
			"tour", "rundgang", "destination", "reise", "aufenthalt",
			"urlaub", "natur", "park", "center parcs", "dorf",
			"ferienpark", "cottage", "ferienhaus", "unterkunft", "aktivität",
			"aktivitäten", "freizeit", "entspannung", "wellness", "spa",
			"restaurant", "gastronomie", "küche", "aqua mundo", "folge",
			"serie", "vlog", "wochenende", "hinter den kulissen", "erlebnis",
			"abenteuer",
		},
		model.CategoryHelp: {
			"wie", "tutorial", "anleitung", "ratschlag", "tipp",
			"tipps", "hilfe", "erklärung", "handbuch", "schritt",
			"schritt für schritt", "verfahren", "buchen", "buchung", "planen",
			"organisieren", "vorbereiten", "checkliste", "faq", "fragen",
			"problem", "lösung", "fehlerbehebung", "unterstützung", "so geht's",
			"wie funktioniert", "was mitnehmen", "ratgeber", "erklärt", "gut zu wissen",
		},
	},
	model.LanguageNL: {
		model.CategoryHero: {
			"nieuw", "nieuwe", "lancering", "eerste", "exclusief",
			"release", "aankondiging", "onthulling", "ontdekking", "uniek",
			"breaking", "nieuws", "evenement", "festival", "concert",
			"show", "opening", "feestelijke opening", "inwijding", "viering",
			"verjaardag", "première", "trailer", "teaser", "officieel",
			"campagne", "binnenkort", "nu open", "gloednieuw", "limited edition",
		},
		model.CategoryHub: {
			"bezoek", "ontdekken", "ontdek", "verkennen", "presentatie",
			"tour", "rondleiding", "bestemming", "reis", "verblijf",
			"vakantie", "natuur", "park", "center parcs", "dorp",
			"vakantiepark", "cottage", "vakantiehuis", "accommodatie", "activiteit",
			"activiteiten", "vrije tijd", "ontspanning", "wellness", "spa",
			"restaurant", "gastronomie", "keuken", "aqua mundo", "aflevering",
			"serie", "vlog", "weekend", "achter de schermen", "beleving",
			"avontuur",
		},
		model.CategoryHelp: {
			"hoe", "tutorial", "gids", "advies", "tip",
			"tips", "hulp", "uitleg", "handleiding", "stap",
			"stap voor stap", "procedure", "boeken", "boeking", "plannen",
			"organiseren", "voorbereiden", "checklist", "faq", "vragen",
			"probleem", "oplossing", "probleemoplossing", "ondersteuning", "hoe werkt",
			"wat meenemen", "zo doe je", "veelgestelde vragen", "goed om te weten", "handig",
		},
	},
}

// Defaults returns the built-in patterns for lang with their intrinsic
// weight (word count). Unknown languages get the French vocabulary.
func Defaults(lang model.Language) map[model.Category][]Weighted {
	vocab, ok := defaults[lang]
	if !ok {
		vocab = defaults[model.LanguageFR]
	}
	out := make(map[model.Category][]Weighted, len(vocab))
	for cat, phrases := range vocab {
		ws := make([]Weighted, 0, len(phrases))
		for _, p := range phrases {
			ws = append(ws, Weighted{Text: p, Weight: float64(model.WordCount(p)), Source: model.PatternDefault})
		}
		out[cat] = ws
	}
	return out
}

// DefaultPatterns lists the built-in vocabulary of lang as pattern rows.
func DefaultPatterns(lang model.Language) []model.Pattern {
	var out []model.Pattern
	for _, cat := range model.Categories {
		for _, w := range Defaults(lang)[cat] {
			out = append(out, model.Pattern{
				Text:     w.Text,
				Category: cat,
				Language: lang,
				Source:   model.PatternDefault,
				Weight:   w.Weight,
			})
		}
	}
	return out
}

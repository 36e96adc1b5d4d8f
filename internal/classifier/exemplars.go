package classifier

import "github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"

// builtinExemplars seed every prototype before any human feedback exists.
var builtinExemplars = map[model.Category]map[model.Language][]string{
	model.CategoryHero: {
		model.LanguageFR: {
			"Nouvelle collection exclusive lancée en avant-première",
			"Événement spécial et lancement de produit révolutionnaire",
			"Actualité importante et annonce majeure",
			"Première mondiale et révélation exclusive",
			"Campagne marketing de grande envergure",
			"Contenu viral et buzz médiatique",
			"Innovation révolutionnaire et technologie de pointe",
		},
		model.LanguageEN: {
			"Exclusive new resort revealed in a world premiere",
			"Big announcement: grand opening of our new park",
			"Official campaign film for the summer season",
		},
		model.LanguageDE: {
			"Große Eröffnung unseres neuen Ferienparks",
		},
		model.LanguageNL: {
			"Exclusieve onthulling van ons nieuwe vakantiepark",
		},
	},
	model.CategoryHub: {
		model.LanguageFR: {
			"Série régulière de voyage et découverte de destinations",
			"Contenu hebdomadaire sur les expériences client",
			"Programme récurrent de présentation des services",
			"Collection de témoignages et retours d'expérience",
			"Série documentaire sur les coulisses",
			"Contenu éducatif et informatif régulier",
			"Présentation des équipes et des métiers",
		},
		model.LanguageEN: {
			"Weekly travel series exploring our parks and villages",
			"Behind the scenes with the people who run the resort",
			"Guest stories and holiday experiences episode",
		},
		model.LanguageDE: {
			"Wöchentliche Reiseserie über unsere Ferienparks",
		},
		model.LanguageNL: {
			"Wekelijkse serie over onze vakantieparken en dorpen",
		},
	},
	model.CategoryHelp: {
		model.LanguageFR: {
			"Comment résoudre un problème technique",
			"Guide étape par étape pour utiliser un service",
			"Tutoriel détaillé et mode d'emploi",
			"Réponses aux questions fréquentes",
			"Aide pour configurer et paramétrer",
			"Support technique et dépannage",
			"Instructions détaillées et marche à suivre",
		},
		model.LanguageEN: {
			"How to book your cottage step by step",
			"Frequently asked questions about your stay",
			"Tips and advice to prepare your holiday",
		},
		model.LanguageDE: {
			"Wie buche ich mein Ferienhaus: Schritt für Schritt Anleitung",
		},
		model.LanguageNL: {
			"Hoe boek ik mijn cottage: uitleg stap voor stap",
		},
	},
}

func defaultExemplars() []exemplar {
	var out []exemplar
	for _, cat := range model.Categories {
		for _, lang := range model.Languages {
			for _, text := range builtinExemplars[cat][lang] {
				out = append(out, exemplar{text: text, category: cat, language: lang})
			}
		}
	}
	return out
}

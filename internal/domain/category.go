package domain

import "strings"

// Category is a named keyword set used for tag inference, health scoring and filtering.
type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Categories is the single keyword table. Keyword sets are the union of every
// variant the dashboard used; declaration order is the tag order.
var Categories = []Category{
	{
		Name: "Cleanliness",
		Keywords: []string{
			"clean", "dirt", "hygiene", "dust", "mold", "tidy", "mess", "stain", "smell", "hair", "cockroach", "bug", "insect", "rat", "mouse", "mice",
			"propre", "sale", "poussière", "moisissure", "tache", "odeur", "poil", "insecte", "souris", "ménage", "nettoyage",
		},
	},
	{
		Name: "Accuracy",
		Keywords: []string{
			"accuracy", "description", "photo", "misleading", "listing", "picture", "different", "fake", "lie",
			"précision", "trompeur", "annonce", "image", "différent", "faux", "mensonge",
		},
	},
	{
		Name: "Check-in",
		Keywords: []string{
			"check-in", "check in", "key", "access", "arrival", "lockbox", "code", "enter", "door", "lock",
			"arrivée", "clé", "accès", "boîte à clé", "entrer", "porte", "serrure",
		},
	},
	{
		Name: "Communication",
		Keywords: []string{
			"communication", "respond", "reply", "host", "manager", "message", "text", "call", "phone", "answer",
			"réponse", "répondre", "hôte", "gérant", "appel", "téléphone", "contact",
		},
	},
	{
		Name: "Location",
		Keywords: []string{
			"location", "area", "noise", "safe", "neighborhood", "street", "distance", "view", "loud", "party", "neighbor",
			"emplacement", "quartier", "bruit", "sûr", "rue", "vue", "bruyant", "fête", "voisin",
		},
	},
	{
		Name: "Value",
		Keywords: []string{
			"value", "price", "expensive", "worth", "cost", "cheap", "overpriced",
			"valeur", "prix", "cher", "coût", "dispendieux", "qualité-prix",
		},
	},
	{
		Name: "Comfort",
		Keywords: []string{
			"bed", "mattress", "sleep", "pillow", "comfort", "ac", "heat", "cold", "temperature",
			"lit", "matelas", "dormir", "confort", "chaud", "froid", "climatisation",
		},
	},
	{
		Name: "Facilities",
		Keywords: []string{
			"kitchen", "fridge", "oven", "microwave", "bath", "shower", "water", "toilet", "wifi", "internet", "pool", "spa",
			"cuisine", "four", "bain", "douche", "toilette", "piscine",
		},
	},
}

// GeneralComplaint tags negative reviews that hit no category.
const GeneralComplaint = "General Complaint"

func CategoryByName(name string) (Category, bool) {
	for _, c := range Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// IsCategoryTag reports whether tag is a category name or the general
// complaint tag, ignoring case.
func IsCategoryTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if strings.EqualFold(tag, GeneralComplaint) {
		return true
	}
	for _, c := range Categories {
		if strings.EqualFold(tag, c.Name) {
			return true
		}
	}
	return false
}

func CategoryNames() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = c.Name
	}
	return out
}

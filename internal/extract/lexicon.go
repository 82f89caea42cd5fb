package extract

var allergenKeywords = []string{
	"nickel", "potassium dichromate", "chromate", "paraphenylenediamine", "ppd", "fragrance",
	"neomycin", "colophony", "methylisothiazolinone", "mci/mi", "thiuram", "mercaptobenzothiazole",
	"rubber", "latex", "parthenium", "cobalt", "formaldehyde", "cement",
	"garlic", "seafood", "milk", "dairy", "egg", "peanut", "tree nut", "wheat", "soy", "sesame",
}

var foodKeywords = []string{
	"seafood", "fish", "shellfish", "dairy", "milk", "egg", "peanut", "nuts", "spice", "chili",
	"mustard", "sesame", "curry", "yogurt", "curd",
}

var regionKeywords = []string{
	"India", "Delhi", "Kashmir", "Kerala", "Tamil Nadu", "Andhra", "Bengal", "Maharashtra",
	"Rajasthan", "Karnataka", "Punjab", "Gujarat",
}

var conditionKeywords = []string{
	"atopic dermatitis", "contact dermatitis", "urticaria", "eczema", "allergic contact dermatitis",
	"food allergy", "drug reaction", "fixed drug eruption",
}

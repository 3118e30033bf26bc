package models

// KenyanCounties is the fixed administrative list counties are drawn from.
var KenyanCounties = []string{
	"Baringo", "Bomet", "Bungoma", "Busia", "Elgeyo-Marakwet", "Embu",
	"Garissa", "Homa Bay", "Isiolo", "Kajiado", "Kakamega", "Kericho",
	"Kiambu", "Kilifi", "Kirinyaga", "Kisii", "Kisumu", "Kitui",
	"Kwale", "Laikipia", "Lamu", "Machakos", "Makueni", "Mandera",
	"Marsabit", "Meru", "Migori", "Mombasa", "Murang'a", "Nairobi",
	"Nakuru", "Nandi", "Narok", "Nyamira", "Nyandarua", "Nyeri",
	"Samburu", "Siaya", "Taita-Taveta", "Tana River", "Tharaka-Nithi",
	"Trans Nzoia", "Turkana", "Uasin Gishu", "Vihiga", "Wajir", "West Pokot",
}

// KenyanCrops lists the crops commonly grown across the counties.
var KenyanCrops = []string{
	"Maize", "Beans", "Tea", "Coffee", "Wheat", "Rice", "Sorghum",
	"Millet", "Sweet Potatoes", "Irish Potatoes", "Cassava", "Bananas",
	"Tomatoes", "Onions", "Cabbages", "Kales", "Carrots", "Mangoes",
	"Avocados", "Oranges", "Pineapples", "Passion Fruits", "Sugarcane",
	"Sunflowers",
}

// IsKnownCounty reports whether the county appears in the reference list.
func IsKnownCounty(county string) bool {
	for _, c := range KenyanCounties {
		if c == county {
			return true
		}
	}
	return false
}

package insights

import (
	"agro-platform/internal/models"
)

// smallFarmAcres separates intensive smallholder advice from
// mechanization advice.
const smallFarmAcres = 5

// noviceExperienceYears is the cutoff below which learning-oriented tips
// apply.
const noviceExperienceYears = 5

// maxTips caps the tip list for any profile.
const maxTips = 5

var smallFarmTips = []string{
	"Consider intensive farming methods to maximize small farm productivity",
	"Explore high-value crops like vegetables and herbs for better returns",
	"Implement crop rotation to maintain soil fertility",
}

var largeFarmTips = []string{
	"Consider mechanization to improve efficiency on larger farms",
	"Diversify crops to reduce risk and increase income streams",
	"Explore contract farming opportunities with agribusiness companies",
}

var noviceTips = []string{
	"Join local farmer groups to learn from experienced farmers",
	"Attend agricultural extension services and training programs",
	"Start with proven crops before experimenting with new varieties",
}

// countyTips is a fixed lookup of county-specific advice. Static
// configuration, never mutated at runtime.
var countyTips = map[string]string{
	"Nakuru":   "Consider dairy farming alongside crop production in this favorable climate",
	"Kiambu":   "Coffee and tea are well-suited for this highland region",
	"Meru":     "Miraa and coffee are traditional crops with good market potential",
	"Machakos": "Drought-resistant crops like sorghum and millet work well here",
}

// productivityTips derives advice from farm size, experience and county in
// that fixed order, capped at five tips.
func productivityTips(profile models.FarmerProfile) []string {
	var tips []string

	if profile.FarmSizeAcres > 0 && profile.FarmSizeAcres < smallFarmAcres {
		tips = append(tips, smallFarmTips...)
	} else if profile.FarmSizeAcres >= smallFarmAcres {
		tips = append(tips, largeFarmTips...)
	}

	if profile.ExperienceYears > 0 && profile.ExperienceYears < noviceExperienceYears {
		tips = append(tips, noviceTips...)
	}

	if tip, ok := countyTips[profile.County]; ok {
		tips = append(tips, tip)
	}

	if len(tips) > maxTips {
		tips = tips[:maxTips]
	}
	return tips
}

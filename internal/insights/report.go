package insights

import (
	"fmt"
	"strings"

	"agro-platform/internal/models"
)

// ReportTypeComprehensive labels the full analysis report.
const ReportTypeComprehensive = "comprehensive_analysis"

// AssembleReport combines a farmer profile and a computed insight into a
// structured report: profile header, numbered recommendations, numbered
// tips, in that fixed order. Pure function; persisting the result is the
// caller's concern.
func AssembleReport(profile models.FarmerProfile, insight models.Insight) models.Report {
	var b strings.Builder

	fmt.Fprintf(&b, "Agricultural Analysis Report for %s\n\n", profile.Name)
	b.WriteString("Farm Profile:\n")
	fmt.Fprintf(&b, "- Location: %s County\n", profile.County)
	fmt.Fprintf(&b, "- Farm Size: %.1f acres\n", profile.FarmSizeAcres)
	fmt.Fprintf(&b, "- Primary Crops: %s\n", strings.Join(profile.PrimaryCrops, ", "))
	fmt.Fprintf(&b, "- Farming Experience: %d years\n", profile.ExperienceYears)

	b.WriteString("\nCrop Recommendations:\n")
	for i, rec := range insight.CropRecommendations {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, rec.Crop, rec.Reason)
	}

	b.WriteString("\nProductivity Tips:\n")
	for i, tip := range insight.ProductivityTips {
		fmt.Fprintf(&b, "%d. %s\n", i+1, tip)
	}

	return models.Report{
		Title:    fmt.Sprintf("Agricultural Analysis Report - %s County", profile.County),
		Type:     ReportTypeComprehensive,
		Content:  b.String(),
		Insights: insight,
	}
}

// BuildAdvisorContext packages the farmer profile for the external
// AI-advice collaborator. Prompt construction happens outside this core.
func BuildAdvisorContext(profile models.FarmerProfile) models.AdvisorContext {
	return models.AdvisorContext{
		Name:       profile.Name,
		County:     profile.County,
		FarmSize:   profile.FarmSizeAcres,
		Crops:      profile.PrimaryCrops,
		Experience: profile.ExperienceYears,
	}
}

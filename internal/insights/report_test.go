package insights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-platform/internal/models"
)

func TestAssembleReport(t *testing.T) {
	t.Parallel()

	profile := models.FarmerProfile{
		Name:            "Wanjiku",
		County:          "Nakuru",
		FarmSizeAcres:   3.5,
		PrimaryCrops:    []string{"Maize", "Beans"},
		ExperienceYears: 8,
	}
	insight := models.Insight{
		CropRecommendations: []models.CropRecommendation{
			{Crop: "Maize", Reason: "High average performance in Nakuru county"},
			{Crop: "Beans", Reason: "High average performance in Nakuru county"},
		},
		ProductivityTips: []string{"Rotate crops", "Test your soil"},
	}

	report := AssembleReport(profile, insight)

	assert.Equal(t, "Agricultural Analysis Report - Nakuru County", report.Title)
	assert.Equal(t, ReportTypeComprehensive, report.Type)
	assert.Equal(t, insight, report.Insights)

	content := report.Content
	assert.Contains(t, content, "Wanjiku")
	assert.Contains(t, content, "- Location: Nakuru County")
	assert.Contains(t, content, "- Farm Size: 3.5 acres")
	assert.Contains(t, content, "- Primary Crops: Maize, Beans")
	assert.Contains(t, content, "- Farming Experience: 8 years")
	assert.Contains(t, content, "1. Maize - High average performance in Nakuru county")
	assert.Contains(t, content, "2. Beans - High average performance in Nakuru county")
	assert.Contains(t, content, "1. Rotate crops")
	assert.Contains(t, content, "2. Test your soil")

	// Sections appear in a fixed order.
	profileIdx := strings.Index(content, "Farm Profile:")
	recsIdx := strings.Index(content, "Crop Recommendations:")
	tipsIdx := strings.Index(content, "Productivity Tips:")
	require.True(t, profileIdx >= 0 && recsIdx >= 0 && tipsIdx >= 0)
	assert.Less(t, profileIdx, recsIdx)
	assert.Less(t, recsIdx, tipsIdx)
}

func TestBuildAdvisorContext(t *testing.T) {
	t.Parallel()

	profile := models.FarmerProfile{
		Name:            "Otieno",
		County:          "Kisumu",
		FarmSizeAcres:   12,
		PrimaryCrops:    []string{"Rice"},
		ExperienceYears: 3,
	}

	ctx := BuildAdvisorContext(profile)

	assert.Equal(t, "Otieno", ctx.Name)
	assert.Equal(t, "Kisumu", ctx.County)
	assert.Equal(t, 12.0, ctx.FarmSize)
	assert.Equal(t, []string{"Rice"}, ctx.Crops)
	assert.Equal(t, 3, ctx.Experience)
}

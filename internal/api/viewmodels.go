package api

import (
	"time"

	"github.com/solarcross/solarcross/internal/models"
	"github.com/solarcross/solarcross/internal/pipeline"
	"github.com/solarcross/solarcross/internal/solar"
	"github.com/solarcross/solarcross/internal/stats"
)

// OverviewData drives the overview page: one card per site plus the headline
// cross-site verdicts.
type OverviewData struct {
	GeneratedAt time.Time
	HasSummary  bool
	Alpha       float64
	Sites       []SiteCard
	Headlines   []Headline
}

// SiteCard is one site's at-a-glance figures.
type SiteCard struct {
	ID              string
	Name            string
	Country         string
	Rows            int
	MeanGHI         float64
	MeanDailyEnergy float64
	DaylightPercent float64
	ClearPercent    float64
	Normal          bool
	HasNormality    bool
}

// Headline is one cross-site test verdict for the overview.
type Headline struct {
	Column      string
	Test        string
	PValue      float64
	Significant bool
	Verdict     string
}

// CompareData drives the comparison page.
type CompareData struct {
	GeneratedAt time.Time
	HasSummary  bool
	Alpha       float64
	Comparisons []ComparisonView
	Recent      []models.TestResult
}

// ComparisonView groups every test over one metric column.
type ComparisonView struct {
	Column        string
	ANOVA         stats.TestResult
	KruskalWallis stats.TestResult
	Pairwise      []stats.TestResult
	Groups        []stats.GroupStats
}

func buildOverview(summary *pipeline.Summary) OverviewData {
	data := OverviewData{}
	if summary == nil {
		return data
	}
	data.HasSummary = true
	data.GeneratedAt = summary.GeneratedAt
	data.Alpha = summary.Alpha

	for _, s := range summary.Sites {
		card := SiteCard{
			ID:              s.ID,
			Name:            s.Name,
			Country:         s.Country,
			Rows:            s.Rows,
			MeanGHI:         s.GHI.Mean,
			MeanDailyEnergy: s.Solar.MeanDailyEnergy,
			DaylightPercent: s.Solar.DaylightPercent,
		}
		total := 0
		for _, n := range s.Solar.SkyDistribution {
			total += n
		}
		if total > 0 {
			card.ClearPercent = float64(s.Solar.SkyDistribution[solar.SkyClear]) / float64(total) * 100
		}
		if s.Normality != nil {
			card.HasNormality = true
			card.Normal = s.Normality.Normal
		}
		data.Sites = append(data.Sites, card)
	}

	for _, c := range summary.Comparisons {
		data.Headlines = append(data.Headlines, Headline{
			Column:      c.Column,
			Test:        c.ANOVA.Test,
			PValue:      c.ANOVA.PValue,
			Significant: c.ANOVA.Significant,
			Verdict:     c.ANOVA.Interpretation,
		})
	}
	return data
}

func buildCompare(summary *pipeline.Summary, recent []models.TestResult) CompareData {
	data := CompareData{Recent: recent}
	if summary == nil {
		return data
	}
	data.HasSummary = true
	data.GeneratedAt = summary.GeneratedAt
	data.Alpha = summary.Alpha

	for _, c := range summary.Comparisons {
		data.Comparisons = append(data.Comparisons, ComparisonView{
			Column:        c.Column,
			ANOVA:         c.ANOVA,
			KruskalWallis: c.KruskalWallis,
			Pairwise:      c.Pairwise,
			Groups:        c.ANOVA.Groups,
		})
	}
	return data
}

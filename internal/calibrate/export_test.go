package calibrate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/findablehq/findable-cli/internal/model"
)

func TestExportWorkbook_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	samples := []model.CalibrationSample{
		{
			ID:               "s-1",
			SiteID:           "site-1",
			QuestionID:       "offerings-01",
			QuestionCategory: model.CategoryOfferings,
			Difficulty:       model.DifficultyMedium,
			SimAnswerability: model.AnswerabilityFully,
			SimScore:         0.8123,
			ObsMentioned:     true,
			OutcomeMatch:     model.OutcomeTruePositive,
			PredictionAccurate: true,
			CreatedAt:        now,
		},
		{
			ID:               "s-2",
			SiteID:           "site-1",
			QuestionID:       "faq-01",
			QuestionCategory: model.CategoryFAQ,
			Difficulty:       model.DifficultyEasy,
			SimAnswerability: model.AnswerabilityNot,
			OutcomeMatch:     model.OutcomeFalseNegative,
			CreatedAt:        now,
		},
	}

	path := filepath.Join(t.TempDir(), "calibration.xlsx")
	require.NoError(t, ExportWorkbook(path, samples))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Samples", f.Sheets[0].Name)
	assert.Equal(t, "Bias", f.Sheets[1].Name)

	// Header plus one row per sample.
	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "sample_id", rows[0].Cells[0].String())
	assert.Equal(t, "s-1", rows[1].Cells[0].String())
	assert.Equal(t, "offerings", rows[1].Cells[4].String())
	assert.Equal(t, "0.8123", rows[1].Cells[7].String())
	assert.Equal(t, "true_positive", rows[1].Cells[12].String())
	assert.Equal(t, "s-2", rows[2].Cells[0].String())
}

func TestExportWorkbook_BiasSummary(t *testing.T) {
	samples := []model.CalibrationSample{
		{ID: "s-1", OutcomeMatch: model.OutcomeTruePositive, QuestionCategory: model.CategoryIdentity},
		{ID: "s-2", OutcomeMatch: model.OutcomeFalsePositive, QuestionCategory: model.CategoryIdentity},
	}

	path := filepath.Join(t.TempDir(), "bias.xlsx")
	require.NoError(t, ExportWorkbook(path, samples))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	bias := f.Sheets[1]
	values := map[string]string{}
	for _, row := range bias.Rows {
		if len(row.Cells) >= 2 {
			values[row.Cells[0].String()] = row.Cells[1].String()
		}
	}
	assert.Equal(t, "2", values["samples"])
	assert.Equal(t, "2", values["known_outcomes"])
	assert.Equal(t, "0.5000", values["accuracy"])
	assert.Equal(t, "0.5000", values["optimism"])

	// Category breakdown lists every question category.
	assert.Equal(t, "identity", bias.Rows[len(bias.Rows)-6].Cells[0].String())
}

func TestExportWorkbook_EmptySamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, ExportWorkbook(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 1)
}

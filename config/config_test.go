package config_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"scaletrack/config"
	"scaletrack/models"
	"scaletrack/services/estimator"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := config.NewManager(afero.NewMemMapFs(), "data/settings.json")
	require.NoError(t, m.Load())

	s := m.Settings()
	require.Equal(t, models.NoUserID, s.SelectedUserID)
	require.False(t, s.SmartUserAssign)
	require.Equal(t, estimator.DefaultWaterFormula.String(), s.EstimateWaterFormula)

	p := m.Plan()
	require.False(t, p.Water.Enabled)
	require.Equal(t, estimator.DefaultWaterFormula, p.Water.Formula)
}

func TestUpdatePersistsAndReloads(t *testing.T) {
	fs := afero.NewMemMapFs()

	m := config.NewManager(fs, "data/settings.json")
	require.NoError(t, m.Load())
	require.NoError(t, m.Update(func(s *config.Settings) {
		s.SelectedUserID = 3
		s.SmartUserAssign = true
		s.EstimateWaterEnable = true
		s.EstimateWaterFormula = estimator.TBWHumeWeyers.String()
	}))

	// A fresh manager over the same filesystem sees the written state.
	reloaded := config.NewManager(fs, "data/settings.json")
	require.NoError(t, reloaded.Load())

	s := reloaded.Settings()
	require.Equal(t, int64(3), s.SelectedUserID)
	require.True(t, s.SmartUserAssign)

	p := reloaded.Plan()
	require.True(t, p.Water.Enabled)
	require.Equal(t, estimator.TBWHumeWeyers, p.Water.Formula)
}

func TestUpdateLeavesNoTempFileBehind(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := config.NewManager(fs, "settings.json")
	require.NoError(t, m.Update(func(s *config.Settings) { s.SmartUserAssign = true }))

	exists, err := afero.Exists(fs, "settings.json.tmp")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLoadUnknownFormulaFallsBackToDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "settings.json",
		[]byte(`{"estimateFatEnable": true, "estimateFatFormula": "BF_BOGUS"}`), 0644))

	m := config.NewManager(fs, "settings.json")
	require.NoError(t, m.Load())

	p := m.Plan()
	require.True(t, p.Fat.Enabled)
	require.Equal(t, estimator.DefaultFatFormula, p.Fat.Formula)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "settings.json", []byte("{not json"), 0644))

	m := config.NewManager(fs, "settings.json")
	require.Error(t, m.Load())
}

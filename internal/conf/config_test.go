package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRegion(t *testing.T) {
	t.Parallel()

	loc, err := LookupRegion("臺北市", "中正區")
	require.NoError(t, err)
	assert.InDelta(t, 25.0324, loc.Lat, 1e-9)
	assert.InDelta(t, 121.5199, loc.Lon, 1e-9)
}

func TestLookupRegionUnknownCity(t *testing.T) {
	t.Parallel()

	_, err := LookupRegion("不存在市", "中正區")
	assert.Error(t, err)
}

func TestLookupRegionUnknownDistrict(t *testing.T) {
	t.Parallel()

	_, err := LookupRegion("臺北市", "不存在區")
	assert.Error(t, err)
}

func TestTargetLocationResolvesConfiguredRegion(t *testing.T) {
	t.Parallel()

	s := &Settings{Region: RegionSettings{City: "花蓮縣", District: "花蓮市"}}
	loc, err := s.TargetLocation()
	require.NoError(t, err)
	assert.InDelta(t, 23.9769, loc.Lat, 1e-9)
}

func TestDefaultConfigPaths(t *testing.T) {
	t.Parallel()

	paths, err := GetDefaultConfigPaths()
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0], "working directory is searched first")
}

func TestDefaultsCoverEveryRegionKey(t *testing.T) {
	setDefaultConfig()

	// The default region must resolve against the lookup table, otherwise a
	// fresh install cannot start.
	_, err := LookupRegion(viper.GetString("region.city"), viper.GetString("region.district"))
	assert.NoError(t, err)

	assert.Equal(t, 2, viper.GetInt("delay.countdown"))
	assert.Equal(t, 1, viper.GetInt("delay.playback"))
	assert.Equal(t, 30, viper.GetInt("ingress.keepalive"))
}
